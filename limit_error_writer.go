// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"fmt"
	"io"
)

// limitErrorWriter is a writer that returns an error if the limit is
// exceeded before the src is fully written.
// If the limit is -1, all data is written without any check.
type limitErrorWriter struct {
	W io.Writer // underlying writer
	L int64     // limit
	N int64     // number of bytes written
}

// Write writes p to the underlying writer and returns an error if the
// limit is exceeded, even if the underlying writer accepted the data.
func (l *limitErrorWriter) Write(p []byte) (int, error) {
	// determine how many bytes can still be written
	m := l.L - l.N
	if l.L == -1 || m > int64(len(p)) {
		m = int64(len(p))
	}

	// check if limit has been exceeded
	if m == 0 {
		return 0, fmt.Errorf("write limit exceeded")
	}

	// write to underlying writer
	n, err := l.W.Write(p[:m])
	l.N += int64(n)
	if err != nil {
		return n, err
	}

	// report an error if p could not be written completely
	if n < len(p) {
		return n, fmt.Errorf("write limit exceeded")
	}
	return n, nil
}

// limitWriter returns a new limitErrorWriter that writes to w
func limitWriter(w io.Writer, limit int64) io.Writer {
	return &limitErrorWriter{W: w, L: limit, N: 0}
}
