// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"fmt"
	"io"
)

// headerReader is an implementation of io.Reader that allows the first
// bytes of the reader to be read twice. This is used to identify the
// container or compression format of a stream before consuming it.
type headerReader struct {
	r      io.Reader
	header []byte
}

func newHeaderReader(r io.Reader, headerSize int) (*headerReader, error) {
	// read at least headerSize bytes. If EOF, capture whatever was read.
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}
	return &headerReader{r, buf[:n]}, nil
}

func (h *headerReader) Read(b []byte) (int, error) {
	// serve the buffered header first
	if len(h.header) > 0 {
		n := copy(b, h.header)
		h.header = h.header[n:]
		return n, nil
	}

	// then continue reading from the source
	return h.r.Read(b)
}

// PeekHeader returns the not-yet-consumed part of the buffered header.
func (h *headerReader) PeekHeader() []byte {
	return h.header
}
