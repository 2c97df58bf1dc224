// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// spooledContent holds the fully-read bytes of one archive entry,
// buffered in memory up to the configured limit and spilled to a
// temporary file beyond it. Spooling decouples an entry's content from
// the single-pass container stream, so it can be hashed for the cycle
// guard, sniffed for nested archives, and handed to an extraction
// worker while the walk advances.
type spooledContent struct {
	header []byte
	hash   contentHash
	size   int64

	buf  []byte
	file *os.File
}

// spoolContent fully reads src, computing the content hash on the way.
// Content up to memLimit bytes stays in memory; larger content is
// spilled to a temporary file that is removed on Close.
func spoolContent(src io.Reader, memLimit int64) (*spooledContent, error) {
	digest := sha256.New()
	tee := io.TeeReader(src, digest)
	sc := &spooledContent{}

	// capture the sniffable prefix first
	prefix := make([]byte, maxHeaderLength)
	n, err := io.ReadFull(tee, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	sc.header = prefix[:n]

	var buf bytes.Buffer
	buf.Write(sc.header)

	// fill the memory buffer up to one byte past the limit to learn
	// whether the content fits
	if remaining := memLimit + 1 - int64(buf.Len()); remaining > 0 {
		if _, err := io.CopyN(&buf, tee, remaining); err != nil && err != io.EOF {
			return nil, err
		}
	}

	if int64(buf.Len()) <= memLimit {
		sc.buf = buf.Bytes()
		sc.size = int64(buf.Len())
		copy(sc.hash[:], digest.Sum(nil))
		return sc, nil
	}

	// spill to a temporary file
	tmpFile, err := os.CreateTemp("", "dissect-spool-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create spool file: %w", err)
	}
	if _, err := tmpFile.Write(buf.Bytes()); err != nil {
		sc.file = tmpFile
		sc.Close()
		return nil, fmt.Errorf("cannot write spool file: %w", err)
	}
	m, err := io.Copy(tmpFile, tee)
	if err != nil {
		sc.file = tmpFile
		sc.Close()
		return nil, err
	}
	sc.file = tmpFile
	sc.size = int64(buf.Len()) + m
	copy(sc.hash[:], digest.Sum(nil))
	return sc, nil
}

// Header returns the sniffable prefix of the content.
func (sc *spooledContent) Header() []byte {
	return sc.header
}

// Hash returns the content hash over the full content.
func (sc *spooledContent) Hash() contentHash {
	return sc.hash
}

// Size returns the content size in bytes.
func (sc *spooledContent) Size() int64 {
	return sc.size
}

// Reader returns a reader over the full content. The reader is valid
// until Close is called.
func (sc *spooledContent) Reader() (io.Reader, error) {
	if sc.file != nil {
		if _, err := sc.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("cannot rewind spool file: %w", err)
		}
		return sc.file, nil
	}
	return bytes.NewReader(sc.buf), nil
}

// Close releases the spooled content and removes the temporary file,
// if one was created.
func (sc *spooledContent) Close() error {
	if sc.file == nil {
		return nil
	}
	name := sc.file.Name()
	closeErr := sc.file.Close()
	removeErr := os.Remove(name)
	sc.file = nil
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}
