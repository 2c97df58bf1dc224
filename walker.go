// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"fmt"
	"io"
	"io/fs"
)

// archiveWalker is an interface that represents a single-pass,
// forward-only walk over the entries of a container stream. Each
// entry's content must be fully read or discarded before Next is
// called again; the walker never buffers more than one entry.
type archiveWalker interface {
	Type() string
	Next() (archiveEntry, error)
}

// archiveEntry is an interface that represents one member of a
// container. The declared name is untrusted input.
type archiveEntry interface {
	IsRegular() bool
	IsDir() bool
	IsSymlink() bool
	Linkname() string
	Mode() fs.FileMode
	Name() string
	Open() (io.ReadCloser, error)
	Size() int64
}

// newContainerWalker returns the walker for the given container kind
// reading from src.
func newContainerWalker(kind Kind, src io.Reader) (archiveWalker, error) {
	switch kind {
	case KindAr:
		return newArWalker(src), nil
	case KindTar:
		return newTarWalker(src), nil
	case KindCpio:
		return newCpioWalker(src), nil
	case KindRar:
		return newRarWalker(src)
	}
	return nil, fmt.Errorf("no walker for format %q", string(kind))
}

// noopReaderCloser wraps an io.Reader into an io.ReadCloser with a
// no-op Close, for walkers whose entry streams are views into the
// container stream and must not be closed individually.
type noopReaderCloser struct {
	io.Reader
}

func (n noopReaderCloser) Close() error {
	return nil
}
