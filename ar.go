// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"io"
	"io/fs"
	"strings"

	"github.com/blakesmith/ar"
)

// arWalker is an archiveWalker for ar archives, the outer container of
// Debian-style packages.
type arWalker struct {
	ar *ar.Reader
}

func newArWalker(src io.Reader) *arWalker {
	return &arWalker{ar: ar.NewReader(src)}
}

// Type returns the container format name.
func (w *arWalker) Type() string {
	return string(KindAr)
}

// Next returns the next entry in the ar archive.
func (w *arWalker) Next() (archiveEntry, error) {
	hdr, err := w.ar.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &CorruptEntryError{Format: w.Type(), Err: err}
	}
	return &arEntry{hdr, w.ar}, nil
}

// arEntry is an entry in an ar archive. The format only carries
// regular file members.
type arEntry struct {
	hdr *ar.Header
	ar  *ar.Reader
}

// Name returns the declared name of the entry. GNU ar appends a "/"
// terminator and pads with spaces; both are stripped.
func (e *arEntry) Name() string {
	name := strings.TrimRight(e.hdr.Name, " ")
	return strings.TrimSuffix(name, "/")
}

// Size returns the declared size of the entry.
func (e *arEntry) Size() int64 {
	return e.hdr.Size
}

// Mode returns the mode of the entry.
func (e *arEntry) Mode() fs.FileMode {
	return fs.FileMode(e.hdr.Mode).Perm()
}

// Linkname returns an empty string, ar archives carry no links.
func (e *arEntry) Linkname() string {
	return ""
}

// IsRegular returns true, every ar member is a regular file.
func (e *arEntry) IsRegular() bool {
	return true
}

// IsDir returns false, ar archives carry no directories.
func (e *arEntry) IsDir() bool {
	return false
}

// IsSymlink returns false, ar archives carry no symlinks.
func (e *arEntry) IsSymlink() bool {
	return false
}

// Open returns a reader for the entry content.
func (e *arEntry) Open() (io.ReadCloser, error) {
	return noopReaderCloser{e.ar}, nil
}
