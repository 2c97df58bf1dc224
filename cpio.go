// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"io"
	"io/fs"

	cpio "github.com/cavaliercoder/go-cpio"
)

// cpioWalker is an archiveWalker for SVR4 cpio archives, the inner
// container of rpm-style packages.
type cpioWalker struct {
	cr *cpio.Reader
}

func newCpioWalker(src io.Reader) *cpioWalker {
	return &cpioWalker{cr: cpio.NewReader(src)}
}

// Type returns the container format name.
func (w *cpioWalker) Type() string {
	return string(KindCpio)
}

// Next returns the next entry in the cpio archive.
func (w *cpioWalker) Next() (archiveEntry, error) {
	hdr, err := w.cr.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &CorruptEntryError{Format: w.Type(), Err: err}
	}
	return &cpioEntry{hdr: hdr, cr: w.cr}, nil
}

// cpioEntry is an entry in a cpio archive
type cpioEntry struct {
	hdr *cpio.Header
	cr  *cpio.Reader
}

// Name returns the declared name of the entry
func (e *cpioEntry) Name() string {
	return e.hdr.Name
}

// Size returns the declared size of the entry
func (e *cpioEntry) Size() int64 {
	return e.hdr.Size
}

// Mode returns the mode of the entry
func (e *cpioEntry) Mode() fs.FileMode {
	return e.hdr.FileInfo().Mode()
}

// Linkname returns the link target of the entry. The reader consumes
// the target from the entry content while parsing the header.
func (e *cpioEntry) Linkname() string {
	return e.hdr.Linkname
}

// IsRegular returns true if the entry is a regular file
func (e *cpioEntry) IsRegular() bool {
	return e.hdr.Mode.IsRegular()
}

// IsDir returns true if the entry is a directory
func (e *cpioEntry) IsDir() bool {
	return e.hdr.Mode.IsDir()
}

// IsSymlink returns true if the entry is a symlink
func (e *cpioEntry) IsSymlink() bool {
	return e.hdr.FileInfo().Mode()&fs.ModeSymlink != 0
}

// Open returns a reader for the entry content
func (e *cpioEntry) Open() (io.ReadCloser, error) {
	return noopReaderCloser{e.cr}, nil
}
