// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"archive/tar"
	"io"
	"io/fs"
)

// tarWalker is an archiveWalker for tar archives.
type tarWalker struct {
	tr *tar.Reader
}

func newTarWalker(src io.Reader) *tarWalker {
	return &tarWalker{tr: tar.NewReader(src)}
}

// Type returns the container format name.
func (w *tarWalker) Type() string {
	return string(KindTar)
}

// Next returns the next entry in the tar archive.
func (w *tarWalker) Next() (archiveEntry, error) {
	hdr, err := w.tr.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &CorruptEntryError{Format: w.Type(), Err: err}
	}
	return &tarEntry{hdr, w.tr}, nil
}

// tarEntry is an entry in a tar archive
type tarEntry struct {
	hdr *tar.Header
	tr  *tar.Reader
}

// Name returns the declared name of the entry
func (e *tarEntry) Name() string {
	return e.hdr.Name
}

// Size returns the declared size of the entry
func (e *tarEntry) Size() int64 {
	return e.hdr.Size
}

// Mode returns the mode of the entry
func (e *tarEntry) Mode() fs.FileMode {
	return e.hdr.FileInfo().Mode()
}

// Linkname returns the link target of the entry
func (e *tarEntry) Linkname() string {
	return e.hdr.Linkname
}

// IsRegular returns true if the entry is a regular file
func (e *tarEntry) IsRegular() bool {
	return e.hdr.Typeflag == tar.TypeReg
}

// IsDir returns true if the entry is a directory
func (e *tarEntry) IsDir() bool {
	return e.hdr.Typeflag == tar.TypeDir
}

// IsSymlink returns true if the entry is a symlink
func (e *tarEntry) IsSymlink() bool {
	return e.hdr.Typeflag == tar.TypeSymlink
}

// Open returns a reader for the entry content
func (e *tarEntry) Open() (io.ReadCloser, error) {
	return noopReaderCloser{e.tr}, nil
}
