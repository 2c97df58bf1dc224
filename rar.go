// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"io"
	"io/fs"

	"github.com/nwaples/rardecode"
)

// rarWalker is an archiveWalker for Rar archives.
type rarWalker struct {
	r *rardecode.Reader
}

func newRarWalker(src io.Reader) (*rarWalker, error) {
	r, err := rardecode.NewReader(src, "")
	if err != nil {
		return nil, &CorruptEntryError{Format: string(KindRar), Err: err}
	}
	return &rarWalker{r: r}, nil
}

// Type returns the container format name.
func (w *rarWalker) Type() string {
	return string(KindRar)
}

// Next returns the next entry in the rar archive.
func (w *rarWalker) Next() (archiveEntry, error) {
	hdr, err := w.r.Next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, &CorruptEntryError{Format: w.Type(), Err: err}
	}
	return &rarEntry{hdr, w.r}, nil
}

// rarEntry is an entry in a rar archive
type rarEntry struct {
	hdr *rardecode.FileHeader
	r   *rardecode.Reader
}

// Name returns the declared name of the entry
func (e *rarEntry) Name() string {
	return e.hdr.Name
}

// Size returns the declared unpacked size of the entry
func (e *rarEntry) Size() int64 {
	return e.hdr.UnPackedSize
}

// Mode returns the mode of the entry
func (e *rarEntry) Mode() fs.FileMode {
	return e.hdr.Mode()
}

// Linkname returns an empty string, the decoder does not expose link
// targets.
func (e *rarEntry) Linkname() string {
	return ""
}

// IsRegular returns true if the entry is a regular file
func (e *rarEntry) IsRegular() bool {
	return !e.hdr.IsDir && e.hdr.Mode()&fs.ModeSymlink == 0
}

// IsDir returns true if the entry is a directory
func (e *rarEntry) IsDir() bool {
	return e.hdr.IsDir
}

// IsSymlink returns false, symlink members are treated as unsupported
// because the decoder does not expose their target.
func (e *rarEntry) IsSymlink() bool {
	return false
}

// Open returns a reader for the entry content
func (e *rarEntry) Open() (io.ReadCloser, error) {
	return noopReaderCloser{e.r}, nil
}
