// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Disk is the Target that places extracted contents on the local
// filesystem.
type Disk struct{}

// NewDisk creates a new Disk target.
func NewDisk() *Disk {
	return &Disk{}
}

// CreateDir creates a directory at the specified path with the
// specified mode. If the directory already exists, nothing is done.
func (d *Disk) CreateDir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateFile creates a file at the specified path with src as content.
// If the file already exists and overwrite is false, an error is
// returned. The size of the file is bounded by maxSize; if maxSize < 0
// the size is not limited. Returns the number of bytes written.
func (d *Disk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	// check for existence and if the file should be overwritten
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		if err != nil {
			return 0, fmt.Errorf("invalid path: %w", err)
		}
		if !overwrite {
			return 0, fmt.Errorf("file already exists")
		}
	}

	dstFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		dstFile.Close()
	}()

	writer := limitWriter(dstFile, maxSize)
	n, err := io.Copy(writer, src)
	if err != nil {
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	return n, nil
}

// CreateSymlink creates a symbolic link from newname to oldname. If
// newname already exists and overwrite is false, an error is returned.
func (d *Disk) CreateSymlink(oldname string, newname string, overwrite bool) error {
	// check for existence and if the link should be overwritten
	if _, err := os.Lstat(newname); !os.IsNotExist(err) {
		if !overwrite {
			return fmt.Errorf("file already exists")
		}
		if err := os.Remove(newname); err != nil {
			return fmt.Errorf("failed to overwrite file: %w", err)
		}
	}

	if err := os.Symlink(oldname, newname); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Lstat returns the FileInfo structure describing the named file.
func (d *Disk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

// Stat returns the FileInfo structure describing the named file.
func (d *Disk) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
