// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// Target specifies all functions that are needed to be implemented to
// place extracted contents somewhere. The engine performs all path
// confinement itself; a Target only receives paths that were validated
// by the sandbox.
type Target interface {
	// CreateFile creates a file at the specified path with src as content. The
	// mode parameter is the file mode that should be set on the file. If the file
	// already exists and overwrite is false, an error should be returned. The
	// size of the file should not exceed maxSize; if maxSize < 0 the size is not
	// limited. The number of bytes written is returned, along with any error.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates a directory at the specified path with the specified
	// mode. If the directory already exists, nothing is done.
	CreateDir(path string, mode fs.FileMode) error

	// CreateSymlink creates a symbolic link from newname to oldname. If newname
	// already exists and overwrite is false, an error should be returned.
	CreateSymlink(oldname string, newname string, overwrite bool) error

	// Lstat see docs for os.Lstat. Main purpose is to check for symlinks in the
	// extraction path.
	Lstat(path string) (fs.FileInfo, error)

	// Stat see docs for os.Stat.
	Stat(path string) (fs.FileInfo, error)
}

// createFile writes src to the sandboxed path on t, creating missing
// parent directories with the configured mode.
func createFile(t Target, sp SandboxedPath, src io.Reader, mode fs.FileMode, maxSize int64, cfg *Config) (int64, error) {
	if dir := filepath.Dir(sp.Abs()); dir != "." {
		if err := t.CreateDir(dir, cfg.CustomCreateDirMode()); err != nil {
			return 0, fmt.Errorf("cannot create parent directory: %w", err)
		}
	}
	return t.CreateFile(sp.Abs(), src, mode.Perm(), cfg.Overwrite(), maxSize)
}

// createDir creates the sandboxed directory on t.
func createDir(t Target, sp SandboxedPath, mode fs.FileMode) error {
	if sp.Rel() == "." {
		return nil
	}
	return t.CreateDir(sp.Abs(), mode.Perm())
}

// createSymlink creates a symlink at the sandboxed path on t. The link
// target is untrusted and must stay confined when resolved relative to
// the link's directory; escaping targets are a path violation.
func createSymlink(t Target, sp SandboxedPath, linkTarget string, cfg *Config) error {
	if linkTarget == "" {
		return &PathViolationError{Path: sp.Rel(), Reason: "empty symlink target"}
	}
	if filepath.IsAbs(linkTarget) || strings.HasPrefix(linkTarget, "/") {
		return &PathViolationError{Path: sp.Rel(), Reason: "absolute symlink target"}
	}

	// resolve the target relative to the link location; leading parent
	// segments survive path.Join, so an escape shows as non-local
	resolved := path.Join(path.Dir(sp.Rel()), filepath.ToSlash(linkTarget))
	if !filepath.IsLocal(filepath.FromSlash(resolved)) {
		return &PathViolationError{Path: sp.Rel(), Reason: fmt.Sprintf("symlink target %q escapes extraction root", linkTarget)}
	}

	if dir := filepath.Dir(sp.Abs()); dir != "." {
		if err := t.CreateDir(dir, cfg.CustomCreateDirMode()); err != nil {
			return fmt.Errorf("cannot create parent directory: %w", err)
		}
	}
	return t.CreateSymlink(linkTarget, sp.Abs(), cfg.Overwrite())
}
