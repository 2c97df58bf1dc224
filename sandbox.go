// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SandboxedPath is a validated, confinement-root-relative output path.
// Values are only constructed by sandboxPath, so holding one proves
// the path is a descendant of the extraction root.
type SandboxedPath struct {
	root string
	rel  string
}

// Root returns the extraction root the path is confined to.
func (p SandboxedPath) Root() string {
	return p.root
}

// Rel returns the root-relative, slash-separated path.
func (p SandboxedPath) Rel() string {
	return p.rel
}

// Abs returns the platform-specific absolute path below the root.
func (p SandboxedPath) Abs() string {
	return filepath.Join(p.root, filepath.FromSlash(p.rel))
}

// sandboxPath validates the untrusted declared entry path against the
// extraction root and returns the confined output path. dir is the
// already-confined, slash-separated subdirectory the current container
// expands into ("" at the top level).
//
// The check runs before any byte of the entry is written. Rejected
// paths are reported as PathViolationError; nothing is rewritten or
// auto-renamed.
func sandboxPath(t Target, root string, dir string, declared string) (SandboxedPath, error) {
	if declared == "" {
		return SandboxedPath{}, &PathViolationError{Path: declared, Reason: "empty entry name"}
	}

	// absolute declared paths never override the root
	if strings.HasPrefix(declared, "/") || filepath.IsAbs(filepath.FromSlash(declared)) {
		return SandboxedPath{}, &PathViolationError{Path: declared, Reason: "absolute path"}
	}

	// reject parent-directory segments before any cleaning can mask them
	for _, part := range strings.Split(declared, "/") {
		if part == ".." {
			return SandboxedPath{}, &PathViolationError{Path: declared, Reason: "parent directory segment"}
		}
	}

	// clean and anchor below the container's directory
	cleaned := path.Clean(declared)
	if cleaned == "." || cleaned == "/" {
		cleaned = ""
	}
	rel := path.Join(dir, cleaned)
	if rel == "" {
		rel = "."
	}

	// belt and braces: the joined result must still be local
	if rel != "." && !filepath.IsLocal(filepath.FromSlash(rel)) {
		return SandboxedPath{}, &PathViolationError{Path: declared, Reason: "path escapes extraction root"}
	}

	// walk each element below the root; a symlink anywhere on the way
	// could redirect the write outside the root, even transiently
	if rel != "." {
		elements := strings.Split(rel, "/")
		for i := range elements {
			check := filepath.Join(root, filepath.Join(elements[:i+1]...))
			info, err := t.Lstat(check)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					break
				}
				return SandboxedPath{}, &PathViolationError{Path: declared, Reason: fmt.Sprintf("cannot inspect path: %v", err)}
			}
			if info.Mode()&os.ModeSymlink != 0 {
				return SandboxedPath{}, &PathViolationError{Path: declared, Reason: "symlink in extraction path"}
			}
		}
	}

	return SandboxedPath{root: root, rel: rel}, nil
}

// checkPatterns checks if the given path matches any of the given
// patterns. If no patterns are given, the function returns true.
func checkPatterns(patterns []string, name string) (bool, error) {
	// no patterns given
	if len(patterns) == 0 {
		return true, nil
	}

	// check if name matches any pattern
	for _, pattern := range patterns {
		if match, err := filepath.Match(pattern, name); err != nil {
			return false, fmt.Errorf("failed to match pattern: %w", err)
		} else if match {
			return true, nil
		}
	}
	return false, nil
}
