// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"errors"
	"testing"
)

// TestSandboxPath tests confinement validation of declared entry paths
func TestSandboxPath(t *testing.T) {

	// test cases
	tests := []struct {
		name      string
		dir       string
		declared  string
		wantRel   string
		wantError bool
	}{
		{"plain file", "", "file.txt", "file.txt", false},
		{"subdirectory", "", "usr/bin/tool", "usr/bin/tool", false},
		{"dot prefix", "", "./control", "control", false},
		{"below container dir", "data", "usr/share/doc", "data/usr/share/doc", false},
		{"trailing slash", "", "usr/", "usr", false},
		{"empty name", "", "", "", true},
		{"absolute path", "", "/etc/passwd", "", true},
		{"parent escape", "", "../evil", "", true},
		{"masked parent escape", "", "a/../../evil", "", true},
		{"parent escape below dir", "data", "../../evil", "", true},
		{"embedded parent segment", "", "usr/../../evil", "", true},
	}

	// run tests
	for _, tt := range tests {
		sp, err := sandboxPath(NewMemory(), "dest", tt.dir, tt.declared)
		if tt.wantError {
			if err == nil {
				t.Errorf("sandboxPath(%s) expected error, got rel %q", tt.name, sp.Rel())
				continue
			}
			var pve *PathViolationError
			if !errors.As(err, &pve) {
				t.Errorf("sandboxPath(%s) error type = %T; want *PathViolationError", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("sandboxPath(%s) unexpected error: %v", tt.name, err)
			continue
		}
		if sp.Rel() != tt.wantRel {
			t.Errorf("sandboxPath(%s) rel = %q; want %q", tt.name, sp.Rel(), tt.wantRel)
		}
		if sp.Root() != "dest" {
			t.Errorf("sandboxPath(%s) root = %q; want %q", tt.name, sp.Root(), "dest")
		}
	}
}

// TestSandboxPathSymlinkInPath tests that a symlink on the extraction
// path is rejected, even when the declared path itself looks clean
func TestSandboxPathSymlinkInPath(t *testing.T) {

	m := NewMemory()
	if err := m.CreateSymlink("elsewhere", "dest/sub", false); err != nil {
		t.Fatal(err)
	}

	if _, err := sandboxPath(m, "dest", "", "sub/file.txt"); err == nil {
		t.Error("sandboxPath() expected symlink-in-path rejection, got nil")
	}

	// a sibling path without the symlink keeps working
	if _, err := sandboxPath(m, "dest", "", "other/file.txt"); err != nil {
		t.Errorf("sandboxPath() unexpected error: %v", err)
	}
}

// TestCheckPatterns tests pattern matching of entry names
func TestCheckPatterns(t *testing.T) {

	// test cases
	tests := []struct {
		patterns []string
		name     string
		want     bool
	}{
		{nil, "anything", true},
		{[]string{"*.txt"}, "readme.txt", true},
		{[]string{"*.txt"}, "binary", false},
		{[]string{"*.md", "*.txt"}, "readme.txt", true},
		{[]string{"usr/*"}, "usr/tool", true},
		{[]string{"usr/*"}, "etc/tool", false},
	}

	// run tests
	for _, tt := range tests {
		got, err := checkPatterns(tt.patterns, tt.name)
		if err != nil {
			t.Errorf("checkPatterns(%v, %q) unexpected error: %v", tt.patterns, tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("checkPatterns(%v, %q) = %v; want %v", tt.patterns, tt.name, got, tt.want)
		}
	}
}
