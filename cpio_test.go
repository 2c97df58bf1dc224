// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
	"io"
	"testing"
)

// TestCpioWalker tests entry classification and link targets of the
// cpio walker
func TestCpioWalker(t *testing.T) {

	archive := packCpio(t, []cpioEntrySpec{
		{name: "etc", mode: 040755},
		{name: "etc/app.conf", mode: 0100644, content: []byte("key = value\n")},
		{name: "etc/app.link", mode: 0120777, content: []byte("app.conf")},
	})

	w := newCpioWalker(bytes.NewReader(archive))
	if w.Type() != "cpio" {
		t.Errorf("Type() = %q; want %q", w.Type(), "cpio")
	}

	// directory
	e, err := w.Next()
	if err != nil {
		t.Fatalf("Next(dir) unexpected error: %v", err)
	}
	if !e.IsDir() || e.IsRegular() || e.IsSymlink() {
		t.Errorf("entry %q classified dir=%v regular=%v symlink=%v; want dir", e.Name(), e.IsDir(), e.IsRegular(), e.IsSymlink())
	}

	// regular file
	e, err = w.Next()
	if err != nil {
		t.Fatalf("Next(file) unexpected error: %v", err)
	}
	if !e.IsRegular() {
		t.Errorf("entry %q not classified as regular file", e.Name())
	}
	src, err := e.Open()
	if err != nil {
		t.Fatal(err)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "key = value\n" {
		t.Errorf("content = %q; want %q", content, "key = value\n")
	}

	// symlink: the reader parses the target out of the entry content,
	// so it must be served from the header
	e, err = w.Next()
	if err != nil {
		t.Fatalf("Next(symlink) unexpected error: %v", err)
	}
	if !e.IsSymlink() {
		t.Fatalf("entry %q not classified as symlink", e.Name())
	}
	if e.Linkname() != "app.conf" {
		t.Errorf("Linkname() = %q; want %q", e.Linkname(), "app.conf")
	}

	if _, err := w.Next(); err != io.EOF {
		t.Errorf("Next(end) error = %v; want io.EOF", err)
	}
}
