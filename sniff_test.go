// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

// TestSniffFormat tests format detection on crafted headers
func TestSniffFormat(t *testing.T) {

	tarHeader := make([]byte, 300)
	copy(tarHeader[offsetTar:], "ustar\x00")

	// test cases
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"ar", []byte("!<arch>\ndebian-binary   "), KindAr},
		{"tar", tarHeader, KindTar},
		{"cpio newc", []byte("070701000000"), KindCpio},
		{"cpio crc", []byte("070702000000"), KindCpio},
		{"rar 1.5", []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}, KindRar},
		{"rar 5.0", []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, KindRar},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, KindGZip},
		{"bzip2", []byte("BZh91AY"), KindBzip2},
		{"xz", []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}, KindXz},
		{"lzma", []byte{0x5D, 0x00, 0x00, 0x80, 0x00}, KindLzma},
		{"lzip", []byte("LZIP\x01"), KindLzip},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, KindZstd},
		{"lz4", []byte{0x04, 0x22, 0x4D, 0x18, 0x64}, KindLZ4},
		{"snappy", []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}, KindSnappy},
		{"zlib", []byte{0x78, 0x9c, 0x00}, KindZlib},
		{"empty", nil, KindUnknown},
		{"short", []byte{0x1f}, KindUnknown},
		{"plain text", []byte("hello world, this is not an archive"), KindUnknown},
	}

	// run tests
	for _, tt := range tests {
		if got := SniffFormat(tt.header); got != tt.want {
			t.Errorf("SniffFormat(%s) = %q; want %q", tt.name, got, tt.want)
		}
	}
}

// TestSniffFormatRealStreams tests detection on streams produced by
// real encoders
func TestSniffFormatRealStreams(t *testing.T) {

	// gzip stream
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write([]byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if got := SniffFormat(gz.Bytes()); got != KindGZip {
		t.Errorf("SniffFormat(gzip stream) = %q; want %q", got, KindGZip)
	}

	// tar stream
	var tb bytes.Buffer
	tw := tar.NewWriter(&tb)
	if err := tw.WriteHeader(&tar.Header{Name: "file", Mode: 0644, Size: 0}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if got := SniffFormat(tb.Bytes()); got != KindTar {
		t.Errorf("SniffFormat(tar stream) = %q; want %q", got, KindTar)
	}
}

// TestIsBrotli tests that brotli is never detected from headers
func TestIsBrotli(t *testing.T) {
	if IsBrotli([]byte{0xce, 0xb2, 0xcf, 0x81}) {
		t.Error("IsBrotli() = true; want false, brotli has no magic bytes")
	}
}

// TestKindClassification tests the container/codec split
func TestKindClassification(t *testing.T) {

	// test cases
	tests := []struct {
		kind        Kind
		isContainer bool
		isCodec     bool
	}{
		{KindAr, true, false},
		{KindTar, true, false},
		{KindCpio, true, false},
		{KindRar, true, false},
		{KindGZip, false, true},
		{KindBzip2, false, true},
		{KindXz, false, true},
		{KindLzma, false, true},
		{KindLzip, false, true},
		{KindZstd, false, true},
		{KindLZ4, false, true},
		{KindSnappy, false, true},
		{KindZlib, false, true},
		{KindBrotli, false, true},
		{KindUnknown, false, false},
	}

	// run tests
	for _, tt := range tests {
		if got := IsContainer(tt.kind); got != tt.isContainer {
			t.Errorf("IsContainer(%q) = %v; want %v", tt.kind, got, tt.isContainer)
		}
		if got := IsCodec(tt.kind); got != tt.isCodec {
			t.Errorf("IsCodec(%q) = %v; want %v", tt.kind, got, tt.isCodec)
		}
	}
}

// TestMaxHeaderLength tests that the sniff window covers the tar magic
func TestMaxHeaderLength(t *testing.T) {
	if maxHeaderLength < offsetTar+len(magicBytesTar[0]) {
		t.Errorf("maxHeaderLength = %d; too short for tar detection", maxHeaderLength)
	}
}
