// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// compressGzip compresses data with gzip for test inputs
func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressZlib compresses data with zlib for test inputs
func compressZlib(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressBzip2 compresses data with bzip2 for test inputs
func compressBzip2(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressXz compresses data with xz for test inputs
func compressXz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressLzma compresses data with lzma for test inputs
func compressLzma(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressZstd compresses data with zstandard for test inputs
func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressLZ4 compresses data into an lz4 frame for test inputs
func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressSnappy compresses data into a framed snappy stream for test
// inputs
func compressSnappy(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// compressBrotli compresses data with brotli for test inputs
func compressBrotli(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestNewDecodedStream tests decoding of every registered codec on
// streams produced by real encoders
func TestNewDecodedStream(t *testing.T) {

	payload := []byte("some payload that should survive the codec roundtrip")

	// test cases
	tests := []struct {
		kind     Kind
		compress func(*testing.T, []byte) []byte
	}{
		{KindGZip, compressGzip},
		{KindZlib, compressZlib},
		{KindBzip2, compressBzip2},
		{KindXz, compressXz},
		{KindLzma, compressLzma},
		{KindZstd, compressZstd},
		{KindLZ4, compressLZ4},
		{KindSnappy, compressSnappy},
		{KindBrotli, compressBrotli},
	}

	// run tests
	cfg := NewConfig()
	for _, tt := range tests {
		compressed := tt.compress(t, payload)

		// the strong signatures must sniff back to their kind
		if tt.kind != KindBrotli && tt.kind != KindLzma {
			if got := SniffFormat(compressed); got != tt.kind {
				t.Errorf("SniffFormat(%q stream) = %q; want %q", tt.kind, got, tt.kind)
			}
		}

		r, err := newDecodedStream(bytes.NewReader(compressed), tt.kind, cfg)
		if err != nil {
			t.Errorf("newDecodedStream(%q) unexpected error: %v", tt.kind, err)
			continue
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			t.Errorf("ReadAll(%q) unexpected error: %v", tt.kind, err)
			continue
		}
		if !bytes.Equal(decoded, payload) {
			t.Errorf("decoded %q content differs from payload", tt.kind)
		}
	}
}

// TestNewDecodedStreamDisabled tests that a disabled codec is refused
// as unsupported
func TestNewDecodedStreamDisabled(t *testing.T) {

	cfg := NewConfig(WithDisabledCodecs(KindGZip))
	compressed := compressGzip(t, []byte("payload"))

	_, err := newDecodedStream(bytes.NewReader(compressed), KindGZip, cfg)
	var uce *UnsupportedCodecError
	if !errors.As(err, &uce) {
		t.Fatalf("newDecodedStream() error = %v; want *UnsupportedCodecError", err)
	}
	if uce.Codec != KindGZip {
		t.Errorf("codec = %q; want %q", uce.Codec, KindGZip)
	}
}

// TestNewDecodedStreamUnknown tests that an unregistered kind is
// refused as unsupported
func TestNewDecodedStreamUnknown(t *testing.T) {

	_, err := newDecodedStream(bytes.NewReader(nil), Kind("7z"), NewConfig())
	var uce *UnsupportedCodecError
	if !errors.As(err, &uce) {
		t.Fatalf("newDecodedStream() error = %v; want *UnsupportedCodecError", err)
	}
}
