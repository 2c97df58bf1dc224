// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"bytes"
)

// Kind identifies a detected container or compression format.
type Kind string

// Container formats.
const (
	KindUnknown Kind = ""
	KindAr      Kind = "ar"
	KindTar     Kind = "tar"
	KindCpio    Kind = "cpio"
	KindRar     Kind = "rar"
)

// Compression codecs.
const (
	KindGZip   Kind = "gz"
	KindBzip2  Kind = "bz2"
	KindXz     Kind = "xz"
	KindLzma   Kind = "lzma"
	KindLzip   Kind = "lz"
	KindZstd   Kind = "zst"
	KindLZ4    Kind = "lz4"
	KindSnappy Kind = "sz"
	KindZlib   Kind = "zz"
	KindBrotli Kind = "br"
)

// offsetTar is the offset where the magic bytes are located in the stream
const offsetTar = 257

// magicBytesAr are the magic bytes for ar archives
// reference https://en.wikipedia.org/wiki/Ar_(Unix)
var magicBytesAr = [][]byte{
	[]byte("!<arch>\n"),
}

// magicBytesTar are the magic bytes for tar archives
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

// magicBytesCpio are the magic bytes for cpio archives (SVR4 "newc"
// with and without checksum)
var magicBytesCpio = [][]byte{
	[]byte("070701"),
	[]byte("070702"),
}

// magicBytesRar are the magic bytes for Rar archives
var magicBytesRar = [][]byte{
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00},       // Rar 1.5
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, // Rar 5.0
}

// magicBytesGZip are the magic bytes for gzip compressed streams
// reference https://socketloop.com/tutorials/golang-gunzip-file
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// magicBytesBzip2 are the magic bytes for bzip2 compressed streams
// reference https://en.wikipedia.org/wiki/Bzip2
var magicBytesBzip2 = [][]byte{
	{0x42, 0x5A, 0x68},
}

// magicBytesXz are the magic bytes for xz compressed streams
// reference https://tukaani.org/xz/xz-file-format-1.0.4.txt
var magicBytesXz = [][]byte{
	{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},
}

// magicBytesLzma are the magic bytes for raw lzma streams. Weak
// signature, checked last.
var magicBytesLzma = [][]byte{
	{0x5D, 0x00, 0x00},
}

// magicBytesLzip are the magic bytes for lzip compressed streams
var magicBytesLzip = [][]byte{
	[]byte("LZIP"),
}

// magicBytesZstd are the magic bytes for zstandard compressed streams
// reference https://www.rfc-editor.org/rfc/rfc8878.html
var magicBytesZstd = [][]byte{
	{0x28, 0xb5, 0x2f, 0xfd},
}

// magicBytesLZ4 are the magic bytes for lz4 frame streams
// reference https://android.googlesource.com/platform/external/lz4/+/HEAD/doc/lz4_Frame_format.md
var magicBytesLZ4 = [][]byte{
	{0x04, 0x22, 0x4D, 0x18},
}

// magicBytesSnappy are the magic bytes for framed snappy streams
// reference https://github.com/google/snappy/blob/main/framing_format.txt
var magicBytesSnappy = [][]byte{
	{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59},
}

// magicBytesZlib are the magic bytes for zlib compressed streams
// reference https://www.ietf.org/rfc/rfc1950.txt
var magicBytesZlib = [][]byte{
	{0x78, 0x01},
	{0x78, 0x5e},
	{0x78, 0x9c},
	{0x78, 0xda},
}

// IsAr checks if the header matches the magic bytes for ar archives
func IsAr(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesAr)
}

// IsTar checks if the header matches the magic bytes for tar archives
func IsTar(header []byte) bool {
	return matchesMagicBytes(header, offsetTar, magicBytesTar)
}

// IsCpio checks if the header matches the magic bytes for cpio archives
func IsCpio(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesCpio)
}

// IsRar checks if the header matches the magic bytes for Rar archives
func IsRar(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesRar)
}

// IsGZip checks if the header matches the magic bytes for gzip streams
func IsGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// IsBzip2 checks if the header matches the magic bytes for bzip2 streams
func IsBzip2(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesBzip2)
}

// IsXz checks if the header matches the magic bytes for xz streams
func IsXz(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesXz)
}

// IsLzma checks if the header matches the magic bytes for lzma streams
func IsLzma(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLzma)
}

// IsLzip checks if the header matches the magic bytes for lzip streams
func IsLzip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLzip)
}

// IsZstd checks if the header matches the magic bytes for zstandard streams
func IsZstd(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZstd)
}

// IsLZ4 checks if the header matches the magic bytes for lz4 frame streams
func IsLZ4(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLZ4)
}

// IsSnappy checks if the header matches the magic bytes for framed snappy streams
func IsSnappy(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesSnappy)
}

// IsZlib checks if the header matches the magic bytes for zlib streams
func IsZlib(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZlib)
}

// IsBrotli returns always false, because brotli streams carry no
// unique magic bytes. Brotli decoding is only reachable through an
// explicit format hint.
func IsBrotli(header []byte) bool {
	return false
}

// sniffEntry associates a format kind with its header check. The slice
// order is the detection order: container formats first, then codecs
// with strong signatures, weak signatures last.
type sniffEntry struct {
	Kind        Kind
	HeaderCheck func([]byte) bool
	MagicBytes  [][]byte
	Offset      int
}

var sniffTable = []sniffEntry{
	{KindAr, IsAr, magicBytesAr, 0},
	{KindTar, IsTar, magicBytesTar, offsetTar},
	{KindCpio, IsCpio, magicBytesCpio, 0},
	{KindRar, IsRar, magicBytesRar, 0},
	{KindGZip, IsGZip, magicBytesGZip, 0},
	{KindBzip2, IsBzip2, magicBytesBzip2, 0},
	{KindXz, IsXz, magicBytesXz, 0},
	{KindZstd, IsZstd, magicBytesZstd, 0},
	{KindLZ4, IsLZ4, magicBytesLZ4, 0},
	{KindSnappy, IsSnappy, magicBytesSnappy, 0},
	{KindLzip, IsLzip, magicBytesLzip, 0},
	{KindZlib, IsZlib, magicBytesZlib, 0},
	{KindLzma, IsLzma, magicBytesLzma, 0},
	{KindBrotli, IsBrotli, nil, 0},
}

// maxHeaderLength is the maximum number of bytes the sniffer inspects
var maxHeaderLength int

// init calculates the maximum header length over all sniffable formats
func init() {
	for _, se := range sniffTable {
		needs := se.Offset
		for _, mb := range se.MagicBytes {
			if len(mb)+se.Offset > needs {
				needs = len(mb) + se.Offset
			}
		}
		if needs > maxHeaderLength {
			maxHeaderLength = needs
		}
	}
}

// SniffFormat inspects the given header bytes and returns the detected
// format kind, or KindUnknown if no known signature matches. It never
// consumes its input and tolerates short headers from truncated
// streams.
func SniffFormat(header []byte) Kind {
	for _, se := range sniffTable {
		if se.HeaderCheck(header) {
			return se.Kind
		}
	}
	return KindUnknown
}

// IsContainer reports whether k is a recognized container format.
func IsContainer(k Kind) bool {
	switch k {
	case KindAr, KindTar, KindCpio, KindRar:
		return true
	}
	return false
}

// IsCodec reports whether k is a recognized compression codec.
func IsCodec(k Kind) bool {
	switch k {
	case KindGZip, KindBzip2, KindXz, KindLzma, KindLzip, KindZstd,
		KindLZ4, KindSnappy, KindZlib, KindBrotli:
		return true
	}
	return false
}

func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
