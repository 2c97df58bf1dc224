// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package dissect

import (
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// maxDecoderChain bounds how many compression layers are unwrapped for
// a single stream before it is treated as unsupported. Chained
// compression beyond this depth is a decompression-bomb pattern, not a
// legitimate archive.
const maxDecoderChain = 4

// decompressFunc wraps a compressed stream in its decompressing reader
type decompressFunc func(io.Reader) (io.Reader, error)

// availableCodecs is the capability registry mapping a codec kind to
// its stream decoder. Adding a codec here never touches the walker or
// the orchestrator.
var availableCodecs = map[Kind]decompressFunc{
	KindGZip:   decompressGZipStream,
	KindBzip2:  decompressBzip2Stream,
	KindXz:     decompressXzStream,
	KindLzma:   decompressLzmaStream,
	KindLzip:   decompressLzipStream,
	KindZstd:   decompressZstdStream,
	KindLZ4:    decompressLZ4Stream,
	KindSnappy: decompressSnappyStream,
	KindZlib:   decompressZlibStream,
	KindBrotli: decompressBrotliStream,
}

// newDecodedStream wraps src in the decoder registered for the given
// codec kind. It returns an UnsupportedCodecError if the codec has no
// registered decoder or is disabled by configuration; this is a
// recoverable condition for the caller.
func newDecodedStream(src io.Reader, kind Kind, cfg *Config) (io.Reader, error) {
	if cfg.CodecDisabled(kind) {
		return nil, &UnsupportedCodecError{Codec: kind}
	}
	decompress, ok := availableCodecs[kind]
	if !ok {
		return nil, &UnsupportedCodecError{Codec: kind}
	}
	return decompress(src)
}

// decompressGZipStream returns an io.Reader that decompresses src with the gzip algorithm
func decompressGZipStream(src io.Reader) (io.Reader, error) {
	return gzip.NewReader(src)
}

// decompressBzip2Stream returns an io.Reader that decompresses src with the bzip2 algorithm
func decompressBzip2Stream(src io.Reader) (io.Reader, error) {
	return bzip2.NewReader(src, nil)
}

// decompressXzStream returns an io.Reader that decompresses src with the xz algorithm
func decompressXzStream(src io.Reader) (io.Reader, error) {
	return xz.NewReader(src)
}

// decompressLzmaStream returns an io.Reader that decompresses src with the lzma algorithm
func decompressLzmaStream(src io.Reader) (io.Reader, error) {
	return lzma.NewReader(src)
}

// decompressLzipStream returns an io.Reader that decompresses src with the lzip algorithm
func decompressLzipStream(src io.Reader) (io.Reader, error) {
	return archives.Lzip{}.OpenReader(src)
}

// decompressZstdStream returns an io.Reader that decompresses src with the zstandard algorithm
func decompressZstdStream(src io.Reader) (io.Reader, error) {
	return zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
}

// decompressLZ4Stream returns an io.Reader that decompresses src with the lz4 algorithm
func decompressLZ4Stream(src io.Reader) (io.Reader, error) {
	return lz4.NewReader(src), nil
}

// decompressSnappyStream returns an io.Reader that decompresses src with the snappy algorithm
func decompressSnappyStream(src io.Reader) (io.Reader, error) {
	return snappy.NewReader(src), nil
}

// decompressZlibStream returns an io.Reader that decompresses src with the zlib algorithm
func decompressZlibStream(src io.Reader) (io.Reader, error) {
	return zlib.NewReader(src)
}

// decompressBrotliStream returns an io.Reader that decompresses src with the brotli algorithm
func decompressBrotliStream(src io.Reader) (io.Reader, error) {
	return brotli.NewReader(src), nil
}
