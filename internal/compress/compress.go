// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package compress provides ready made compression hooks for record types
// with a compressed suffix
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
)

// Algorithm identifies a compression format
type Algorithm uint8

const (
	None Algorithm = iota
	// Raw deflate stream, without zlib framing
	Deflate
	// Deflate with a zlib header and checksum
	Zlib
	// Zstandard frame
	Zstd
	// LZ4 frame
	LZ4
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Deflate:
		return "deflate"
	case Zlib:
		return "zlib"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// ParseAlgorithm parses an algorithm from its string representation
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return None, nil
	case "deflate":
		return Deflate, nil
	case "zlib":
		return Zlib, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("bfp: unknown compression algorithm %q", name)
	}
}

// New returns the hook for a. None has no hook and returns nil
func New(a Algorithm) (bfpinterfaces.Compressor, error) {
	switch a {
	case None:
		return nil, nil
	case Deflate:
		return deflateCompressor{level: flate.DefaultCompression}, nil
	case Zlib:
		return zlibCompressor{level: zlib.DefaultCompression}, nil
	case Zstd:
		return zstdCompressor{}, nil
	case LZ4:
		return lz4Compressor{}, nil
	default:
		return nil, fmt.Errorf("bfp: unsupported compression algorithm %s", a)
	}
}

// readAll drains and closes rc
func readAll(rc io.ReadCloser) ([]byte, error) {
	out, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	return out, err
}

type deflateCompressor struct {
	level int
}

var _ bfpinterfaces.Compressor = deflateCompressor{}

func (c deflateCompressor) Decompress(b []byte) ([]byte, error) {
	out, err := readAll(flate.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("deflate decompress: %w", err)
	}
	return out, nil
}

func (c deflateCompressor) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate compress: %w", err)
	}
	return buf.Bytes(), nil
}

type zlibCompressor struct {
	level int
}

func (c zlibCompressor) Decompress(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	out, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out, nil
}

func (c zlibCompressor) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// zstdEncoder and zstdDecoder are shared by every hook; both are safe for
// concurrent use through EncodeAll / DecodeAll
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("bfp: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("bfp: zstd decoder initialization failed: " + err.Error())
	}
}

type zstdCompressor struct{}

func (zstdCompressor) Decompress(b []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

func (zstdCompressor) Compress(b []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(b, nil), nil
}

type lz4Compressor struct{}

func (lz4Compressor) Decompress(b []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	return out, nil
}

func (lz4Compressor) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buf.Bytes(), nil
}
