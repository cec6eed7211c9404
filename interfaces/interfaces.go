// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package bfpinterfaces defines the interfaces through which user hooks talk
// to the parser
//
// (This package is separated out so that hook implementations, such as the
// ones in the compression package, need not depend upon the engine)
package bfpinterfaces

// interface Compressor is implemented by the (de)compression hook of a record
// type which contains a compressed section.
//
// Decompress receives every byte following the start of the compressed section
// and returns the plaintext, from which parsing then continues. Compress is
// the inverse and is used when encoding
type Compressor interface {
	Decompress(b []byte) ([]byte, error)
	Compress(b []byte) ([]byte, error)
}

// interface Decoder is a little endian primitive reader over the input
// stream. It is handed to version discovery hooks
type Decoder interface {
	DecodeUint8() (uint8, error)
	DecodeUint16() (uint16, error)
	DecodeUint32() (uint32, error)
	DecodeUint64() (uint64, error)

	DecodeInt8() (int8, error)
	DecodeInt16() (int16, error)
	DecodeInt32() (int32, error)
	DecodeInt64() (int64, error)

	// DecodeFloat32 reads a single precision floating point number
	DecodeFloat32() (float32, error)

	// DecodeFloat64 reads a double precision floating point number
	DecodeFloat64() (float64, error)

	// DecodeFixedBytes reads exactly n bytes. The returned slice aliases the
	// input and must not be modified
	DecodeFixedBytes(n int) ([]byte, error)

	// DecodeFixedString reads exactly n bytes as a latin-1 string, with
	// trailing NULs removed
	DecodeFixedString(n int) (string, error)

	// Peek returns the next n bytes without consuming them
	Peek(n int) ([]byte, error)

	// Offset returns the number of bytes consumed so far
	Offset() int
}

// interface Encoder is the little endian primitive writer used when encoding
// records. It is handed to version header hooks
type Encoder interface {
	EncodeUint8(v uint8) error
	EncodeUint16(v uint16) error
	EncodeUint32(v uint32) error
	EncodeUint64(v uint64) error

	EncodeInt8(v int8) error
	EncodeInt16(v int16) error
	EncodeInt32(v int32) error
	EncodeInt64(v int64) error

	EncodeFloat32(f float32) error
	EncodeFloat64(f float64) error

	// EncodeFixedBytes writes b verbatim
	EncodeFixedBytes(b []byte) error

	// EncodeFixedString writes s as latin-1, NUL padded to n bytes. It fails
	// if s does not fit
	EncodeFixedString(s string, n int) error
}
