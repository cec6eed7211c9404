// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package bfp implements declarative parsing and serialisation of binary
// file formats.
//
// A record type (a Struct) is declared as an ordered list of typed fields
// (Retrievers). Parsing reads the fields in declaration order from a byte
// stream into a Record. Each field may be gated on a version range, repeated
// (becoming a list) and annotated with combinators: small programs which run
// once the field has been read and which set the value or repeat count of
// other fields.
//
//     var (
//         Header = bfp.NewStruct("Header")
//         count  = Header.Add("count", bfp.UInt32)
//         points = Header.Add("points", bfp.Float32, bfp.Repeat(bfp.RepeatOptional))
//         flags  = Header.Add("flags", bfp.Bool8, bfp.MinVer(bfp.NewVersion(1, 2)))
//     )
//
//     func init() {
//         count.OnRead(bfp.SetRepeat(points).From(count))
//     }
//
// The mapping from field types to the wire is:
//
//                      Type | Wire
//     ----------------------+------------------------------------------------
//          UInt8 .. UInt128 | unsigned little endian integer of that width
//            Int8 .. Int128 | two's complement little endian integer
//          Float32, Float64 | IEEE 754, little endian
//          Bool8 .. Bool128 | integer of that width; non-zero is true
//             Str8 .. Str64 | unsigned length prefix of that width, then latin-1 bytes
//               FixedStr(n) | n latin-1 bytes, NUL padded
//                  Bytes(n) | n raw bytes
//               StructOf(s) | the fields of s, parsed against the parent's version
//
// A field's repeat count decides its state: RepeatOptional (-1) means absent,
// RepeatScalar (1) means one value, anything else a list of that many values.
// Once a combinator overrides the repeat count the field is always a list.
//
// Combinators are built with the If, IfNot, IfLen, Set and SetRepeat
// builders:
//
//     bfp.Must(bfp.If(version).Geq(bfp.Lit(2)).Then(
//         bfp.SetRepeat(extra).To(4),
//     ))
//
// A field whose version range excludes the resolved version is never read and
// consumes no bytes. Record types may discover their own version from the
// stream (WithVersionFunc) and may have a compressed suffix
// (WithCompressor and RemainingCompressed).
package bfp

import (
	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/coder"
	"go.e43.eu/bfp/internal/errors"
)

// Schema
type (
	// Struct is the schema of one record type
	Struct = coder.Struct

	// Retriever is one field of a Struct
	Retriever = coder.Retriever

	// Registry is a named collection of record types
	Registry = coder.Registry

	StructOption = coder.StructOption
	FieldOption  = coder.FieldOption

	Hook          = coder.Hook
	Validator     = coder.Validator
	VersionFunc   = coder.VersionFunc
	VersionWriter = coder.VersionWriter
	ParseOptions  = coder.ParseOptions
)

// Values
type (
	Type    = coder.Type
	Version = coder.Version
	Value   = coder.Value
	Kind    = coder.Kind
	List    = coder.List
	Record  = coder.Record
	U128    = coder.U128
	I128    = coder.I128

	Ordering    = coder.Ordering
	OrderingSet = coder.OrderingSet
)

// Combinators
type (
	Combinator = coder.Combinator

	SetTo         = coder.SetTo
	SetFrom       = coder.SetFrom
	SetFromLen    = coder.SetFromLen
	SetRepeatTo   = coder.SetRepeatTo
	SetRepeatFrom = coder.SetRepeatFrom
	IfCheck       = coder.IfCheck
	IfCmpFrom     = coder.IfCmpFrom
	IfCmpTo       = coder.IfCmpTo
	IfCmpLenFrom  = coder.IfCmpLenFrom
	IfCmpLenTo    = coder.IfCmpLenTo

	Operand          = coder.Operand
	IfBuilder        = coder.IfBuilder
	SetBuilder       = coder.SetBuilder
	SetRepeatBuilder = coder.SetRepeatBuilder
)

// interface Compressor is the (de)compression hook of a record type
type Compressor = bfpinterfaces.Compressor

// interface Decoder is the primitive reader handed to version discovery hooks
type Decoder = bfpinterfaces.Decoder

// interface Encoder is the primitive writer handed to version header hooks
type Encoder = bfpinterfaces.Encoder

// ShortReadError reports a read past the end of the input
type ShortReadError = errors.ShortReadError

// FieldError annotates an error with the field path and version at which it
// occurred
type FieldError = errors.FieldError

// Errors returned by the engine. Use errors.Is to test for them
var (
	ErrTruncated              error = errors.ErrTruncated
	ErrVersionUnsupported     error = errors.ErrVersionUnsupported
	ErrTypeMismatch           error = errors.ErrTypeMismatch
	ErrUninitialized          error = errors.ErrUninitialized
	ErrCompressionUnsupported error = errors.ErrCompressionUnsupported
	ErrValueOutOfRange        error = errors.ErrValueOutOfRange
	ErrChainedComparison      error = errors.ErrChainedComparison
	ErrTrailingBytes          error = errors.ErrTrailingBytes
	ErrValidation             error = errors.ErrValidation
	ErrUnknownField           error = errors.ErrUnknownField
)
