// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package bfp

import (
	"io"

	"go.e43.eu/bfp/internal/coder"
	"go.e43.eu/bfp/internal/schemadef"
	"go.e43.eu/bfp/internal/stream"
)

// Wire types
var (
	UInt8   = coder.UInt8
	UInt16  = coder.UInt16
	UInt32  = coder.UInt32
	UInt64  = coder.UInt64
	UInt128 = coder.UInt128

	Int8   = coder.Int8
	Int16  = coder.Int16
	Int32  = coder.Int32
	Int64  = coder.Int64
	Int128 = coder.Int128

	Float32 = coder.Float32
	Float64 = coder.Float64

	Bool8   = coder.Bool8
	Bool16  = coder.Bool16
	Bool32  = coder.Bool32
	Bool64  = coder.Bool64
	Bool128 = coder.Bool128

	Str8  = coder.Str8
	Str16 = coder.Str16
	Str32 = coder.Str32
	Str64 = coder.Str64
)

// FixedStr is a string stored in exactly n bytes, NUL padded
func FixedStr(n int) Type { return coder.FixedStr(n) }

// Bytes is a raw blob of exactly n bytes
func Bytes(n int) Type { return coder.Bytes(n) }

// StructOf nests the record type s
func StructOf(s *Struct) Type { return coder.StructOf(s) }

const (
	RepeatOptional = coder.RepeatOptional
	RepeatScalar   = coder.RepeatScalar
)

const (
	Less    = coder.Less
	Equal   = coder.Equal
	Greater = coder.Greater
)

var (
	// Unversioned is the version used when none is requested or discovered
	Unversioned = coder.Unversioned

	SetEq  = coder.SetEq
	SetNeq = coder.SetNeq
	SetGt  = coder.SetGt
	SetGeq = coder.SetGeq
	SetLt  = coder.SetLt
	SetLeq = coder.SetLeq
)

// NewVersion builds a version from its components
func NewVersion(parts ...int) Version { return coder.NewVersion(parts...) }

// ParseVersion parses a dotted version such as "1.47"
func ParseVersion(s string) (Version, error) { return coder.ParseVersion(s) }

// Orderings builds an ordering set from its members
func Orderings(os ...Ordering) OrderingSet { return coder.Orderings(os...) }

// Compare orders two values
func Compare(a, b Value) (Ordering, error) { return coder.Compare(a, b) }

// Construct a new record type
func NewStruct(name string, opts ...StructOption) *Struct {
	return coder.NewStruct(name, opts...)
}

// Construct a new, empty registry of record types
func NewRegistry() *Registry {
	return coder.NewRegistry()
}

func WithVersionFunc(read VersionFunc, write VersionWriter) StructOption {
	return coder.WithVersionFunc(read, write)
}

func WithCompressor(c Compressor) StructOption {
	return coder.WithCompressor(c)
}

// Field options
func MinVer(v Version) FieldOption           { return coder.MinVer(v) }
func MaxVer(v Version) FieldOption           { return coder.MaxVer(v) }
func Repeat(n int) FieldOption               { return coder.Repeat(n) }
func RemainingCompressed() FieldOption       { return coder.RemainingCompressed() }
func Default(x interface{}) FieldOption      { return coder.Default(x) }
func OnRead(cs ...Combinator) FieldOption    { return coder.OnRead(cs...) }
func OnWrite(cs ...Combinator) FieldOption   { return coder.OnWrite(cs...) }
func Mappers(hs ...Hook) FieldOption         { return coder.Mappers(hs...) }
func Validators(vs ...Validator) FieldOption { return coder.Validators(vs...) }
func OnGet(hs ...Hook) FieldOption           { return coder.OnGet(hs...) }
func OnSet(hs ...Hook) FieldOption           { return coder.OnSet(hs...) }

// Combinator builders
func If(r *Retriever) *IfBuilder              { return coder.If(r) }
func IfNot(r *Retriever) *IfBuilder           { return coder.IfNot(r) }
func IfLen(r *Retriever) *IfBuilder           { return coder.IfLen(r) }
func Set(r *Retriever) SetBuilder             { return coder.Set(r) }
func SetRepeat(r *Retriever) SetRepeatBuilder { return coder.SetRepeat(r) }
func Ref(r *Retriever) Operand                { return coder.Ref(r) }
func Lit(v interface{}) Operand               { return coder.Lit(v) }
func Must(c Combinator, err error) Combinator { return coder.Must(c, err) }

// Parse reads one record of type s from buf
func Parse(s *Struct, buf []byte, opts ParseOptions) (*Record, error) {
	return s.ParseBytes(buf, opts)
}

// ParseFile reads one record of type s from the file at path
func ParseFile(s *Struct, path string, opts ParseOptions) (*Record, error) {
	in, err := stream.FromFile(path)
	if err != nil {
		return nil, err
	}
	return s.Parse(in, opts)
}

// Read reads the whole of r and parses one record of type s from it
func Read(s *Struct, r io.Reader, opts ParseOptions) (*Record, error) {
	return s.Read(r, opts)
}

// Encode serialises rec into the returned buffer
func Encode(rec *Record) ([]byte, error) {
	return rec.Struct().Encode(rec)
}

// Write serialises rec into the passed writer
func Write(w io.Writer, rec *Record) error {
	return rec.Struct().Write(w, rec)
}

// Schema is a set of record types loaded from a schema file
type Schema = schemadef.Schema

// LoadSchema compiles the YAML (or JSON with comments) schema file at path
func LoadSchema(path string) (*Schema, error) {
	return schemadef.LoadFile(path)
}
