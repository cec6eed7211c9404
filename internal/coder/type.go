// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"math"
	"reflect"

	"go.e43.eu/bfp/internal/errors"
)

type typeKind uint8

const (
	typeInvalid typeKind = iota

	typeUint8
	typeUint16
	typeUint32
	typeUint64
	typeUint128

	typeInt8
	typeInt16
	typeInt32
	typeInt64
	typeInt128

	typeFloat32
	typeFloat64

	typeBool8
	typeBool16
	typeBool32
	typeBool64
	typeBool128

	// Length prefixed string; n is the width of the prefix
	typeStr
	// Fixed length string; n is the length
	typeFixedStr
	// Fixed length byte blob; n is the length
	typeBytes
	// Nested record
	typeStruct
)

// Type describes how one value is laid out on the wire. Types carry no
// per-parse state and may be shared freely.
//
// All numeric types are little endian. Booleans are integers of the given
// width where any non-zero value is true
type Type struct {
	kind typeKind
	n    int
	st   *Struct
}

var (
	UInt8   = Type{kind: typeUint8}
	UInt16  = Type{kind: typeUint16}
	UInt32  = Type{kind: typeUint32}
	UInt64  = Type{kind: typeUint64}
	UInt128 = Type{kind: typeUint128}

	Int8   = Type{kind: typeInt8}
	Int16  = Type{kind: typeInt16}
	Int32  = Type{kind: typeInt32}
	Int64  = Type{kind: typeInt64}
	Int128 = Type{kind: typeInt128}

	Float32 = Type{kind: typeFloat32}
	Float64 = Type{kind: typeFloat64}

	Bool8   = Type{kind: typeBool8}
	Bool16  = Type{kind: typeBool16}
	Bool32  = Type{kind: typeBool32}
	Bool64  = Type{kind: typeBool64}
	Bool128 = Type{kind: typeBool128}

	Str8  = Type{kind: typeStr, n: 1}
	Str16 = Type{kind: typeStr, n: 2}
	Str32 = Type{kind: typeStr, n: 4}
	Str64 = Type{kind: typeStr, n: 8}
)

// FixedStr is a string stored in exactly n bytes, NUL padded
func FixedStr(n int) Type {
	return Type{kind: typeFixedStr, n: n}
}

// Bytes is a raw blob of exactly n bytes
func Bytes(n int) Type {
	return Type{kind: typeBytes, n: n}
}

// StructOf nests the record type s
func StructOf(s *Struct) Type {
	return Type{kind: typeStruct, st: s}
}

var fixedSizes = [...]int{
	typeUint8: 1, typeUint16: 2, typeUint32: 4, typeUint64: 8, typeUint128: 16,
	typeInt8: 1, typeInt16: 2, typeInt32: 4, typeInt64: 8, typeInt128: 16,
	typeFloat32: 4, typeFloat64: 8,
	typeBool8: 1, typeBool16: 2, typeBool32: 4, typeBool64: 8, typeBool128: 16,
}

var valueKinds = [...]Kind{
	typeUint8: KindUint8, typeUint16: KindUint16, typeUint32: KindUint32,
	typeUint64: KindUint64, typeUint128: KindUint128,
	typeInt8: KindInt8, typeInt16: KindInt16, typeInt32: KindInt32,
	typeInt64: KindInt64, typeInt128: KindInt128,
	typeFloat32: KindFloat32, typeFloat64: KindFloat64,
	typeBool8: KindBool, typeBool16: KindBool, typeBool32: KindBool,
	typeBool64: KindBool, typeBool128: KindBool,
	typeStr: KindStr, typeFixedStr: KindStr,
	typeBytes: KindBytes,
	typeStruct: KindRecord,
}

// Size returns the encoded width in bytes, or -1 if it depends on the value
func (t Type) Size() int {
	switch t.kind {
	case typeFixedStr, typeBytes:
		return t.n
	case typeStr, typeStruct, typeInvalid:
		return -1
	default:
		return fixedSizes[t.kind]
	}
}

// ValueKind returns the kind of the values this type decodes to
func (t Type) ValueKind() Kind {
	if t.kind == typeInvalid {
		return KindAbsent
	}
	return valueKinds[t.kind]
}

// Struct returns the nested record type, or nil
func (t Type) Struct() *Struct {
	return t.st
}

func (t Type) IsInteger() bool {
	return t.ValueKind().IsInteger()
}

// Ordered reports whether values of this type have a total order. Records
// do not
func (t Type) Ordered() bool {
	return t.kind != typeStruct && t.kind != typeInvalid
}

func (t Type) Equal(o Type) bool {
	return t.kind == o.kind && t.n == o.n && t.st == o.st
}

// Accepts reports whether v may be stored in a field of this type
func (t Type) Accepts(v Value) bool {
	if v.Kind() != t.ValueKind() {
		return false
	}
	if t.kind == typeStruct {
		return v.rec != nil && v.rec.st == t.st
	}
	return true
}

func (t Type) String() string {
	switch t.kind {
	case typeStr:
		return fmt.Sprintf("str%d", t.n*8)
	case typeFixedStr:
		return fmt.Sprintf("fixed_str[%d]", t.n)
	case typeBytes:
		return fmt.Sprintf("bytes[%d]", t.n)
	case typeStruct:
		return fmt.Sprintf("struct[%s]", t.st.Name())
	case typeInvalid:
		return "invalid"
	}

	k := t.ValueKind()
	if k == KindBool {
		return fmt.Sprintf("bool%d", t.Size()*8)
	}
	return k.String()
}

func kindBits(k Kind) uint {
	switch k {
	case KindUint8, KindInt8:
		return 8
	case KindUint16, KindInt16:
		return 16
	case KindUint32, KindInt32:
		return 32
	case KindUint64, KindInt64:
		return 64
	default:
		return 128
	}
}

// narrow converts an integer value to kind k if it is representable
func narrow(k Kind, v Value) (Value, bool) {
	if !v.kind.IsInteger() || !k.IsInteger() {
		return Value{}, false
	}

	neg := v.negative()
	bits := kindBits(k)

	switch {
	case k.IsUnsigned() && neg:
		return Value{}, false
	case k.IsUnsigned() && bits == 128:
	case k.IsUnsigned():
		if v.hi != 0 || (bits < 64 && v.lo>>bits != 0) {
			return Value{}, false
		}
	case bits == 128:
		// An unsigned value with the top bit set does not fit
		if !neg && int64(v.hi) < 0 {
			return Value{}, false
		}
	case neg:
		min := int64(-1) << (bits - 1)
		if v.hi != ^uint64(0) || v.lo <= math.MaxInt64 || int64(v.lo) < min {
			return Value{}, false
		}
	default:
		max := uint64(1)<<(bits-1) - 1
		if v.hi != 0 || v.lo > max {
			return Value{}, false
		}
	}

	return Value{kind: k, lo: v.lo, hi: v.hi}, true
}

// FromLen builds a value of this (integer) type holding n
func (t Type) FromLen(n int) (Value, bool) {
	if !t.IsInteger() {
		return Value{}, false
	}
	return narrow(t.ValueKind(), Int64Value(int64(n)))
}

// Coerce converts a Go literal to a value of this type. It accepts Values,
// every Go integer and float type, bool, string, []byte, U128, I128,
// *Record and []interface{} / []Value (which become lists of this type)
func (t Type) Coerce(x interface{}) (Value, error) {
	k := t.ValueKind()
	mismatch := func() (Value, error) {
		return Value{}, errors.Errorf(errors.ErrTypeMismatch, "cannot use %v (%T) as %s", x, x, t)
	}
	outOfRange := func() (Value, error) {
		return Value{}, errors.Errorf(errors.ErrValueOutOfRange, "%v does not fit in %s", x, t)
	}

	var v Value
	switch x := x.(type) {
	case Value:
		v = x
	case *List:
		v = ListValue(x)
	case *Record:
		v = RecordValue(x)
	case U128:
		v = Uint128Value(x)
	case I128:
		v = Int128Value(x)
	case bool:
		v = BoolValue(x)
	case string:
		v = StrValue(x)
	case []byte:
		v = BytesValue(x)
	case float32:
		v = Float32Value(x)
	case float64:
		v = Float64Value(x)
	case []Value:
		l, err := NewList(t, x...)
		if err != nil {
			return Value{}, err
		}
		return ListValue(l), nil
	case []interface{}:
		l := &List{elem: t}
		for _, e := range x {
			ev, err := t.Coerce(e)
			if err != nil {
				return Value{}, err
			}
			l.vals = append(l.vals, ev)
		}
		return ListValue(l), nil
	default:
		rv := reflect.ValueOf(x)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			v = Int64Value(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			v = Uint64Value(rv.Uint())
		default:
			return mismatch()
		}
	}

	switch {
	case v.kind == KindList:
		// A list literal is accepted as-is when its element type matches; the
		// caller decides whether a list is valid in context
		if v.list.IsListOf(t) {
			return v, nil
		}
		return mismatch()

	case k.IsInteger() && v.kind.IsInteger():
		n, ok := narrow(k, v)
		if !ok {
			return outOfRange()
		}
		return n, nil

	case k.IsFloat() && v.kind.IsNumeric():
		f, _ := v.Float()
		if k == KindFloat32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return outOfRange()
			}
			return Float32Value(float32(f)), nil
		}
		return Float64Value(f), nil

	case k == KindStr && v.kind == KindStr:
		b, ok := latin1Encode(v.str)
		switch {
		case !ok:
			return mismatch()
		case t.kind == typeFixedStr && len(b) > t.n:
			return outOfRange()
		}
		return v, nil

	case t.kind == typeBytes && v.kind == KindBytes:
		if len(v.bytes) != t.n {
			return outOfRange()
		}
		return v, nil

	case t.Accepts(v):
		return v, nil
	}
	return mismatch()
}

// zero returns the value a field of this type takes when no default is
// declared. Nested records are built with their own defaults
func (t Type) zero(ver Version) Value {
	switch k := t.ValueKind(); {
	case k.IsInteger():
		return Value{kind: k}
	case k == KindFloat32:
		return Float32Value(0)
	case k == KindFloat64:
		return Float64Value(0)
	case k == KindBool:
		return BoolValue(false)
	case k == KindStr:
		return StrValue("")
	case k == KindBytes:
		return BytesValue(make([]byte, t.n))
	case k == KindRecord:
		return RecordValue(t.st.New(ver))
	default:
		return Absent()
	}
}
