// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"go.e43.eu/bfp/internal/errors"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindAbsent Kind = iota

	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUint128

	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128

	KindFloat32
	KindFloat64

	KindBool
	KindStr
	KindBytes
	KindList
	KindRecord
)

var kindNames = [...]string{
	KindAbsent:  "absent",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindUint128: "uint128",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindInt128:  "int128",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindBool:    "bool",
	KindStr:     "str",
	KindBytes:   "bytes",
	KindList:    "list",
	KindRecord:  "record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (k Kind) IsUnsigned() bool { return k >= KindUint8 && k <= KindUint128 }
func (k Kind) IsSigned() bool   { return k >= KindInt8 && k <= KindInt128 }
func (k Kind) IsInteger() bool  { return k.IsUnsigned() || k.IsSigned() }
func (k Kind) IsFloat() bool    { return k == KindFloat32 || k == KindFloat64 }
func (k Kind) IsNumeric() bool  { return k.IsInteger() || k.IsFloat() }

// U128 is an unsigned 128-bit integer
type U128 struct {
	Hi, Lo uint64
}

// I128 is a signed, two's complement 128-bit integer
type I128 struct {
	Hi int64
	Lo uint64
}

func (u U128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return fmt.Sprintf("0x%x%016x", u.Hi, u.Lo)
}

func (i I128) String() string {
	switch {
	case i.Hi == 0 && i.Lo <= math.MaxInt64:
		return fmt.Sprintf("%d", i.Lo)
	case i.Hi == -1 && i.Lo > math.MaxInt64:
		return fmt.Sprintf("%d", int64(i.Lo))
	default:
		return fmt.Sprintf("0x%x%016x", uint64(i.Hi), i.Lo)
	}
}

// Value is one decoded runtime value.
//
// Integers are held as 128-bit two's complement (signed kinds are sign
// extended), floats as the bits of a float64. The zero Value is absent
type Value struct {
	kind  Kind
	lo    uint64
	hi    uint64
	str   string
	bytes []byte
	list  *List
	rec   *Record
}

func Absent() Value { return Value{} }

func Uint8Value(v uint8) Value   { return Value{kind: KindUint8, lo: uint64(v)} }
func Uint16Value(v uint16) Value { return Value{kind: KindUint16, lo: uint64(v)} }
func Uint32Value(v uint32) Value { return Value{kind: KindUint32, lo: uint64(v)} }
func Uint64Value(v uint64) Value { return Value{kind: KindUint64, lo: v} }
func Uint128Value(v U128) Value {
	return Value{kind: KindUint128, lo: v.Lo, hi: v.Hi}
}

func signed(k Kind, v int64) Value {
	var hi uint64
	if v < 0 {
		hi = ^uint64(0)
	}
	return Value{kind: k, lo: uint64(v), hi: hi}
}

func Int8Value(v int8) Value   { return signed(KindInt8, int64(v)) }
func Int16Value(v int16) Value { return signed(KindInt16, int64(v)) }
func Int32Value(v int32) Value { return signed(KindInt32, int64(v)) }
func Int64Value(v int64) Value { return signed(KindInt64, v) }
func Int128Value(v I128) Value {
	return Value{kind: KindInt128, lo: v.Lo, hi: uint64(v.Hi)}
}

func Float32Value(v float32) Value {
	return Value{kind: KindFloat32, lo: math.Float64bits(float64(v))}
}

func Float64Value(v float64) Value {
	return Value{kind: KindFloat64, lo: math.Float64bits(v)}
}

func BoolValue(v bool) Value {
	if v {
		return Value{kind: KindBool, lo: 1}
	}
	return Value{kind: KindBool}
}

func StrValue(v string) Value   { return Value{kind: KindStr, str: v} }
func BytesValue(v []byte) Value { return Value{kind: KindBytes, bytes: v} }
func ListValue(l *List) Value   { return Value{kind: KindList, list: l} }
func RecordValue(r *Record) Value {
	return Value{kind: KindRecord, rec: r}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }
func (v Value) negative() bool { return v.kind.IsSigned() && int64(v.hi) < 0 }
func (v Value) float() float64 { return math.Float64frombits(v.lo) }
func (v Value) U128() U128     { return U128{Hi: v.hi, Lo: v.lo} }
func (v Value) I128() I128     { return I128{Hi: int64(v.hi), Lo: v.lo} }

// Int returns the value as an int if it is an integer which fits
func (v Value) Int() (int, bool) {
	if !v.kind.IsInteger() {
		return 0, false
	}

	if v.negative() {
		if v.hi != ^uint64(0) || v.lo <= math.MaxInt64 || int64(v.lo) < math.MinInt {
			return 0, false
		}
		return int(int64(v.lo)), true
	}

	if v.hi != 0 || v.lo > math.MaxInt {
		return 0, false
	}
	return int(v.lo), true
}

// Uint64 returns the low 64 bits of an integer value
func (v Value) Uint64() (uint64, bool) {
	return v.lo, v.kind.IsInteger()
}

// Float returns a numeric value as a float64
func (v Value) Float() (float64, bool) {
	switch {
	case v.kind.IsFloat():
		return v.float(), true
	case v.negative():
		return -(float64(^v.hi)*(1<<64) + float64(^v.lo) + 1), true
	case v.kind.IsInteger():
		return float64(v.hi)*(1<<64) + float64(v.lo), true
	default:
		return 0, false
	}
}

// Bool interprets the value as a boolean. Integers are true when non-zero
func (v Value) Bool() (bool, bool) {
	switch {
	case v.kind == KindBool:
		return v.lo != 0, true
	case v.kind.IsInteger():
		return v.lo != 0 || v.hi != 0, true
	default:
		return false, false
	}
}

func (v Value) Str() (string, bool)     { return v.str, v.kind == KindStr }
func (v Value) Bytes() ([]byte, bool)   { return v.bytes, v.kind == KindBytes }
func (v Value) List() (*List, bool)     { return v.list, v.kind == KindList }
func (v Value) Record() (*Record, bool) { return v.rec, v.kind == KindRecord }

// Interface returns the value as a native Go value. Lists become []interface{};
// records are returned as *Record
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindUint8:
		return uint8(v.lo)
	case KindUint16:
		return uint16(v.lo)
	case KindUint32:
		return uint32(v.lo)
	case KindUint64:
		return v.lo
	case KindUint128:
		return v.U128()
	case KindInt8:
		return int8(v.lo)
	case KindInt16:
		return int16(v.lo)
	case KindInt32:
		return int32(v.lo)
	case KindInt64:
		return int64(v.lo)
	case KindInt128:
		return v.I128()
	case KindFloat32:
		return float32(v.float())
	case KindFloat64:
		return v.float()
	case KindBool:
		return v.lo != 0
	case KindStr:
		return v.str
	case KindBytes:
		return v.bytes
	case KindList:
		out := make([]interface{}, v.list.Len())
		for i := range out {
			out[i] = v.list.At(i).Interface()
		}
		return out
	case KindRecord:
		return v.rec
	default:
		return nil
	}
}

// Equal reports structural equality. Values of different kinds are never
// equal
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch {
	case v.kind.IsFloat():
		return v.float() == o.float()
	case v.kind == KindStr:
		return v.str == o.str
	case v.kind == KindBytes:
		return bytes.Equal(v.bytes, o.bytes)
	case v.kind == KindList:
		return v.list.Equal(o.list)
	case v.kind == KindRecord:
		return v.rec.Equal(o.rec)
	default:
		return v.lo == o.lo && v.hi == o.hi
	}
}

// Compare orders two values. Numeric kinds compare by numeric value across
// widths; strings, byte blobs and booleans compare within their own kind.
// Lists and records have no order, and neither do NaNs; comparing them
// returns ErrTypeMismatch
func Compare(a, b Value) (Ordering, error) {
	switch {
	case a.kind.IsInteger() && b.kind.IsInteger():
		return compareInts(a, b), nil

	case a.kind.IsNumeric() && b.kind.IsNumeric():
		fa, _ := a.Float()
		fb, _ := b.Float()
		switch {
		case fa < fb:
			return Less, nil
		case fa > fb:
			return Greater, nil
		case fa == fb:
			return Equal, nil
		}

	case a.kind != b.kind:
		// Fall through to the error

	case a.kind == KindAbsent:
		return Equal, nil

	case a.kind == KindBool:
		return compareUint(a.lo, b.lo), nil

	case a.kind == KindStr:
		return Ordering(strings.Compare(a.str, b.str)), nil

	case a.kind == KindBytes:
		return Ordering(bytes.Compare(a.bytes, b.bytes)), nil
	}

	return Equal, errors.Errorf(errors.ErrTypeMismatch, "cannot compare %s with %s", a.kind, b.kind)
}

func compareUint(a, b uint64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func compareInts(a, b Value) Ordering {
	an, bn := a.negative(), b.negative()
	switch {
	case an && !bn:
		return Less
	case !an && bn:
		return Greater
	}

	// Same sign: two's complement order matches unsigned order
	if o := compareUint(a.hi, b.hi); o != Equal {
		return o
	}
	return compareUint(a.lo, b.lo)
}

func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return "<absent>"
	case KindStr:
		return fmt.Sprintf("%q", v.str)
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	case KindList:
		return v.list.String()
	case KindRecord:
		return v.rec.String()
	default:
		return fmt.Sprint(v.Interface())
	}
}
