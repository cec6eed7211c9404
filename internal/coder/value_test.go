// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.e43.eu/bfp/internal/errors"
)

func TestCompareValues(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name string
		a, b Value
		want Ordering
	}{
		{"uint widths", Uint8Value(3), Uint64Value(3), Equal},
		{"signed vs unsigned", Int8Value(-1), Uint8Value(0), Less},
		{"big unsigned vs signed", Uint64Value(math.MaxUint64), Int64Value(-1), Greater},
		{"negative ints", Int32Value(-5), Int64Value(-4), Less},
		{"int128", Int128Value(I128{Hi: -1, Lo: 0}), Int64Value(math.MinInt64), Less},
		{"uint128", Uint128Value(U128{Hi: 1}), Uint64Value(math.MaxUint64), Greater},
		{"int vs float", Int16Value(2), Float32Value(1.5), Greater},
		{"floats", Float64Value(-0.5), Float32Value(0.25), Less},
		{"bools", BoolValue(false), BoolValue(true), Less},
		{"strings", StrValue("abc"), StrValue("abd"), Less},
		{"bytes", BytesValue([]byte{2}), BytesValue([]byte{1, 9}), Greater},
		{"absent", Absent(), Absent(), Equal},
	}

	for _, tc := range testcases {
		got, err := Compare(tc.a, tc.b)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	for _, bad := range [][2]Value{
		{StrValue("1"), Uint8Value(1)},
		{BoolValue(true), Uint8Value(1)},
		{Float64Value(math.NaN()), Float64Value(1)},
		{ListValue(&List{elem: UInt8}), ListValue(&List{elem: UInt8})},
	} {
		_, err := Compare(bad[0], bad[1])
		assert.True(t, errors.Is(err, errors.ErrTypeMismatch), "%s vs %s", bad[0], bad[1])
	}
}

func TestValueInt(t *testing.T) {
	t.Parallel()

	n, ok := Int8Value(-7).Int()
	assert.True(t, ok)
	assert.Equal(t, -7, n)

	n, ok = Uint32Value(7).Int()
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = Uint128Value(U128{Hi: 1}).Int()
	assert.False(t, ok)

	_, ok = StrValue("7").Int()
	assert.False(t, ok)

	b, ok := Uint16Value(2).Bool()
	assert.True(t, ok)
	assert.True(t, b)
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name string
		typ  Type
		in   interface{}
		want Value
		err  error
	}{
		{"int to u8", UInt8, 200, Uint8Value(200), nil},
		{"u8 overflow", UInt8, 256, Value{}, errors.ErrValueOutOfRange},
		{"negative to unsigned", UInt32, -1, Value{}, errors.ErrValueOutOfRange},
		{"i8 min", Int8, -128, Int8Value(-128), nil},
		{"i8 underflow", Int8, -129, Value{}, errors.ErrValueOutOfRange},
		{"i64 from uint64 max", Int64, uint64(math.MaxUint64), Value{}, errors.ErrValueOutOfRange},
		{"u128", UInt128, U128{Hi: 3, Lo: 4}, Uint128Value(U128{Hi: 3, Lo: 4}), nil},
		{"i128 from int", Int128, -2, Int128Value(I128{Hi: -1, Lo: math.MaxUint64 - 1}), nil},
		{"float from int", Float64, 3, Float64Value(3), nil},
		{"float32 overflow", Float32, math.MaxFloat64, Value{}, errors.ErrValueOutOfRange},
		{"bool", Bool32, true, BoolValue(true), nil},
		{"bool from int", Bool8, 1, Value{}, errors.ErrTypeMismatch},
		{"string", Str8, "hello", StrValue("hello"), nil},
		{"non latin-1 string", Str8, "snow ☃", Value{}, errors.ErrTypeMismatch},
		{"fixed string too long", FixedStr(2), "abc", Value{}, errors.ErrValueOutOfRange},
		{"bytes", Bytes(2), []byte{1, 2}, BytesValue([]byte{1, 2}), nil},
		{"bytes wrong length", Bytes(2), []byte{1}, Value{}, errors.ErrValueOutOfRange},
		{"string to int", UInt8, "1", Value{}, errors.ErrTypeMismatch},
		{"value passthrough", UInt16, Uint8Value(9), Uint16Value(9), nil},
	}

	for _, tc := range testcases {
		got, err := tc.typ.Coerce(tc.in)
		if tc.err != nil {
			assert.True(t, errors.Is(err, tc.err), "%s: %v", tc.name, err)
			continue
		}
		require.NoError(t, err, tc.name)
		assert.True(t, tc.want.Equal(got), "%s: %s != %s", tc.name, tc.want, got)
	}
}

func TestCoerceList(t *testing.T) {
	t.Parallel()

	v, err := UInt8.Coerce([]interface{}{1, 2, 3})
	require.NoError(t, err)
	l, ok := v.List()
	require.True(t, ok)
	assert.Equal(t, 3, l.Len())
	assert.True(t, l.IsListOf(UInt8))

	_, err = UInt8.Coerce([]interface{}{1, 300})
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange))

	// Lists of another element type are rejected
	other, err := NewList(UInt16, Uint16Value(1))
	require.NoError(t, err)
	_, err = UInt8.Coerce(other)
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch))
}

func TestList(t *testing.T) {
	t.Parallel()

	l, err := NewList(Int16, Int16Value(1), Int16Value(2))
	require.NoError(t, err)

	require.NoError(t, l.Append(Int16Value(3)))
	assert.True(t, errors.Is(l.Append(Uint8Value(4)), errors.ErrTypeMismatch))

	require.NoError(t, l.Set(0, Int16Value(-1)))
	assert.True(t, errors.Is(l.Set(3, Int16Value(0)), errors.ErrValueOutOfRange))
	assert.True(t, errors.Is(l.Set(1, StrValue("x")), errors.ErrTypeMismatch))

	assert.Equal(t, "[-1, 2, 3]", l.String())
	vals := l.Values()
	vals[0] = Int16Value(100)
	assert.True(t, l.At(0).Equal(Int16Value(-1)), "Values returns a copy")

	_, err = NewList(Int16, StrValue("x"))
	assert.Error(t, err)
}

func TestTypeProperties(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		typ  Type
		size int
		kind Kind
		str  string
	}{
		{UInt8, 1, KindUint8, "uint8"},
		{Int128, 16, KindInt128, "int128"},
		{Float32, 4, KindFloat32, "float32"},
		{Bool16, 2, KindBool, "bool16"},
		{Str32, -1, KindStr, "str32"},
		{FixedStr(8), 8, KindStr, "fixed_str[8]"},
		{Bytes(3), 3, KindBytes, "bytes[3]"},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.size, tc.typ.Size(), tc.str)
		assert.Equal(t, tc.kind, tc.typ.ValueKind(), tc.str)
		assert.Equal(t, tc.str, tc.typ.String())
	}

	s := NewStruct("S")
	assert.Equal(t, -1, StructOf(s).Size())
	assert.False(t, StructOf(s).Ordered())
	assert.Equal(t, "struct[S]", StructOf(s).String())
}
