// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/errors"
)

func TestAddFieldErrors(t *testing.T) {
	t.Parallel()

	s := NewStruct("Decl")
	_, err := s.AddField("a", UInt8)
	require.NoError(t, err)

	_, err = s.AddField("a", UInt16)
	assert.Error(t, err, "duplicate")

	_, err = s.AddField("b", UInt8, MinVer(NewVersion(3)), MaxVer(NewVersion(2)))
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange), "%v", err)

	_, err = s.AddField("c", UInt8, Repeat(-2))
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange), "%v", err)

	_, err = s.AddField("d", UInt8, Default(300))
	assert.True(t, errors.Is(err, errors.ErrValueOutOfRange), "%v", err)

	_, err = s.AddField("e", Type{})
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch), "%v", err)

	assert.Equal(t, 1, s.NumFields(), "failed declarations leave no field behind")
	assert.Panics(t, func() { s.Add("a", UInt8) })
}

func TestFrozenAfterUse(t *testing.T) {
	t.Parallel()

	s := NewStruct("Frozen")
	a := s.Add("a", UInt8)
	s.New(Unversioned)

	assert.Panics(t, func() { s.Add("b", UInt8) })
	assert.Panics(t, func() { a.OnRead(SetRepeat(a).To(1)) })
	assert.Panics(t, func() { a.OnWrite(Set(a).From(a)) })
}

func TestFieldLookup(t *testing.T) {
	t.Parallel()

	s := NewStruct("Lookup")
	a := s.Add("a", UInt8)
	b := s.Add("b", Str8, MinVer(NewVersion(2)), MaxVer(NewVersion(4)))

	f, err := s.Field("b")
	require.NoError(t, err)
	assert.Same(t, b, f)
	assert.Equal(t, 1, f.Index())
	assert.Equal(t, "Lookup.b", f.String())
	assert.Equal(t, []*Retriever{a, b}, s.Fields())

	_, err = s.Field("c")
	assert.True(t, errors.Is(err, errors.ErrUnknownField))

	assert.True(t, b.Supports(NewVersion(2)))
	assert.True(t, b.Supports(NewVersion(4)))
	assert.False(t, b.Supports(NewVersion(4, 1)))
	assert.True(t, a.Supports(Unversioned))
	assert.False(t, b.Supports(Unversioned))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	inner := NewStruct("Inner")
	inner.Add("v", UInt16, Default(7))

	s := NewStruct("Defaults")
	s.Add("n", Int32, Default(-9))
	s.Add("fixed", UInt8, Repeat(2), Default(1))
	s.Add("opt", UInt8, Repeat(RepeatOptional))
	s.Add("late", UInt8, MinVer(NewVersion(5)))
	s.Add("sub", StructOf(inner))

	rec := s.New(NewVersion(1))
	assert.Equal(t, "Defaults(n=-9, fixed=[1, 1], opt=<absent>, sub=Inner(v=7))", rec.String())

	_, err := rec.Get("late")
	assert.True(t, errors.Is(err, errors.ErrVersionUnsupported), "%v", err)

	err = rec.Set("late", 1)
	assert.True(t, errors.Is(err, errors.ErrVersionUnsupported), "%v", err)

	assert.True(t, s.New(Version{}).Version().Equal(Unversioned))
}

func TestRecordSet(t *testing.T) {
	t.Parallel()

	var sets int32
	s := NewStruct("Hooks")
	s.Add("upper", Str8,
		Mappers(func(_ *Record, v Value) (Value, error) {
			str, _ := v.Str()
			return StrValue(strings.ToUpper(str)), nil
		}),
		Validators(func(_ *Record, v Value) bool {
			str, _ := v.Str()
			return len(str) <= 5
		}),
		OnSet(func(_ *Record, v Value) (Value, error) {
			atomic.AddInt32(&sets, 1)
			return v, nil
		}),
	)
	s.Add("doubled", UInt16, OnGet(func(_ *Record, v Value) (Value, error) {
		n, _ := v.Int()
		return Uint16Value(uint16(n * 2)), nil
	}))
	s.Add("list", UInt8, Repeat(2))
	s.Add("scalar", UInt8)

	rec := s.New(Unversioned)
	require.NoError(t, rec.Set("upper", "abc"))
	v, err := rec.Get("upper")
	require.NoError(t, err)
	assert.Equal(t, StrValue("ABC"), v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sets))

	err = rec.Set("upper", "abcdef")
	assert.True(t, errors.Is(err, errors.ErrValidation), "%v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sets), "OnSet runs after validation")

	require.NoError(t, rec.Set("doubled", 21))
	v, err = rec.Get("doubled")
	require.NoError(t, err)
	assert.Equal(t, Uint16Value(42), v)
	raw, err := rec.Index(1)
	require.NoError(t, err)
	assert.Equal(t, Uint16Value(21), raw, "hooks do not touch the stored value")

	err = rec.Set("list", 3)
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch), "%v", err)
	require.NoError(t, rec.Set("list", []interface{}{3, 4}))

	err = rec.Set("scalar", []interface{}{3})
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch), "%v", err)

	err = rec.Set("missing", 1)
	assert.True(t, errors.Is(err, errors.ErrUnknownField))
}

func TestRecordSetRepeat(t *testing.T) {
	t.Parallel()

	s := NewStruct("Repeats")
	s.Add("items", UInt8, Repeat(RepeatOptional))

	rec := s.New(Unversioned)
	n, err := rec.Repeat("items")
	require.NoError(t, err)
	assert.Equal(t, RepeatOptional, n)

	require.NoError(t, rec.SetRepeat("items", 2))
	require.NoError(t, rec.Set("items", []interface{}{1, 2}))

	buf, err := s.Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, buf)

	assert.True(t, errors.Is(rec.SetRepeat("items", -1), errors.ErrValueOutOfRange))
	_, err = rec.Repeat("nope")
	assert.True(t, errors.Is(err, errors.ErrUnknownField))
}

func TestParseStrict(t *testing.T) {
	t.Parallel()

	s := NewStruct("Strict")
	s.Add("a", UInt16)

	rec, err := s.ParseBytes([]byte{1, 2, 3}, ParseOptions{})
	require.NoError(t, err)
	v, _ := rec.Get("a")
	assert.Equal(t, Uint16Value(0x0201), v)

	_, err = s.ParseBytes([]byte{1, 2, 3}, ParseOptions{Strict: true})
	assert.True(t, errors.Is(err, errors.ErrTrailingBytes), "%v", err)

	_, err = s.ParseBytes([]byte{1}, ParseOptions{})
	assert.True(t, errors.Is(err, errors.ErrTruncated), "%v", err)

	_, err = s.Read(bytes.NewReader([]byte{1, 2}), ParseOptions{Strict: true})
	assert.NoError(t, err)
}

func TestVersionFunc(t *testing.T) {
	t.Parallel()

	discover := func(d bfpinterfaces.Decoder, requested Version) (Version, error) {
		b, err := d.Peek(1)
		if err != nil {
			return Version{}, err
		}
		if b[0] == 0 {
			return Version{}, errors.ErrVersionUnsupported
		}
		n, err := d.DecodeUint8()
		return NewVersion(int(n)), err
	}

	s := NewStruct("Discover", WithVersionFunc(discover, nil))
	s.Add("a", UInt8)
	s.Add("b", UInt8, MinVer(NewVersion(2)))

	rec, err := s.ParseBytes([]byte{2, 7, 8}, ParseOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.Version().String())
	assert.Equal(t, "Discover(a=7, b=8)", rec.String())

	// No version in the data; the requested one is kept
	rec, err = s.ParseBytes([]byte{0}, ParseOptions{Version: NewVersion(1), Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "v1", rec.Version().String())
	assert.Equal(t, "Discover(a=0)", rec.String())

	_, err = s.ParseBytes(nil, ParseOptions{})
	assert.True(t, errors.Is(err, errors.ErrTruncated), "%v", err)
}

// countingCompressor passes data through unchanged, counting calls
type countingCompressor struct {
	decompressed, compressed int32
}

func (c *countingCompressor) Decompress(b []byte) ([]byte, error) {
	atomic.AddInt32(&c.decompressed, 1)
	return append([]byte(nil), b...), nil
}

func (c *countingCompressor) Compress(b []byte) ([]byte, error) {
	atomic.AddInt32(&c.compressed, 1)
	return append([]byte(nil), b...), nil
}

func TestDecompressOnce(t *testing.T) {
	t.Parallel()

	c := new(countingCompressor)
	s := NewStruct("Once", WithCompressor(c))
	s.Add("head", UInt8)
	s.Add("x", UInt8, RemainingCompressed())
	s.Add("y", UInt8, RemainingCompressed())
	s.Add("z", UInt8)

	rec, err := s.ParseBytes([]byte{1, 2, 3, 4}, ParseOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "Once(head=1, x=2, y=3, z=4)", rec.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.decompressed))

	buf, err := s.Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.compressed))
}

func TestCompressedSkippedByVersion(t *testing.T) {
	t.Parallel()

	// The suffix only starts at the first compressed field which is present
	c := new(countingCompressor)
	s := NewStruct("Gated", WithCompressor(c))
	s.Add("head", UInt8)
	s.Add("body", UInt8, RemainingCompressed(), MinVer(NewVersion(2)))

	_, err := s.ParseBytes([]byte{1}, ParseOptions{Version: NewVersion(1), Strict: true})
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&c.decompressed))
}

func TestParseLogging(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	log := zerolog.New(&out).Level(zerolog.DebugLevel)

	s := NewStruct("Logged")
	s.Add("a", UInt8)

	_, err := s.ParseBytes([]byte{5}, ParseOptions{Logger: &log})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"struct":"Logged"`)
	assert.Contains(t, out.String(), `"field":"a"`)

	out.Reset()
	quiet := log.Level(zerolog.InfoLevel)
	_, err = s.ParseBytes([]byte{5}, ParseOptions{Logger: &quiet})
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestEncodeWrongRecord(t *testing.T) {
	t.Parallel()

	a := NewStruct("A")
	a.Add("x", UInt8)
	b := NewStruct("B")
	b.Add("x", UInt8)

	_, err := a.Encode(b.New(Unversioned))
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch))

	_, err = a.Encode(nil)
	assert.True(t, errors.Is(err, errors.ErrTypeMismatch))
}

func TestNewSelfReferencing(t *testing.T) {
	t.Parallel()

	node := NewStruct("Node")
	n := node.Add("n", UInt8)
	kids := node.Add("kids", StructOf(node), Repeat(RepeatOptional))
	n.OnRead(SetRepeat(kids).From(n))

	rec, err := node.ParseBytes([]byte{1, 0}, ParseOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "Node(n=1, kids=[Node(n=0, kids=[])])", rec.String())

	fresh := node.New(Unversioned)
	assert.Equal(t, "Node(n=0, kids=<absent>)", fresh.String())

	tree := NewStruct("Tree")
	tree.Add("leaf", UInt8)
	tree.Add("branches", StructOf(tree), Repeat(0))
	assert.Equal(t, "Tree(leaf=0, branches=[])", tree.New(Unversioned).String())
}

func TestNewNestedListElementsAreDistinct(t *testing.T) {
	t.Parallel()

	point := NewStruct("Point")
	point.Add("x", UInt8)

	s := NewStruct("Points")
	s.Add("pts", StructOf(point), Repeat(2))

	rec := s.New(Unversioned)
	v, err := rec.Get("pts")
	require.NoError(t, err)
	l, ok := v.List()
	require.True(t, ok)

	first, _ := l.At(0).Record()
	require.NoError(t, first.Set("x", 5))
	assert.Equal(t, "Points(pts=[Point(x=5), Point(x=0)])", rec.String())
}

func TestZeroWidthRepeatIsBounded(t *testing.T) {
	t.Parallel()

	empty := NewStruct("Empty")
	empty.Add("later", UInt8, MinVer(NewVersion(9)))

	for _, elem := range []Type{Bytes(0), FixedStr(0), StructOf(empty)} {
		s := NewStruct("Blobs")
		count := s.Add("count", UInt32)
		items := s.Add("items", elem, Repeat(RepeatOptional))
		count.OnRead(SetRepeat(items).From(count))

		_, err := s.ParseBytes([]byte{0xff, 0xff, 0xff, 0xff}, ParseOptions{Version: NewVersion(1)})
		assert.True(t, errors.Is(err, errors.ErrValueOutOfRange), "%s: %v", elem, err)

		rec, err := s.ParseBytes([]byte{2, 0, 0, 0, 7, 7}, ParseOptions{Version: NewVersion(1)})
		require.NoError(t, err, elem.String())
		n, err := rec.Repeat("items")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		rec, err = s.ParseBytes([]byte{0, 0, 0, 0}, ParseOptions{Version: NewVersion(1), Strict: true})
		require.NoError(t, err, elem.String())
	}
}
