// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"unicode/utf8"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/errors"
)

// 16 zero bytes, used for NUL padding and false booleans
var zeroes [16]byte

var encoderPool = sync.Pool{
	New: func() interface{} {
		return new(encoder)
	},
}

type encoder struct {
	// Output buffer. A compressed section swaps this out for a fresh buffer
	// until the end of the record
	b *bytes.Buffer

	// Small scratch buffer (avoids needing to ever allocate when writing primitives)
	scratch [16]byte
}

var _ bfpinterfaces.Encoder = &encoder{}

func newEncoder(b *bytes.Buffer) *encoder {
	e := encoderPool.Get().(*encoder)
	e.b = b
	return e
}

func (e *encoder) EncodeUint8(v uint8) error {
	return e.b.WriteByte(v)
}

func (e *encoder) EncodeUint16(v uint16) error {
	binary.LittleEndian.PutUint16(e.scratch[:], v)
	_, err := e.b.Write(e.scratch[0:2])
	return err
}

func (e *encoder) EncodeUint32(v uint32) error {
	binary.LittleEndian.PutUint32(e.scratch[:], v)
	_, err := e.b.Write(e.scratch[0:4])
	return err
}

func (e *encoder) EncodeUint64(v uint64) error {
	binary.LittleEndian.PutUint64(e.scratch[:], v)
	_, err := e.b.Write(e.scratch[0:8])
	return err
}

func (e *encoder) EncodeInt8(v int8) error   { return e.EncodeUint8(uint8(v)) }
func (e *encoder) EncodeInt16(v int16) error { return e.EncodeUint16(uint16(v)) }
func (e *encoder) EncodeInt32(v int32) error { return e.EncodeUint32(uint32(v)) }
func (e *encoder) EncodeInt64(v int64) error { return e.EncodeUint64(uint64(v)) }

func (e *encoder) EncodeFloat32(f float32) error {
	return e.EncodeUint32(math.Float32bits(f))
}

func (e *encoder) EncodeFloat64(f float64) error {
	return e.EncodeUint64(math.Float64bits(f))
}

func (e *encoder) EncodeFixedBytes(b []byte) error {
	_, err := e.b.Write(b)
	return err
}

func (e *encoder) EncodeFixedString(s string, n int) error {
	b, ok := latin1Encode(s)
	switch {
	case !ok:
		return errors.Errorf(errors.ErrTypeMismatch, "%q is not representable in latin-1", s)
	case len(b) > n:
		return errors.Errorf(errors.ErrValueOutOfRange, "%q is longer than %d bytes", s, n)
	}

	if _, err := e.b.Write(b); err != nil {
		return err
	}
	return e.pad(n - len(b))
}

func (e *encoder) pad(n int) error {
	for n > 0 {
		c := min(n, len(zeroes))
		if _, err := e.b.Write(zeroes[:c]); err != nil {
			return err
		}
		n -= c
	}
	return nil
}

func (e *encoder) encodeUint128(hi, lo uint64) error {
	binary.LittleEndian.PutUint64(e.scratch[0:8], lo)
	binary.LittleEndian.PutUint64(e.scratch[8:16], hi)
	_, err := e.b.Write(e.scratch[0:16])
	return err
}

func (e *encoder) encodeLength(width, n int) error {
	if width < 8 && uint64(n) >= 1<<(uint(width)*8) {
		return errors.Errorf(errors.ErrValueOutOfRange, "length %d does not fit a %d byte prefix", n, width)
	}

	switch width {
	case 1:
		return e.EncodeUint8(uint8(n))
	case 2:
		return e.EncodeUint16(uint16(n))
	case 4:
		return e.EncodeUint32(uint32(n))
	default:
		return e.EncodeUint64(uint64(n))
	}
}

// encodeValue writes v, which must be accepted by t
func (e *encoder) encodeValue(t Type, v Value) error {
	if !t.Accepts(v) {
		return errors.Errorf(errors.ErrTypeMismatch, "cannot encode %s as %s", v.Kind(), t)
	}

	switch t.kind {
	case typeUint8, typeInt8:
		return e.EncodeUint8(uint8(v.lo))
	case typeUint16, typeInt16:
		return e.EncodeUint16(uint16(v.lo))
	case typeUint32, typeInt32:
		return e.EncodeUint32(uint32(v.lo))
	case typeUint64, typeInt64:
		return e.EncodeUint64(v.lo)
	case typeUint128, typeInt128:
		return e.encodeUint128(v.hi, v.lo)

	case typeFloat32:
		return e.EncodeFloat32(float32(v.float()))
	case typeFloat64:
		return e.EncodeFloat64(v.float())

	case typeBool8, typeBool16, typeBool32, typeBool64, typeBool128:
		var c uint8
		if v.lo != 0 {
			c = 1
		}
		if err := e.EncodeUint8(c); err != nil {
			return err
		}
		return e.pad(t.Size() - 1)

	case typeStr:
		b, ok := latin1Encode(v.str)
		if !ok {
			return errors.Errorf(errors.ErrTypeMismatch, "%q is not representable in latin-1", v.str)
		}
		if err := e.encodeLength(t.n, len(b)); err != nil {
			return err
		}
		return e.EncodeFixedBytes(b)

	case typeFixedStr:
		return e.EncodeFixedString(v.str, t.n)

	case typeBytes:
		if len(v.bytes) != t.n {
			return errors.Errorf(errors.ErrValueOutOfRange, "expected %d bytes, got %d", t.n, len(v.bytes))
		}
		return e.EncodeFixedBytes(v.bytes)

	case typeStruct:
		return t.st.encode(e, v.rec)
	}

	return errors.Errorf(errors.ErrTypeMismatch, "cannot encode type %s", t)
}

func (e *encoder) release() {
	e.b = nil
	encoderPool.Put(e)
}

// latin1Encode converts s to latin-1, failing if any rune is outside it
func latin1Encode(s string) ([]byte, bool) {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF || r == utf8.RuneError {
			return nil, false
		}
		b = append(b, byte(r))
	}
	return b, true
}
