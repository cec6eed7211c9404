// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/errors"
	"go.e43.eu/bfp/internal/stream"
)

var decoderPool = sync.Pool{
	New: func() interface{} {
		return new(decoder)
	},
}

type decoder struct {
	s   *stream.Stream
	log zerolog.Logger
}

var _ bfpinterfaces.Decoder = &decoder{}

func newDecoder(s *stream.Stream, log zerolog.Logger) *decoder {
	d := decoderPool.Get().(*decoder)
	d.s = s
	d.log = log
	return d
}

func (d *decoder) DecodeUint8() (uint8, error) {
	b, err := d.s.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) DecodeUint16() (uint16, error) {
	b, err := d.s.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) DecodeUint32() (uint32, error) {
	b, err := d.s.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) DecodeUint64() (uint64, error) {
	b, err := d.s.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) DecodeInt8() (int8, error) {
	u, err := d.DecodeUint8()
	return int8(u), err
}

func (d *decoder) DecodeInt16() (int16, error) {
	u, err := d.DecodeUint16()
	return int16(u), err
}

func (d *decoder) DecodeInt32() (int32, error) {
	u, err := d.DecodeUint32()
	return int32(u), err
}

func (d *decoder) DecodeInt64() (int64, error) {
	u, err := d.DecodeUint64()
	return int64(u), err
}

func (d *decoder) DecodeFloat32() (float32, error) {
	u, err := d.DecodeUint32()
	return math.Float32frombits(u), err
}

func (d *decoder) DecodeFloat64() (float64, error) {
	u, err := d.DecodeUint64()
	return math.Float64frombits(u), err
}

func (d *decoder) DecodeFixedBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf(errors.ErrValueOutOfRange, "negative length %d", n)
	}
	return d.s.Read(n)
}

func (d *decoder) DecodeFixedString(n int) (string, error) {
	b, err := d.DecodeFixedBytes(n)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(latin1Decode(b), "\x00"), nil
}

func (d *decoder) Peek(n int) ([]byte, error) {
	return d.s.Peek(n)
}

func (d *decoder) Offset() int {
	return d.s.Offset()
}

// decodeUint128 reads 16 bytes; the low half comes first
func (d *decoder) decodeUint128() (U128, error) {
	b, err := d.s.Read(16)
	if err != nil {
		return U128{}, err
	}
	return U128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

// decodeLength reads an unsigned little endian length prefix of width bytes
func (d *decoder) decodeLength(width int) (int, error) {
	var (
		n   uint64
		err error
	)

	switch width {
	case 1:
		var u uint8
		u, err = d.DecodeUint8()
		n = uint64(u)
	case 2:
		var u uint16
		u, err = d.DecodeUint16()
		n = uint64(u)
	case 4:
		var u uint32
		u, err = d.DecodeUint32()
		n = uint64(u)
	default:
		n, err = d.DecodeUint64()
	}

	if err != nil {
		return 0, err
	}
	if n > uint64(d.s.Len()) {
		return 0, errors.ShortReadError{Requested: int(min(n, math.MaxInt)), Available: d.s.Len()}
	}
	return int(n), nil
}

// decodeValue reads one value of type t. Nested records are parsed against
// ver
func (d *decoder) decodeValue(t Type, ver Version) (Value, error) {
	switch t.kind {
	case typeUint8:
		u, err := d.DecodeUint8()
		return Uint8Value(u), err
	case typeUint16:
		u, err := d.DecodeUint16()
		return Uint16Value(u), err
	case typeUint32:
		u, err := d.DecodeUint32()
		return Uint32Value(u), err
	case typeUint64:
		u, err := d.DecodeUint64()
		return Uint64Value(u), err
	case typeUint128:
		u, err := d.decodeUint128()
		return Uint128Value(u), err

	case typeInt8:
		i, err := d.DecodeInt8()
		return Int8Value(i), err
	case typeInt16:
		i, err := d.DecodeInt16()
		return Int16Value(i), err
	case typeInt32:
		i, err := d.DecodeInt32()
		return Int32Value(i), err
	case typeInt64:
		i, err := d.DecodeInt64()
		return Int64Value(i), err
	case typeInt128:
		u, err := d.decodeUint128()
		return Int128Value(I128{Hi: int64(u.Hi), Lo: u.Lo}), err

	case typeFloat32:
		f, err := d.DecodeFloat32()
		return Float32Value(f), err
	case typeFloat64:
		f, err := d.DecodeFloat64()
		return Float64Value(f), err

	case typeBool8, typeBool16, typeBool32, typeBool64, typeBool128:
		b, err := d.s.Read(t.Size())
		if err != nil {
			return Value{}, err
		}
		for _, c := range b {
			if c != 0 {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case typeStr:
		n, err := d.decodeLength(t.n)
		if err != nil {
			return Value{}, err
		}
		b, err := d.s.Read(n)
		if err != nil {
			return Value{}, err
		}
		return StrValue(latin1Decode(b)), nil

	case typeFixedStr:
		s, err := d.DecodeFixedString(t.n)
		return StrValue(s), err

	case typeBytes:
		b, err := d.DecodeFixedBytes(t.n)
		if err != nil {
			return Value{}, err
		}
		return BytesValue(append([]byte(nil), b...)), nil

	case typeStruct:
		rec, err := t.st.parse(d, ver, true)
		if err != nil {
			return Value{}, err
		}
		return RecordValue(rec), nil
	}

	return Value{}, errors.Errorf(errors.ErrTypeMismatch, "cannot decode type %s", t)
}

func (d *decoder) release() {
	d.s = nil
	d.log = zerolog.Nop()
	decoderPool.Put(d)
}

func latin1Decode(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
