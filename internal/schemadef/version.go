// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package schemadef

import (
	"encoding/binary"
	"strings"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/coder"
	"go.e43.eu/bfp/internal/errors"
)

// versionDef describes a version header. Integer headers hold a single
// component version; fixed_str headers hold a dotted version such as "1.47"
type versionDef struct {
	Type   string `yaml:"type"`
	Length int    `yaml:"length"`

	// Peek leaves the header in the stream for the first field to read
	Peek bool `yaml:"peek"`
}

// compile builds the discovery hook and, unless the header is only peeked,
// the matching writer
func (def *versionDef) compile() (coder.VersionFunc, coder.VersionWriter, error) {
	t, ok := scalarTypes[def.Type]
	if def.Type == "fixed_str" {
		if def.Length <= 0 {
			return nil, nil, errors.Errorf(errors.ErrValueOutOfRange, "fixed_str needs a positive length, got %d", def.Length)
		}
		t, ok = coder.FixedStr(def.Length), true
	}

	k, size := t.ValueKind(), t.Size()
	if !ok || size <= 0 || !(k.IsInteger() && size <= 8 || k == coder.KindStr) {
		return nil, nil, errors.Errorf(errors.ErrTypeMismatch, "a version header cannot be of type %q", def.Type)
	}

	read := func(d bfpinterfaces.Decoder, _ coder.Version) (coder.Version, error) {
		var (
			b   []byte
			err error
		)
		if def.Peek {
			b, err = d.Peek(size)
		} else {
			b, err = d.DecodeFixedBytes(size)
		}
		if err != nil {
			return coder.Version{}, err
		}
		return versionFromBytes(k, b)
	}

	if def.Peek {
		return read, nil, nil
	}

	write := func(e bfpinterfaces.Encoder, ver coder.Version) error {
		if k == coder.KindStr {
			return e.EncodeFixedString(strings.TrimPrefix(ver.String(), "v"), size)
		}

		parts := ver.Parts()
		if len(parts) != 1 {
			return errors.Errorf(errors.ErrValueOutOfRange, "%s does not fit an integer version header", ver)
		}
		v, err := t.Coerce(parts[0])
		if err != nil {
			return err
		}
		u, _ := v.Uint64()

		switch size {
		case 1:
			return e.EncodeUint8(uint8(u))
		case 2:
			return e.EncodeUint16(uint16(u))
		case 4:
			return e.EncodeUint32(uint32(u))
		default:
			return e.EncodeUint64(u)
		}
	}
	return read, write, nil
}

// versionFromBytes interprets a header. An empty string header means the
// record carries no version
func versionFromBytes(k coder.Kind, b []byte) (coder.Version, error) {
	if k == coder.KindStr {
		s := strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
		if s == "" {
			return coder.Version{}, errors.ErrVersionUnsupported
		}
		return coder.ParseVersion(s)
	}

	var u uint64
	switch len(b) {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(binary.LittleEndian.Uint16(b))
	case 4:
		u = uint64(binary.LittleEndian.Uint32(b))
	default:
		u = binary.LittleEndian.Uint64(b)
	}

	if k.IsSigned() {
		shift := 64 - 8*uint(len(b))
		return coder.NewVersion(int(int64(u<<shift) >> shift)), nil
	}
	if u > uint64(^uint(0)>>1) {
		return coder.Version{}, errors.Errorf(errors.ErrValueOutOfRange, "version %d", u)
	}
	return coder.NewVersion(int(u)), nil
}
