// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package codec renders parsed records as JSON, YAML or CBOR.
//
// Records become maps which keep the declaration order of their fields
// (CBOR output is deterministic and therefore sorts keys instead). Fields
// not present in the record's version are omitted; absent optional fields
// are rendered as null
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"go.e43.eu/bfp/internal/coder"
)

// Format is an output syntax
type Format uint8

const (
	JSON Format = iota
	YAML
	CBOR
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat parses a format name. The empty string means JSON
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "cbor":
		return CBOR, nil
	default:
		return 0, fmt.Errorf("bfp: unknown output format %q", name)
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Rendered records only have string keys
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Entry is one field of a rendered record
type Entry struct {
	Key   string
	Value interface{}
}

// Map is a rendered record
type Map []Entry

// Get returns the value stored under key
func (m Map) Get(key string) (interface{}, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i != 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Map) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range m {
		k, v := new(yaml.Node), new(yaml.Node)
		if err := k.Encode(e.Key); err != nil {
			return nil, err
		}
		if err := v.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Key, err)
		}
		n.Content = append(n.Content, k, v)
	}
	return n, nil
}

func (m Map) MarshalCBOR() ([]byte, error) {
	mp := make(map[string]interface{}, len(m))
	for _, e := range m {
		mp[e.Key] = e.Value
	}
	return encMode.Marshal(mp)
}

// Native converts rec into plain Go values
func Native(rec *coder.Record) Map {
	m := make(Map, 0, rec.Len())
	_ = rec.Fields(func(f *coder.Retriever, v coder.Value) error {
		m = append(m, Entry{Key: f.Name(), Value: nativeValue(v)})
		return nil
	})
	return m
}

func nativeValue(v coder.Value) interface{} {
	switch k := v.Kind(); {
	case k == coder.KindAbsent:
		return nil

	case k == coder.KindUint128:
		u := v.U128()
		if u.Hi == 0 {
			return u.Lo
		}
		n := new(big.Int).SetUint64(u.Hi)
		n.Lsh(n, 64).Or(n, new(big.Int).SetUint64(u.Lo))
		return n.String()

	case k == coder.KindInt128:
		i := v.I128()
		if (i.Hi == 0 && i.Lo <= math.MaxInt64) || (i.Hi == -1 && i.Lo > math.MaxInt64) {
			return int64(i.Lo)
		}
		n := new(big.Int).SetInt64(i.Hi)
		n.Lsh(n, 64).Add(n, new(big.Int).SetUint64(i.Lo))
		return n.String()

	case k.IsFloat():
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "+Inf"
		case math.IsInf(f, -1):
			return "-Inf"
		}
		return f

	case k == coder.KindList:
		l, _ := v.List()
		out := make([]interface{}, l.Len())
		for i := range out {
			out[i] = nativeValue(l.At(i))
		}
		return out

	case k == coder.KindRecord:
		rec, _ := v.Record()
		return Native(rec)
	}
	return v.Interface()
}

// Marshal renders rec in format f
func Marshal(f Format, rec *coder.Record) ([]byte, error) {
	m := Native(rec)
	switch f {
	case JSON:
		return json.MarshalIndent(m, "", "  ")
	case YAML:
		return yaml.Marshal(m)
	case CBOR:
		return encMode.Marshal(m)
	}
	return nil, fmt.Errorf("bfp: unknown output format %s", f)
}

// Write renders rec to w. Text formats end with a newline
func Write(w io.Writer, f Format, rec *coder.Record) error {
	b, err := Marshal(f, rec)
	if err != nil {
		return err
	}
	if f == JSON {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}

// UnmarshalCBOR decodes CBOR produced by Marshal. Records decode as
// map[string]interface{}
func UnmarshalCBOR(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}
