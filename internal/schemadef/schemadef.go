// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package schemadef compiles declarative schema files into record types.
//
// Schemas are authored as YAML, or as JSON with comments and trailing commas
// (files ending in .json or .jsonc). A schema names a root record type,
// optionally declares further record types which fields may nest, and lists
// each record type's fields with their version range, repeat count and
// combinators:
//
//     name: Scenario
//     compression: zlib
//     structs:
//       Point:
//         fields: [{name: x, type: f32}, {name: y, type: f32}]
//     fields:
//       - name: count
//         type: u32
//         on_read:
//           - {set_repeat: points, from: count}
//       - name: points
//         type: struct:Point
//       - name: flag
//         type: bool8
//         min_ver: "1.2"
package schemadef

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"go.e43.eu/bfp/internal/coder"
	"go.e43.eu/bfp/internal/compress"
	"go.e43.eu/bfp/internal/errors"
)

// Schema is the result of compiling a schema file
type Schema struct {
	// Root is the record type named at the top of the file
	Root *coder.Struct

	// Registry holds the root and every record type declared under structs
	Registry *coder.Registry
}

type schemaDef struct {
	Name      string               `yaml:"name"`
	Structs   map[string]structDef `yaml:"structs"`
	structDef `yaml:",inline"`
}

type structDef struct {
	Compression string      `yaml:"compression"`
	Version     *versionDef `yaml:"version"`
	Fields      []fieldDef  `yaml:"fields"`
}

type fieldDef struct {
	Name                string          `yaml:"name"`
	Type                string          `yaml:"type"`
	Length              int             `yaml:"length"`
	Repeat              *int            `yaml:"repeat"`
	MinVer              string          `yaml:"min_ver"`
	MaxVer              string          `yaml:"max_ver"`
	RemainingCompressed bool            `yaml:"remaining_compressed"`
	Default             *yaml.Node      `yaml:"default"`
	OnRead              []combinatorDef `yaml:"on_read"`
	OnWrite             []combinatorDef `yaml:"on_write"`
}

// LoadFile reads and compiles the schema file at path. The format is chosen
// by the file extension
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s, err := Load(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load compiles a schema. ext selects the syntax: ".json" and ".jsonc" are
// JSON with comments, anything else is YAML
func Load(data []byte, ext string) (*Schema, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML once comments and trailing commas are gone
		data = jsonc.ToJSON(data)
	}

	var def schemaDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return compile(&def)
}

func compile(def *schemaDef) (*Schema, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("bfp: schema has no name")
	}
	if _, dup := def.Structs[def.Name]; dup {
		return nil, fmt.Errorf("bfp: struct %s declared twice", def.Name)
	}

	c := &compiler{reg: coder.NewRegistry()}

	// Every record type exists before any field is added so that fields may
	// nest types declared later in the file
	root, err := c.declare(def.Name, &def.structDef)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(def.Structs))
	for name := range def.Structs {
		names = append(names, name)
	}
	defs := make([]structDef, len(names))
	structs := make([]*coder.Struct, len(names))
	for i, name := range names {
		defs[i] = def.Structs[name]
		if structs[i], err = c.declare(name, &defs[i]); err != nil {
			return nil, err
		}
	}

	if err := c.fields(root, &def.structDef); err != nil {
		return nil, err
	}
	for i := range structs {
		if err := c.fields(structs[i], &defs[i]); err != nil {
			return nil, err
		}
	}

	return &Schema{Root: root, Registry: c.reg}, nil
}

type compiler struct {
	reg *coder.Registry
}

func (c *compiler) declare(name string, def *structDef) (*coder.Struct, error) {
	var opts []coder.StructOption

	alg, err := compress.ParseAlgorithm(def.Compression)
	if err != nil {
		return nil, errors.WithFieldError(err, name)
	}
	hook, err := compress.New(alg)
	if err != nil {
		return nil, errors.WithFieldError(err, name)
	}
	if hook != nil {
		opts = append(opts, coder.WithCompressor(hook))
	}

	if def.Version != nil {
		read, write, err := def.Version.compile()
		if err != nil {
			return nil, errors.WithFieldError(err, name, "version")
		}
		opts = append(opts, coder.WithVersionFunc(read, write))
	}

	st := coder.NewStruct(name, opts...)
	c.reg.Register(st)
	return st, nil
}

// fields adds every field of def to st, then compiles their combinators. The
// second pass lets a combinator refer to a field declared after its owner
func (c *compiler) fields(st *coder.Struct, def *structDef) error {
	rs := make([]*coder.Retriever, len(def.Fields))
	for i := range def.Fields {
		fd := &def.Fields[i]
		r, err := c.field(st, fd)
		if err != nil {
			return err
		}
		rs[i] = r
	}

	for i, r := range rs {
		fd := &def.Fields[i]

		onRead, err := c.combinators(st, fd.OnRead)
		if err != nil {
			return errors.WithFieldError(err, st.Name(), fd.Name, "on_read")
		}
		onWrite, err := c.combinators(st, fd.OnWrite)
		if err != nil {
			return errors.WithFieldError(err, st.Name(), fd.Name, "on_write")
		}
		r.OnRead(onRead...).OnWrite(onWrite...)
	}
	return nil
}

func (c *compiler) field(st *coder.Struct, fd *fieldDef) (*coder.Retriever, error) {
	if fd.Name == "" {
		return nil, fmt.Errorf("bfp: %s has a field without a name", st.Name())
	}

	t, err := c.parseType(fd.Type, fd.Length)
	if err != nil {
		return nil, errors.WithFieldError(err, st.Name(), fd.Name)
	}

	var opts []coder.FieldOption
	if fd.MinVer != "" {
		v, err := coder.ParseVersion(fd.MinVer)
		if err != nil {
			return nil, errors.WithFieldError(err, st.Name(), fd.Name)
		}
		opts = append(opts, coder.MinVer(v))
	}
	if fd.MaxVer != "" {
		v, err := coder.ParseVersion(fd.MaxVer)
		if err != nil {
			return nil, errors.WithFieldError(err, st.Name(), fd.Name)
		}
		opts = append(opts, coder.MaxVer(v))
	}
	if fd.Repeat != nil {
		opts = append(opts, coder.Repeat(*fd.Repeat))
	}
	if fd.RemainingCompressed {
		opts = append(opts, coder.RemainingCompressed())
	}
	if fd.Default != nil {
		var x interface{}
		if err := fd.Default.Decode(&x); err != nil {
			return nil, errors.WithFieldError(err, st.Name(), fd.Name)
		}
		opts = append(opts, coder.Default(x))
	}

	return st.AddField(fd.Name, t, opts...)
}

var scalarTypes = map[string]coder.Type{
	"u8":      coder.UInt8,
	"u16":     coder.UInt16,
	"u32":     coder.UInt32,
	"u64":     coder.UInt64,
	"u128":    coder.UInt128,
	"i8":      coder.Int8,
	"i16":     coder.Int16,
	"i32":     coder.Int32,
	"i64":     coder.Int64,
	"i128":    coder.Int128,
	"f32":     coder.Float32,
	"f64":     coder.Float64,
	"bool8":   coder.Bool8,
	"bool16":  coder.Bool16,
	"bool32":  coder.Bool32,
	"bool64":  coder.Bool64,
	"bool128": coder.Bool128,
	"str8":    coder.Str8,
	"str16":   coder.Str16,
	"str32":   coder.Str32,
	"str64":   coder.Str64,
}

func (c *compiler) parseType(name string, length int) (coder.Type, error) {
	if t, ok := scalarTypes[name]; ok {
		return t, nil
	}

	switch {
	case name == "fixed_str" || name == "bytes":
		if length <= 0 {
			return coder.Type{}, errors.Errorf(errors.ErrValueOutOfRange, "%s needs a positive length, got %d", name, length)
		}
		if name == "bytes" {
			return coder.Bytes(length), nil
		}
		return coder.FixedStr(length), nil

	case strings.HasPrefix(name, "struct:"):
		st, ok := c.reg.Lookup(strings.TrimPrefix(name, "struct:"))
		if !ok {
			return coder.Type{}, errors.Errorf(errors.ErrUnknownField, "no struct named %q", strings.TrimPrefix(name, "struct:"))
		}
		return coder.StructOf(st), nil

	case name == "":
		return coder.Type{}, errors.Errorf(errors.ErrTypeMismatch, "missing type")
	}
	return coder.Type{}, errors.Errorf(errors.ErrTypeMismatch, "unknown type %q", name)
}
