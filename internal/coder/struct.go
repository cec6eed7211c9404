// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	bfpinterfaces "go.e43.eu/bfp/interfaces"
	"go.e43.eu/bfp/internal/errors"
	"go.e43.eu/bfp/internal/stream"
)

// VersionFunc discovers the version of a record from its header. It may
// consume bytes from d. Returning ErrVersionUnsupported means that the record
// carries no version of its own, and the requested version is used
type VersionFunc func(d bfpinterfaces.Decoder, requested Version) (Version, error)

// VersionWriter writes the header which a VersionFunc reads back
type VersionWriter func(e bfpinterfaces.Encoder, ver Version) error

// Struct is the schema of one record type: an ordered list of fields plus
// the optional version discovery and compression hooks.
//
// Fields are added while the schema is declared. The first parse, encode or
// New freezes the Struct; from then on it is immutable and may be shared
// freely between goroutines
type Struct struct {
	name   string
	fields []*Retriever
	byName map[string]*Retriever

	versionFn     VersionFunc
	versionWriter VersionWriter
	compressor    bfpinterfaces.Compressor

	frozen atomic.Bool
}

// StructOption configures a Struct
type StructOption func(s *Struct)

// WithVersionFunc installs a version discovery hook, and optionally the
// writer for the matching header
func WithVersionFunc(read VersionFunc, write VersionWriter) StructOption {
	return func(s *Struct) {
		s.versionFn = read
		s.versionWriter = write
	}
}

// WithCompressor installs the hook used for fields marked RemainingCompressed
func WithCompressor(c bfpinterfaces.Compressor) StructOption {
	return func(s *Struct) {
		s.compressor = c
	}
}

func NewStruct(name string, opts ...StructOption) *Struct {
	s := &Struct{
		name:   name,
		byName: make(map[string]*Retriever),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Struct) Name() string { return s.name }

// NumFields returns the number of declared fields
func (s *Struct) NumFields() int { return len(s.fields) }

// Fields returns the declared fields in order
func (s *Struct) Fields() []*Retriever {
	return append([]*Retriever(nil), s.fields...)
}

// Field looks up a field by name
func (s *Struct) Field(name string) (*Retriever, error) {
	r, ok := s.byName[name]
	if !ok {
		return nil, errors.Errorf(errors.ErrUnknownField, "%s has no field %q", s.name, name)
	}
	return r, nil
}

func (s *Struct) mustBeMutable() {
	if s.frozen.Load() {
		panic(fmt.Sprintf("Attempt to modify record type %s after it has been used", s.name))
	}
}

func (s *Struct) freeze() {
	s.frozen.Store(true)
}

// AddField declares the next field of the record. Fields are parsed in the
// order in which they are added
func (s *Struct) AddField(name string, t Type, opts ...FieldOption) (*Retriever, error) {
	s.mustBeMutable()

	if _, dup := s.byName[name]; dup {
		return nil, fmt.Errorf("bfp: field %s.%s declared twice", s.name, name)
	}
	if t.kind == typeInvalid {
		return nil, errors.Errorf(errors.ErrTypeMismatch, "field %s.%s has no type", s.name, name)
	}

	r := &Retriever{
		st:     s,
		name:   name,
		typ:    t,
		idx:    len(s.fields),
		minVer: DefaultMinVer,
		maxVer: DefaultMaxVer,
		repeat: RepeatScalar,
	}
	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, errors.WithFieldError(err, s.name, name)
		}
	}

	if r.maxVer.Less(r.minVer) {
		return nil, errors.WithFieldError(
			errors.Errorf(errors.ErrValueOutOfRange, "min version %s above max version %s", r.minVer, r.maxVer),
			s.name, name)
	}

	s.fields = append(s.fields, r)
	s.byName[name] = r
	return r, nil
}

// Add is AddField, panicking on error. It is intended for schemas declared
// in package level variables
func (s *Struct) Add(name string, t Type, opts ...FieldOption) *Retriever {
	r, err := s.AddField(name, t, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseOptions control a top level parse
type ParseOptions struct {
	// Requested version. The zero Version means Unversioned
	Version Version

	// Strict makes trailing bytes after the record an error
	Strict bool

	// Logger receives debug traces of the parse. Defaults to a no-op logger
	Logger *zerolog.Logger
}

func (o ParseOptions) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Parse reads one record from s
func (s *Struct) Parse(in *stream.Stream, opts ParseOptions) (*Record, error) {
	ver := opts.Version
	if ver.IsZero() {
		ver = Unversioned
	}

	d := newDecoder(in, opts.logger())
	defer d.release()

	rec, err := s.parse(d, ver, false)
	if err != nil {
		return nil, err
	}

	if n := d.s.Len(); opts.Strict && n != 0 {
		return nil, errors.Errorf(errors.ErrTrailingBytes, "%d bytes left after %s", n, s.name)
	}
	return rec, nil
}

// ParseBytes reads one record from buf
func (s *Struct) ParseBytes(buf []byte, opts ParseOptions) (*Record, error) {
	return s.Parse(stream.New(buf), opts)
}

// Read reads the whole of r and parses one record from it
func (s *Struct) Read(r io.Reader, opts ParseOptions) (*Record, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return s.ParseBytes(buf, opts)
}

func (s *Struct) parse(d *decoder, requested Version, nested bool) (*Record, error) {
	s.freeze()

	ver, err := s.resolveVersion(d, requested)
	if err != nil {
		return nil, errors.WithVersion(errors.WithFieldError(err, s.name), requested.String())
	}

	d.log.Debug().
		Str("struct", s.name).
		Stringer("version", ver).
		Int("offset", d.Offset()).
		Bool("nested", nested).
		Msg("parse record")

	rec := newRecord(s, ver)
	for _, f := range s.fields {
		if err := rec.readField(d, f); err != nil {
			return nil, errors.WithVersion(errors.WithFieldError(err, s.name, f.name), ver.String())
		}
	}
	return rec, nil
}

func (s *Struct) resolveVersion(d *decoder, requested Version) (Version, error) {
	if s.versionFn == nil {
		return requested, nil
	}

	ver, err := s.versionFn(d, requested)
	switch {
	case errors.Is(err, errors.ErrVersionUnsupported):
		return requested, nil
	case err != nil:
		return Version{}, err
	case ver.IsZero():
		return requested, nil
	}
	return ver, nil
}

func (s *Struct) decompress(d *decoder) error {
	if s.compressor == nil {
		return errors.Errorf(errors.ErrCompressionUnsupported, "%s has no decompression hook", s.name)
	}

	in := d.s.Remaining()
	out, err := s.compressor.Decompress(in)
	if err != nil {
		return err
	}

	d.log.Debug().
		Str("struct", s.name).
		Int("compressed", len(in)).
		Int("decompressed", len(out)).
		Msg("switch to decompressed stream")
	d.s = stream.New(out)
	return nil
}

func (rec *Record) readField(d *decoder, f *Retriever) error {
	i := f.idx
	if !f.Supports(rec.ver) {
		rec.vals[i] = Absent()
		rec.slots[i] = slotUnsupported
		return nil
	}

	if f.compressed && !rec.inflated {
		if err := rec.st.decompress(d); err != nil {
			return err
		}
		rec.inflated = true
	}

	state := rec.state(i)
	d.log.Debug().
		Str("field", f.name).
		Stringer("type", f.typ).
		Stringer("state", state).
		Int("offset", d.Offset()).
		Msg("decode field")

	switch state {
	case stateAbsent:
		rec.store(i, Absent())

	case stateScalar:
		v, err := d.decodeValue(f.typ, rec.ver)
		if err != nil {
			return err
		}
		rec.store(i, v)

	case stateList:
		n := rec.repeat(i)
		l := &List{elem: f.typ, vals: make([]Value, 0, min(n, d.s.Len()))}
		for j := 0; j < n; j++ {
			in, off := d.s, d.Offset()
			v, err := d.decodeValue(f.typ, rec.ver)
			if err != nil {
				return errors.WithFieldError(err, fmt.Sprintf("[%d]", j))
			}
			l.vals = append(l.vals, v)

			// Elements which consume no input cannot be bounded by the
			// input length, so the count is checked against it instead
			if j == 0 && d.s == in && d.Offset() == off && n > d.s.Len() {
				return errors.Errorf(errors.ErrValueOutOfRange, "repeat %d of zero width elements exceeds the %d bytes left", n, d.s.Len())
			}
		}
		rec.store(i, ListValue(l))
	}

	return rec.RunAll(f.onRead)
}

// New builds a record of version ver with every field set to its default
func (s *Struct) New(ver Version) *Record {
	s.freeze()
	if ver.IsZero() {
		ver = Unversioned
	}

	rec := newRecord(s, ver)
	for i, f := range s.fields {
		if !f.Supports(ver) {
			rec.slots[i] = slotUnsupported
			continue
		}
		rec.store(i, f.defaultValue(ver))
	}
	return rec
}

// Encode serialises rec, running each field's write combinators immediately
// before the field is written
func (s *Struct) Encode(rec *Record) ([]byte, error) {
	var b bytes.Buffer
	e := newEncoder(&b)
	defer e.release()

	if err := s.encode(e, rec); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

var writerPool = sync.Pool{
	New: func() interface{} {
		return bufio.NewWriter(nil)
	},
}

// Write encodes rec to w
func (s *Struct) Write(w io.Writer, rec *Record) error {
	buf, err := s.Encode(rec)
	if err != nil {
		return err
	}

	if _, ok := w.(*bytes.Buffer); ok {
		_, err = w.Write(buf)
		return err
	}

	bw := writerPool.Get().(*bufio.Writer)
	bw.Reset(w)
	_, err = bw.Write(buf)
	if err == nil {
		err = bw.Flush()
	}
	bw.Reset(nil)
	writerPool.Put(bw)
	return err
}

func (s *Struct) encode(e *encoder, rec *Record) error {
	s.freeze()
	if rec == nil || rec.st != s {
		return errors.Errorf(errors.ErrTypeMismatch, "record is not a %s", s.name)
	}

	fail := func(err error, parts ...string) error {
		return errors.WithVersion(errors.WithFieldError(err, append([]string{s.name}, parts...)...), rec.ver.String())
	}

	if s.versionWriter != nil {
		if err := s.versionWriter(e, rec.ver); err != nil {
			return fail(err)
		}
	}

	// Once the compressed suffix starts, fields are written to a scratch
	// buffer which is compressed into outer at the end
	var outer *bytes.Buffer
	defer func() {
		if outer != nil {
			e.b = outer
		}
	}()

	for i, f := range s.fields {
		if rec.slots[i] == slotUnsupported || !f.Supports(rec.ver) {
			continue
		}

		if err := rec.RunAll(f.onWrite); err != nil {
			return fail(err, f.name)
		}

		if f.compressed && outer == nil {
			if s.compressor == nil {
				return fail(errors.Errorf(errors.ErrCompressionUnsupported, "%s has no compression hook", s.name), f.name)
			}
			outer, e.b = e.b, new(bytes.Buffer)
		}

		if err := rec.writeField(e, f); err != nil {
			return fail(err, f.name)
		}
	}

	if outer == nil {
		return nil
	}

	out, err := s.compressor.Compress(e.b.Bytes())
	if err != nil {
		return fail(err)
	}
	_, err = outer.Write(out)
	return err
}

func (rec *Record) writeField(e *encoder, f *Retriever) error {
	v, err := rec.load(f.idx)
	if err != nil {
		return err
	}

	switch v.kind {
	case KindAbsent:
		return nil

	case KindList:
		for j, ev := range v.list.vals {
			if err := e.encodeValue(f.typ, ev); err != nil {
				return errors.WithFieldError(err, fmt.Sprintf("[%d]", j))
			}
		}
		return nil

	default:
		return e.encodeValue(f.typ, v)
	}
}
