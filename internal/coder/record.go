// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"strings"

	"go.e43.eu/bfp/internal/errors"
)

type slotState uint8

const (
	// Not yet reached by the parser
	slotUnset slotState = iota
	// Not present in the record's version
	slotUnsupported
	// Populated (possibly with the absent value)
	slotSet
)

type repeatOverride struct {
	n   int
	set bool
}

// Record is one parsed (or constructed) instance of a Struct. It owns the
// field value table and the repeat count table of that instance.
//
// A Record must not be used from multiple goroutines at once
type Record struct {
	st  *Struct
	ver Version

	vals    []Value
	slots   []slotState
	repeats []repeatOverride

	// The parser has switched to the decompressed stream
	inflated bool
}

func newRecord(st *Struct, ver Version) *Record {
	n := len(st.fields)
	return &Record{
		st:      st,
		ver:     ver,
		vals:    make([]Value, n),
		slots:   make([]slotState, n),
		repeats: make([]repeatOverride, n),
	}
}

// Struct returns the record type
func (r *Record) Struct() *Struct { return r.st }

// Version returns the version the record was resolved to
func (r *Record) Version() Version { return r.ver }

// Len returns the number of fields
func (r *Record) Len() int { return len(r.vals) }

// load reads a field's slot on behalf of a combinator
func (r *Record) load(idx int) (Value, error) {
	if idx < 0 || idx >= len(r.vals) {
		return Value{}, errors.Errorf(errors.ErrUninitialized, "field index %d out of range", idx)
	}

	switch r.slots[idx] {
	case slotUnset:
		return Value{}, errors.Errorf(errors.ErrUninitialized, "field %s", r.st.fields[idx].name)
	case slotUnsupported:
		return Value{}, errors.Errorf(errors.ErrVersionUnsupported, "field %s is not present in %s", r.st.fields[idx].name, r.ver)
	}
	return r.vals[idx], nil
}

func (r *Record) store(idx int, v Value) {
	r.vals[idx] = v
	r.slots[idx] = slotSet
}

// state returns the current state of a field from its repeat override and
// nominal repeat count
func (r *Record) state(idx int) fieldState {
	return r.st.fields[idx].state(r.repeats[idx].set)
}

// repeat returns the effective repeat count of a field
func (r *Record) repeat(idx int) int {
	if o := r.repeats[idx]; o.set {
		return o.n
	}
	return r.st.fields[idx].repeat
}

// Index returns the raw value of field i, bypassing access hooks
func (r *Record) Index(i int) (Value, error) {
	return r.load(i)
}

// Repeat returns the effective repeat count of the named field for this record
func (r *Record) Repeat(name string) (int, error) {
	f, err := r.st.Field(name)
	if err != nil {
		return 0, err
	}
	return r.repeat(f.idx), nil
}

// SetRepeat overrides the repeat count of the named field, as the
// set-repeat combinators do
func (r *Record) SetRepeat(name string, n int) error {
	f, err := r.st.Field(name)
	if err != nil {
		return err
	}
	if n < 0 {
		return errors.Errorf(errors.ErrValueOutOfRange, "repeat %d of field %s", n, name)
	}
	r.repeats[f.idx] = repeatOverride{n: n, set: true}
	return nil
}

// Get returns the named field's value, after running its OnGet hooks
func (r *Record) Get(name string) (Value, error) {
	f, err := r.st.Field(name)
	if err != nil {
		return Value{}, err
	}

	v, err := r.load(f.idx)
	if err != nil {
		return Value{}, errors.WithFieldError(err, r.st.name, name)
	}

	for _, h := range f.onGet {
		if v, err = h(r, v); err != nil {
			return Value{}, errors.WithFieldError(err, r.st.name, name)
		}
	}
	return v, nil
}

// Set assigns the named field. x is coerced to the field's type (a list if
// the field is currently a list) and then passed through the field's mappers,
// validators and OnSet hooks, in that order
func (r *Record) Set(name string, x interface{}) error {
	f, err := r.st.Field(name)
	if err != nil {
		return err
	}
	return errors.WithFieldError(r.set(f, x), r.st.name, name)
}

func (r *Record) set(f *Retriever, x interface{}) error {
	if !f.Supports(r.ver) {
		return errors.Errorf(errors.ErrVersionUnsupported, "field is present in [%s, %s], not %s", f.minVer, f.maxVer, r.ver)
	}

	v, err := f.typ.Coerce(x)
	if err != nil {
		return err
	}

	switch r.state(f.idx) {
	case stateList:
		if v.kind != KindList {
			return errors.Errorf(errors.ErrTypeMismatch, "expected a list of %s, got %s", f.typ, v.kind)
		}
	case stateScalar:
		if v.kind == KindList {
			return errors.Errorf(errors.ErrTypeMismatch, "expected a %s, got a list", f.typ)
		}
	}

	for _, h := range f.mappers {
		if v, err = h(r, v); err != nil {
			return err
		}
	}

	for i, validate := range f.validators {
		if !validate(r, v) {
			return errors.Errorf(errors.ErrValidation, "validator %d rejected %s", i, v)
		}
	}

	for _, h := range f.onSet {
		if v, err = h(r, v); err != nil {
			return err
		}
	}

	r.store(f.idx, v)
	return nil
}

// Equal compares two records field by field. Records of different types or
// versions are never equal
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.st != o.st || !r.ver.Equal(o.ver) {
		return false
	}

	for i := range r.vals {
		if r.slots[i] != o.slots[i] || !r.vals[i].Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.st.name)
	sb.WriteString("(")
	first := true
	for i, f := range r.st.fields {
		if r.slots[i] != slotSet {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(f.name)
		sb.WriteString("=")
		sb.WriteString(r.vals[i].String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Fields calls fn for every field present in the record's version, in
// declaration order. Iteration stops at the first error
func (r *Record) Fields(fn func(f *Retriever, v Value) error) error {
	for i, f := range r.st.fields {
		if r.slots[i] != slotSet {
			continue
		}
		if err := fn(f, r.vals[i]); err != nil {
			return err
		}
	}
	return nil
}
