// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"

	"go.e43.eu/bfp/internal/errors"
)

// Repeat counts with special meaning
const (
	// The field is optional and wholly absent unless a combinator overrides
	// its repeat count
	RepeatOptional = -1
	// The field holds exactly one scalar value
	RepeatScalar = 1
)

// Hook transforms a field value on access. Mappers and OnSet hooks run when a
// value is assigned through Record.Set, OnGet hooks when one is read through
// Record.Get
type Hook func(rec *Record, v Value) (Value, error)

// Validator checks a value assigned through Record.Set
type Validator func(rec *Record, v Value) bool

// Retriever describes one field of a record type: its wire type, the version
// range in which it is present, its nominal repeat count and the combinators
// which run once it has been read or before it is written.
//
// Retrievers are created by Struct.Add and are immutable once the record type
// has been used to parse; per-parse state lives in the Record
type Retriever struct {
	st   *Struct
	name string
	typ  Type
	idx  int

	minVer, maxVer Version
	repeat         int
	compressed     bool

	def    Value
	hasDef bool

	onRead, onWrite []Combinator

	mappers    []Hook
	validators []Validator
	onGet      []Hook
	onSet      []Hook
}

// FieldOption configures a Retriever as it is added to a Struct
type FieldOption func(r *Retriever) error

// MinVer sets the first version in which the field is present
func MinVer(v Version) FieldOption {
	return func(r *Retriever) error {
		r.minVer = v
		return nil
	}
}

// MaxVer sets the last version in which the field is present
func MaxVer(v Version) FieldOption {
	return func(r *Retriever) error {
		r.maxVer = v
		return nil
	}
}

// Repeat sets the nominal repeat count. See RepeatOptional and RepeatScalar;
// any other non-negative count makes the field a list
func Repeat(n int) FieldOption {
	return func(r *Retriever) error {
		if n < RepeatOptional {
			return errors.Errorf(errors.ErrValueOutOfRange, "repeat %d of field %s", n, r.name)
		}
		r.repeat = n
		return nil
	}
}

// RemainingCompressed marks the field as the start of the compressed suffix
// of the record
func RemainingCompressed() FieldOption {
	return func(r *Retriever) error {
		r.compressed = true
		return nil
	}
}

// Default sets the value the field takes in records built by Struct.New. It
// is coerced to the field's type
func Default(x interface{}) FieldOption {
	return func(r *Retriever) error {
		v, err := r.typ.Coerce(x)
		if err != nil {
			return err
		}
		r.def, r.hasDef = v, true
		return nil
	}
}

// OnRead appends combinators which run immediately after the field is read
func OnRead(cs ...Combinator) FieldOption {
	return func(r *Retriever) error {
		r.onRead = append(r.onRead, cs...)
		return nil
	}
}

// OnWrite appends combinators which run immediately before the field is
// written
func OnWrite(cs ...Combinator) FieldOption {
	return func(r *Retriever) error {
		r.onWrite = append(r.onWrite, cs...)
		return nil
	}
}

func Mappers(hs ...Hook) FieldOption {
	return func(r *Retriever) error {
		r.mappers = append(r.mappers, hs...)
		return nil
	}
}

func Validators(vs ...Validator) FieldOption {
	return func(r *Retriever) error {
		r.validators = append(r.validators, vs...)
		return nil
	}
}

func OnGet(hs ...Hook) FieldOption {
	return func(r *Retriever) error {
		r.onGet = append(r.onGet, hs...)
		return nil
	}
}

func OnSet(hs ...Hook) FieldOption {
	return func(r *Retriever) error {
		r.onSet = append(r.onSet, hs...)
		return nil
	}
}

func (r *Retriever) Name() string       { return r.name }
func (r *Retriever) Type() Type         { return r.typ }
func (r *Retriever) Index() int         { return r.idx }
func (r *Retriever) Struct() *Struct    { return r.st }
func (r *Retriever) MinVer() Version    { return r.minVer }
func (r *Retriever) MaxVer() Version    { return r.maxVer }
func (r *Retriever) Repeat() int        { return r.repeat }
func (r *Retriever) IsCompressed() bool { return r.compressed }

// Supports reports whether the field is present in records of version ver
func (r *Retriever) Supports(ver Version) bool {
	return ver.Within(r.minVer, r.maxVer)
}

// OnRead attaches further read combinators. This permits combinators which
// refer to fields declared after this one. It panics once the record type
// has been used
func (r *Retriever) OnRead(cs ...Combinator) *Retriever {
	r.st.mustBeMutable()
	r.onRead = append(r.onRead, cs...)
	return r
}

// OnWrite attaches further write combinators, as OnRead
func (r *Retriever) OnWrite(cs ...Combinator) *Retriever {
	r.st.mustBeMutable()
	r.onWrite = append(r.onWrite, cs...)
	return r
}

func (r *Retriever) String() string {
	return fmt.Sprintf("%s.%s", r.st.name, r.name)
}

// state computes the field state from whether its repeat count has been
// overridden and the nominal repeat count
func (r *Retriever) state(overridden bool) fieldState {
	switch {
	case overridden:
		return stateList
	case r.repeat == RepeatOptional:
		return stateAbsent
	case r.repeat == RepeatScalar:
		return stateScalar
	default:
		return stateList
	}
}

// defaultValue builds the value the field takes in a fresh record of version
// ver
func (r *Retriever) defaultValue(ver Version) Value {
	// The state is decided first; a zero nested record is only built when
	// one is needed, so self-referencing record types terminate
	state := r.state(false)
	if state == stateAbsent {
		return Absent()
	}
	if state == stateList && r.repeat == 0 && !r.hasDef {
		return ListValue(&List{elem: r.typ})
	}

	v := r.def
	if !r.hasDef {
		v = r.typ.zero(ver)
	}

	switch {
	case state == stateScalar:
		return v
	case v.kind == KindList:
		return v
	}

	l := &List{elem: r.typ, vals: make([]Value, r.repeat)}
	for i := range l.vals {
		if i > 0 && !r.hasDef && v.kind == KindRecord {
			// Each element gets a record of its own
			v = r.typ.zero(ver)
		}
		l.vals[i] = v
	}
	return ListValue(l)
}

type fieldState uint8

const (
	stateAbsent fieldState = iota
	stateScalar
	stateList
)

func (s fieldState) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateScalar:
		return "scalar"
	default:
		return "list"
	}
}
