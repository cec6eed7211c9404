// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"

	"go.e43.eu/bfp/internal/errors"
)

// Combinator is one step of a field's read or write program. Combinators read
// fields of the record being processed and write the value or repeat count of
// other fields.
//
// The set of combinators is closed; the concrete types below are the only
// implementations. Target and Source are field indices within the record
type Combinator interface {
	fmt.Stringer
	isCombinator()
}

// SetTo stores Value into Target. If Target is currently a list, Value must
// be a list of Target's type
type SetTo struct {
	Target int
	Value  Value
}

// SetFrom copies Source into Target, with the same list check as SetTo
type SetFrom struct {
	Target, Source int
}

// SetFromLen stores the length of the list in Source into the scalar integer
// field Target
type SetFromLen struct {
	Target, Source int
}

// SetRepeatTo overrides the repeat count of Target with Count
type SetRepeatTo struct {
	Target int
	Count  int
}

// SetRepeatFrom overrides the repeat count of Target with the integer value
// of Source
type SetRepeatFrom struct {
	Target, Source int
}

// IfCheck runs Then if Target is true (or a non-zero integer)
type IfCheck struct {
	Target int
	Then   Combinator
}

// IfCmpFrom runs Then if comparing Target with Source yields one of Orderings
type IfCmpFrom struct {
	Target, Source int
	Orderings      OrderingSet
	Then           Combinator
}

// IfCmpTo runs Then if comparing Target with Value yields one of Orderings
type IfCmpTo struct {
	Target    int
	Value     Value
	Orderings OrderingSet
	Then      Combinator
}

// IfCmpLenFrom runs Then if comparing the length of the list in Target with
// the integer value of Source yields one of Orderings
type IfCmpLenFrom struct {
	Target, Source int
	Orderings      OrderingSet
	Then           Combinator
}

// IfCmpLenTo runs Then if comparing the length of the list in Target with
// Count yields one of Orderings
type IfCmpLenTo struct {
	Target    int
	Count     int
	Orderings OrderingSet
	Then      Combinator
}

func (SetTo) isCombinator()         {}
func (SetFrom) isCombinator()       {}
func (SetFromLen) isCombinator()    {}
func (SetRepeatTo) isCombinator()   {}
func (SetRepeatFrom) isCombinator() {}
func (IfCheck) isCombinator()       {}
func (IfCmpFrom) isCombinator()     {}
func (IfCmpTo) isCombinator()       {}
func (IfCmpLenFrom) isCombinator()  {}
func (IfCmpLenTo) isCombinator()    {}

func (c SetTo) String() string      { return fmt.Sprintf("SetTo(#%d, %s)", c.Target, c.Value) }
func (c SetFrom) String() string    { return fmt.Sprintf("SetFrom(#%d, #%d)", c.Target, c.Source) }
func (c SetFromLen) String() string { return fmt.Sprintf("SetFromLen(#%d, #%d)", c.Target, c.Source) }
func (c SetRepeatTo) String() string {
	return fmt.Sprintf("SetRepeatTo(#%d, %d)", c.Target, c.Count)
}
func (c SetRepeatFrom) String() string {
	return fmt.Sprintf("SetRepeatFrom(#%d, #%d)", c.Target, c.Source)
}
func (c IfCheck) String() string { return fmt.Sprintf("IfCheck(#%d, %s)", c.Target, c.Then) }
func (c IfCmpFrom) String() string {
	return fmt.Sprintf("IfCmpFrom(#%d, #%d, %s, %s)", c.Target, c.Source, c.Orderings, c.Then)
}
func (c IfCmpTo) String() string {
	return fmt.Sprintf("IfCmpTo(#%d, %s, %s, %s)", c.Target, c.Value, c.Orderings, c.Then)
}
func (c IfCmpLenFrom) String() string {
	return fmt.Sprintf("IfCmpLenFrom(#%d, #%d, %s, %s)", c.Target, c.Source, c.Orderings, c.Then)
}
func (c IfCmpLenTo) String() string {
	return fmt.Sprintf("IfCmpLenTo(#%d, %d, %s, %s)", c.Target, c.Count, c.Orderings, c.Then)
}

// Run evaluates c against the record. Nested combinators run depth first and
// only on the branch taken
func (r *Record) Run(c Combinator) error {
	switch c := c.(type) {
	case SetTo:
		if err := r.checkStore(c.Target); err != nil {
			return err
		}
		if err := r.checkListOf(c.Target, c.Value); err != nil {
			return err
		}
		r.store(c.Target, c.Value)
		return nil

	case SetFrom:
		if err := r.checkStore(c.Target); err != nil {
			return err
		}
		v, err := r.load(c.Source)
		if err != nil {
			return err
		}
		if err := r.checkListOf(c.Target, v); err != nil {
			return err
		}
		r.store(c.Target, v)
		return nil

	case SetFromLen:
		if err := r.checkStore(c.Target); err != nil {
			return err
		}
		if r.state(c.Target) == stateList {
			return errors.Errorf(errors.ErrTypeMismatch, "cannot store a length into list field %s", r.name(c.Target))
		}
		n, err := r.listLen(c.Source)
		if err != nil {
			return err
		}
		t := r.st.fields[c.Target].typ
		v, ok := t.FromLen(n)
		if !ok {
			return errors.Errorf(errors.ErrTypeMismatch, "length %d of field %s cannot be stored in %s field %s", n, r.name(c.Source), t, r.name(c.Target))
		}
		r.store(c.Target, v)
		return nil

	case SetRepeatTo:
		return r.overrideRepeat(c.Target, c.Count)

	case SetRepeatFrom:
		n, err := r.loadInt(c.Source)
		if err != nil {
			return err
		}
		return r.overrideRepeat(c.Target, n)

	case IfCheck:
		v, err := r.load(c.Target)
		if err != nil {
			return err
		}
		b, ok := v.Bool()
		if !ok {
			return errors.Errorf(errors.ErrTypeMismatch, "field %s (%s) is not a boolean", r.name(c.Target), v.Kind())
		}
		if b {
			return r.Run(c.Then)
		}
		return nil

	case IfCmpFrom:
		a, err := r.load(c.Target)
		if err != nil {
			return err
		}
		b, err := r.load(c.Source)
		if err != nil {
			return err
		}
		return r.runIf(a, b, c.Orderings, c.Then, c.Target)

	case IfCmpTo:
		a, err := r.load(c.Target)
		if err != nil {
			return err
		}
		return r.runIf(a, c.Value, c.Orderings, c.Then, c.Target)

	case IfCmpLenFrom:
		n, err := r.listLen(c.Target)
		if err != nil {
			return err
		}
		b, err := r.load(c.Source)
		if err != nil {
			return err
		}
		if !b.Kind().IsInteger() {
			return errors.Errorf(errors.ErrTypeMismatch, "field %s (%s) is not an integer", r.name(c.Source), b.Kind())
		}
		return r.runIf(Int64Value(int64(n)), b, c.Orderings, c.Then, c.Target)

	case IfCmpLenTo:
		n, err := r.listLen(c.Target)
		if err != nil {
			return err
		}
		return r.runIf(Int64Value(int64(n)), Int64Value(int64(c.Count)), c.Orderings, c.Then, c.Target)
	}

	return errors.Errorf(errors.ErrTypeMismatch, "unknown combinator %T", c)
}

// RunAll evaluates each combinator in turn, stopping at the first failure
func (r *Record) RunAll(cs []Combinator) error {
	for _, c := range cs {
		if err := r.Run(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) runIf(a, b Value, os OrderingSet, then Combinator, target int) error {
	o, err := Compare(a, b)
	if err != nil {
		return errors.Errorf(errors.ErrTypeMismatch, "comparing field %s: %v", r.name(target), err)
	}
	if os.Contains(o) {
		return r.Run(then)
	}
	return nil
}

func (r *Record) name(idx int) string {
	if idx < 0 || idx >= len(r.st.fields) {
		return fmt.Sprintf("#%d", idx)
	}
	return r.st.fields[idx].name
}

func (r *Record) checkTarget(idx int) error {
	if idx < 0 || idx >= len(r.vals) {
		return errors.Errorf(errors.ErrUninitialized, "field index %d out of range", idx)
	}
	return nil
}

// checkStore is checkTarget for combinators which write a value. A field
// outside the record's version keeps no value
func (r *Record) checkStore(idx int) error {
	if err := r.checkTarget(idx); err != nil {
		return err
	}
	if f := r.st.fields[idx]; !f.Supports(r.ver) {
		return errors.Errorf(errors.ErrVersionUnsupported, "field %s is not present in %s", f.name, r.ver)
	}
	return nil
}

// checkListOf enforces that a value stored into a list field is a list of the
// field's type
func (r *Record) checkListOf(idx int, v Value) error {
	if r.state(idx) != stateList {
		return nil
	}

	t := r.st.fields[idx].typ
	if l, ok := v.List(); !ok || !l.IsListOf(t) {
		return errors.Errorf(errors.ErrTypeMismatch, "%s is not a list of %s (field %s)", v.Kind(), t, r.name(idx))
	}
	return nil
}

func (r *Record) listLen(idx int) (int, error) {
	v, err := r.load(idx)
	if err != nil {
		return 0, err
	}
	l, ok := v.List()
	if !ok {
		return 0, errors.Errorf(errors.ErrTypeMismatch, "field %s (%s) is not a list", r.name(idx), v.Kind())
	}
	return l.Len(), nil
}

func (r *Record) loadInt(idx int) (int, error) {
	v, err := r.load(idx)
	if err != nil {
		return 0, err
	}
	n, ok := v.Int()
	if !ok {
		return 0, errors.Errorf(errors.ErrTypeMismatch, "field %s (%s) is not an int", r.name(idx), v)
	}
	return n, nil
}

func (r *Record) overrideRepeat(idx, n int) error {
	if err := r.checkTarget(idx); err != nil {
		return err
	}
	if n < 0 {
		return errors.Errorf(errors.ErrValueOutOfRange, "repeat %d of field %s", n, r.name(idx))
	}
	r.repeats[idx] = repeatOverride{n: n, set: true}
	return nil
}
