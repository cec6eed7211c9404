// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"strings"

	"go.e43.eu/bfp/internal/errors"
)

// List is an ordered, homogeneous sequence of values. Every element is
// accepted by the list's element type
type List struct {
	elem Type
	vals []Value
}

// NewList builds a list of elem, checking every value against it
func NewList(elem Type, vals ...Value) (*List, error) {
	l := &List{elem: elem, vals: make([]Value, 0, len(vals))}
	for _, v := range vals {
		if err := l.Append(v); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *List) Elem() Type { return l.elem }
func (l *List) Len() int   { return len(l.vals) }

// At returns the i-th element. It panics if i is out of range, like a slice
// index
func (l *List) At(i int) Value { return l.vals[i] }

// Values returns a copy of the elements
func (l *List) Values() []Value {
	return append([]Value(nil), l.vals...)
}

func (l *List) Append(v Value) error {
	if !l.elem.Accepts(v) {
		return errors.Errorf(errors.ErrTypeMismatch, "cannot append %s to list of %s", v.Kind(), l.elem)
	}
	l.vals = append(l.vals, v)
	return nil
}

func (l *List) Set(i int, v Value) error {
	if i < 0 || i >= len(l.vals) {
		return errors.Errorf(errors.ErrValueOutOfRange, "list index %d out of range [0, %d)", i, len(l.vals))
	}
	if !l.elem.Accepts(v) {
		return errors.Errorf(errors.ErrTypeMismatch, "cannot store %s in list of %s", v.Kind(), l.elem)
	}
	l.vals[i] = v
	return nil
}

// IsListOf reports whether the list's element type is t
func (l *List) IsListOf(t Type) bool {
	return l.elem.Equal(t)
}

// Equal compares element-wise
func (l *List) Equal(o *List) bool {
	if l == nil || o == nil {
		return l == o
	}
	if len(l.vals) != len(o.vals) {
		return false
	}
	for i := range l.vals {
		if !l.vals[i].Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

func (l *List) String() string {
	parts := make([]string, len(l.vals))
	for i, v := range l.vals {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
