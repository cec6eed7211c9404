// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"reflect"

	"go.e43.eu/bfp/internal/errors"
)

// Operand is the right hand side of a comparison: either another field (Ref)
// or a literal (Lit)
type Operand interface {
	isOperand()
}

type fieldRef struct{ r *Retriever }
type literal struct{ v interface{} }

func (fieldRef) isOperand() {}
func (literal) isOperand()  {}

// Ref compares against the current value of another field
func Ref(r *Retriever) Operand { return fieldRef{r} }

// Lit compares against a constant. The constant is coerced to the type of the
// field being compared (or must be a non-negative integer in length mode)
func Lit(v interface{}) Operand { return literal{v} }

type builderState uint8

const (
	hasTarget builderState = iota
	hasSource
	hasSourceConst
)

// IfBuilder builds a conditional combinator. It is created by If, IfNot or
// IfLen, takes at most one relational call (Eq, Neq, Gt, Geq, Lt, Leq) and is
// finished by Then.
//
// Errors (such as a literal which does not fit the target's type) are
// recorded and returned by Then
type IfBuilder struct {
	target *Retriever
	not    bool
	len    bool

	state     builderState
	source    *Retriever
	value     Value
	count     int
	orderings OrderingSet

	err error
}

// If runs the nested combinator when the field is true, or when the
// comparison which follows holds
func If(r *Retriever) *IfBuilder {
	return &IfBuilder{target: r}
}

// IfNot is If with the comparison negated. Without a comparison the nested
// combinator runs when the field is false (or zero)
func IfNot(r *Retriever) *IfBuilder {
	return &IfBuilder{target: r, not: true}
}

// IfLen compares the length of the list held by the field. Without a
// comparison the nested combinator runs when the list is not empty
func IfLen(r *Retriever) *IfBuilder {
	return &IfBuilder{target: r, len: true}
}

func (b *IfBuilder) Eq(o Operand) *IfBuilder  { return b.cmp(o, SetEq) }
func (b *IfBuilder) Neq(o Operand) *IfBuilder { return b.cmp(o, SetNeq) }
func (b *IfBuilder) Gt(o Operand) *IfBuilder  { return b.cmp(o, SetGt) }
func (b *IfBuilder) Geq(o Operand) *IfBuilder { return b.cmp(o, SetGeq) }
func (b *IfBuilder) Lt(o Operand) *IfBuilder  { return b.cmp(o, SetLt) }
func (b *IfBuilder) Leq(o Operand) *IfBuilder { return b.cmp(o, SetLeq) }

func (b *IfBuilder) cmp(o Operand, os OrderingSet) *IfBuilder {
	if b.err != nil {
		return b
	}
	if b.state != hasTarget {
		b.err = errors.WithFieldError(errors.ErrChainedComparison, b.target.st.name, b.target.name)
		return b
	}

	if b.not {
		os = os.Complement()
	}
	b.orderings = os

	switch o := o.(type) {
	case fieldRef:
		b.source = o.r
		b.state = hasSource

	case literal:
		b.state = hasSourceConst
		if b.len {
			b.count, b.err = literalCount(o.v)
		} else {
			b.value, b.err = b.target.typ.Coerce(o.v)
		}
		if b.err != nil {
			b.err = errors.WithFieldError(b.err, b.target.st.name, b.target.name)
		}
	}
	return b
}

func literalCount(x interface{}) (int, error) {
	rv := reflect.ValueOf(x)
	var n int64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > uint64(maxInt) {
			return 0, errors.Errorf(errors.ErrValueOutOfRange, "length %d", u)
		}
		n = int64(u)
	default:
		return 0, errors.Errorf(errors.ErrTypeMismatch, "length must be an integer, not %T", x)
	}

	if n < 0 {
		return 0, errors.Errorf(errors.ErrValueOutOfRange, "negative length %d in a length comparison", n)
	}
	if n > int64(maxInt) {
		return 0, errors.Errorf(errors.ErrValueOutOfRange, "length %d", n)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)

// Then finishes the builder, producing the conditional combinator which runs
// c when the condition holds
func (b *IfBuilder) Then(c Combinator) (Combinator, error) {
	if b.err != nil {
		return nil, b.err
	}

	t := b.target.idx
	switch {
	case b.state == hasTarget && b.len:
		return IfCmpLenTo{Target: t, Count: 0, Orderings: SetGt, Then: c}, nil

	case b.state == hasTarget && b.not:
		// Negation never reaches the combinator: "not x" is "x == 0"
		var zero interface{} = 0
		if b.target.typ.ValueKind() == KindBool {
			zero = false
		}
		v, err := b.target.typ.Coerce(zero)
		if err != nil {
			return nil, errors.WithFieldError(err, b.target.st.name, b.target.name)
		}
		return IfCmpTo{Target: t, Value: v, Orderings: SetEq, Then: c}, nil

	case b.state == hasTarget:
		return IfCheck{Target: t, Then: c}, nil

	case b.state == hasSource && b.len:
		return IfCmpLenFrom{Target: t, Source: b.source.idx, Orderings: b.orderings, Then: c}, nil

	case b.state == hasSource:
		return IfCmpFrom{Target: t, Source: b.source.idx, Orderings: b.orderings, Then: c}, nil

	case b.len:
		return IfCmpLenTo{Target: t, Count: b.count, Orderings: b.orderings, Then: c}, nil

	default:
		return IfCmpTo{Target: t, Value: b.value, Orderings: b.orderings, Then: c}, nil
	}
}

// SetBuilder builds a combinator which assigns a field's value
type SetBuilder struct {
	target *Retriever
}

func Set(r *Retriever) SetBuilder {
	return SetBuilder{target: r}
}

// From copies the value of another field
func (b SetBuilder) From(src *Retriever) Combinator {
	return SetFrom{Target: b.target.idx, Source: src.idx}
}

// FromLen stores the length of the list held by another field
func (b SetBuilder) FromLen(src *Retriever) Combinator {
	return SetFromLen{Target: b.target.idx, Source: src.idx}
}

// To stores a constant, coerced to the field's type
func (b SetBuilder) To(x interface{}) (Combinator, error) {
	v, err := b.target.typ.Coerce(x)
	if err != nil {
		return nil, errors.WithFieldError(err, b.target.st.name, b.target.name)
	}
	return SetTo{Target: b.target.idx, Value: v}, nil
}

// SetRepeatBuilder builds a combinator which overrides a field's repeat count
type SetRepeatBuilder struct {
	target *Retriever
}

func SetRepeat(r *Retriever) SetRepeatBuilder {
	return SetRepeatBuilder{target: r}
}

// From takes the repeat count from the integer value of another field
func (b SetRepeatBuilder) From(src *Retriever) Combinator {
	return SetRepeatFrom{Target: b.target.idx, Source: src.idx}
}

// To sets a constant repeat count
func (b SetRepeatBuilder) To(n int) Combinator {
	return SetRepeatTo{Target: b.target.idx, Count: n}
}

// Must unwraps the result of a builder, panicking on error. It is intended
// for schemas declared in package level variables
func Must(c Combinator, err error) Combinator {
	if err != nil {
		panic(err)
	}
	return c
}
