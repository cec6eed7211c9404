// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import "strings"

// Ordering is the outcome of comparing two values
type Ordering int8

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "Less"
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	default:
		return "Ordering(?)"
	}
}

// OrderingSet is a subset of {Less, Equal, Greater}. Every relational
// operator (and its negation) is one of these sets
type OrderingSet uint8

func (o Ordering) bit() OrderingSet {
	return 1 << uint(o+1)
}

// Orderings builds a set from its members
func Orderings(os ...Ordering) OrderingSet {
	var s OrderingSet
	for _, o := range os {
		s |= o.bit()
	}
	return s
}

var (
	SetEq  = Orderings(Equal)
	SetNeq = Orderings(Less, Greater)
	SetGt  = Orderings(Greater)
	SetGeq = Orderings(Greater, Equal)
	SetLt  = Orderings(Less)
	SetLeq = Orderings(Less, Equal)

	allOrderings = Orderings(Less, Equal, Greater)
)

func (s OrderingSet) Contains(o Ordering) bool {
	return s&o.bit() != 0
}

// Complement returns the orderings not in s
func (s OrderingSet) Complement() OrderingSet {
	return allOrderings &^ s
}

func (s OrderingSet) String() string {
	var parts []string
	for _, o := range []Ordering{Less, Equal, Greater} {
		if s.Contains(o) {
			parts = append(parts, o.String())
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
