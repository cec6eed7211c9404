// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package coder

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a named collection of record types, such as the ones declared
// by one schema file. A registry (which may be safely used from multiple
// threads) is owned by whoever built it; there is no global registry
type Registry struct {
	structs sync.Map // map[string]*Struct
}

func NewRegistry() *Registry {
	return new(Registry)
}

// Register adds s under its name. Panics if a different record type is
// already registered under that name
func (reg *Registry) Register(s *Struct) {
	existing, found := reg.structs.LoadOrStore(s.name, s)
	if found && existing.(*Struct) != s {
		panic(fmt.Sprintf("Attempt to register record type '%s' but another is already registered under that name", s.name))
	}
}

// Lookup returns the record type registered under name
func (reg *Registry) Lookup(name string) (*Struct, bool) {
	s, ok := reg.structs.Load(name)
	if !ok {
		return nil, false
	}
	return s.(*Struct), true
}

// Names returns the registered names in sorted order
func (reg *Registry) Names() []string {
	var names []string
	reg.structs.Range(func(k, _ interface{}) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
