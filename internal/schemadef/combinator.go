// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package schemadef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"go.e43.eu/bfp/internal/coder"
)

// combinatorDef is one entry of an on_read or on_write list. Exactly one of
// the head keys (set, set_repeat, if, if_not, if_len) is present
type combinatorDef struct {
	Set       string `yaml:"set"`
	SetRepeat string `yaml:"set_repeat"`
	If        string `yaml:"if"`
	IfNot     string `yaml:"if_not"`
	IfLen     string `yaml:"if_len"`

	To      *yaml.Node `yaml:"to"`
	From    string     `yaml:"from"`
	FromLen string     `yaml:"from_len"`

	Eq  *yaml.Node `yaml:"eq"`
	Neq *yaml.Node `yaml:"neq"`
	Gt  *yaml.Node `yaml:"gt"`
	Geq *yaml.Node `yaml:"geq"`
	Lt  *yaml.Node `yaml:"lt"`
	Leq *yaml.Node `yaml:"leq"`

	Then *combinatorDef `yaml:"then"`
}

func (c *compiler) combinators(st *coder.Struct, defs []combinatorDef) ([]coder.Combinator, error) {
	out := make([]coder.Combinator, 0, len(defs))
	for i := range defs {
		cb, err := c.combinator(st, &defs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, nil
}

func (c *compiler) combinator(st *coder.Struct, def *combinatorDef) (coder.Combinator, error) {
	heads := 0
	for _, h := range []string{def.Set, def.SetRepeat, def.If, def.IfNot, def.IfLen} {
		if h != "" {
			heads++
		}
	}
	if heads != 1 {
		return nil, fmt.Errorf("bfp: a combinator needs exactly one of set, set_repeat, if, if_not or if_len")
	}

	switch {
	case def.Set != "":
		return c.set(st, def)
	case def.SetRepeat != "":
		return c.setRepeat(st, def)
	default:
		return c.cond(st, def)
	}
}

func (c *compiler) set(st *coder.Struct, def *combinatorDef) (coder.Combinator, error) {
	target, err := st.Field(def.Set)
	if err != nil {
		return nil, err
	}
	b := coder.Set(target)

	switch {
	case def.From != "":
		src, err := st.Field(def.From)
		if err != nil {
			return nil, err
		}
		return b.From(src), nil

	case def.FromLen != "":
		src, err := st.Field(def.FromLen)
		if err != nil {
			return nil, err
		}
		return b.FromLen(src), nil

	case def.To != nil:
		var x interface{}
		if err := def.To.Decode(&x); err != nil {
			return nil, err
		}
		return b.To(x)
	}
	return nil, fmt.Errorf("bfp: set %s needs one of to, from or from_len", def.Set)
}

func (c *compiler) setRepeat(st *coder.Struct, def *combinatorDef) (coder.Combinator, error) {
	target, err := st.Field(def.SetRepeat)
	if err != nil {
		return nil, err
	}
	b := coder.SetRepeat(target)

	switch {
	case def.From != "":
		src, err := st.Field(def.From)
		if err != nil {
			return nil, err
		}
		return b.From(src), nil

	case def.To != nil:
		var n int
		if err := def.To.Decode(&n); err != nil {
			return nil, err
		}
		return b.To(n), nil
	}
	return nil, fmt.Errorf("bfp: set_repeat %s needs one of to or from", def.SetRepeat)
}

func (c *compiler) cond(st *coder.Struct, def *combinatorDef) (coder.Combinator, error) {
	var (
		b   *coder.IfBuilder
		err error
		r   *coder.Retriever
	)
	switch {
	case def.If != "":
		r, err = st.Field(def.If)
		b = coder.If(r)
	case def.IfNot != "":
		r, err = st.Field(def.IfNot)
		b = coder.IfNot(r)
	default:
		r, err = st.Field(def.IfLen)
		b = coder.IfLen(r)
	}
	if err != nil {
		return nil, err
	}

	relations := []struct {
		node *yaml.Node
		cmp  func(*coder.IfBuilder, coder.Operand) *coder.IfBuilder
	}{
		{def.Eq, (*coder.IfBuilder).Eq},
		{def.Neq, (*coder.IfBuilder).Neq},
		{def.Gt, (*coder.IfBuilder).Gt},
		{def.Geq, (*coder.IfBuilder).Geq},
		{def.Lt, (*coder.IfBuilder).Lt},
		{def.Leq, (*coder.IfBuilder).Leq},
	}
	for _, rel := range relations {
		if rel.node == nil {
			continue
		}
		o, err := operand(st, rel.node)
		if err != nil {
			return nil, err
		}
		b = rel.cmp(b, o)
	}

	if def.Then == nil {
		return nil, fmt.Errorf("bfp: condition on %s has no then", r.Name())
	}
	then, err := c.combinator(st, def.Then)
	if err != nil {
		return nil, err
	}
	return b.Then(then)
}

// operand decodes the right hand side of a comparison. A mapping
// {field: name} refers to another field; any scalar is a literal
func operand(st *coder.Struct, n *yaml.Node) (coder.Operand, error) {
	if n.Kind == yaml.MappingNode {
		var ref struct {
			Field string `yaml:"field"`
		}
		if err := n.Decode(&ref); err != nil {
			return nil, err
		}
		r, err := st.Field(ref.Field)
		if err != nil {
			return nil, err
		}
		return coder.Ref(r), nil
	}

	var x interface{}
	if err := n.Decode(&x); err != nil {
		return nil, err
	}
	return coder.Lit(x), nil
}
