/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package algebra

import (
	"strconv"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// SetOpKind distinguishes the set operators.
type SetOpKind int

const (
	SetUnion SetOpKind = iota
	SetIntersect
	SetMinus
)

// SetOp is the state shared by Union, Intersect and Minus. Without All,
// the result has no duplicates.
type SetOp struct {
	Base
	All bool
}

func newSetOp(traits TraitSet, name string, all bool, inputs []Node) SetOp {
	if len(inputs) < 2 {
		panic(invalidRel("%s: needs at least 2 inputs", name))
	}
	rowType, err := SetOpRowType(inputs)
	if err != nil {
		panic(invalidRel("%s: %s", name, err))
	}
	return SetOp{Base: NewBase(traits, rowType, inputs...), All: all}
}

// SetOpRowType is the row type of a set operation over inputs: the names
// of the first input with the least restrictive type of each column.
func SetOpRowType(inputs []Node) (*reltype.DataType, error) {
	first := inputs[0].RowType()
	n := first.FieldCount()
	fields := make([]reltype.Field, n)
	for c := range n {
		types := make([]*reltype.DataType, len(inputs))
		for i, in := range inputs {
			if in.RowType().FieldCount() != n {
				return nil, invalidRel("input %d has %d columns, expected %d", i, in.RowType().FieldCount(), n)
			}
			types[i] = in.RowType().Fields[c].Type
		}
		t, err := reltype.LeastRestrictive(types...)
		if err != nil {
			return nil, err
		}
		fields[c] = reltype.Field{Name: first.Fields[c].Name, Type: t}
	}
	return reltype.Struct(fields...), nil
}

func (s *SetOp) explainSetOp(t *Terms) {
	for i, in := range s.Inputs() {
		t.Input("input#"+strconv.Itoa(i), in)
	}
	t.Item("all", s.All)
}

func (s *SetOp) setOpConstants(mq *MetadataQuery) map[int]rex.Node {
	out := map[int]rex.Node{}
	first := mq.ConstantColumns(s.Input(0))
	for c, v := range first {
		same := true
		for _, in := range s.Inputs()[1:] {
			other, ok := mq.ConstantColumns(in)[c]
			if !ok || other.Digest() != v.Digest() {
				same = false
				break
			}
		}
		if same {
			out[c] = v
		}
	}
	return out
}

func (s *SetOp) distinctUnique(cols bitset.Bitset) bool {
	return !s.All && bitset.Range(0, s.RowType().FieldCount()).IsContainedBy(cols)
}

// Union concatenates its inputs.
type Union struct{ SetOp }

// NewUnion builds a union.
func NewUnion(all bool, inputs ...Node) *Union {
	return NewUnionWith(LogicalTraits, all, inputs...)
}

// NewUnionWith builds a union with explicit traits.
func NewUnionWith(traits TraitSet, all bool, inputs ...Node) *Union {
	return &Union{newSetOp(traits, "Union", all, inputs)}
}

func (u *Union) OpName() string { return "LogicalUnion" }

func (u *Union) Copy(traits TraitSet, inputs []Node) Node {
	return NewUnionWith(traits, u.All, inputs...)
}

func (u *Union) ExplainTerms(t *Terms) { u.explainSetOp(t) }

func (u *Union) Kind() SetOpKind { return SetUnion }

func (u *Union) EstimateRowCount(mq *MetadataQuery) float64 {
	var rows float64
	for _, in := range u.Inputs() {
		rows += mq.RowCount(in)
	}
	if !u.All {
		rows *= 0.5
	}
	return rows
}

func (u *Union) AreColumnsUnique(_ *MetadataQuery, cols bitset.Bitset) bool {
	return u.distinctUnique(cols)
}

func (u *Union) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return u.setOpConstants(mq)
}

// Intersect returns the rows present in every input.
type Intersect struct{ SetOp }

// NewIntersect builds an intersect.
func NewIntersect(all bool, inputs ...Node) *Intersect {
	return NewIntersectWith(LogicalTraits, all, inputs...)
}

// NewIntersectWith builds an intersect with explicit traits.
func NewIntersectWith(traits TraitSet, all bool, inputs ...Node) *Intersect {
	return &Intersect{newSetOp(traits, "Intersect", all, inputs)}
}

func (i *Intersect) OpName() string { return "LogicalIntersect" }

func (i *Intersect) Copy(traits TraitSet, inputs []Node) Node {
	return NewIntersectWith(traits, i.All, inputs...)
}

func (i *Intersect) ExplainTerms(t *Terms) { i.explainSetOp(t) }

func (i *Intersect) Kind() SetOpKind { return SetIntersect }

func (i *Intersect) EstimateRowCount(mq *MetadataQuery) float64 {
	rows := mq.RowCount(i.Input(0))
	for _, in := range i.Inputs()[1:] {
		rows = min(rows, mq.RowCount(in))
	}
	return rows * 0.25
}

func (i *Intersect) AreColumnsUnique(_ *MetadataQuery, cols bitset.Bitset) bool {
	return i.distinctUnique(cols)
}

func (i *Intersect) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	out := map[int]rex.Node{}
	for _, in := range i.Inputs() {
		for c, v := range mq.ConstantColumns(in) {
			out[c] = v
		}
	}
	return out
}

// Minus returns the rows of the first input not present in the others.
type Minus struct{ SetOp }

// NewMinus builds a minus.
func NewMinus(all bool, inputs ...Node) *Minus {
	return NewMinusWith(LogicalTraits, all, inputs...)
}

// NewMinusWith builds a minus with explicit traits.
func NewMinusWith(traits TraitSet, all bool, inputs ...Node) *Minus {
	return &Minus{newSetOp(traits, "Minus", all, inputs)}
}

func (m *Minus) OpName() string { return "LogicalMinus" }

func (m *Minus) Copy(traits TraitSet, inputs []Node) Node {
	return NewMinusWith(traits, m.All, inputs...)
}

func (m *Minus) ExplainTerms(t *Terms) { m.explainSetOp(t) }

func (m *Minus) Kind() SetOpKind { return SetMinus }

func (m *Minus) EstimateRowCount(mq *MetadataQuery) float64 {
	rows := mq.RowCount(m.Input(0))
	for _, in := range m.Inputs()[1:] {
		rows -= 0.5 * mq.RowCount(in)
	}
	return max(rows, mq.RowCount(m.Input(0))*0.1)
}

func (m *Minus) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return m.distinctUnique(cols) || mq.AreColumnsUnique(m.Input(0), cols)
}

func (m *Minus) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return mq.ConstantColumns(m.Input(0))
}

// SetOperation is implemented by Union, Intersect and Minus and their
// physical variants.
type SetOperation interface {
	Node
	Kind() SetOpKind
	IsAll() bool
}

func (s *SetOp) IsAll() bool { return s.All }
