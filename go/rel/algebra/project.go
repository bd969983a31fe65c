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
	"maps"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Project computes one expression per output column.
type Project struct {
	Base
	Exprs []rex.Node
}

// NewProject projects exprs over input. Missing names are taken from the
// referenced input field, or generated.
func NewProject(input Node, exprs []rex.Node, names []string) *Project {
	return NewProjectWith(LogicalTraits, input, exprs, ProjectRowType(input.RowType(), exprs, names))
}

// NewProjectWith builds a project with explicit traits and row type.
func NewProjectWith(traits TraitSet, input Node, exprs []rex.Node, rowType *reltype.DataType) *Project {
	checkRefs("Project", exprs, input.RowType())
	if len(exprs) != rowType.FieldCount() {
		panic(invalidRel("Project: %d expressions for %d fields", len(exprs), rowType.FieldCount()))
	}
	return &Project{Base: NewBase(traits, rowType, input), Exprs: exprs}
}

// ProjectRowType derives the row type of exprs over input.
func ProjectRowType(input *reltype.DataType, exprs []rex.Node, names []string) *reltype.DataType {
	derived := make([]string, len(exprs))
	for i, e := range exprs {
		if i < len(names) && names[i] != "" {
			derived[i] = names[i]
		} else if ref, ok := e.(*rex.InputRef); ok && ref.Index < input.FieldCount() {
			derived[i] = input.Fields[ref.Index].Name
		}
	}
	return rex.RowTypeOf(exprs, derived)
}

func (p *Project) OpName() string { return "LogicalProject" }

func (p *Project) Copy(traits TraitSet, inputs []Node) Node {
	return NewProjectWith(traits, inputs[0], p.Exprs, p.RowType())
}

func (p *Project) ExplainTerms(t *Terms) {
	t.Input("input", p.Input(0))
	for i, f := range p.RowType().Fields {
		t.Item(f.Name, p.Exprs[i])
	}
}

// Mapping returns, per output column, the input column it copies or -1.
func (p *Project) Mapping() []int {
	return refMapping(p.Exprs)
}

// IsIdentity reports whether p returns its input unchanged.
func (p *Project) IsIdentity() bool {
	return rex.IsIdentity(p.Exprs, p.Input(0).RowType())
}

func refMapping(exprs []rex.Node) []int {
	m := make([]int, len(exprs))
	for i, e := range exprs {
		m[i] = -1
		if ref, ok := e.(*rex.InputRef); ok {
			m[i] = ref.Index
		}
	}
	return m
}

// inverse maps input columns to the first output column that copies them.
func inverse(mapping []int, inputCount int) []int {
	inv := make([]int, inputCount)
	for i := range inv {
		inv[i] = -1
	}
	for out, in := range mapping {
		if in >= 0 && in < inputCount && inv[in] < 0 {
			inv[in] = out
		}
	}
	return inv
}

func (p *Project) EstimateRowCount(mq *MetadataQuery) float64 {
	return mq.RowCount(p.Input(0))
}

func (p *Project) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return projectedUnique(mq, p.Input(0), p.Exprs, cols)
}

func projectedUnique(mq *MetadataQuery, input Node, exprs []rex.Node, cols bitset.Bitset) bool {
	var inputCols []int
	cols.ForEach(func(c int) {
		if ref, ok := exprs[c].(*rex.InputRef); ok {
			inputCols = append(inputCols, ref.Index)
		}
	})
	if len(inputCols) == 0 {
		return false
	}
	return mq.AreColumnsUnique(input, bitset.Build(inputCols...))
}

func (p *Project) DeriveCollations(mq *MetadataQuery) []Collation {
	return projectCollations(mq.Collations(p.Input(0)), p.Mapping(), p.Input(0).RowType().FieldCount())
}

func projectCollations(inputs []Collation, mapping []int, inputCount int) []Collation {
	inv := inverse(mapping, inputCount)
	var out []Collation
	for _, c := range inputs {
		if pc, _ := c.Permute(inv); len(pc) > 0 {
			out = append(out, pc)
		}
	}
	return out
}

func (p *Project) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return projectConstants(mq.ConstantColumns(p.Input(0)), p.Exprs)
}

func projectConstants(input map[int]rex.Node, exprs []rex.Node) map[int]rex.Node {
	out := map[int]rex.Node{}
	for i, e := range exprs {
		switch e := e.(type) {
		case *rex.Literal:
			out[i] = e
		case *rex.InputRef:
			if c, ok := input[e.Index]; ok {
				out[i] = c
			}
		}
	}
	return out
}

// Filter returns the input rows for which Condition is true.
type Filter struct {
	Base
	Condition rex.Node
}

// NewFilter filters input by a BOOLEAN condition.
func NewFilter(input Node, condition rex.Node) *Filter {
	return NewFilterWith(LogicalTraits, input, condition)
}

// NewFilterWith builds a filter with explicit traits. The filter keeps
// the collation of its input.
func NewFilterWith(traits TraitSet, input Node, condition rex.Node) *Filter {
	if condition.Type().Name != sqltypes.Boolean {
		panic(invalidRel("Filter: condition %s is %s, not BOOLEAN", condition, condition.Type()))
	}
	checkRefs("Filter", []rex.Node{condition}, input.RowType())
	return &Filter{Base: NewBase(traits, input.RowType(), input), Condition: condition}
}

func (f *Filter) OpName() string { return "LogicalFilter" }

func (f *Filter) Copy(traits TraitSet, inputs []Node) Node {
	return NewFilterWith(traits, inputs[0], f.Condition)
}

func (f *Filter) ExplainTerms(t *Terms) {
	t.Input("input", f.Input(0)).Item("condition", f.Condition)
}

func (f *Filter) EstimateRowCount(mq *MetadataQuery) float64 {
	return mq.RowCount(f.Input(0)) * mq.Selectivity(f.Input(0), f.Condition)
}

func (f *Filter) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return mq.AreColumnsUnique(f.Input(0), cols)
}

func (f *Filter) DeriveCollations(mq *MetadataQuery) []Collation {
	return mq.Collations(f.Input(0))
}

func (f *Filter) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	out := maps.Clone(mq.ConstantColumns(f.Input(0)))
	if out == nil {
		out = map[int]rex.Node{}
	}
	maps.Copy(out, PredicateConstants(f.Condition))
	return out
}

// PredicateConstants returns the columns that a predicate pins to a
// literal: conjuncts of the form $i = literal and $i IS NULL.
func PredicateConstants(pred rex.Node) map[int]rex.Node {
	out := map[int]rex.Node{}
	for _, c := range rex.Conjunctions(pred) {
		call, ok := c.(*rex.Call)
		if !ok {
			continue
		}
		switch call.Kind() {
		case rex.KindEquals, rex.KindIsNotDistinctFrom:
			a, b := call.Operands[0], call.Operands[1]
			if _, ok := a.(*rex.Literal); ok {
				a, b = b, a
			}
			ref, okRef := a.(*rex.InputRef)
			lit, okLit := b.(*rex.Literal)
			if okRef && okLit && !lit.IsNull() {
				out[ref.Index] = rex.MakeCast(ref.Type(), lit)
			}
		case rex.KindIsNull:
			if ref, ok := call.Operands[0].(*rex.InputRef); ok {
				out[ref.Index] = rex.NewNullLiteral(ref.Type())
			}
		}
	}
	return out
}

// Calc runs a rex.Program: an optional condition followed by projections.
type Calc struct {
	Base
	Program *rex.Program
}

// NewCalc builds a Calc over input.
func NewCalc(input Node, program *rex.Program) *Calc {
	return NewCalcWith(LogicalTraits, input, program)
}

// NewCalcWith builds a Calc with explicit traits.
func NewCalcWith(traits TraitSet, input Node, program *rex.Program) *Calc {
	if !reltype.EqualSansNames(program.InputType, input.RowType()) {
		panic(invalidRel("Calc: program input %s does not match %s", program.InputType, input.RowType()))
	}
	if err := program.Validate(); err != nil {
		panic(invalidRel("Calc: %s", err))
	}
	return &Calc{Base: NewBase(traits, program.OutputType, input), Program: program}
}

func (c *Calc) OpName() string { return "LogicalCalc" }

func (c *Calc) Copy(traits TraitSet, inputs []Node) Node {
	return NewCalcWith(traits, inputs[0], c.Program)
}

func (c *Calc) ExplainTerms(t *Terms) {
	t.Input("input", c.Input(0)).Item("program", c.Program)
}

func (c *Calc) EstimateRowCount(mq *MetadataQuery) float64 {
	rows := mq.RowCount(c.Input(0))
	if cond := c.Program.ExpandedCondition(); cond != nil {
		rows *= mq.Selectivity(c.Input(0), cond)
	}
	return rows
}

func (c *Calc) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return projectedUnique(mq, c.Input(0), c.Program.ExpandedProjects(), cols)
}

func (c *Calc) DeriveCollations(mq *MetadataQuery) []Collation {
	return projectCollations(mq.Collations(c.Input(0)), refMapping(c.Program.ExpandedProjects()), c.Input(0).RowType().FieldCount())
}

func (c *Calc) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	in := maps.Clone(mq.ConstantColumns(c.Input(0)))
	if in == nil {
		in = map[int]rex.Node{}
	}
	if cond := c.Program.ExpandedCondition(); cond != nil {
		maps.Copy(in, PredicateConstants(cond))
	}
	return projectConstants(in, c.Program.ExpandedProjects())
}
