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

package rules

import (
	"slices"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/rex"
)

func distinctOp[T algebra.SetOperation]() *plan.Operand {
	return logical[T]().Predicate(func(n algebra.Node) bool {
		return !n.(algebra.SetOperation).IsAll()
	}).AnyInputs()
}

// UnionToDistinct rewrites UNION as a DISTINCT over UNION ALL.
func UnionToDistinct() plan.Rule {
	return newRule("UnionToDistinct", distinctOp[*algebra.Union](), func(call *plan.RuleCall) {
		u := call.Rel(0).(*algebra.Union)
		b := call.Builder().PushAll(u.Inputs()...).Union(true, len(u.Inputs())).Distinct()
		call.TransformTo(b.Build())
	})
}

// IntersectToDistinct rewrites INTERSECT as a count of the inputs each
// distinct row appears in.
func IntersectToDistinct() plan.Rule {
	return newRule("IntersectToDistinct", distinctOp[*algebra.Intersect](), func(call *plan.RuleCall) {
		in := call.Rel(0).(*algebra.Intersect)
		n := len(in.Inputs())
		b := call.Builder()
		for _, input := range in.Inputs() {
			b.Push(input).Distinct()
		}
		b.Union(true, n)
		width := in.RowType().FieldCount()
		b.Aggregate(b.Fields(), b.Count(false, "c"))
		b.Filter(b.Equals(b.Field(width), b.Literal(int64(n))))
		b.Project(b.FieldsOf(bitset.Range(0, width).Ordinals()...), in.RowType().FieldNames()...)
		call.TransformTo(b.Build())
	})
}

// MinusToDistinct rewrites EXCEPT by tagging each distinct row with the
// ordinal of its input and keeping the rows seen only in the first.
func MinusToDistinct() plan.Rule {
	return newRule("MinusToDistinct", distinctOp[*algebra.Minus](), func(call *plan.RuleCall) {
		m := call.Rel(0).(*algebra.Minus)
		n := len(m.Inputs())
		b := call.Builder()
		for i, input := range m.Inputs() {
			b.Push(input).Distinct().ProjectPlus(b.Literal(int64(i)))
		}
		b.Union(true, n)
		width := m.RowType().FieldCount()
		b.Aggregate(b.FieldsOf(bitset.Range(0, width).Ordinals()...), b.Agg(rex.Max, b.Field(width)).As("m"))
		b.Filter(b.Equals(b.Field(width), b.Literal(int64(0))))
		b.Project(b.FieldsOf(bitset.Range(0, width).Ordinals()...), m.RowType().FieldNames()...)
		call.TransformTo(b.Build())
	})
}

// UnionMerge flattens a Union that is the first input of another Union.
func UnionMerge() plan.Rule {
	return unionMerge("UnionMerge", 0)
}

// UnionMergeRight flattens a Union that is the second input of another
// Union.
func UnionMergeRight() plan.Rule {
	return unionMerge("UnionMergeRight", 1)
}

func unionMerge(name string, pos int) plan.Rule {
	children := []*plan.Operand{logicalInput(), logicalInput()}
	children[pos] = logical[*algebra.Union]().AnyInputs()
	op := logical[*algebra.Union]().Inputs(children...)
	return newRule(name, op, func(call *plan.RuleCall) {
		top := call.Rel(0).(*algebra.Union)
		child := call.Rel(1 + pos).(*algebra.Union)
		if top.All && !child.All {
			return
		}
		inputs := slices.Clone(top.Inputs()[:pos])
		inputs = append(inputs, child.Inputs()...)
		inputs = append(inputs, top.Inputs()[pos+1:]...)
		b := call.Builder().PushAll(inputs...).Union(top.All, len(inputs))
		call.TransformTo(b.Build())
	})
}

// UnionPullUpConstants projects the columns that hold the same constant in
// every input of a Union above it.
func UnionPullUpConstants() plan.Rule {
	return newRule("UnionPullUpConstants", logical[*algebra.Union]().AnyInputs(), func(call *plan.RuleCall) {
		u := call.Rel(0).(*algebra.Union)
		constants := call.Metadata().ConstantColumns(u)
		width := u.RowType().FieldCount()
		if len(constants) == 0 || len(constants) == width {
			return
		}
		var kept []int
		for i := range width {
			if _, ok := constants[i]; !ok {
				kept = append(kept, i)
			}
		}
		b := call.Builder()
		for _, in := range u.Inputs() {
			b.Push(in).Project(b.FieldsOf(kept...))
		}
		b.Union(u.All, len(u.Inputs()))
		exprs := make([]rex.Node, width)
		for i, f := range u.RowType().Fields {
			if c, ok := constants[i]; ok {
				exprs[i] = rex.MakeCast(f.Type, c)
			} else {
				exprs[i] = b.Field(slices.Index(kept, i))
			}
		}
		call.TransformTo(b.Project(exprs, u.RowType().FieldNames()...).Build())
	})
}
