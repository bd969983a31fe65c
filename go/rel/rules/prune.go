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
	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/rex"
)

func pruneToEmpty[T algebra.Node](name string) plan.Rule {
	op := logical[T]().Inputs(emptyValues())
	return newRule(name, op, func(call *plan.RuleCall) {
		n := call.Rel(0)
		call.TransformTo(algebra.NewEmptyValues(n.RowType()))
	})
}

// PruneEmptyFilter replaces a Filter over no rows with an empty Values.
func PruneEmptyFilter() plan.Rule { return pruneToEmpty[*algebra.Filter]("PruneEmptyFilter") }

// PruneEmptyProject replaces a Project over no rows with an empty Values.
func PruneEmptyProject() plan.Rule { return pruneToEmpty[*algebra.Project]("PruneEmptyProject") }

// PruneEmptySort replaces a Sort over no rows with an empty Values.
func PruneEmptySort() plan.Rule { return pruneToEmpty[*algebra.Sort]("PruneEmptySort") }

// PruneEmptyAggregate replaces a grouped Aggregate over no rows with an
// empty Values. Without group keys the Aggregate still returns one row.
func PruneEmptyAggregate() plan.Rule {
	op := logical[*algebra.Aggregate]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Aggregate).GroupCount() > 0
	}).Inputs(emptyValues())
	return newRule("PruneEmptyAggregate", op, func(call *plan.RuleCall) {
		call.TransformTo(algebra.NewEmptyValues(call.Rel(0).RowType()))
	})
}

// PruneEmptyJoinLeft simplifies a join whose left input has no rows.
func PruneEmptyJoinLeft() plan.Rule {
	op := logical[*algebra.Join]().Inputs(emptyValues(), logicalInput())
	return newRule("PruneEmptyJoinLeft", op, func(call *plan.RuleCall) {
		j := call.Rel(0).(*algebra.Join)
		if j.JoinType.GeneratesNullsOnLeft() {
			return
		}
		call.TransformTo(algebra.NewEmptyValues(j.RowType()))
	})
}

// PruneEmptyJoinRight simplifies a join whose right input has no rows. A
// left join becomes its left input padded with nulls and an anti-join its
// left input.
func PruneEmptyJoinRight() plan.Rule {
	op := logical[*algebra.Join]().Inputs(logicalInput(), emptyValues())
	return newRule("PruneEmptyJoinRight", op, func(call *plan.RuleCall) {
		j := call.Rel(0).(*algebra.Join)
		switch j.JoinType {
		case algebra.JoinInner, algebra.JoinRight, algebra.JoinSemi:
			call.TransformTo(algebra.NewEmptyValues(j.RowType()))
		case algebra.JoinAnti:
			call.TransformTo(j.Left())
		case algebra.JoinLeft:
			b := call.Builder().Push(j.Left())
			exprs := b.Fields()
			for _, f := range j.Right().RowType().Fields {
				exprs = append(exprs, rex.NewNullLiteral(f.Type))
			}
			call.TransformTo(b.Project(exprs, j.RowType().FieldNames()...).Build())
		}
	})
}

// PruneEmptyUnion removes the inputs of a Union that have no rows.
func PruneEmptyUnion() plan.Rule {
	op := logical[*algebra.Union]().Unordered(emptyValues())
	return newRule("PruneEmptyUnion", op, func(call *plan.RuleCall) {
		u := call.Rel(0).(*algebra.Union)
		var inputs []algebra.Node
		for _, in := range u.Inputs() {
			if v, ok := algebra.Strip(in).(*algebra.Values); ok && v.IsEmpty() {
				continue
			}
			inputs = append(inputs, in)
		}
		if len(inputs) == len(u.Inputs()) {
			return
		}
		b := call.Builder()
		switch len(inputs) {
		case 0:
			call.TransformTo(algebra.NewEmptyValues(u.RowType()))
		case 1:
			b.Push(inputs[0]).Convert(u.RowType(), true)
			if !u.All {
				b.Distinct()
			}
			call.TransformTo(b.Build())
		default:
			call.TransformTo(b.PushAll(inputs...).Union(u.All, len(inputs)).Build())
		}
	})
}

// PruneEmptyIntersect replaces an Intersect with an empty input by an
// empty Values.
func PruneEmptyIntersect() plan.Rule {
	op := logical[*algebra.Intersect]().Unordered(emptyValues())
	return newRule("PruneEmptyIntersect", op, func(call *plan.RuleCall) {
		call.TransformTo(algebra.NewEmptyValues(call.Rel(0).RowType()))
	})
}

// PruneEmptyMinus replaces a Minus whose first input has no rows by an
// empty Values.
func PruneEmptyMinus() plan.Rule {
	op := logical[*algebra.Minus]().Inputs(emptyValues())
	return newRule("PruneEmptyMinus", op, func(call *plan.RuleCall) {
		call.TransformTo(algebra.NewEmptyValues(call.Rel(0).RowType()))
	})
}
