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
	"relopt.io/relopt/go/sqltypes"
)

// AggregateRemove removes an Aggregate whose group keys are already unique
// in its input. Each call is rewritten to its value over a single row.
func AggregateRemove() plan.Rule {
	agg := logical[*algebra.Aggregate]().Predicate(func(n algebra.Node) bool {
		a := n.(*algebra.Aggregate)
		if a.GroupCount() == 0 {
			return false
		}
		for _, c := range a.AggCalls {
			if c.HasFilter() || c.Func.Kind == rex.AggListAgg {
				return false
			}
		}
		return true
	}).AnyInputs()
	return newRule("AggregateRemove", agg, func(call *plan.RuleCall) {
		a := call.Rel(0).(*algebra.Aggregate)
		input := a.Input(0)
		if !call.Metadata().AreColumnsUnique(input, a.GroupSet) {
			return
		}
		b := call.Builder().Push(input)
		exprs := b.FieldsOf(a.GroupSet.Ordinals()...)
		for _, c := range a.AggCalls {
			exprs = append(exprs, singleRowValue(b.Fields(), c))
		}
		call.TransformTo(b.Project(exprs, a.RowType().FieldNames()...).Build())
	})
}

// singleRowValue is the result of c over one input row.
func singleRowValue(fields []rex.Node, c *algebra.AggregateCall) rex.Node {
	one := rex.LiteralOf(sqltypes.NewInt64(1))
	switch c.Func.Kind {
	case rex.AggCount:
		var nulls []rex.Node
		for _, a := range c.Args {
			nulls = append(nulls, rex.IsNullOf(fields[a]))
		}
		cond := rex.Simplify(rex.OrOf(nulls...))
		if len(nulls) == 0 || rex.IsAlwaysFalse(cond) {
			return rex.MakeCast(c.Type, one)
		}
		zero := rex.LiteralOf(sqltypes.NewInt64(0))
		return rex.MakeCast(c.Type, rex.MustCall(rex.Case, cond, zero, one))
	case rex.AggSum0:
		arg := fields[c.Args[0]]
		if arg.Type().Nullable {
			zero := rex.MakeCast(arg.Type().WithNullable(false), rex.LiteralOf(sqltypes.NewInt64(0)))
			return rex.MakeCast(c.Type, rex.MustCall(rex.Coalesce, arg, zero))
		}
		return rex.MakeCast(c.Type, arg)
	}
	return rex.MakeCast(c.Type, fields[c.Args[0]])
}

// AggregateProjectMerge removes a Project below an Aggregate when every
// column the Aggregate reads is a plain field of the Project's input.
func AggregateProjectMerge() plan.Rule {
	op := logical[*algebra.Aggregate]().Inputs(logical[*algebra.Project]().AnyInputs())
	return newRule("AggregateProjectMerge", op, func(call *plan.RuleCall) {
		a := call.Rel(0).(*algebra.Aggregate)
		project := call.Rel(1).(*algebra.Project)
		mapping := project.Mapping()
		ok := true
		remap := func(i int) int {
			if i < 0 {
				return i
			}
			if mapping[i] < 0 {
				ok = false
			}
			return mapping[i]
		}
		groups := a.GroupSet.Ordinals()
		newGroups := make([]int, len(groups))
		for i, g := range groups {
			newGroups[i] = remap(g)
		}
		calls := make([]*algebra.AggregateCall, len(a.AggCalls))
		for i, c := range a.AggCalls {
			args := make([]int, len(c.Args))
			for j, arg := range c.Args {
				args[j] = remap(arg)
			}
			filter := remap(c.FilterArg)
			coll, permuted := c.Collation.Permute(mapping)
			ok = ok && permuted
			calls[i] = c.WithArgs(args, filter, coll)
		}
		groupSet := bitset.Build(newGroups...)
		if !ok || groupSet.Popcount() != len(groups) {
			return
		}
		b := call.Builder().Push(project.Input(0)).AggregateCalls(groupSet, calls...)
		if !slices.IsSorted(newGroups) {
			ordinals := groupSet.Ordinals()
			exprs := make([]rex.Node, 0, a.RowType().FieldCount())
			for _, g := range newGroups {
				exprs = append(exprs, b.Field(slices.Index(ordinals, g)))
			}
			for i := range calls {
				exprs = append(exprs, b.Field(len(groups)+i))
			}
			b.Project(exprs, a.RowType().FieldNames()...)
		}
		call.TransformTo(b.Build())
	})
}

// AggregateReduceFunctions rewrites AVG(x) as SUM(x) / COUNT(x).
func AggregateReduceFunctions() plan.Rule {
	agg := logical[*algebra.Aggregate]().Predicate(func(n algebra.Node) bool {
		return slices.ContainsFunc(n.(*algebra.Aggregate).AggCalls, func(c *algebra.AggregateCall) bool {
			return c.Func.Kind == rex.AggAvg
		})
	}).AnyInputs()
	return newRule("AggregateReduceFunctions", agg, func(call *plan.RuleCall) {
		a := call.Rel(0).(*algebra.Aggregate)
		input := a.Input(0)
		groupEmpty := a.GroupCount() == 0
		var calls []*algebra.AggregateCall
		type avg struct{ sum, count int }
		avgs := map[int]avg{}
		position := make([]int, len(a.AggCalls))
		for i, c := range a.AggCalls {
			if c.Func.Kind != rex.AggAvg {
				position[i] = len(calls)
				calls = append(calls, c)
				continue
			}
			sum := algebra.MustAggregateCall(rex.Sum, c.Distinct, c.Args, c.FilterArg, nil, input.RowType(), groupEmpty, "")
			count := algebra.MustAggregateCall(rex.Count, c.Distinct, c.Args, c.FilterArg, nil, input.RowType(), groupEmpty, "")
			avgs[i] = avg{sum: len(calls), count: len(calls) + 1}
			calls = append(calls, sum, count)
		}
		b := call.Builder().Push(input).AggregateCalls(a.GroupSet, calls...)
		g := a.GroupCount()
		exprs := b.FieldsOf(bitset.Range(0, g).Ordinals()...)
		for i, c := range a.AggCalls {
			r, ok := avgs[i]
			if !ok {
				exprs = append(exprs, b.Field(g+position[i]))
				continue
			}
			sum, count := b.Field(g+r.sum), b.Field(g+r.count)
			quotient := rex.MustCall(rex.Divide, sum, count)
			if c.Type.Nullable {
				isZero := rex.EqualsOf(count, rex.LiteralOf(sqltypes.NewInt64(0)))
				quotient = rex.MustCall(rex.Case, isZero, rex.NewNullLiteral(quotient.Type()), quotient)
			}
			exprs = append(exprs, rex.MakeCast(c.Type, quotient))
		}
		call.TransformTo(b.Project(exprs, a.RowType().FieldNames()...).Build())
	})
}
