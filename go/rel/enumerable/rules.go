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

package enumerable

import (
	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// Converter rules from the logical operators.
var (
	TableScanRule = plan.NewConverterRule("EnumerableTableScanRule", algebra.None, Convention,
		func(_ *plan.RuleCall, s *algebra.TableScan) algebra.Node {
			if !canScan(s) {
				return nil
			}
			return newTableScan(Traits, s)
		})

	ValuesRule = plan.NewConverterRule("EnumerableValuesRule", algebra.None, Convention,
		func(_ *plan.RuleCall, v *algebra.Values) algebra.Node {
			return newValues(Traits, v)
		})

	ProjectRule = plan.NewConverterRule("EnumerableProjectRule", algebra.None, Convention,
		func(call *plan.RuleCall, p *algebra.Project) algebra.Node {
			in := p.Inputs()[0]
			exprs := castExprs(p.Exprs, p.RowType())
			program := rex.NewProgramFromProjectAndFilter(in.RowType(), exprs, nil, p.RowType().FieldNames())
			return newCalc(Traits, call.Convert(in, Traits), program)
		})

	FilterRule = plan.NewConverterRule("EnumerableFilterRule", algebra.None, Convention,
		func(call *plan.RuleCall, f *algebra.Filter) algebra.Node {
			in := f.Inputs()[0]
			rowType := in.RowType()
			program := rex.NewProgramFromProjectAndFilter(rowType, rex.InputRefsOf(rowType), f.Condition, rowType.FieldNames())
			return newCalc(Traits, call.Convert(in, Traits), program)
		})

	CalcRule = plan.NewConverterRule("EnumerableCalcRule", algebra.None, Convention,
		func(call *plan.RuleCall, c *algebra.Calc) algebra.Node {
			return newCalc(Traits, call.Convert(c.Inputs()[0], Traits), c.Program)
		})

	// JoinRule hashes joins with at least one equi-join key and loops over
	// the others.
	JoinRule = plan.NewConverterRule("EnumerableJoinRule", algebra.None, Convention,
		func(call *plan.RuleCall, j *algebra.Join) algebra.Node {
			left, right := call.Convert(j.Left(), Traits), call.Convert(j.Right(), Traits)
			if len(j.Analyze().LeftKeys) > 0 {
				return newHashJoin(Traits, left, right, j.Condition, j.JoinType)
			}
			return newNestedLoopJoin(Traits, left, right, j.Condition, j.JoinType)
		})

	// MergeJoinRule requests inputs sorted on the keys of an inner
	// equi-join.
	MergeJoinRule = plan.NewConverterRule("EnumerableMergeJoinRule", algebra.None, Convention,
		func(call *plan.RuleCall, j *algebra.Join) algebra.Node {
			info := j.Analyze()
			if j.JoinType != algebra.JoinInner || len(info.LeftKeys) == 0 {
				return nil
			}
			for _, ns := range info.NullSafe {
				if ns {
					return nil
				}
			}
			lc, rc := mergeKeys(info)
			left := call.Convert(j.Left(), Traits.WithCollation(lc))
			right := call.Convert(j.Right(), Traits.WithCollation(rc))
			return newMergeJoin(Traits.WithCollation(lc), left, right, j.Condition)
		})

	SemiJoinRule = plan.NewConverterRule("EnumerableSemiJoinRule", algebra.None, Convention,
		func(call *plan.RuleCall, j *algebra.Join) algebra.Node {
			info := j.Analyze()
			if j.JoinType.ProjectsRight() || !info.IsEqui() || len(info.LeftKeys) == 0 {
				return nil
			}
			return newSemiJoin(Traits, call.Convert(j.Left(), Traits), call.Convert(j.Right(), Traits), j.Condition, j.JoinType)
		})

	CorrelateRule = plan.NewConverterRule("EnumerableCorrelateRule", algebra.None, Convention,
		func(call *plan.RuleCall, c *algebra.Correlate) algebra.Node {
			return newCorrelate(Traits, call.Convert(c.Left(), Traits), call.Convert(c.Right(), Traits), c)
		})

	AggregateRule = plan.NewConverterRule("EnumerableAggregateRule", algebra.None, Convention,
		func(call *plan.RuleCall, a *algebra.Aggregate) algebra.Node {
			if !implementable(a.AggCalls) {
				return nil
			}
			return newAggregate(Traits, call.Convert(a.Inputs()[0], Traits), a.GroupSet, a.AggCalls)
		})

	// SortedAggregateRule requests input sorted on the group keys. Its
	// output is sorted on the leading group columns.
	SortedAggregateRule = plan.NewConverterRule("EnumerableSortedAggregateRule", algebra.None, Convention,
		func(call *plan.RuleCall, a *algebra.Aggregate) algebra.Node {
			if a.GroupCount() == 0 || !implementable(a.AggCalls) {
				return nil
			}
			var out algebra.Collation
			for i := range a.GroupCount() {
				out = append(out, algebra.Asc(i))
			}
			input := call.Convert(a.Inputs()[0], Traits.WithCollation(groupCollation(a.GroupSet)))
			return newSortedAggregate(Traits.WithCollation(out), input, a.GroupSet, a.AggCalls)
		})

	SortRule = plan.NewConverterRule("EnumerableSortRule", algebra.None, Convention,
		func(call *plan.RuleCall, s *algebra.Sort) algebra.Node {
			input := call.Convert(s.Inputs()[0], Traits)
			if len(s.Collation) == 0 {
				return newLimit(Traits, input, s.Offset, s.Fetch)
			}
			return newSort(Traits.WithCollation(s.Collation), input, s.Collation, s.Offset, s.Fetch)
		})

	UnionRule = plan.NewConverterRule("EnumerableUnionRule", algebra.None, Convention,
		func(call *plan.RuleCall, u *algebra.Union) algebra.Node {
			return newUnion(Traits, u.All, plan.ConvertInputs(call, u, Traits))
		})

	IntersectRule = plan.NewConverterRule("EnumerableIntersectRule", algebra.None, Convention,
		func(call *plan.RuleCall, i *algebra.Intersect) algebra.Node {
			return newIntersect(Traits, i.All, plan.ConvertInputs(call, i, Traits))
		})

	MinusRule = plan.NewConverterRule("EnumerableMinusRule", algebra.None, Convention,
		func(call *plan.RuleCall, m *algebra.Minus) algebra.Node {
			return newMinus(Traits, m.All, plan.ConvertInputs(call, m, Traits))
		})

	WindowRule = plan.NewConverterRule("EnumerableWindowRule", algebra.None, Convention,
		func(call *plan.RuleCall, w *algebra.Window) algebra.Node {
			return newWindow(Traits, call.Convert(w.Inputs()[0], Traits), w.Groups)
		})

	TableModifyRule = plan.NewConverterRule("EnumerableTableModifyRule", algebra.None, Convention,
		func(call *plan.RuleCall, m *algebra.TableModify) algebra.Node {
			if _, ok := m.Table.(catalog.ModifiableTable); !ok {
				return nil
			}
			return newTableModify(Traits, call.Convert(m.Inputs()[0], Traits), m)
		})
)

// Rules returns the converter rules. The merge join rule is included when
// mergeJoin is set.
func Rules(mergeJoin bool) []plan.Rule {
	rules := []plan.Rule{
		TableScanRule,
		ValuesRule,
		ProjectRule,
		FilterRule,
		CalcRule,
		JoinRule,
		SemiJoinRule,
		CorrelateRule,
		AggregateRule,
		SortedAggregateRule,
		SortRule,
		UnionRule,
		IntersectRule,
		MinusRule,
		WindowRule,
		TableModifyRule,
	}
	if mergeJoin {
		rules = append(rules, MergeJoinRule)
	}
	return rules
}

func implementable(calls []*algebra.AggregateCall) bool {
	for _, c := range calls {
		if _, err := NewAggImplementor(c.Func, c.Type); err != nil {
			return false
		}
	}
	return true
}

// castExprs casts each expression whose type differs from the matching
// field of rowType.
func castExprs(exprs []rex.Node, rowType *reltype.DataType) []rex.Node {
	out := make([]rex.Node, len(exprs))
	for i, e := range exprs {
		out[i] = e
		if want := rowType.Fields[i].Type; !want.Equal(e.Type()) {
			out[i] = rex.MakeCast(want, e)
		}
	}
	return out
}
