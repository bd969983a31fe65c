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
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/rex"
)

// FilterIntoJoin pushes the conjuncts of a Filter above a Join into the
// join condition or below the join.
func FilterIntoJoin() plan.Rule {
	op := logical[*algebra.Filter]().Inputs(logical[*algebra.Join]().AnyInputs())
	return newRule("FilterIntoJoin", op, func(call *plan.RuleCall) {
		pushJoinFilters(call, call.Rel(0).(*algebra.Filter), call.Rel(1).(*algebra.Join))
	})
}

// JoinConditionPush pushes the conjuncts of a join condition that read
// only one side below the join.
func JoinConditionPush() plan.Rule {
	return newRule("JoinConditionPush", logical[*algebra.Join]().AnyInputs(), func(call *plan.RuleCall) {
		pushJoinFilters(call, nil, call.Rel(0).(*algebra.Join))
	})
}

func pushJoinFilters(call *plan.RuleCall, filter *algebra.Filter, join *algebra.Join) {
	jt := join.JoinType
	lc := join.Left().RowType().FieldCount()
	total := lc + join.Right().RowType().FieldCount()
	var left, right, on, above []rex.Node
	moved := false
	if filter != nil {
		for _, c := range rex.Conjunctions(filter.Condition) {
			switch {
			case refsWithin(c, 0, lc) && !jt.GeneratesNullsOnLeft():
				left = append(left, c)
			case jt.ProjectsRight() && refsWithin(c, lc, total) && !jt.GeneratesNullsOnRight():
				right = append(right, rex.Shift(c, -lc))
			case jt == algebra.JoinInner:
				on = append(on, c)
			default:
				above = append(above, c)
				continue
			}
			moved = true
		}
	}
	for _, c := range rex.Conjunctions(join.Condition) {
		switch {
		case rex.IsAlwaysTrue(c):
			continue
		case refsWithin(c, 0, lc) && pushesLeft(jt):
			left = append(left, c)
			moved = true
		case refsWithin(c, lc, total) && pushesRight(jt):
			right = append(right, rex.Shift(c, -lc))
			moved = true
		default:
			on = append(on, c)
		}
	}
	if !moved {
		return
	}
	b := call.Builder()
	b.Push(join.Left()).Filter(left...)
	b.Push(join.Right()).Filter(right...)
	b.Join(jt, on...).Filter(above...)
	call.TransformTo(b.Build())
}

// pushesLeft reports whether a join condition on the left side alone can
// filter the left input.
func pushesLeft(jt algebra.JoinType) bool {
	return jt == algebra.JoinInner || jt == algebra.JoinSemi || jt == algebra.JoinRight
}

func pushesRight(jt algebra.JoinType) bool {
	return jt == algebra.JoinInner || jt == algebra.JoinSemi || jt == algebra.JoinAnti || jt == algebra.JoinLeft
}

// JoinCommute swaps the inputs of a join and restores the field order with
// a Project. Outer joins are swapped only with swapOuter.
func JoinCommute(swapOuter bool) plan.Rule {
	join := logical[*algebra.Join]().Predicate(func(n algebra.Node) bool {
		switch n.(*algebra.Join).JoinType {
		case algebra.JoinInner:
			return true
		case algebra.JoinLeft, algebra.JoinRight, algebra.JoinFull:
			return swapOuter
		}
		return false
	}).AnyInputs()
	return newRule("JoinCommute", join, func(call *plan.RuleCall) {
		j := call.Rel(0).(*algebra.Join)
		lc := j.Left().RowType().FieldCount()
		rc := j.Right().RowType().FieldCount()
		mapping := make([]int, lc+rc)
		for i := range mapping {
			if i < lc {
				mapping[i] = i + rc
			} else {
				mapping[i] = i - lc
			}
		}
		swapped := algebra.NewJoin(j.Right(), j.Left(), rex.Permute(j.Condition, mapping), j.JoinType.Swap())
		exprs := make([]rex.Node, lc+rc)
		for i, m := range mapping {
			exprs[i] = rex.InputRefOf(swapped.RowType(), m)
		}
		b := call.Builder().Push(swapped)
		call.TransformTo(b.Project(exprs, j.RowType().FieldNames()...).Build())
	})
}

// JoinAssociate rewrites (A join B) join C into A join (B join C) for inner
// joins. Conjuncts that read only B and C move to the new lower join.
func JoinAssociate() plan.Rule {
	inner := func(n algebra.Node) bool { return n.(*algebra.Join).JoinType == algebra.JoinInner }
	op := logical[*algebra.Join]().Predicate(inner).Inputs(
		logical[*algebra.Join]().Predicate(inner).AnyInputs(),
		logicalInput(),
	)
	return newRule("JoinAssociate", op, func(call *plan.RuleCall) {
		top := call.Rel(0).(*algebra.Join)
		bottom := call.Rel(1).(*algebra.Join)
		a := bottom.Left().RowType().FieldCount()
		total := top.RowType().FieldCount()
		var lower, upper []rex.Node
		for _, c := range append(rex.Conjunctions(top.Condition), rex.Conjunctions(bottom.Condition)...) {
			if rex.IsAlwaysTrue(c) {
				continue
			}
			if refsWithin(c, a, total) {
				lower = append(lower, rex.Shift(c, -a))
			} else {
				upper = append(upper, c)
			}
		}
		b := call.Builder()
		b.Push(bottom.Left())
		b.Push(bottom.Right()).Push(top.Right()).Join(algebra.JoinInner, lower...)
		b.Join(algebra.JoinInner, upper...)
		call.TransformTo(b.Build())
	})
}

// JoinProjectTransposeLeft pulls a Project on the left input of an inner
// join above the join.
func JoinProjectTransposeLeft() plan.Rule {
	op := logical[*algebra.Join]().Predicate(isInner).Inputs(
		logical[*algebra.Project]().AnyInputs(),
		logicalInput(),
	)
	return newRule("JoinProjectTransposeLeft", op, func(call *plan.RuleCall) {
		join := call.Rel(0).(*algebra.Join)
		project := call.Rel(1).(*algebra.Project)
		in := project.Input(0)
		p := len(project.Exprs)
		a := in.RowType().FieldCount()
		cond := rex.Transform(join.Condition, func(n rex.Node) rex.Node {
			if ref, ok := n.(*rex.InputRef); ok {
				if ref.Index < p {
					return rex.MakeCast(ref.Type(), project.Exprs[ref.Index])
				}
				return rex.NewInputRef(ref.Index-p+a, ref.Type())
			}
			return n
		})
		b := call.Builder().Push(in).Push(join.Right()).Join(algebra.JoinInner, cond)
		exprs := append([]rex.Node(nil), project.Exprs...)
		for j := range join.Right().RowType().FieldCount() {
			exprs = append(exprs, b.Field(a+j))
		}
		call.TransformTo(b.Project(exprs, join.RowType().FieldNames()...).Build())
	})
}

// JoinProjectTransposeRight pulls a Project on the right input of an inner
// join above the join.
func JoinProjectTransposeRight() plan.Rule {
	op := logical[*algebra.Join]().Predicate(isInner).Inputs(
		logicalInput(),
		logical[*algebra.Project]().AnyInputs(),
	)
	return newRule("JoinProjectTransposeRight", op, func(call *plan.RuleCall) {
		join := call.Rel(0).(*algebra.Join)
		project := call.Rel(2).(*algebra.Project)
		a := join.Left().RowType().FieldCount()
		cond := rex.Transform(join.Condition, func(n rex.Node) rex.Node {
			if ref, ok := n.(*rex.InputRef); ok && ref.Index >= a {
				return rex.MakeCast(ref.Type(), rex.Shift(project.Exprs[ref.Index-a], a))
			}
			return n
		})
		b := call.Builder().Push(join.Left()).Push(project.Input(0)).Join(algebra.JoinInner, cond)
		exprs := b.FieldsOf(bitset.Range(0, a).Ordinals()...)
		exprs = append(exprs, rex.ShiftAll(project.Exprs, a)...)
		call.TransformTo(b.Project(exprs, join.RowType().FieldNames()...).Build())
	})
}

func isInner(n algebra.Node) bool {
	return n.(*algebra.Join).JoinType == algebra.JoinInner
}

// SemiJoin turns an inner join with a distinct right input, whose columns
// are not used above the join, into a semi-join.
func SemiJoin() plan.Rule {
	distinct := logical[*algebra.Aggregate]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Aggregate).IsSimple()
	}).AnyInputs()
	op := logical[*algebra.Project]().Inputs(
		logical[*algebra.Join]().Predicate(isInner).Inputs(logicalInput(), distinct),
	)
	return newRule("SemiJoin", op, func(call *plan.RuleCall) {
		project := call.Rel(0).(*algebra.Project)
		join := call.Rel(1).(*algebra.Join)
		agg := call.Rel(3).(*algebra.Aggregate)
		a := join.Left().RowType().FieldCount()
		if refs := rex.InputRefs(project.Exprs...); !refs.IsEmpty() && refs.Max() >= a {
			return
		}
		info := join.Analyze()
		if !info.IsEqui() || bitset.Build(info.RightKeys...) != bitset.Range(0, agg.GroupCount()) {
			return
		}
		for _, ns := range info.NullSafe {
			if ns {
				return
			}
		}
		groups := agg.GroupSet.Ordinals()
		b := call.Builder().Push(join.Left()).Push(agg.Input(0))
		conds := make([]rex.Node, len(info.LeftKeys))
		for i, lk := range info.LeftKeys {
			conds[i] = rex.EqualsOf(b.FieldOf(2, 0, lk), b.FieldOf(2, 1, groups[info.RightKeys[i]]))
		}
		b.SemiJoin(conds...)
		call.TransformTo(b.Project(project.Exprs, project.RowType().FieldNames()...).Build())
	})
}

// JoinToCorrelate rewrites a join as a Correlate whose right input filters
// on the current left row.
func JoinToCorrelate() plan.Rule {
	join := logical[*algebra.Join]().Predicate(func(n algebra.Node) bool {
		j := n.(*algebra.Join)
		return j.JoinType != algebra.JoinRight && j.JoinType != algebra.JoinFull && !rex.IsAlwaysTrue(j.Condition)
	}).AnyInputs()
	return newRule("JoinToCorrelate", join, func(call *plan.RuleCall) {
		j := call.Rel(0).(*algebra.Join)
		a := j.Left().RowType().FieldCount()
		id := rex.CorrelationID(algebra.NewID())
		cor := rex.NewCorrelVariable(id, j.Left().RowType())
		cond := rex.Transform(j.Condition, func(n rex.Node) rex.Node {
			if ref, ok := n.(*rex.InputRef); ok {
				if ref.Index < a {
					return rex.NewFieldAccess(cor, ref.Index)
				}
				return rex.NewInputRef(ref.Index-a, ref.Type())
			}
			return n
		})
		b := call.Builder().Push(j.Left())
		b.Push(j.Right()).Filter(cond)
		call.TransformTo(b.Correlate(j.JoinType, id).Build())
	})
}
