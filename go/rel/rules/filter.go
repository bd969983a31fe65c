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
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// FilterMerge combines two adjacent Filters into one.
func FilterMerge() plan.Rule {
	op := logical[*algebra.Filter]().Inputs(logical[*algebra.Filter]().AnyInputs())
	return newRule("FilterMerge", op, func(call *plan.RuleCall) {
		top := call.Rel(0).(*algebra.Filter)
		bottom := call.Rel(1).(*algebra.Filter)
		b := call.Builder().Push(bottom.Input(0)).Filter(bottom.Condition, top.Condition)
		call.TransformTo(b.Build())
	})
}

// FilterProjectTranspose pushes a Filter below a Project by substituting
// the projected expressions into the condition.
func FilterProjectTranspose() plan.Rule {
	op := logical[*algebra.Filter]().Inputs(logical[*algebra.Project]().AnyInputs())
	return newRule("FilterProjectTranspose", op, func(call *plan.RuleCall) {
		filter := call.Rel(0).(*algebra.Filter)
		project := call.Rel(1).(*algebra.Project)
		cond := rex.Substitute(filter.Condition, project.Exprs)
		b := call.Builder().Push(project.Input(0)).Filter(cond)
		b.Project(project.Exprs, project.RowType().FieldNames()...)
		call.TransformTo(b.Build())
	})
}

// FilterAggregateTranspose pushes the conjuncts of a Filter that read only
// group keys below the Aggregate.
func FilterAggregateTranspose() plan.Rule {
	agg := logical[*algebra.Aggregate]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Aggregate).GroupCount() > 0
	}).AnyInputs()
	op := logical[*algebra.Filter]().Inputs(agg)
	return newRule("FilterAggregateTranspose", op, func(call *plan.RuleCall) {
		filter := call.Rel(0).(*algebra.Filter)
		aggregate := call.Rel(1).(*algebra.Aggregate)
		groups := aggregate.GroupSet.Ordinals()
		var pushed, kept []rex.Node
		for _, c := range rex.Conjunctions(filter.Condition) {
			if refsWithin(c, 0, len(groups)) {
				pushed = append(pushed, rex.Permute(c, groups))
			} else {
				kept = append(kept, c)
			}
		}
		if len(pushed) == 0 {
			return
		}
		b := call.Builder().Push(aggregate.Input(0)).Filter(pushed...)
		in := b.Build()
		b.Push(aggregate.Copy(aggregate.Traits(), []algebra.Node{in})).Filter(kept...)
		call.TransformTo(b.Build())
	})
}

// FilterSetOpTranspose pushes a Filter into every input of a set
// operation.
func FilterSetOpTranspose() plan.Rule {
	op := logical[*algebra.Filter]().Inputs(logical[algebra.SetOperation]().AnyInputs())
	return newRule("FilterSetOpTranspose", op, func(call *plan.RuleCall) {
		filter := call.Rel(0).(*algebra.Filter)
		setOp := call.Rel(1).(algebra.SetOperation)
		b := call.Builder()
		inputs := make([]algebra.Node, len(setOp.Inputs()))
		for i, in := range setOp.Inputs() {
			cond := retype(filter.Condition, in.RowType())
			inputs[i] = b.Push(in).Filter(cond).Build()
		}
		call.TransformTo(setOp.Copy(setOp.Traits(), inputs))
	})
}

// retype rewrites the input references of e to the fields of rowType,
// casting each to the type e expects.
func retype(e rex.Node, rowType *reltype.DataType) rex.Node {
	return rex.Transform(e, func(n rex.Node) rex.Node {
		if ref, ok := n.(*rex.InputRef); ok {
			return rex.MakeCast(ref.Type(), rex.InputRefOf(rowType, ref.Index))
		}
		return n
	})
}

// FilterTableScan moves the conjuncts a filterable table accepts into the
// scan.
func FilterTableScan() plan.Rule {
	scan := logical[*algebra.TableScan]().Predicate(func(n algebra.Node) bool {
		_, ok := n.(*algebra.TableScan).Table.(catalog.FilterableTable)
		return ok
	}).NoInputs()
	op := logical[*algebra.Filter]().Inputs(scan)
	return newRule("FilterTableScan", op, func(call *plan.RuleCall) {
		filter := call.Rel(0).(*algebra.Filter)
		ts := call.Rel(1).(*algebra.TableScan)
		table := ts.Table.(catalog.FilterableTable)
		mapping := ts.ColumnMapping()
		var accepted, kept []rex.Node
		for _, c := range rex.Conjunctions(filter.Condition) {
			if p := rex.Permute(c, mapping); table.CanFilter(p) {
				accepted = append(accepted, p)
			} else {
				kept = append(kept, c)
			}
		}
		if len(accepted) == 0 {
			return
		}
		filters := append(append([]rex.Node(nil), ts.Filters...), accepted...)
		narrowed := algebra.NewTableScanWith(ts.Traits(), ts.Table, filters, ts.Projects)
		call.TransformTo(call.Builder().Push(narrowed).Filter(kept...).Build())
	})
}
