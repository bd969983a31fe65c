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

// Package rules holds the transformation rules applied by the planners,
// and the named rule sets the prepare pipeline runs.
package rules

import (
	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/rex"
)

// rule is a plan.Rule whose OnMatch is a function.
type rule struct {
	plan.RuleBase
	onMatch func(call *plan.RuleCall)
}

func (r *rule) OnMatch(call *plan.RuleCall) { r.onMatch(call) }

func newRule(name string, op *plan.Operand, onMatch func(call *plan.RuleCall)) plan.Rule {
	return &rule{RuleBase: plan.NewRuleBase(name, op), onMatch: onMatch}
}

// logical matches nodes of type T without a convention.
func logical[T algebra.Node]() *plan.Operand {
	return plan.Op[T]().Convention(algebra.None)
}

// logicalInput matches any logical node.
func logicalInput() *plan.Operand {
	return logical[algebra.Node]().AnyInputs()
}

// emptyValues matches a Values without rows.
func emptyValues() *plan.Operand {
	return plan.Op[*algebra.Values]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Values).IsEmpty()
	}).NoInputs()
}

// refsWithin reports whether every input reference of e is in [lo, hi).
func refsWithin(e rex.Node, lo, hi int) bool {
	refs := rex.InputRefs(e)
	if refs.IsEmpty() {
		return false
	}
	ok := true
	refs.ForEach(func(i int) {
		if i < lo || i >= hi {
			ok = false
		}
	})
	return ok
}

// Normalization is the heuristic rewrite set run before cost-based
// planning: it simplifies expressions, merges adjacent operators, pushes
// filters down and prunes empty branches.
func Normalization() []plan.Rule {
	return []plan.Rule{
		ReduceExpressionsFilter(),
		ReduceExpressionsProject(),
		FilterMerge(),
		ProjectMerge(),
		ProjectRemove(),
		FilterProjectTranspose(),
		FilterIntoJoin(),
		JoinConditionPush(),
		FilterAggregateTranspose(),
		FilterSetOpTranspose(),
		AggregateProjectMerge(),
		AggregateRemove(),
		AggregateReduceFunctions(),
		UnionMerge(),
		UnionMergeRight(),
		UnionPullUpConstants(),
		SortRemove(),
		PruneEmptyFilter(),
		PruneEmptyProject(),
		PruneEmptyAggregate(),
		PruneEmptyJoinLeft(),
		PruneEmptyJoinRight(),
		PruneEmptySort(),
		PruneEmptyUnion(),
		PruneEmptyIntersect(),
		PruneEmptyMinus(),
		ValuesReduceFilter(),
		ValuesReduceProject(),
	}
}

// ScanPushdown pushes filters and projections into tables that accept
// them.
func ScanPushdown() []plan.Rule {
	return []plan.Rule{
		FilterTableScan(),
		ProjectTableScan(),
	}
}

// Exploration is the set of rules that enumerate alternative plans for the
// cost-based planner.
func Exploration() []plan.Rule {
	return []plan.Rule{
		JoinCommute(false),
		JoinAssociate(),
		JoinProjectTransposeLeft(),
		JoinProjectTransposeRight(),
		SemiJoin(),
		SortProjectTranspose(),
		UnionToDistinct(),
		IntersectToDistinct(),
		MinusToDistinct(),
		ProjectMerge(),
		ProjectRemove(),
		FilterMerge(),
	}
}

// CalcRules turns projects and filters into calcs and merges them.
func CalcRules() []plan.Rule {
	return []plan.Rule{
		ProjectToCalc(),
		FilterToCalc(),
		CalcMerge(),
		CalcRemove(),
		ReduceExpressionsCalc(),
	}
}
