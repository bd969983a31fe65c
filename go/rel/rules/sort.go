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
)

// SortRemove removes a Sort without offset or fetch whose input is
// already ordered as required.
func SortRemove() plan.Rule {
	sort := logical[*algebra.Sort]().Predicate(func(n algebra.Node) bool {
		s := n.(*algebra.Sort)
		return s.Offset == nil && s.Fetch == nil
	}).AnyInputs()
	return newRule("SortRemove", sort, func(call *plan.RuleCall) {
		s := call.Rel(0).(*algebra.Sort)
		input := s.Input(0)
		if len(s.Collation) > 0 && !ordered(call.Metadata(), input, s.Collation) {
			return
		}
		call.TransformTo(input)
	})
}

func ordered(mq *algebra.MetadataQuery, n algebra.Node, required algebra.Collation) bool {
	for _, c := range mq.Collations(n) {
		if c.Satisfies(required) {
			return true
		}
	}
	return false
}

// SortProjectTranspose pushes a Sort below a Project when every sort key
// is a projected field.
func SortProjectTranspose() plan.Rule {
	op := logical[*algebra.Sort]().Inputs(logical[*algebra.Project]().AnyInputs())
	return newRule("SortProjectTranspose", op, func(call *plan.RuleCall) {
		s := call.Rel(0).(*algebra.Sort)
		project := call.Rel(1).(*algebra.Project)
		collation, ok := s.Collation.Permute(project.Mapping())
		if !ok {
			return
		}
		sorted := algebra.NewSort(project.Input(0), collation, s.Offset, s.Fetch)
		traits := project.Traits().WithCollation(s.Collation)
		call.TransformTo(algebra.NewProjectWith(traits, sorted, project.Exprs, project.RowType()))
	})
}
