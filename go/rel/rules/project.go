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
	"relopt.io/relopt/go/rel/rex"
)

// ProjectMerge merges a Project into the Project below it.
func ProjectMerge() plan.Rule {
	op := logical[*algebra.Project]().Inputs(logical[*algebra.Project]().AnyInputs())
	return newRule("ProjectMerge", op, func(call *plan.RuleCall) {
		top := call.Rel(0).(*algebra.Project)
		bottom := call.Rel(1).(*algebra.Project)
		exprs := rex.SubstituteAll(top.Exprs, bottom.Exprs)
		b := call.Builder().Push(bottom.Input(0))
		call.TransformTo(b.Project(exprs, top.RowType().FieldNames()...).Build())
	})
}

// ProjectRemove removes a Project that returns its input unchanged.
func ProjectRemove() plan.Rule {
	op := logical[*algebra.Project]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Project).IsIdentity()
	}).AnyInputs()
	return newRule("ProjectRemove", op, func(call *plan.RuleCall) {
		call.TransformTo(call.Rel(0).(*algebra.Project).Input(0))
	})
}

// ProjectTableScan narrows a scan of a projectable table to the columns a
// Project above it reads.
func ProjectTableScan() plan.Rule {
	scan := logical[*algebra.TableScan]().Predicate(func(n algebra.Node) bool {
		_, ok := n.(*algebra.TableScan).Table.(catalog.ProjectableFilterableTable)
		return ok
	}).NoInputs()
	op := logical[*algebra.Project]().Inputs(scan)
	return newRule("ProjectTableScan", op, func(call *plan.RuleCall) {
		project := call.Rel(0).(*algebra.Project)
		ts := call.Rel(1).(*algebra.TableScan)
		used := rex.InputRefs(project.Exprs...)
		width := ts.RowType().FieldCount()
		if used.IsEmpty() || used.Popcount() == width {
			return
		}
		columns := ts.ColumnMapping()
		mapping := make([]int, width)
		for i := range mapping {
			mapping[i] = -1
		}
		projects := make([]int, 0, used.Popcount())
		used.ForEach(func(i int) {
			mapping[i] = len(projects)
			projects = append(projects, columns[i])
		})
		narrowed := algebra.NewTableScanWith(ts.Traits(), ts.Table, ts.Filters, projects)
		exprs := make([]rex.Node, len(project.Exprs))
		for i, e := range project.Exprs {
			exprs[i] = rex.Permute(e, mapping)
		}
		b := call.Builder().Push(narrowed)
		call.TransformTo(b.Project(exprs, project.RowType().FieldNames()...).Build())
	})
}
