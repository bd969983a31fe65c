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

// ProjectToCalc turns a Project into a Calc.
func ProjectToCalc() plan.Rule {
	return newRule("ProjectToCalc", logical[*algebra.Project]().AnyInputs(), func(call *plan.RuleCall) {
		p := call.Rel(0).(*algebra.Project)
		in := p.Input(0)
		program := rex.NewProgramFromProjectAndFilter(in.RowType(), p.Exprs, nil, p.RowType().FieldNames())
		call.TransformTo(algebra.NewCalc(in, program))
	})
}

// FilterToCalc turns a Filter into a Calc.
func FilterToCalc() plan.Rule {
	return newRule("FilterToCalc", logical[*algebra.Filter]().AnyInputs(), func(call *plan.RuleCall) {
		f := call.Rel(0).(*algebra.Filter)
		in := f.Input(0)
		rowType := in.RowType()
		program := rex.NewProgramFromProjectAndFilter(rowType, rex.InputRefsOf(rowType), f.Condition, rowType.FieldNames())
		call.TransformTo(algebra.NewCalc(in, program))
	})
}

// CalcMerge merges a Calc into the Calc below it.
func CalcMerge() plan.Rule {
	op := logical[*algebra.Calc]().Inputs(logical[*algebra.Calc]().AnyInputs())
	return newRule("CalcMerge", op, func(call *plan.RuleCall) {
		top := call.Rel(0).(*algebra.Calc)
		bottom := call.Rel(1).(*algebra.Calc)
		program := rex.Merge(top.Program, bottom.Program).Normalize(true)
		call.TransformTo(algebra.NewCalc(bottom.Input(0), program))
	})
}

// CalcRemove removes a Calc that neither filters nor changes rows.
func CalcRemove() plan.Rule {
	op := logical[*algebra.Calc]().Predicate(func(n algebra.Node) bool {
		return n.(*algebra.Calc).Program.IsTrivial()
	}).AnyInputs()
	return newRule("CalcRemove", op, func(call *plan.RuleCall) {
		call.TransformTo(call.Rel(0).(*algebra.Calc).Input(0))
	})
}
