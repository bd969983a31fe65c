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
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/rex"
)

// reducer folds constant expressions. Fields the input holds constant are
// replaced by their value first; constant calls are then evaluated with
// the planner's executor, when it has one, and the result simplified.
type reducer struct {
	executor  rex.Executor
	constants map[int]rex.Node
}

func newReducer(call *plan.RuleCall, input algebra.Node) *reducer {
	return &reducer{
		executor:  call.Planner().Executor(),
		constants: call.Metadata().ConstantColumns(input),
	}
}

func (r *reducer) reduce(e rex.Node, predicate bool) rex.Node {
	out := rex.Transform(e, func(n rex.Node) rex.Node {
		switch n := n.(type) {
		case *rex.InputRef:
			if c, ok := r.constants[n.Index]; ok {
				return rex.MakeCast(n.Type(), c)
			}
		case *rex.Call:
			if r.executor != nil && rex.IsConstant(n) {
				reduced, err := r.executor.Reduce([]rex.Node{n})
				if err != nil {
					log.DebugS("cannot reduce expression", "expr", n.Digest(), "err", err)
					return n
				}
				return rex.MakeCast(n.Type(), reduced[0])
			}
		}
		return n
	})
	if predicate {
		return rex.SimplifyPredicate(out)
	}
	return rex.MakeCast(e.Type(), rex.Simplify(out))
}

// reduceAll reduces exprs and reports whether any of them changed.
func (r *reducer) reduceAll(exprs []rex.Node) ([]rex.Node, bool) {
	out := make([]rex.Node, len(exprs))
	changed := false
	for i, e := range exprs {
		out[i] = r.reduce(e, false)
		changed = changed || out[i].Digest() != e.Digest()
	}
	return out, changed
}

// ReduceExpressionsFilter folds constants in a Filter condition. A
// condition that becomes TRUE removes the Filter; FALSE empties it.
func ReduceExpressionsFilter() plan.Rule {
	return newRule("ReduceExpressionsFilter", logical[*algebra.Filter]().AnyInputs(), func(call *plan.RuleCall) {
		f := call.Rel(0).(*algebra.Filter)
		cond := newReducer(call, f.Input(0)).reduce(f.Condition, true)
		if cond.Digest() == f.Condition.Digest() {
			return
		}
		call.TransformTo(call.Builder().Push(f.Input(0)).Filter(cond).Build())
	})
}

// ReduceExpressionsProject folds constants in the expressions of a
// Project.
func ReduceExpressionsProject() plan.Rule {
	return newRule("ReduceExpressionsProject", logical[*algebra.Project]().AnyInputs(), func(call *plan.RuleCall) {
		p := call.Rel(0).(*algebra.Project)
		exprs, changed := newReducer(call, p.Input(0)).reduceAll(p.Exprs)
		if !changed {
			return
		}
		call.TransformTo(algebra.NewProjectWith(p.Traits(), p.Input(0), exprs, p.RowType()))
	})
}

// ReduceExpressionsCalc folds constants in the program of a Calc.
func ReduceExpressionsCalc() plan.Rule {
	return newRule("ReduceExpressionsCalc", logical[*algebra.Calc]().AnyInputs(), func(call *plan.RuleCall) {
		c := call.Rel(0).(*algebra.Calc)
		r := newReducer(call, c.Input(0))
		projects, changed := r.reduceAll(c.Program.ExpandedProjects())
		cond := c.Program.ExpandedCondition()
		if cond != nil {
			reduced := r.reduce(cond, true)
			changed = changed || reduced.Digest() != cond.Digest()
			cond = reduced
		}
		if !changed {
			return
		}
		if cond != nil && rex.IsAlwaysFalse(cond) {
			call.TransformTo(algebra.NewEmptyValues(c.RowType()))
			return
		}
		program := rex.NewProgramFromProjectAndFilter(c.Input(0).RowType(), projects, cond, c.RowType().FieldNames())
		call.TransformTo(algebra.NewCalcWith(c.Traits(), c.Input(0), program))
	})
}

// ValuesReduceFilter evaluates a Filter over a Values at planning time.
func ValuesReduceFilter() plan.Rule {
	op := logical[*algebra.Filter]().Inputs(logical[*algebra.Values]().NoInputs())
	return newRule("ValuesReduceFilter", op, func(call *plan.RuleCall) {
		f := call.Rel(0).(*algebra.Filter)
		v := call.Rel(1).(*algebra.Values)
		executor := call.Planner().Executor()
		if executor == nil || v.IsEmpty() {
			return
		}
		conds := make([]rex.Node, len(v.Tuples))
		for i, tuple := range v.Tuples {
			conds[i] = rex.Substitute(f.Condition, literals(tuple))
		}
		reduced, err := executor.Reduce(conds)
		if err != nil {
			return
		}
		var kept [][]*rex.Literal
		for i, c := range reduced {
			lit, ok := c.(*rex.Literal)
			if !ok {
				return
			}
			if rex.IsAlwaysTrue(lit) {
				kept = append(kept, v.Tuples[i])
			}
		}
		call.TransformTo(algebra.NewValues(v.RowType(), kept))
	})
}

// ValuesReduceProject evaluates a Project over a Values at planning time.
func ValuesReduceProject() plan.Rule {
	op := logical[*algebra.Project]().Inputs(logical[*algebra.Values]().NoInputs())
	return newRule("ValuesReduceProject", op, func(call *plan.RuleCall) {
		p := call.Rel(0).(*algebra.Project)
		v := call.Rel(1).(*algebra.Values)
		executor := call.Planner().Executor()
		if executor == nil {
			return
		}
		var exprs []rex.Node
		for _, tuple := range v.Tuples {
			exprs = append(exprs, rex.SubstituteAll(p.Exprs, literals(tuple))...)
		}
		reduced, err := executor.Reduce(exprs)
		if err != nil {
			return
		}
		width := len(p.Exprs)
		tuples := make([][]*rex.Literal, len(v.Tuples))
		for i := range tuples {
			tuples[i] = make([]*rex.Literal, width)
			for j := range width {
				lit, ok := rex.MakeCast(p.RowType().Fields[j].Type, reduced[i*width+j]).(*rex.Literal)
				if !ok {
					return
				}
				tuples[i][j] = rex.NewLiteral(lit.Value, p.RowType().Fields[j].Type)
			}
		}
		call.TransformTo(algebra.NewValues(p.RowType(), tuples))
	})
}

func literals(tuple []*rex.Literal) []rex.Node {
	out := make([]rex.Node, len(tuple))
	for i, l := range tuple {
		out[i] = l
	}
	return out
}
