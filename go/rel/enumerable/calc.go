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
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Calc filters and projects its input with a program.
type Calc struct {
	*algebra.Calc
}

var _ Node = (*Calc)(nil)

func newCalc(traits algebra.TraitSet, input algebra.Node, program *rex.Program) *Calc {
	return &Calc{algebra.NewCalcWith(traits, input, program)}
}

func (c *Calc) OpName() string { return "EnumerableCalc" }

func (c *Calc) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newCalc(traits, inputs[0], c.Program)
}

func (c *Calc) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	child, err := imp.VisitChild(c, 0, FormatArray)
	if err != nil {
		return nil, err
	}
	p := c.Program
	b := imp.NewBlockBuilder()
	in := b.Append(child.Block)

	var cond *Expr
	if e := p.ExpandedCondition(); e != nil {
		if cond, err = imp.Compile(e, p.InputType); err != nil {
			return nil, err
		}
	}
	identity := p.ProjectsOnlyIdentity()
	var projects []*Expr
	if !identity {
		if projects, err = imp.CompileAll(p.ExpandedProjects(), p.InputType); err != nil {
			return nil, err
		}
	}

	out := in
	if cond != nil {
		out = b.Declare("filter", "%s.where(condition)", out)
		b.Code("condition", cond)
	}
	if !identity {
		out = b.Declare("calc", "%s.select(%d projects)", out, len(projects))
		for i, e := range projects {
			b.Code(c.RowType().Fields[i].Name, e)
		}
	}

	src := func(env *Env) (linq.Enumerator, error) {
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			for input.Next() {
				row := input.Row()
				if cond != nil {
					ok, err := cond.Test(env, row)
					if err != nil {
						return nil, false, err
					}
					if !ok {
						continue
					}
				}
				if identity {
					return row, true, nil
				}
				out, err := evalAll(env, projects, row)
				return out, err == nil, err
			}
			return nil, false, input.Err()
		}, input.Close), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(c.RowType(), prefer)}, nil
}
