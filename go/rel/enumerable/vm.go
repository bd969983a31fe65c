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
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// frame is one instruction. It returns the offset of the next instruction.
type frame func(env *Env) int

type virtualMachine struct {
	stack []sqltypes.Value
	sp    int
	row   sqltypes.Row
	err   error
}

// Env is the state of one execution of a plan. It is not safe for
// concurrent use.
type Env struct {
	dc      datacontext.DataContext
	correls map[rex.CorrelationID]sqltypes.Row
	vm      virtualMachine
}

// NewEnv returns an execution environment reading parameters from dc.
func NewEnv(dc datacontext.DataContext) *Env {
	return &Env{dc: dc, correls: map[rex.CorrelationID]sqltypes.Row{}}
}

// DataContext returns the data context of the execution.
func (env *Env) DataContext() datacontext.DataContext { return env.dc }

// bind sets the row of correlation variable id and returns a function that
// restores the previous binding.
func (env *Env) bind(id rex.CorrelationID, row sqltypes.Row) func() {
	prev, had := env.correls[id]
	env.correls[id] = row
	return func() {
		if had {
			env.correls[id] = prev
		} else {
			delete(env.correls, id)
		}
	}
}

// Expr is a compiled scalar expression.
type Expr struct {
	code     []frame
	stack    int
	listing  []string
	typ      *reltype.DataType
	original rex.Node
}

// Type is the type of the values the expression returns.
func (e *Expr) Type() *reltype.DataType { return e.typ }

// Listing returns one line per instruction.
func (e *Expr) Listing() []string { return e.listing }

func (e *Expr) String() string { return e.original.String() }

// Eval evaluates e over row.
func (e *Expr) Eval(env *Env, row sqltypes.Row) (sqltypes.Value, error) {
	vm := &env.vm
	vm.row = row
	vm.sp = 0
	vm.err = nil
	if len(vm.stack) < e.stack {
		vm.stack = make([]sqltypes.Value, e.stack)
	}
	code := e.code
	ip := 0
	for ip < len(code) {
		ip += code[ip](env)
		if vm.err != nil {
			return sqltypes.NULL, vm.err
		}
	}
	return vm.stack[vm.sp-1], nil
}

// Test evaluates a predicate. NULL and FALSE both fail.
func (e *Expr) Test(env *Env, row sqltypes.Row) (bool, error) {
	v, err := e.Eval(env, row)
	if err != nil {
		return false, err
	}
	return isTrue(v), nil
}

func isTrue(v sqltypes.Value) bool {
	if v.IsNull() {
		return false
	}
	b, err := v.ToBool()
	return err == nil && b
}

func isFalse(v sqltypes.Value) bool {
	if v.IsNull() {
		return false
	}
	b, err := v.ToBool()
	return err == nil && !b
}

// evalAll evaluates exprs over row into a new row.
func evalAll(env *Env, exprs []*Expr, row sqltypes.Row) (sqltypes.Row, error) {
	out := make(sqltypes.Row, len(exprs))
	for i, e := range exprs {
		v, err := e.Eval(env, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
