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
	"context"

	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

var emptyRowType = reltype.StructOf(nil, nil)

// RexExecutor reduces constant expressions by compiling and running them
// once against an empty row.
type RexExecutor struct {
	dc datacontext.DataContext
}

// NewRexExecutor returns an executor evaluating against dc. A nil dc uses
// a background context with no parameters.
func NewRexExecutor(dc datacontext.DataContext) *RexExecutor {
	if dc == nil {
		dc = datacontext.New(context.Background())
	}
	return &RexExecutor{dc: dc}
}

// Reduce implements rex.Executor. Expressions that are not constant, or
// whose evaluation fails, are returned unchanged.
func (x *RexExecutor) Reduce(exprs []rex.Node) ([]rex.Node, error) {
	env := NewEnv(x.dc)
	out := make([]rex.Node, len(exprs))
	for i, e := range exprs {
		out[i] = e
		if _, ok := e.(*rex.Literal); ok || !rex.IsConstant(e) {
			continue
		}
		ce, err := CompileExpr(e, emptyRowType)
		if err != nil {
			log.DebugS("cannot compile constant", "expr", e.String(), "error", err)
			continue
		}
		v, err := ce.Eval(env, nil)
		if err != nil {
			log.DebugS("cannot reduce constant", "expr", e.String(), "error", err)
			continue
		}
		if v.IsNull() && !e.Type().Nullable {
			continue
		}
		out[i] = rex.NewLiteral(v, e.Type())
	}
	return out, nil
}

var _ rex.Executor = (*RexExecutor)(nil)
