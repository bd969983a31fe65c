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
	"strconv"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// Result is what a node produces when implemented.
type Result struct {
	Block    *Block
	PhysType PhysType
}

// Implementor builds the code blocks of a plan tree, visiting children
// before their parents.
type Implementor struct {
	names map[string]int
	exprs []*Expr
}

// NewImplementor returns an implementor with no names in use.
func NewImplementor() *Implementor {
	return &Implementor{names: map[string]int{}}
}

func (imp *Implementor) newName(prefix string) string {
	n := imp.names[prefix]
	imp.names[prefix] = n + 1
	return prefix + strconv.Itoa(n)
}

// NewBlockBuilder returns an empty builder sharing the implementor's names.
func (imp *Implementor) NewBlockBuilder() *BlockBuilder {
	return &BlockBuilder{imp: imp}
}

// VisitChild implements input ordinal of parent.
func (imp *Implementor) VisitChild(parent algebra.Node, ordinal int, prefer RowFormat) (*Result, error) {
	return imp.Implement(parent.Inputs()[ordinal], prefer)
}

// Implement builds the block of n, which must be in the enumerable
// convention.
func (imp *Implementor) Implement(n algebra.Node, prefer RowFormat) (*Result, error) {
	n = algebra.Strip(n)
	en, ok := n.(Node)
	if !ok || n.Traits().Convention != Convention {
		return nil, relerrors.NewErrorf(relerrors.FailedPrecondition, relerrors.ConventionMismatch,
			"%s has convention %s, want %s", n.OpName(), n.Traits().Convention, Convention)
	}
	return en.Implement(imp, prefer)
}

// Compile compiles an expression over rows of inputType.
func (imp *Implementor) Compile(e rex.Node, inputType *reltype.DataType) (*Expr, error) {
	ce, err := CompileExpr(e, inputType)
	if err != nil {
		return nil, err
	}
	imp.exprs = append(imp.exprs, ce)
	return ce, nil
}

// CompileAll compiles each expression over rows of inputType.
func (imp *Implementor) CompileAll(exprs []rex.Node, inputType *reltype.DataType) ([]*Expr, error) {
	out := make([]*Expr, len(exprs))
	for i, e := range exprs {
		ce, err := imp.Compile(e, inputType)
		if err != nil {
			return nil, err
		}
		out[i] = ce
	}
	return out, nil
}
