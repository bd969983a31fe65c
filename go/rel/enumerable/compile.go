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
	"fmt"
	"strings"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/sqltypes"
)

// Bindable is an executable plan.
type Bindable interface {
	// Bind opens the plan's rows for one execution.
	Bind(dc datacontext.DataContext) (linq.Enumerator, error)
}

// ArrayBindable is a Bindable whose rows are positional.
type ArrayBindable interface {
	Bindable
	Fields() []*sqltypes.Field
}

// CompileError is returned when a plan cannot be compiled. Listing holds
// the statements generated before the failure.
type CompileError struct {
	Listing string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile: %s\n%s", e.Err, e.Listing)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Plan is a compiled plan tree.
type Plan struct {
	root     *Result
	exprs    int
	listing  string
	physType PhysType
}

// Compile implements root, whose nodes must all be in the enumerable
// convention.
func Compile(root algebra.Node, prefer RowFormat) (*Plan, error) {
	imp := NewImplementor()
	res, err := imp.Implement(root, prefer)
	if err != nil {
		var lines []string
		for _, e := range imp.exprs {
			lines = append(lines, e.String())
			lines = append(lines, e.Listing()...)
		}
		log.DebugS("plan compilation failed", "root", root.OpName(), "error", err)
		return nil, &CompileError{
			Listing: strings.Join(lines, "\n"),
			Err:     relerrors.Wrapf(err, "implementing %s", root.OpName()),
		}
	}
	p := &Plan{root: res, exprs: len(imp.exprs), listing: res.Block.String(), physType: res.PhysType}
	log.DebugS("compiled plan", "root", root.OpName(), "expressions", p.exprs, "format", p.physType.Format)
	return p, nil
}

// Bind opens the plan's rows. Enumeration stops with the context's error
// once dc's context is done.
func (p *Plan) Bind(dc datacontext.DataContext) (linq.Enumerator, error) {
	env := NewEnv(dc)
	e, err := p.root.Block.Source(env)
	if err != nil {
		return nil, err
	}
	return linq.WithContext(dc.Context(), e), nil
}

// Fields describes the columns of the plan's rows.
func (p *Plan) Fields() []*sqltypes.Field {
	rowType := p.physType.RowType
	fields := make([]*sqltypes.Field, rowType.FieldCount())
	for i, f := range rowType.Fields {
		fields[i] = &sqltypes.Field{Name: f.Name, Type: f.Type.Name}
	}
	return fields
}

// PhysType is the physical type of the plan's rows.
func (p *Plan) PhysType() PhysType { return p.physType }

// Listing is the generated program, one statement per line.
func (p *Plan) Listing() string { return p.listing }

// Execute binds the plan and collects its rows.
func (p *Plan) Execute(dc datacontext.DataContext) (*sqltypes.Result, error) {
	e, err := p.Bind(dc)
	if err != nil {
		return nil, err
	}
	rows, err := linq.ToRows(e)
	if err != nil {
		return nil, err
	}
	return &sqltypes.Result{Fields: p.Fields(), Rows: rows}, nil
}

// Records binds the plan and converts each row to the plan's row format.
func (p *Plan) Records(dc datacontext.DataContext) ([]any, error) {
	res, err := p.Execute(dc)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = p.physType.Record(r)
	}
	return out, nil
}

var _ ArrayBindable = (*Plan)(nil)
