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
	"strings"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// TableScan reads the rows of a table. Filters and projection pushed into
// the scan are applied by the table when it can, and here otherwise.
type TableScan struct {
	*algebra.TableScan
}

var _ Node = (*TableScan)(nil)

func newTableScan(traits algebra.TraitSet, s *algebra.TableScan) *TableScan {
	return &TableScan{algebra.NewTableScanWith(traits, s.Table, s.Filters, s.Projects)}
}

func (s *TableScan) OpName() string { return "EnumerableTableScan" }

func (s *TableScan) Copy(traits algebra.TraitSet, _ []algebra.Node) algebra.Node {
	return newTableScan(traits, s.TableScan)
}

// canScan reports whether the table of s can produce the rows s asks for.
func canScan(s *algebra.TableScan) bool {
	switch s.Table.(type) {
	case catalog.FilterableTable:
		return true
	case catalog.ScannableTable:
		return len(s.Filters) == 0
	}
	return false
}

func (s *TableScan) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	b := imp.NewBlockBuilder()
	name := strings.Join(s.Table.QualifiedName(), ".")
	projects := s.Projects
	var out string
	var scan func(env *Env) (linq.Enumerator, error)
	switch t := s.Table.(type) {
	case catalog.ProjectableFilterableTable:
		out = b.Declare("scan", "%s.scanProjected([%s], %v)", name, rex.Digests(s.Filters), projects)
		scan = func(env *Env) (linq.Enumerator, error) {
			return t.ScanProjected(env.dc, s.Filters, s.Projects)
		}
		projects = nil
	case catalog.FilterableTable:
		out = b.Declare("scan", "%s.scanFiltered([%s])", name, rex.Digests(s.Filters))
		scan = func(env *Env) (linq.Enumerator, error) {
			return t.ScanFiltered(env.dc, s.Filters)
		}
	case catalog.ScannableTable:
		if len(s.Filters) > 0 {
			return nil, relerrors.NewErrorf(relerrors.FailedPrecondition, relerrors.CodeGenFailure, "table %s cannot apply filters", name)
		}
		out = b.Declare("scan", "%s.scan()", name)
		scan = func(env *Env) (linq.Enumerator, error) {
			return t.Scan(env.dc)
		}
	default:
		return nil, relerrors.NewErrorf(relerrors.FailedPrecondition, relerrors.CodeGenFailure, "table %s cannot be scanned", name)
	}
	if projects != nil {
		out = b.Declare("project", "%s.select(%v)", out, projects)
	}
	src := func(env *Env) (linq.Enumerator, error) {
		in, err := scan(env)
		if err != nil {
			return nil, err
		}
		in = linq.WithContext(env.dc.Context(), in)
		if projects == nil {
			return in, nil
		}
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			if !in.Next() {
				return nil, false, in.Err()
			}
			row := in.Row()
			out := make(sqltypes.Row, len(projects))
			for i, p := range projects {
				out[i] = row[p]
			}
			return out, true, nil
		}, in.Close), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(s.RowType(), prefer)}, nil
}

// Values returns constant rows.
type Values struct {
	*algebra.Values
}

var _ Node = (*Values)(nil)

func newValues(traits algebra.TraitSet, v *algebra.Values) *Values {
	return &Values{algebra.NewValuesWith(traits, v.RowType(), v.Tuples)}
}

func (v *Values) OpName() string { return "EnumerableValues" }

func (v *Values) Copy(traits algebra.TraitSet, _ []algebra.Node) algebra.Node {
	return newValues(traits, v.Values)
}

func (v *Values) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	b := imp.NewBlockBuilder()
	out := b.Declare("values", "asEnumerable(%d rows)", len(v.Tuples))
	rows := v.Rows()
	src := func(*Env) (linq.Enumerator, error) {
		return linq.FromRows(rows), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(v.RowType(), prefer)}, nil
}
