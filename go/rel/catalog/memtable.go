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

package catalog

import (
	"slices"
	"sync"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// MemTable is a table held in memory. It accepts simple pushed-down
// filters (comparisons between a column and a literal, and IS [NOT] NULL
// on a column), column projection and modification.
type MemTable struct {
	name    []string
	rowType *reltype.DataType

	mu         sync.RWMutex
	rows       []sqltypes.Row
	uniqueKeys []bitset.Bitset
	rowCount   float64 // <0 means "use len(rows)"
}

var (
	_ ScannableTable             = (*MemTable)(nil)
	_ ProjectableFilterableTable = (*MemTable)(nil)
	_ ModifiableTable            = (*MemTable)(nil)
)

// NewMemTable creates a table. rows are not copied.
func NewMemTable(name []string, rowType *reltype.DataType, rows []sqltypes.Row, uniqueKeys ...bitset.Bitset) *MemTable {
	return &MemTable{
		name:       slices.Clone(name),
		rowType:    rowType,
		rows:       rows,
		uniqueKeys: uniqueKeys,
		rowCount:   -1,
	}
}

// SetRowCount overrides the row count reported by Statistic.
func (t *MemTable) SetRowCount(n float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rowCount = n
}

// QualifiedName implements Table.
func (t *MemTable) QualifiedName() []string { return t.name }

// RowType implements Table.
func (t *MemTable) RowType() *reltype.DataType { return t.rowType }

// Statistic implements Table.
func (t *MemTable) Statistic() Statistic {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.rowCount
	if n < 0 {
		n = float64(len(t.rows))
	}
	return Statistic{RowCount: n, UniqueKeys: t.uniqueKeys}
}

// Rows returns a copy of the current contents.
func (t *MemTable) Rows() []sqltypes.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.rows)
}

func (t *MemTable) snapshot() []sqltypes.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows[:len(t.rows):len(t.rows)]
}

// Scan implements ScannableTable.
func (t *MemTable) Scan(dc datacontext.DataContext) (linq.Enumerator, error) {
	return linq.WithContext(dc.Context(), linq.FromRows(t.snapshot())), nil
}

// CanFilter implements FilterableTable.
func (t *MemTable) CanFilter(filter rex.Node) bool {
	_, ok := compileSimpleFilter(filter)
	return ok
}

// ScanFiltered implements FilterableTable.
func (t *MemTable) ScanFiltered(dc datacontext.DataContext, filters []rex.Node) (linq.Enumerator, error) {
	return t.ScanProjected(dc, filters, nil)
}

// ScanProjected implements ProjectableFilterableTable. A nil projects
// returns every column.
func (t *MemTable) ScanProjected(dc datacontext.DataContext, filters []rex.Node, projects []int) (linq.Enumerator, error) {
	preds := make([]simpleFilter, 0, len(filters))
	for _, f := range filters {
		p, ok := compileSimpleFilter(f)
		if !ok {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.NotSupportedYet, "table %v cannot apply filter %s", t.name, f)
		}
		preds = append(preds, p)
	}
	for _, p := range projects {
		if p < 0 || p >= t.rowType.FieldCount() {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "projected column %d out of range", p)
		}
	}
	rows := t.snapshot()
	i := 0
	e := linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
	outer:
		for i < len(rows) {
			row := rows[i]
			i++
			for _, p := range preds {
				if !p.eval(row) {
					continue outer
				}
			}
			if projects == nil {
				return row, true, nil
			}
			out := make(sqltypes.Row, len(projects))
			for j, c := range projects {
				out[j] = row[c]
			}
			return out, true, nil
		}
		return nil, false, nil
	}, nil)
	return linq.WithContext(dc.Context(), e), nil
}

// Insert implements ModifiableTable.
func (t *MemTable) Insert(rows []sqltypes.Row) (uint64, error) {
	for _, r := range rows {
		if err := t.checkRow(r); err != nil {
			return 0, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range rows {
		t.rows = append(t.rows, slices.Clone(r))
	}
	return uint64(len(rows)), nil
}

// Update implements ModifiableTable.
func (t *MemTable) Update(old, updated []sqltypes.Row) (uint64, error) {
	if len(old) != len(updated) {
		return 0, relerrors.Errorf(relerrors.Internal, "update: %d old rows but %d new rows", len(old), len(updated))
	}
	for _, r := range updated {
		if err := t.checkRow(r); err != nil {
			return 0, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := slices.Clone(t.rows)
	var n uint64
	for i, o := range old {
		if j := indexOfRow(rows, o); j >= 0 {
			rows[j] = slices.Clone(updated[i])
			n++
		}
	}
	t.rows = rows
	return n, nil
}

// Delete implements ModifiableTable.
func (t *MemTable) Delete(rows []sqltypes.Row) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := slices.Clone(t.rows)
	var n uint64
	for _, r := range rows {
		if j := indexOfRow(cur, r); j >= 0 {
			cur = slices.Delete(cur, j, j+1)
			n++
		}
	}
	t.rows = cur
	return n, nil
}

func (t *MemTable) checkRow(r sqltypes.Row) error {
	fields := t.rowType.Fields
	if len(r) != len(fields) {
		return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "table %v expects %d columns, got %d", t.name, len(fields), len(r))
	}
	for i, f := range fields {
		if r[i].IsNull() && !f.Type.Nullable {
			return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "column '%s' cannot be null", f.Name)
		}
	}
	return nil
}

func indexOfRow(rows []sqltypes.Row, r sqltypes.Row) int {
	for i, cand := range rows {
		if sqltypes.RowEqual(cand, r) {
			return i
		}
	}
	return -1
}

// simpleFilter is a predicate on one column.
type simpleFilter struct {
	col  int
	kind rex.Kind
	lit  sqltypes.Value
}

func compileSimpleFilter(n rex.Node) (simpleFilter, bool) {
	call, ok := n.(*rex.Call)
	if !ok {
		return simpleFilter{}, false
	}
	kind := call.Kind()
	switch {
	case kind == rex.KindIsNull || kind == rex.KindIsNotNull:
		ref, ok := call.Operands[0].(*rex.InputRef)
		if !ok {
			return simpleFilter{}, false
		}
		return simpleFilter{col: ref.Index, kind: kind}, true
	case kind.IsComparison() && kind != rex.KindIsDistinctFrom && kind != rex.KindIsNotDistinctFrom:
		ref, refOK := call.Operands[0].(*rex.InputRef)
		lit, litOK := call.Operands[1].(*rex.Literal)
		if !refOK || !litOK {
			ref, refOK = call.Operands[1].(*rex.InputRef)
			lit, litOK = call.Operands[0].(*rex.Literal)
			kind = kind.Reverse()
		}
		if !refOK || !litOK {
			return simpleFilter{}, false
		}
		return simpleFilter{col: ref.Index, kind: kind, lit: lit.Value}, true
	}
	return simpleFilter{}, false
}

func (f simpleFilter) eval(row sqltypes.Row) bool {
	v := row[f.col]
	switch f.kind {
	case rex.KindIsNull:
		return v.IsNull()
	case rex.KindIsNotNull:
		return !v.IsNull()
	}
	if v.IsNull() || f.lit.IsNull() {
		return false
	}
	c, err := sqltypes.Compare(v, f.lit)
	if err != nil {
		return false
	}
	switch f.kind {
	case rex.KindEquals:
		return c == 0
	case rex.KindNotEquals:
		return c != 0
	case rex.KindLessThan:
		return c < 0
	case rex.KindLessThanOrEqual:
		return c <= 0
	case rex.KindGreaterThan:
		return c > 0
	case rex.KindGreaterThanOrEqual:
		return c >= 0
	}
	return false
}
