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

package algebra

import (
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// TableScan reads a table. Filters, when present, were pushed into a
// catalog.FilterableTable and reference the table's full row type.
// Projects, when non-nil, selects the returned columns.
type TableScan struct {
	Base
	Table    catalog.Table
	Filters  []rex.Node
	Projects []int
}

// NewTableScan scans all columns of table.
func NewTableScan(table catalog.Table) *TableScan {
	return NewTableScanWith(LogicalTraits, table, nil, nil)
}

// NewTableScanWith builds a scan with pushed filters and projection.
func NewTableScanWith(traits TraitSet, table catalog.Table, filters []rex.Node, projects []int) *TableScan {
	tableType := table.RowType()
	checkRefs("TableScan filter", filters, tableType)
	rowType := tableType
	if projects != nil {
		fields := make([]reltype.Field, len(projects))
		for i, p := range projects {
			if p < 0 || p >= tableType.FieldCount() {
				panic(invalidRel("TableScan: projected column %d out of range", p))
			}
			fields[i] = reltype.Field{Name: tableType.Fields[p].Name, Type: tableType.Fields[p].Type}
		}
		rowType = reltype.Struct(fields...)
	}
	return &TableScan{
		Base:     NewBase(traits, rowType),
		Table:    table,
		Filters:  filters,
		Projects: projects,
	}
}

func (s *TableScan) OpName() string { return "LogicalTableScan" }

func (s *TableScan) Copy(traits TraitSet, _ []Node) Node {
	return NewTableScanWith(traits, s.Table, s.Filters, s.Projects)
}

func (s *TableScan) ExplainTerms(t *Terms) {
	t.Item("table", s.Table.QualifiedName()).
		ItemIf("filters", s.Filters, len(s.Filters) > 0).
		ItemIf("projects", s.Projects, s.Projects != nil)
}

// ColumnMapping maps each output column to its table column.
func (s *TableScan) ColumnMapping() []int {
	if s.Projects != nil {
		return s.Projects
	}
	m := make([]int, s.Table.RowType().FieldCount())
	for i := range m {
		m[i] = i
	}
	return m
}

func (s *TableScan) EstimateRowCount(_ *MetadataQuery) float64 {
	return s.Table.Statistic().RowCount * GuessSelectivity(rex.AndOf(s.Filters...))
}

func (s *TableScan) AreColumnsUnique(_ *MetadataQuery, cols bitset.Bitset) bool {
	mapping := s.ColumnMapping()
	var tableCols []int
	cols.ForEach(func(c int) {
		tableCols = append(tableCols, mapping[c])
	})
	return s.Table.Statistic().IsKey(bitset.Build(tableCols...))
}

// Values is a relation of literal rows.
type Values struct {
	Base
	Tuples [][]*rex.Literal
}

// NewValues builds a Values of the given row type.
func NewValues(rowType *reltype.DataType, tuples [][]*rex.Literal) *Values {
	return NewValuesWith(LogicalTraits, rowType, tuples)
}

// NewEmptyValues builds a Values with no rows.
func NewEmptyValues(rowType *reltype.DataType) *Values {
	return NewValues(rowType, nil)
}

// NewValuesWith builds a Values with the given traits.
func NewValuesWith(traits TraitSet, rowType *reltype.DataType, tuples [][]*rex.Literal) *Values {
	for _, tuple := range tuples {
		if len(tuple) != rowType.FieldCount() {
			panic(invalidRel("Values: tuple has %d values, row type has %d fields", len(tuple), rowType.FieldCount()))
		}
		for i, lit := range tuple {
			if lit.IsNull() && !rowType.Fields[i].Type.Nullable {
				panic(invalidRel("Values: null in NOT NULL column %s", rowType.Fields[i].Name))
			}
		}
	}
	return &Values{Base: NewBase(traits, rowType), Tuples: tuples}
}

func (v *Values) OpName() string { return "LogicalValues" }

func (v *Values) Copy(traits TraitSet, _ []Node) Node {
	return NewValuesWith(traits, v.RowType(), v.Tuples)
}

func (v *Values) ExplainTerms(t *Terms) {
	t.Item("type", v.RowType()).Item("tuples", tuplesString(v.Tuples))
}

// IsEmpty reports whether v has no rows.
func (v *Values) IsEmpty() bool { return len(v.Tuples) == 0 }

// Rows returns the tuples as runtime rows.
func (v *Values) Rows() []sqltypes.Row {
	rows := make([]sqltypes.Row, len(v.Tuples))
	for i, tuple := range v.Tuples {
		row := make(sqltypes.Row, len(tuple))
		for j, lit := range tuple {
			row[j] = lit.Value
		}
		rows[i] = row
	}
	return rows
}

func tuplesString(tuples [][]*rex.Literal) string {
	s := "["
	for i, tuple := range tuples {
		if i > 0 {
			s += ", "
		}
		s += "{ "
		for j, lit := range tuple {
			if j > 0 {
				s += ", "
			}
			s += lit.Digest()
		}
		s += " }"
	}
	return s + "]"
}

func (v *Values) EstimateRowCount(_ *MetadataQuery) float64 {
	return float64(len(v.Tuples))
}

func (v *Values) AreColumnsUnique(_ *MetadataQuery, cols bitset.Bitset) bool {
	seen := make(map[string]bool, len(v.Tuples))
	keys := cols.Ordinals()
	for _, row := range v.Rows() {
		k := sqltypes.RowKey(row, keys)
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

func (v *Values) ConstantColumns(_ *MetadataQuery) map[int]rex.Node {
	if len(v.Tuples) == 0 {
		return nil
	}
	out := map[int]rex.Node{}
	for c := range v.RowType().FieldCount() {
		first := v.Tuples[0][c]
		same := true
		for _, tuple := range v.Tuples[1:] {
			if !tuple[c].Value.Equal(first.Value) {
				same = false
				break
			}
		}
		if same {
			out[c] = first
		}
	}
	return out
}

// checkRefs panics with an invalid relational expression error when an
// expression references a field outside rowType.
func checkRefs(what string, exprs []rex.Node, rowType *reltype.DataType) {
	n := rowType.FieldCount()
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if hi := rex.InputRefs(e).Max(); hi >= n {
			panic(invalidRel("%s: %s references field %d of %d", what, e, hi, n))
		}
	}
}
