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
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// ModifyOperation is the kind of a TableModify.
type ModifyOperation int

const (
	OpInsert ModifyOperation = iota
	OpUpdate
	OpDelete
)

func (op ModifyOperation) String() string {
	switch op {
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	}
	return "INSERT"
}

// RowCountType is the row type of a TableModify.
var RowCountType = reltype.StructOf([]string{"ROWCOUNT"}, []*reltype.DataType{reltype.New(sqltypes.Int64, false)})

// TableModify writes its input to Table and returns the number of rows
// affected.
//
// For INSERT and DELETE the input has the table's row type. For UPDATE the
// input is the current row followed by one new value per UpdateColumns
// entry.
type TableModify struct {
	Base
	Table         catalog.Table
	Operation     ModifyOperation
	UpdateColumns []string
}

// NewTableModify builds a table modification.
func NewTableModify(table catalog.Table, input Node, op ModifyOperation, updateColumns []string) *TableModify {
	return NewTableModifyWith(LogicalTraits, table, input, op, updateColumns)
}

// NewTableModifyWith builds a table modification with explicit traits.
func NewTableModifyWith(traits TraitSet, table catalog.Table, input Node, op ModifyOperation, updateColumns []string) *TableModify {
	tableType := table.RowType()
	want := tableType.FieldCount()
	if op == OpUpdate {
		if len(updateColumns) == 0 {
			panic(invalidRel("TableModify: UPDATE without columns"))
		}
		for _, c := range updateColumns {
			if _, ok := tableType.FieldByName(c); !ok {
				panic(invalidRel("TableModify: unknown column %s", c))
			}
		}
		want += len(updateColumns)
	} else if len(updateColumns) > 0 {
		panic(invalidRel("TableModify: %s with update columns", op))
	}
	if got := input.RowType().FieldCount(); got != want {
		panic(invalidRel("TableModify: %s expects %d input columns, got %d", op, want, got))
	}
	return &TableModify{
		Base:          NewBase(traits, RowCountType, input),
		Table:         table,
		Operation:     op,
		UpdateColumns: updateColumns,
	}
}

func (m *TableModify) OpName() string { return "LogicalTableModify" }

func (m *TableModify) Copy(traits TraitSet, inputs []Node) Node {
	return NewTableModifyWith(traits, m.Table, inputs[0], m.Operation, m.UpdateColumns)
}

func (m *TableModify) ExplainTerms(t *Terms) {
	t.Input("input", m.Input(0)).
		Item("table", m.Table.QualifiedName()).
		Item("operation", m.Operation).
		ItemIf("updateColumnList", m.UpdateColumns, m.Operation == OpUpdate)
}

func (m *TableModify) EstimateRowCount(mq *MetadataQuery) float64 {
	return mq.RowCount(m.Input(0))
}
