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
	"relopt.io/relopt/go/sqltypes"
)

// TableModify writes its input to a catalog.ModifiableTable and returns
// one row holding the number of rows affected.
type TableModify struct {
	*algebra.TableModify
}

var _ Node = (*TableModify)(nil)

func newTableModify(traits algebra.TraitSet, input algebra.Node, m *algebra.TableModify) *TableModify {
	return &TableModify{algebra.NewTableModifyWith(traits, m.Table, input, m.Operation, m.UpdateColumns)}
}

func (m *TableModify) OpName() string { return "EnumerableTableModify" }

func (m *TableModify) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newTableModify(traits, inputs[0], m.TableModify)
}

func (m *TableModify) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	name := strings.Join(m.Table.QualifiedName(), ".")
	table, ok := m.Table.(catalog.ModifiableTable)
	if !ok {
		return nil, relerrors.NewErrorf(relerrors.FailedPrecondition, relerrors.CodeGenFailure, "table %s is not modifiable", name)
	}
	child, err := imp.VisitChild(m, 0, FormatArray)
	if err != nil {
		return nil, err
	}
	b := imp.NewBlockBuilder()
	in := b.Append(child.Block)
	out := b.Declare("modify", "%s.%s(%s)", name, strings.ToLower(m.Operation.String()), in)

	tableType := m.Table.RowType()
	width := tableType.FieldCount()
	targets := make([]int, len(m.UpdateColumns))
	for i, c := range m.UpdateColumns {
		f, _ := tableType.FieldByName(c)
		targets[i] = f.Index
	}
	op := m.Operation
	src := func(env *Env) (linq.Enumerator, error) {
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		return materialized(input, func(rows []sqltypes.Row) ([]sqltypes.Row, error) {
			var n uint64
			var err error
			switch op {
			case algebra.OpInsert:
				n, err = table.Insert(rows)
			case algebra.OpDelete:
				n, err = table.Delete(rows)
			case algebra.OpUpdate:
				old := make([]sqltypes.Row, len(rows))
				updated := make([]sqltypes.Row, len(rows))
				for i, row := range rows {
					old[i] = row[:width]
					u := append(sqltypes.Row(nil), row[:width]...)
					for j, t := range targets {
						u[t] = row[width+j]
					}
					updated[i] = u
				}
				n, err = table.Update(old, updated)
			}
			if err != nil {
				return nil, err
			}
			return []sqltypes.Row{{sqltypes.NewInt64(int64(n))}}, nil
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(m.RowType(), prefer)}, nil
}
