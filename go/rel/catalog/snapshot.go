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
	"encoding/json"
	"slices"

	"sigs.k8s.io/yaml"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// Snapshot is the serialized form of a schema tree, in YAML or JSON:
//
//	schemas:
//	- name: hr
//	  tables:
//	  - name: emps
//	    columns:
//	    - {name: empid, type: BIGINT NOT NULL}
//	    - {name: name, type: VARCHAR}
//	    uniqueKeys: [[empid]]
//	    rows:
//	    - [100, Bill]
type Snapshot struct {
	Name    string          `json:"name,omitempty"`
	Tables  []TableSnapshot `json:"tables,omitempty"`
	Schemas []Snapshot      `json:"schemas,omitempty"`
}

// TableSnapshot describes one table.
type TableSnapshot struct {
	Name       string           `json:"name"`
	Columns    []ColumnSnapshot `json:"columns"`
	UniqueKeys [][]string       `json:"uniqueKeys,omitempty"`
	RowCount   *float64         `json:"rowCount,omitempty"`
	Rows       [][]any          `json:"rows,omitempty"`
}

// ColumnSnapshot describes one column; Type uses the DataType digest
// syntax, e.g. "DECIMAL(10, 2) NOT NULL".
type ColumnSnapshot struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func useNumber(d *json.Decoder) *json.Decoder {
	d.UseNumber()
	return d
}

// ParseSnapshot decodes a YAML or JSON snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s, useNumber); err != nil {
		return nil, relerrors.Wrap(err, "parse catalog snapshot")
	}
	return &s, nil
}

// Marshal encodes s as YAML.
func (s *Snapshot) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// Build creates the schema tree described by s.
func (s *Snapshot) Build() (*Schema, error) {
	root := NewSchema(s.Name)
	if err := s.buildInto(root, nil); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *Snapshot) buildInto(schema *Schema, path []string) error {
	for _, ts := range s.Tables {
		t, err := ts.build(append(slices.Clone(path), ts.Name))
		if err != nil {
			return err
		}
		schema.AddTable(ts.Name, t)
	}
	for _, sub := range s.Schemas {
		if err := sub.buildInto(schema.AddSubSchema(sub.Name), append(slices.Clone(path), sub.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (ts *TableSnapshot) build(name []string) (*MemTable, error) {
	names := make([]string, len(ts.Columns))
	types := make([]*reltype.DataType, len(ts.Columns))
	for i, c := range ts.Columns {
		t, err := reltype.Parse(c.Type)
		if err != nil {
			return nil, relerrors.Wrapf(err, "table %s column %s", ts.Name, c.Name)
		}
		names[i], types[i] = c.Name, t
	}
	rowType := reltype.StructOf(names, types)

	var keys []bitset.Bitset
	for _, k := range ts.UniqueKeys {
		var cols []int
		for _, col := range k {
			f, ok := rowType.FieldByName(col)
			if !ok {
				return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "table %s: unique key column '%s' not found", ts.Name, col)
			}
			cols = append(cols, f.Index)
		}
		keys = append(keys, bitset.Build(cols...))
	}

	rows := make([]sqltypes.Row, 0, len(ts.Rows))
	for ri, raw := range ts.Rows {
		if len(raw) != len(types) {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "table %s row %d: expected %d values, got %d", ts.Name, ri, len(types), len(raw))
		}
		row := make(sqltypes.Row, len(raw))
		for ci, x := range raw {
			v, err := snapshotValue(x, types[ci].Name)
			if err != nil {
				return nil, relerrors.Wrapf(err, "table %s row %d column %s", ts.Name, ri, names[ci])
			}
			row[ci] = v
		}
		rows = append(rows, row)
	}
	t := NewMemTable(name, rowType, rows, keys...)
	if err := t.validate(); err != nil {
		return nil, err
	}
	if ts.RowCount != nil {
		t.SetRowCount(*ts.RowCount)
	}
	return t, nil
}

func (t *MemTable) validate() error {
	for _, r := range t.rows {
		if err := t.checkRow(r); err != nil {
			return err
		}
	}
	return nil
}

func snapshotValue(x any, typ sqltypes.Type) (sqltypes.Value, error) {
	switch x := x.(type) {
	case nil:
		return sqltypes.NULL, nil
	case json.Number:
		return sqltypes.Cast(sqltypes.NewVarChar(x.String()), typ)
	case string:
		return sqltypes.Cast(sqltypes.NewVarChar(x), typ)
	}
	v, err := sqltypes.ValueFromGo(x)
	if err != nil {
		return sqltypes.NULL, err
	}
	return sqltypes.Cast(v, typ)
}

// SnapshotOf captures the tables of root. Only MemTables carry rows.
func SnapshotOf(root *Schema) *Snapshot {
	s := &Snapshot{Name: root.Name()}
	for _, name := range root.TableNames() {
		t, _ := root.Table(name)
		s.Tables = append(s.Tables, tableSnapshot(name, t))
	}
	for _, name := range root.SubSchemaNames() {
		sub, _ := root.SubSchema(name)
		s.Schemas = append(s.Schemas, *SnapshotOf(sub))
	}
	return s
}

func tableSnapshot(name string, t Table) TableSnapshot {
	rt := t.RowType()
	ts := TableSnapshot{Name: name}
	for _, f := range rt.Fields {
		ts.Columns = append(ts.Columns, ColumnSnapshot{Name: f.Name, Type: f.Type.Digest()})
	}
	stat := t.Statistic()
	for _, k := range stat.UniqueKeys {
		var cols []string
		k.ForEach(func(i int) {
			cols = append(cols, rt.Fields[i].Name)
		})
		ts.UniqueKeys = append(ts.UniqueKeys, cols)
	}
	mt, ok := t.(*MemTable)
	if !ok {
		rc := stat.RowCount
		ts.RowCount = &rc
		return ts
	}
	mt.mu.RLock()
	if mt.rowCount >= 0 {
		rc := mt.rowCount
		ts.RowCount = &rc
	}
	mt.mu.RUnlock()
	for _, r := range mt.Rows() {
		raw := make([]any, len(r))
		for i, v := range r {
			switch v.Type() {
			case sqltypes.Null, sqltypes.Boolean, sqltypes.Int64, sqltypes.Float64:
				raw[i] = v.Raw()
			default:
				raw[i] = v.ToString()
			}
		}
		ts.Rows = append(ts.Rows, raw)
	}
	return ts
}
