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
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// RowFormat is how an operator hands rows to its consumer.
type RowFormat int

const (
	// FormatArray rows are positional value slices.
	FormatArray RowFormat = iota
	// FormatCustom rows are records keyed by field name.
	FormatCustom
	// FormatScalar rows of a single field are the bare value.
	FormatScalar
	// FormatList rows are lists of native Go values.
	FormatList
)

var rowFormatNames = [...]string{"ARRAY", "CUSTOM", "SCALAR", "LIST"}

func (f RowFormat) String() string { return rowFormatNames[f] }

// PhysType is the row type of an operator together with its row format.
type PhysType struct {
	RowType *reltype.DataType
	Format  RowFormat
}

// NewPhysType returns the physical type of rows of rowType, using prefer
// when it can represent them.
func NewPhysType(rowType *reltype.DataType, prefer RowFormat) PhysType {
	if prefer == FormatScalar && rowType.FieldCount() != 1 {
		prefer = FormatArray
	}
	return PhysType{RowType: rowType, Format: prefer}
}

func (p PhysType) String() string {
	return p.Format.String() + p.RowType.String()
}

// Record converts a row to the representation of the format.
func (p PhysType) Record(row sqltypes.Row) any {
	switch p.Format {
	case FormatScalar:
		return row[0]
	case FormatCustom:
		rec := make(map[string]sqltypes.Value, len(row))
		for i, f := range p.RowType.Fields {
			rec[f.Name] = row[i]
		}
		return rec
	case FormatList:
		list := make([]any, len(row))
		for i, v := range row {
			list[i] = v.Raw()
		}
		return list
	}
	return row
}
