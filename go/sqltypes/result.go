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

package sqltypes

import (
	"fmt"
	"slices"
	"strings"
)

// Row is a single row of values.
type Row = []Value

// Field describes one column of a Result.
type Field struct {
	Name string
	Type Type
}

// Result represents the rows produced by executing a plan, or the number of
// rows affected by a TableModify.
type Result struct {
	Fields       []*Field
	Rows         []Row
	RowsAffected uint64
}

// Copy creates a deep copy of Result.
func (result *Result) Copy() *Result {
	out := &Result{RowsAffected: result.RowsAffected}
	if result.Fields != nil {
		out.Fields = make([]*Field, len(result.Fields))
		for i, f := range result.Fields {
			fc := *f
			out.Fields[i] = &fc
		}
	}
	if result.Rows != nil {
		out.Rows = make([]Row, len(result.Rows))
		for i, r := range result.Rows {
			out.Rows[i] = slices.Clone(r)
		}
	}
	return out
}

// Equal compares the Result with another one, including row order.
func (result *Result) Equal(other *Result) bool {
	if result == nil || other == nil {
		return result == other
	}
	if result.RowsAffected != other.RowsAffected {
		return false
	}
	if !slices.EqualFunc(result.Fields, other.Fields, func(a, b *Field) bool { return *a == *b }) {
		return false
	}
	return slices.EqualFunc(result.Rows, other.Rows, RowEqual)
}

// RowEqual returns true if both rows hold equal values of equal types.
func RowEqual(a, b Row) bool {
	return slices.EqualFunc(a, b, Value.Equal)
}

// RowsEquivalent reports whether two row multisets hold the same rows,
// ignoring order. Values compare with NullsafeCompare, so 1 and 1.0 match.
func RowsEquivalent(a, b []Row) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, r := range a {
		counts[RowKey(r, nil)]++
	}
	for _, r := range b {
		k := RowKey(r, nil)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// SortRows sorts rows in place by all columns, NULLs first.
func SortRows(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		for i := range min(len(a), len(b)) {
			if c := NullsafeCompare(a[i], b[i]); c != 0 {
				return c
			}
		}
		return len(a) - len(b)
	})
}

// String returns a compact, human readable form of the rows. Used for test
// failure messages.
func (result *Result) String() string {
	var sb strings.Builder
	for i, f := range result.Fields {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%s:%s", f.Name, f.Type)
	}
	for _, r := range result.Rows {
		sb.WriteByte('\n')
		sb.WriteString(RowString(r))
	}
	return sb.String()
}

// RowString prints the row as pipe separated values.
func RowString(r Row) string {
	parts := make([]string, len(r))
	for i, v := range r {
		if v.IsNull() {
			parts[i] = "null"
		} else {
			parts[i] = v.ToString()
		}
	}
	return strings.Join(parts, "|")
}

// MakeTestFields builds a []*Field for testing.
//
//	fields := sqltypes.MakeTestFields(
//	  "a|b",
//	  "int64|varchar",
//	)
//
// The field types are as defined by ParseType.
func MakeTestFields(names, types string) []*Field {
	n := split(names)
	t := split(types)
	var fields []*Field
	for i := range n {
		typ, err := ParseType(t[i])
		if err != nil {
			panic(err)
		}
		fields = append(fields, &Field{Name: n[i], Type: typ})
	}
	return fields
}

// MakeTestResult builds a *Result object for testing.
//
//	result := sqltypes.MakeTestResult(
//	  fields,
//	  " 1|a",
//	  "10|abcd",
//	)
//
// The field type values are set as the types for the rows built. Spaces are
// trimmed from row values. "null" is treated as NULL.
func MakeTestResult(fields []*Field, rows ...string) *Result {
	result := &Result{
		Fields: fields,
	}
	if len(rows) > 0 {
		result.Rows = make([]Row, len(rows))
	}
	for i, row := range rows {
		result.Rows[i] = make(Row, len(fields))
		for j, col := range split(row) {
			result.Rows[i][j] = MustParse(fields[j].Type, strings.TrimSpace(col))
		}
	}
	result.RowsAffected = uint64(len(result.Rows))
	return result
}

// MakeTestRows is a convenience wrapper returning only the rows of
// MakeTestResult.
func MakeTestRows(fields []*Field, rows ...string) []Row {
	return MakeTestResult(fields, rows...).Rows
}

func split(str string) []string {
	return strings.Split(str, "|")
}
