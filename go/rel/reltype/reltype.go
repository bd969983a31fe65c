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

// Package reltype describes the types of columns and rows flowing between
// relational operators.
package reltype

import (
	"fmt"
	"strconv"
	"strings"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/sqltypes"
)

// Unspecified marks a precision or scale that was not given.
const Unspecified = -1

// DataType is the immutable type of a scalar column or, when Fields is
// non-nil, of a row.
type DataType struct {
	Name      sqltypes.Type
	Nullable  bool
	Precision int
	Scale     int
	Fields    []Field

	digest string
}

// Field is a named column of a row type.
type Field struct {
	Name  string
	Index int
	Type  *DataType
}

// New returns a scalar type without precision or scale.
func New(t sqltypes.Type, nullable bool) *DataType {
	return finish(&DataType{Name: t, Nullable: nullable || t == sqltypes.Null, Precision: Unspecified, Scale: Unspecified})
}

// NewWithPrecision returns a scalar type with the given precision and scale.
// For VARCHAR precision is the maximum length.
func NewWithPrecision(t sqltypes.Type, precision, scale int, nullable bool) *DataType {
	return finish(&DataType{Name: t, Nullable: nullable, Precision: precision, Scale: scale})
}

// Struct builds a row type. Field indexes are reassigned in order.
func Struct(fields ...Field) *DataType {
	fs := make([]Field, len(fields))
	for i, f := range fields {
		fs[i] = Field{Name: f.Name, Index: i, Type: f.Type}
	}
	return finish(&DataType{Name: sqltypes.Any, Precision: Unspecified, Scale: Unspecified, Fields: fs})
}

// StructOf builds a row type from parallel name and type lists.
func StructOf(names []string, types []*DataType) *DataType {
	if len(names) != len(types) {
		panic(fmt.Sprintf("reltype: %d names for %d types", len(names), len(types)))
	}
	fields := make([]Field, len(names))
	for i := range names {
		fields[i] = Field{Name: names[i], Type: types[i]}
	}
	return Struct(fields...)
}

// Empty is the row type with no columns.
var Empty = Struct()

func finish(t *DataType) *DataType {
	t.digest = t.computeDigest()
	return t
}

// IsStruct returns true for row types.
func (t *DataType) IsStruct() bool {
	return t.Fields != nil
}

// FieldCount returns the number of fields of a row type.
func (t *DataType) FieldCount() int {
	return len(t.Fields)
}

// FieldNames returns the names of the fields of a row type.
func (t *DataType) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldTypes returns the types of the fields of a row type.
func (t *DataType) FieldTypes() []*DataType {
	types := make([]*DataType, len(t.Fields))
	for i, f := range t.Fields {
		types[i] = f.Type
	}
	return types
}

// FieldByName looks up a field, case-insensitively.
func (t *DataType) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// WithNullable returns a copy of t with the given nullability. Row types
// apply it to every field.
func (t *DataType) WithNullable(nullable bool) *DataType {
	if t.IsStruct() {
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: f.Name, Type: f.Type.WithNullable(nullable)}
		}
		return Struct(fields...)
	}
	if t.Nullable == nullable {
		return t
	}
	if t.Name == sqltypes.Null {
		return t
	}
	c := *t
	c.Nullable = nullable
	return finish(&c)
}

// Digest returns a canonical string for the type, including field names.
func (t *DataType) Digest() string {
	return t.digest
}

func (t *DataType) String() string {
	return t.digest
}

func (t *DataType) computeDigest() string {
	if t.IsStruct() {
		var sb strings.Builder
		sb.WriteString("RecordType(")
		for i, f := range t.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Type.Digest())
			sb.WriteByte(' ')
			sb.WriteString(f.Name)
		}
		sb.WriteByte(')')
		return sb.String()
	}
	s := t.Name.String()
	switch {
	case t.Precision != Unspecified && t.Scale != Unspecified:
		s += "(" + strconv.Itoa(t.Precision) + ", " + strconv.Itoa(t.Scale) + ")"
	case t.Precision != Unspecified:
		s += "(" + strconv.Itoa(t.Precision) + ")"
	}
	if !t.Nullable {
		s += " NOT NULL"
	}
	return s
}

// Equal reports whether two types are identical, including field names.
func (t *DataType) Equal(o *DataType) bool {
	return t == o || (t != nil && o != nil && t.digest == o.digest)
}

// EqualSansNames reports whether two types are identical ignoring field
// names. Scalar types compare as in Equal.
func EqualSansNames(a, b *DataType) bool {
	if a.IsStruct() != b.IsStruct() {
		return false
	}
	if !a.IsStruct() {
		return a.Equal(b)
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if !EqualSansNames(a.Fields[i].Type, b.Fields[i].Type) {
			return false
		}
	}
	return true
}

// LeastRestrictive returns the narrowest type every input type can be
// converted to, or an error if there is none. The result is nullable if
// any input is.
func LeastRestrictive(types ...*DataType) (*DataType, error) {
	if len(types) == 0 {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "no types to unify")
	}
	if types[0].IsStruct() {
		return leastRestrictiveStruct(types)
	}
	nullable := false
	var result *DataType
	for _, t := range types {
		if t.IsStruct() {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot unify %s and %s", types[0], t)
		}
		nullable = nullable || t.Nullable
		if t.Name == sqltypes.Null {
			continue
		}
		if result == nil {
			result = t
			continue
		}
		next, err := unifyScalar(result, t)
		if err != nil {
			return nil, err
		}
		result = next
	}
	if result == nil {
		return New(sqltypes.Null, true), nil
	}
	return result.WithNullable(nullable), nil
}

func unifyScalar(a, b *DataType) (*DataType, error) {
	switch {
	case a.Name == b.Name:
		if a.Precision == b.Precision && a.Scale == b.Scale {
			return a, nil
		}
		if a.Name == sqltypes.Decimal {
			scale := max(a.Scale, b.Scale)
			intDigits := max(a.Precision-a.Scale, b.Precision-b.Scale)
			return NewWithPrecision(sqltypes.Decimal, intDigits+scale, scale, a.Nullable), nil
		}
		if a.Precision == Unspecified || b.Precision == Unspecified {
			return New(a.Name, a.Nullable), nil
		}
		return NewWithPrecision(a.Name, max(a.Precision, b.Precision), Unspecified, a.Nullable), nil
	case a.Name == sqltypes.Any || b.Name == sqltypes.Any:
		return New(sqltypes.Any, a.Nullable), nil
	case sqltypes.IsNumber(a.Name) && sqltypes.IsNumber(b.Name):
		t := sqltypes.NumericResultType(a.Name, b.Name)
		if t == a.Name {
			return a, nil
		}
		if t == b.Name {
			return b, nil
		}
		return New(t, a.Nullable), nil
	case sqltypes.IsTemporal(a.Name) && sqltypes.IsTemporal(b.Name):
		return New(sqltypes.Timestamp, a.Nullable), nil
	}
	return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot unify %s and %s", a, b)
}

func leastRestrictiveStruct(types []*DataType) (*DataType, error) {
	n := types[0].FieldCount()
	for _, t := range types[1:] {
		if !t.IsStruct() || t.FieldCount() != n {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot unify %s and %s", types[0], t)
		}
	}
	fields := make([]Field, n)
	column := make([]*DataType, len(types))
	for i := range n {
		for j, t := range types {
			column[j] = t.Fields[i].Type
		}
		ft, err := LeastRestrictive(column...)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Name: types[0].Fields[i].Name, Type: ft}
	}
	return Struct(fields...), nil
}

// JoinRowType concatenates the fields of left and right. Fields of a side
// that may be null-padded by an outer join become nullable. Duplicate names
// are made unique by appending a counter.
func JoinRowType(left, right *DataType, nullLeft, nullRight bool) *DataType {
	fields := make([]Field, 0, left.FieldCount()+right.FieldCount())
	seen := make(map[string]bool)
	add := func(f Field, nullable bool) {
		typ := f.Type
		if nullable {
			typ = typ.WithNullable(true)
		}
		fields = append(fields, Field{Name: UniqueName(f.Name, seen), Type: typ})
	}
	for _, f := range left.Fields {
		add(f, nullLeft)
	}
	for _, f := range right.Fields {
		add(f, nullRight)
	}
	return Struct(fields...)
}

// UniqueName returns name, or name suffixed with a counter if it is already
// in seen, and records the result in seen.
func UniqueName(name string, seen map[string]bool) string {
	candidate := name
	for i := 0; seen[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	seen[candidate] = true
	return candidate
}

// Parse reads a scalar type in the form produced by String, for example
// "DECIMAL(10, 2) NOT NULL" or "varchar".
func Parse(s string) (*DataType, error) {
	s = strings.TrimSpace(s)
	nullable := true
	if up := strings.ToUpper(s); strings.HasSuffix(up, " NOT NULL") {
		nullable = false
		s = strings.TrimSpace(s[:len(s)-len(" NOT NULL")])
	}
	precision, scale := Unspecified, Unspecified
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "malformed type %q", s)
		}
		args := strings.Split(s[open+1:len(s)-1], ",")
		var err error
		if precision, err = strconv.Atoi(strings.TrimSpace(args[0])); err != nil {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "malformed precision in %q", s)
		}
		if len(args) > 1 {
			if scale, err = strconv.Atoi(strings.TrimSpace(args[1])); err != nil {
				return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "malformed scale in %q", s)
			}
		}
		s = s[:open]
	}
	t, err := sqltypes.ParseType(s)
	if err != nil {
		return nil, err
	}
	return finish(&DataType{Name: t, Nullable: nullable || t == sqltypes.Null, Precision: precision, Scale: scale}), nil
}
