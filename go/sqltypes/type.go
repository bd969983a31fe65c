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

// Package sqltypes implements the runtime representation of SQL values used
// by the optimizer and the enumerable executor.
package sqltypes

import (
	"strings"

	"relopt.io/relopt/go/rel/relerrors"
)

// Type is the SQL type tag of a Value.
type Type int8

// The supported SQL types. Null is the type of the NULL literal.
const (
	Null Type = iota
	Boolean
	Int64
	Float64
	Decimal
	VarChar
	Date
	Timestamp
	Any
)

var typeNames = [...]string{
	Null:      "NULL",
	Boolean:   "BOOLEAN",
	Int64:     "BIGINT",
	Float64:   "DOUBLE",
	Decimal:   "DECIMAL",
	VarChar:   "VARCHAR",
	Date:      "DATE",
	Timestamp: "TIMESTAMP",
	Any:       "ANY",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

var typeAliases = map[string]Type{
	"null":      Null,
	"boolean":   Boolean,
	"bool":      Boolean,
	"bigint":    Int64,
	"int64":     Int64,
	"integer":   Int64,
	"int":       Int64,
	"double":    Float64,
	"float64":   Float64,
	"float":     Float64,
	"decimal":   Decimal,
	"numeric":   Decimal,
	"varchar":   VarChar,
	"char":      VarChar,
	"string":    VarChar,
	"date":      Date,
	"timestamp": Timestamp,
	"any":       Any,
}

// ParseType returns the Type named by s. Both SQL names (BIGINT) and Go-ish
// names (int64) are accepted, case insensitively.
func ParseType(s string) (Type, error) {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return Null, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "unknown type %q", s)
}

// IsNumber returns true if t is a numeric type.
func IsNumber(t Type) bool {
	return t == Int64 || t == Float64 || t == Decimal
}

// IsText returns true if t is a character type.
func IsText(t Type) bool {
	return t == VarChar
}

// IsTemporal returns true if t is a date or time type.
func IsTemporal(t Type) bool {
	return t == Date || t == Timestamp
}

// NumericResultType returns the type of an arithmetic operation between a and
// b. Promotion order is BIGINT < DECIMAL < DOUBLE.
func NumericResultType(a, b Type) Type {
	switch {
	case a == Float64 || b == Float64:
		return Float64
	case a == Decimal || b == Decimal:
		return Decimal
	default:
		return Int64
	}
}
