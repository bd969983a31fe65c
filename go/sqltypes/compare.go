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
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"relopt.io/relopt/go/rel/relerrors"
)

// NullsafeCompare returns 0 if v1 == v2, -1 if v1 < v2 and 1 if v1 > v2.
// NULL is smaller than any other value and equal to NULL. Numbers compare
// across numeric types. Values of unrelated types are ordered by type tag,
// which makes the function a total order suitable for sorting.
func NullsafeCompare(v1, v2 Value) int {
	if v1.IsNull() {
		if v2.IsNull() {
			return 0
		}
		return -1
	}
	if v2.IsNull() {
		return 1
	}
	c, err := Compare(v1, v2)
	if err != nil {
		return compareInt(int64(v1.typ), int64(v2.typ))
	}
	return c
}

// Compare compares two non-NULL values. It returns an error if the values
// are not comparable. NULL compares as in NullsafeCompare.
func Compare(v1, v2 Value) (int, error) {
	if v1.IsNull() || v2.IsNull() {
		return NullsafeCompare(v1, v2), nil
	}
	if v1.IsNumber() && v2.IsNumber() {
		return compareNumeric(v1, v2), nil
	}
	if v1.typ == v2.typ {
		switch v1.typ {
		case Boolean, Date, Timestamp:
			return compareInt(v1.i, v2.i), nil
		case VarChar:
			return strings.Compare(v1.s, v2.s), nil
		}
	}
	switch {
	case v1.typ == Date && v2.typ == Timestamp:
		return compareInt(v1.i*secondsPerDay*1e6, v2.i), nil
	case v1.typ == Timestamp && v2.typ == Date:
		return compareInt(v1.i, v2.i*secondsPerDay*1e6), nil
	}
	return 0, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot compare %s and %s", v1.typ, v2.typ)
}

func compareNumeric(v1, v2 Value) int {
	switch NumericResultType(v1.typ, v2.typ) {
	case Int64:
		return compareInt(v1.i, v2.i)
	case Float64:
		// Exact integer/float comparison for large integers.
		if v1.typ == Int64 && v2.typ == Float64 {
			return compareIntFloat(v1.i, v2.f)
		}
		if v1.typ == Float64 && v2.typ == Int64 {
			return -compareIntFloat(v2.i, v1.f)
		}
		f1, _ := v1.ToFloat64()
		f2, _ := v2.ToFloat64()
		return compareFloat(f1, f2)
	default:
		d1, err1 := v1.ToDecimal()
		d2, err2 := v2.ToDecimal()
		if err1 != nil || err2 != nil {
			f1, _ := v1.ToFloat64()
			f2, _ := v2.ToFloat64()
			return compareFloat(f1, f2)
		}
		return d1.Cmp(d2)
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	// NaN sorts after every number.
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	}
	return -1
}

func compareIntFloat(i int64, f float64) int {
	if math.IsNaN(f) {
		return -1
	}
	if f >= math.MaxInt64 {
		return -1
	}
	if f < math.MinInt64 {
		return 1
	}
	t := math.Trunc(f)
	if c := compareInt(i, int64(t)); c != 0 {
		return c
	}
	return compareFloat(0, f-t)
}

// HashKey returns a canonical encoding of v such that two values compare
// equal under NullsafeCompare if and only if their keys are equal.
func HashKey(v Value) string {
	var b []byte
	return string(appendHashKey(b, v))
}

func appendHashKey(b []byte, v Value) []byte {
	switch v.typ {
	case Null:
		return append(b, 'z')
	case Boolean:
		return strconv.AppendInt(append(b, 'b'), v.i, 10)
	case Int64:
		return strconv.AppendInt(append(b, 'n'), v.i, 10)
	case Float64:
		if t := math.Trunc(v.f); t == v.f && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return strconv.AppendInt(append(b, 'n'), int64(t), 10)
		}
		d, err := v.ToDecimal()
		if err != nil {
			return strconv.AppendFloat(append(b, 'f'), v.f, 'g', -1, 64)
		}
		return appendDecimalKey(b, d)
	case Decimal:
		return appendDecimalKey(b, v.d)
	case VarChar:
		return append(append(b, 's'), v.s...)
	case Date:
		return strconv.AppendInt(append(b, 't'), v.i*secondsPerDay*1e6, 10)
	case Timestamp:
		return strconv.AppendInt(append(b, 't'), v.i, 10)
	}
	return append(b, '?')
}

func appendDecimalKey(b []byte, d *apd.Decimal) []byte {
	var r apd.Decimal
	r.Reduce(d)
	if r.Exponent >= 0 {
		if i, err := r.Int64(); err == nil {
			return strconv.AppendInt(append(b, 'n'), i, 10)
		}
	}
	return append(append(b, 'n'), r.Text('f')...)
}

// RowKey returns a canonical encoding of the given columns of row, usable as
// a map key for grouping and hash joins. A nil cols encodes the whole row.
func RowKey(row Row, cols []int) string {
	var b []byte
	emit := func(v Value) {
		start := len(b)
		b = append(b, 0, 0, 0, 0)
		b = appendHashKey(b, v)
		n := len(b) - start - 4
		b[start], b[start+1], b[start+2], b[start+3] = byte(n>>24), byte(n>>16), byte(n>>8), byte(n)
	}
	if cols == nil {
		for _, v := range row {
			emit(v)
		}
	} else {
		for _, c := range cols {
			emit(row[c])
		}
	}
	return string(b)
}
