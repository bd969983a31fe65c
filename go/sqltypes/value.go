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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"relopt.io/relopt/go/rel/relerrors"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999"
	secondsPerDay   = 24 * 60 * 60
)

// Value is an immutable SQL value. The zero Value is NULL.
//
// Booleans, integers, dates (days since the epoch) and timestamps
// (microseconds since the epoch, UTC) are stored in i.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	d   *apd.Decimal
}

// NULL represents the NULL value.
var NULL = Value{}

// NewBoolean builds a BOOLEAN Value.
func NewBoolean(b bool) Value {
	if b {
		return Value{typ: Boolean, i: 1}
	}
	return Value{typ: Boolean}
}

// NewInt64 builds a BIGINT Value.
func NewInt64(v int64) Value {
	return Value{typ: Int64, i: v}
}

// NewFloat64 builds a DOUBLE Value.
func NewFloat64(v float64) Value {
	return Value{typ: Float64, f: v}
}

// NewDecimal builds a DECIMAL Value. d is copied.
func NewDecimal(d *apd.Decimal) Value {
	c := new(apd.Decimal).Set(d)
	return Value{typ: Decimal, d: c}
}

// NewDecimalFromString parses s as a DECIMAL Value.
func NewDecimalFromString(s string) (Value, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot parse %q as DECIMAL", s)
	}
	return Value{typ: Decimal, d: d}, nil
}

// NewVarChar builds a VARCHAR Value.
func NewVarChar(s string) Value {
	return Value{typ: VarChar, s: s}
}

// NewDate builds a DATE Value from the calendar day of t in UTC.
func NewDate(t time.Time) Value {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Value{typ: Date, i: day.Unix() / secondsPerDay}
}

// NewTimestamp builds a TIMESTAMP Value with microsecond precision.
func NewTimestamp(t time.Time) Value {
	return Value{typ: Timestamp, i: t.UTC().UnixMicro()}
}

// Type returns the type of v.
func (v Value) Type() Type {
	return v.typ
}

// IsNull returns true if v is NULL.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsNumber returns true if v holds a numeric value.
func (v Value) IsNumber() bool {
	return IsNumber(v.typ)
}

// ToBool returns the value as a bool.
func (v Value) ToBool() (bool, error) {
	switch v.typ {
	case Boolean, Int64:
		return v.i != 0, nil
	case VarChar:
		return strconv.ParseBool(strings.TrimSpace(v.s))
	}
	return false, v.conversionError(Boolean)
}

// ToInt64 returns the value as an int64. Fractional values are truncated.
func (v Value) ToInt64() (int64, error) {
	switch v.typ {
	case Int64, Boolean, Date, Timestamp:
		return v.i, nil
	case Float64:
		if math.IsNaN(v.f) || v.f >= math.MaxInt64 || v.f < math.MinInt64 {
			return 0, relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "value %v out of range for BIGINT", v.f)
		}
		return int64(v.f), nil
	case Decimal:
		var r apd.Decimal
		if _, err := truncCtx.RoundToIntegralValue(&r, v.d); err != nil {
			return 0, err
		}
		i, err := r.Int64()
		if err != nil {
			return 0, relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "value %s out of range for BIGINT", v.d.Text('f'))
		}
		return i, nil
	case VarChar:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, v.conversionError(Int64)
		}
		return i, nil
	}
	return 0, v.conversionError(Int64)
}

// ToFloat64 returns the value as a float64.
func (v Value) ToFloat64() (float64, error) {
	switch v.typ {
	case Int64:
		return float64(v.i), nil
	case Float64:
		return v.f, nil
	case Decimal:
		return v.d.Float64()
	case VarChar:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, v.conversionError(Float64)
		}
		return f, nil
	}
	return 0, v.conversionError(Float64)
}

// ToDecimal returns the value as a newly allocated decimal.
func (v Value) ToDecimal() (*apd.Decimal, error) {
	switch v.typ {
	case Int64:
		return apd.New(v.i, 0), nil
	case Float64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, v.conversionError(Decimal)
		}
		d, _, err := apd.NewFromString(strconv.FormatFloat(v.f, 'g', -1, 64))
		return d, err
	case Decimal:
		return new(apd.Decimal).Set(v.d), nil
	case VarChar:
		d, _, err := apd.NewFromString(strings.TrimSpace(v.s))
		if err != nil {
			return nil, v.conversionError(Decimal)
		}
		return d, nil
	}
	return nil, v.conversionError(Decimal)
}

// ToTime returns DATE and TIMESTAMP values as a time.Time in UTC.
func (v Value) ToTime() (time.Time, error) {
	switch v.typ {
	case Date:
		return time.Unix(v.i*secondsPerDay, 0).UTC(), nil
	case Timestamp:
		return time.UnixMicro(v.i).UTC(), nil
	case VarChar:
		if t, err := time.Parse(timestampLayout, strings.TrimSpace(v.s)); err == nil {
			return t, nil
		}
		if t, err := time.Parse(dateLayout, strings.TrimSpace(v.s)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, v.conversionError(Timestamp)
}

// ToString returns the value in its canonical text form. NULL is "".
func (v Value) ToString() string {
	switch v.typ {
	case Null:
		return ""
	case Boolean:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case Int64:
		return strconv.FormatInt(v.i, 10)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Decimal:
		return v.d.Text('f')
	case VarChar:
		return v.s
	case Date:
		return time.Unix(v.i*secondsPerDay, 0).UTC().Format(dateLayout)
	case Timestamp:
		return time.UnixMicro(v.i).UTC().Format(timestampLayout)
	}
	return ""
}

// String returns a printable version of the value, quoting strings, for use
// in digests and plan explanations.
func (v Value) String() string {
	switch v.typ {
	case Null:
		return "NULL"
	case Boolean:
		return strings.ToUpper(v.ToString())
	case VarChar:
		return strconv.Quote(v.s)
	case Date, Timestamp:
		return v.typ.String() + " '" + v.ToString() + "'"
	}
	return v.ToString()
}

// Raw returns the value as a native Go value suitable for JSON encoding:
// nil, bool, int64, float64 or string.
func (v Value) Raw() any {
	switch v.typ {
	case Null:
		return nil
	case Boolean:
		return v.i != 0
	case Int64:
		return v.i
	case Float64:
		return v.f
	}
	return v.ToString()
}

// Equal reports whether v and other have the same type and value.
func (v Value) Equal(other Value) bool {
	return v.typ == other.typ && NullsafeCompare(v, other) == 0
}

func (v Value) conversionError(to Type) error {
	return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot convert %s value %s to %s", v.typ, v.String(), to)
}

// ValueFromGo converts a native Go value into a Value. Integers become
// BIGINT, floats DOUBLE, strings VARCHAR, time.Time TIMESTAMP and
// *apd.Decimal DECIMAL.
func ValueFromGo(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return NULL, nil
	case Value:
		return x, nil
	case bool:
		return NewBoolean(x), nil
	case int:
		return NewInt64(int64(x)), nil
	case int32:
		return NewInt64(int64(x)), nil
	case int64:
		return NewInt64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return NULL, relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "value %d out of range for BIGINT", x)
		}
		return NewInt64(int64(x)), nil
	case float32:
		return NewFloat64(float64(x)), nil
	case float64:
		return NewFloat64(x), nil
	case string:
		return NewVarChar(x), nil
	case []byte:
		return NewVarChar(string(x)), nil
	case time.Time:
		return NewTimestamp(x), nil
	case *apd.Decimal:
		return NewDecimal(x), nil
	}
	return NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "unsupported Go value %T", x)
}

// ParseValue parses the text form of a value of type typ. The literal
// "null" (any case) yields NULL.
func ParseValue(typ Type, s string) (Value, error) {
	if strings.EqualFold(s, "null") {
		return NULL, nil
	}
	return Cast(NewVarChar(s), typ)
}

// MustParse is like ParseValue but panics on error. Used by tests and
// fixtures.
func MustParse(typ Type, s string) Value {
	v, err := ParseValue(typ, s)
	if err != nil {
		panic(fmt.Sprintf("MustParse(%s, %q): %s", typ, s, err))
	}
	return v
}
