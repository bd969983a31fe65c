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
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"relopt.io/relopt/go/rel/relerrors"
)

// Cast converts a Value to the target type. NULL casts to NULL and a cast to
// ANY returns v unchanged.
func Cast(v Value, typ Type) (Value, error) {
	if v.typ == typ || v.IsNull() || typ == Any {
		return v, nil
	}
	switch typ {
	case Null:
		return NULL, nil
	case Boolean:
		b, err := v.ToBool()
		if err != nil {
			return NULL, v.conversionError(typ)
		}
		return NewBoolean(b), nil
	case Int64:
		if v.typ == Float64 {
			// CAST rounds half away from zero.
			return castFloatToInt(v)
		}
		if v.typ == Decimal {
			var r apd.Decimal
			if _, err := roundCtx.RoundToIntegralValue(&r, v.d); err != nil {
				return NULL, err
			}
			i, err := r.Int64()
			if err != nil {
				return NULL, relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "value %s out of range for BIGINT", v.d.Text('f'))
			}
			return NewInt64(i), nil
		}
		if v.typ == Date || v.typ == Timestamp {
			return NULL, v.conversionError(typ)
		}
		i, err := v.ToInt64()
		if err != nil {
			return NULL, err
		}
		return NewInt64(i), nil
	case Float64:
		f, err := v.ToFloat64()
		if err != nil {
			return NULL, err
		}
		return NewFloat64(f), nil
	case Decimal:
		d, err := v.ToDecimal()
		if err != nil {
			return NULL, err
		}
		return Value{typ: Decimal, d: d}, nil
	case VarChar:
		return NewVarChar(v.ToString()), nil
	case Date:
		t, err := v.ToTime()
		if err != nil {
			return NULL, v.conversionError(typ)
		}
		return NewDate(t), nil
	case Timestamp:
		t, err := v.ToTime()
		if err != nil {
			return NULL, v.conversionError(typ)
		}
		return NewTimestamp(t), nil
	}
	return NULL, v.conversionError(typ)
}

var roundCtx = func() *apd.Context {
	c := *decCtx
	c.Rounding = apd.RoundHalfUp
	return &c
}()

func castFloatToInt(v Value) (Value, error) {
	r := math.Round(v.f)
	if math.IsNaN(r) || r >= math.MaxInt64 || r < math.MinInt64 {
		return NULL, relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "value %v out of range for BIGINT", v.f)
	}
	return NewInt64(int64(r)), nil
}

// ParseDate parses a 'YYYY-MM-DD' literal.
func ParseDate(s string) (Value, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot parse %q as DATE", s)
	}
	return NewDate(t), nil
}
