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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/relerrors"
)

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{
		"BIGINT":  Int64,
		"int64":   Int64,
		"Double":  Float64,
		"varchar": VarChar,
		"DECIMAL": Decimal,
		" date ":  Date,
	} {
		got, err := ParseType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseType("blob")
	require.Error(t, err)
}

func TestNullsafeCompare(t *testing.T) {
	tcases := []struct {
		v1, v2 Value
		out    int
	}{
		{NULL, NULL, 0},
		{NULL, NewInt64(1), -1},
		{NewInt64(1), NULL, 1},
		{NewInt64(1), NewInt64(2), -1},
		{NewInt64(2), NewFloat64(1.5), 1},
		{NewFloat64(2), NewInt64(2), 0},
		{MustParse(Decimal, "2.50"), NewFloat64(2.5), 0},
		{MustParse(Decimal, "2.5"), NewInt64(3), -1},
		{NewVarChar("abc"), NewVarChar("abd"), -1},
		{NewBoolean(false), NewBoolean(true), -1},
		{MustParse(Date, "2024-01-02"), MustParse(Timestamp, "2024-01-02 00:00:00"), 0},
		{NewInt64(math.MaxInt64), NewFloat64(math.MaxInt64), -1},
	}
	for _, tcase := range tcases {
		assert.Equal(t, tcase.out, NullsafeCompare(tcase.v1, tcase.v2), "%v <=> %v", tcase.v1, tcase.v2)
	}
}

func TestCompareIncomparable(t *testing.T) {
	_, err := Compare(NewVarChar("a"), NewInt64(1))
	require.Error(t, err)
	assert.Equal(t, relerrors.TypeMismatch, relerrors.ErrState(err))
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey(NewInt64(2)), HashKey(NewFloat64(2)))
	assert.Equal(t, HashKey(NewInt64(2)), HashKey(MustParse(Decimal, "2.000")))
	assert.Equal(t, HashKey(NewFloat64(1.5)), HashKey(MustParse(Decimal, "1.50")))
	assert.NotEqual(t, HashKey(NewVarChar("2")), HashKey(NewInt64(2)))
	assert.NotEqual(t, HashKey(NULL), HashKey(NewVarChar("")))

	r1 := Row{NewVarChar("a"), NewVarChar("bc")}
	r2 := Row{NewVarChar("ab"), NewVarChar("c")}
	assert.NotEqual(t, RowKey(r1, nil), RowKey(r2, nil))
	assert.Equal(t, RowKey(r1, []int{0}), RowKey(Row{NewInt64(1), NewVarChar("a")}, []int{1}))
}

func TestArithmetic(t *testing.T) {
	tcases := []struct {
		name string
		f    func(Value, Value) (Value, error)
		v1   Value
		v2   Value
		out  Value
	}{
		{"int add", Add, NewInt64(1), NewInt64(2), NewInt64(3)},
		{"int sub", Subtract, NewInt64(1), NewInt64(2), NewInt64(-1)},
		{"int div truncates", Divide, NewInt64(7), NewInt64(2), NewInt64(3)},
		{"int mod", Mod, NewInt64(-7), NewInt64(3), NewInt64(-1)},
		{"float promotes", Multiply, NewInt64(2), NewFloat64(1.5), NewFloat64(3)},
		{"decimal promotes", Add, NewInt64(1), MustParse(Decimal, "0.25"), MustParse(Decimal, "1.25")},
		{"decimal and float", Add, MustParse(Decimal, "0.5"), NewFloat64(0.25), NewFloat64(0.75)},
		{"null", Add, NULL, NewInt64(1), NULL},
	}
	for _, tcase := range tcases {
		t.Run(tcase.name, func(t *testing.T) {
			got, err := tcase.f(tcase.v1, tcase.v2)
			require.NoError(t, err)
			assert.Equal(t, tcase.out.Type(), got.Type())
			assert.Zero(t, NullsafeCompare(tcase.out, got), "got %v", got)
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	_, err := Add(NewInt64(math.MaxInt64), NewInt64(1))
	assert.Equal(t, relerrors.NumericOverflow, relerrors.ErrState(err))

	_, err = Multiply(NewInt64(math.MinInt64), NewInt64(-1))
	assert.Equal(t, relerrors.NumericOverflow, relerrors.ErrState(err))

	_, err = Divide(NewInt64(1), NewInt64(0))
	assert.Equal(t, relerrors.DivisionByZero, relerrors.ErrState(err))

	_, err = Divide(MustParse(Decimal, "1"), MustParse(Decimal, "0.0"))
	assert.Equal(t, relerrors.DivisionByZero, relerrors.ErrState(err))

	_, err = Add(NewVarChar("a"), NewInt64(1))
	assert.Equal(t, relerrors.TypeMismatch, relerrors.ErrState(err))

	v, err := Negate(NewInt64(3))
	require.NoError(t, err)
	assert.Equal(t, NewInt64(-3), v)
}

func TestCast(t *testing.T) {
	tcases := []struct {
		in  Value
		typ Type
		out string
	}{
		{NewFloat64(2.5), Int64, "3"},
		{NewFloat64(-2.5), Int64, "-3"},
		{MustParse(Decimal, "2.4"), Int64, "2"},
		{NewInt64(12), VarChar, "12"},
		{NewVarChar(" 42 "), Int64, "42"},
		{NewVarChar("1.25"), Decimal, "1.25"},
		{NewVarChar("true"), Boolean, "true"},
		{NewVarChar("2024-03-01"), Date, "2024-03-01"},
		{MustParse(Timestamp, "2024-03-01 10:11:12"), Date, "2024-03-01"},
		{MustParse(Date, "2024-03-01"), Timestamp, "2024-03-01 00:00:00"},
	}
	for _, tcase := range tcases {
		got, err := Cast(tcase.in, tcase.typ)
		require.NoError(t, err, "%v -> %s", tcase.in, tcase.typ)
		assert.Equal(t, tcase.typ, got.Type())
		assert.Equal(t, tcase.out, got.ToString())
	}

	v, err := Cast(NULL, Int64)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = Cast(NewVarChar("abc"), Int64)
	require.Error(t, err)
}

func TestValueFromGo(t *testing.T) {
	v, err := ValueFromGo(int(3))
	require.NoError(t, err)
	assert.Equal(t, NewInt64(3), v)

	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	v, err = ValueFromGo(ts)
	require.NoError(t, err)
	got, err := v.ToTime()
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	_, err = ValueFromGo(struct{}{})
	require.Error(t, err)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", NULL.String())
	assert.Equal(t, `"it's"`, NewVarChar("it's").String())
	assert.Equal(t, "TRUE", NewBoolean(true).String())
	assert.Equal(t, "DATE '2020-02-29'", MustParse(Date, "2020-02-29").String())
	assert.Equal(t, 1.5, NewFloat64(1.5).Raw())
	assert.Nil(t, NULL.Raw())
}
