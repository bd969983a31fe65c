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

package reltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/sqltypes"
)

var (
	bigint      = New(sqltypes.Int64, false)
	nullBigint  = New(sqltypes.Int64, true)
	varchar     = New(sqltypes.VarChar, true)
	double      = New(sqltypes.Float64, false)
	decimal10_2 = NewWithPrecision(sqltypes.Decimal, 10, 2, false)
)

func TestDigest(t *testing.T) {
	row := StructOf([]string{"id", "name", "price"}, []*DataType{bigint, varchar, decimal10_2})
	assert.Equal(t, "RecordType(BIGINT NOT NULL id, VARCHAR name, DECIMAL(10, 2) NOT NULL price)", row.Digest())
	assert.Equal(t, 3, row.FieldCount())

	f, ok := row.FieldByName("NAME")
	require.True(t, ok)
	assert.Equal(t, 1, f.Index)
	_, ok = row.FieldByName("missing")
	assert.False(t, ok)
}

func TestEqualSansNames(t *testing.T) {
	a := StructOf([]string{"a", "b"}, []*DataType{bigint, varchar})
	b := StructOf([]string{"x", "y"}, []*DataType{bigint, varchar})
	c := StructOf([]string{"a", "b"}, []*DataType{nullBigint, varchar})
	assert.True(t, EqualSansNames(a, b))
	assert.False(t, a.Equal(b))
	assert.False(t, EqualSansNames(a, c))
}

func TestLeastRestrictive(t *testing.T) {
	got, err := LeastRestrictive(bigint, double)
	require.NoError(t, err)
	assert.Equal(t, "DOUBLE NOT NULL", got.Digest())

	got, err = LeastRestrictive(bigint, New(sqltypes.Null, true))
	require.NoError(t, err)
	assert.Equal(t, "BIGINT", got.Digest())

	got, err = LeastRestrictive(decimal10_2, NewWithPrecision(sqltypes.Decimal, 5, 4, true))
	require.NoError(t, err)
	assert.Equal(t, "DECIMAL(12, 4)", got.Digest())

	_, err = LeastRestrictive(bigint, varchar)
	require.Error(t, err)

	r1 := StructOf([]string{"a"}, []*DataType{bigint})
	r2 := StructOf([]string{"b"}, []*DataType{nullBigint})
	got, err = LeastRestrictive(r1, r2)
	require.NoError(t, err)
	assert.Equal(t, "RecordType(BIGINT a)", got.Digest())
}

func TestJoinRowType(t *testing.T) {
	left := StructOf([]string{"id", "name"}, []*DataType{bigint, varchar})
	right := StructOf([]string{"id", "dept"}, []*DataType{bigint, varchar})
	got := JoinRowType(left, right, false, true)
	assert.Equal(t, []string{"id", "name", "id0", "dept"}, got.FieldNames())
	assert.False(t, got.Fields[0].Type.Nullable)
	assert.True(t, got.Fields[2].Type.Nullable)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"BIGINT NOT NULL", "VARCHAR", "DECIMAL(10, 2) NOT NULL", "VARCHAR(20)"} {
		typ, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, typ.Digest())
	}
	typ, err := Parse("int64 not null")
	require.NoError(t, err)
	assert.True(t, typ.Equal(bigint))

	_, err = Parse("DECIMAL(x)")
	require.Error(t, err)
}
