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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

var (
	nullableInt = reltype.New(sqltypes.Int64, true)
	nullableStr = reltype.New(sqltypes.VarChar, true)
	keyValType  = reltype.StructOf([]string{"k", "v"}, []*reltype.DataType{nullableInt, nullableStr})
	kvType      = reltype.StructOf([]string{"k", "n"}, []*reltype.DataType{nullableInt, nullableInt})
)

func values(rowType *reltype.DataType, rows ...[]any) *Values {
	tuples := make([][]*rex.Literal, len(rows))
	for i, row := range rows {
		tuples[i] = make([]*rex.Literal, len(row))
		for j, x := range row {
			v, err := sqltypes.ValueFromGo(x)
			if err != nil {
				panic(err)
			}
			tuples[i][j] = rex.NewLiteral(v, rowType.Fields[j].Type)
		}
	}
	return newValues(Traits, algebra.NewValues(rowType, tuples))
}

func collect(t *testing.T, n algebra.Node) []sqltypes.Row {
	t.Helper()
	p, err := Compile(n, FormatArray)
	require.NoError(t, err)
	res, err := p.Execute(datacontext.New(context.Background()))
	require.NoError(t, err)
	return res.Rows
}

func row(xs ...any) sqltypes.Row {
	r := make(sqltypes.Row, len(xs))
	for i, x := range xs {
		v, err := sqltypes.ValueFromGo(x)
		if err != nil {
			panic(err)
		}
		r[i] = v
	}
	return r
}

func TestMergeJoin(t *testing.T) {
	left := values(keyValType, []any{1, "a"}, []any{2, "b"}, []any{2, "c"}, []any{4, "d"}, []any{nil, "x"})
	right := values(keyValType, []any{2, "X"}, []any{2, "Y"}, []any{3, "Z"}, []any{4, "W"}, []any{nil, "N"})
	cond := rex.MustCall(rex.Equals, rex.NewInputRef(0, nullableInt), rex.NewInputRef(2, nullableInt))
	j := newMergeJoin(Traits.WithCollation(algebra.Collation{algebra.Asc(0)}), left, right, cond)
	assert.Equal(t, []sqltypes.Row{
		row(2, "b", 2, "X"), row(2, "b", 2, "Y"),
		row(2, "c", 2, "X"), row(2, "c", 2, "Y"),
		row(4, "d", 4, "W"),
	}, collect(t, j))
}

func TestMergeJoinCostIsLinear(t *testing.T) {
	left := values(keyValType, []any{1, "a"}, []any{2, "b"}, []any{3, "c"})
	right := values(keyValType, []any{1, "a"}, []any{2, "b"}, []any{3, "c"})
	cond := rex.MustCall(rex.Equals, rex.NewInputRef(0, nullableInt), rex.NewInputRef(2, nullableInt))
	mq := algebra.NewMetadataQuery()
	merge := newMergeJoin(Traits, left, right, cond).ComputeSelfCost(mq)
	loop := newNestedLoopJoin(Traits, left, right, cond, algebra.JoinInner).ComputeSelfCost(mq)
	assert.Less(t, merge.CPU, loop.CPU)
}

func TestSortedAggregate(t *testing.T) {
	input := values(kvType, []any{1, 10}, []any{1, 20}, []any{2, 5}, []any{3, nil})
	sum, err := algebra.NewAggregateCall(rex.Sum, false, []int{1}, -1, nil, kvType, false, "s")
	require.NoError(t, err)
	count, err := algebra.NewAggregateCall(rex.Count, false, nil, -1, nil, kvType, false, "c")
	require.NoError(t, err)
	a := newSortedAggregate(Traits.WithCollation(algebra.Collation{algebra.Asc(0)}), input, bitset.Build(0), []*algebra.AggregateCall{sum, count})
	assert.Equal(t, []sqltypes.Row{
		row(1, 30, 2),
		row(2, 5, 1),
		row(3, nil, 1),
	}, collect(t, a))
}

func TestEnforcedSort(t *testing.T) {
	input := values(keyValType, []any{2, "b"}, []any{nil, "n"}, []any{1, "a"}, []any{3, "c"})
	coll := algebra.Collation{algebra.FieldCollation{Field: 0, Direction: algebra.Descending}}
	s := Convention.Enforcer(input, Traits.WithCollation(coll))
	require.NotNil(t, s)
	assert.Equal(t, "EnumerableSort", s.OpName())
	assert.Equal(t, []sqltypes.Row{row(3, "c"), row(2, "b"), row(1, "a"), row(nil, "n")}, collect(t, s))
	assert.Nil(t, Convention.Enforcer(input, Traits))
}

func TestSortFetchParameter(t *testing.T) {
	input := values(keyValType, []any{2, "b"}, []any{1, "a"}, []any{3, "c"})
	fetch := rex.NewDynamicParam(0, reltype.New(sqltypes.Int64, false))
	s := newLimit(Traits, input, nil, fetch)
	p, err := Compile(s, FormatArray)
	require.NoError(t, err)

	res, err := p.Execute(datacontext.New(context.Background(), sqltypes.NewInt64(2)))
	require.NoError(t, err)
	assert.Equal(t, []sqltypes.Row{row(2, "b"), row(1, "a")}, res.Rows)

	_, err = p.Execute(datacontext.New(context.Background(), sqltypes.NewInt64(-1)))
	require.Error(t, err)
}

func TestRowFormats(t *testing.T) {
	r := row(1, "a")
	assert.Equal(t, map[string]sqltypes.Value{"k": r[0], "v": r[1]}, NewPhysType(keyValType, FormatCustom).Record(r))
	assert.Equal(t, []any{int64(1), "a"}, NewPhysType(keyValType, FormatList).Record(r))
	assert.Equal(t, FormatArray, NewPhysType(keyValType, FormatScalar).Format)

	single := reltype.StructOf([]string{"k"}, []*reltype.DataType{nullableInt})
	assert.Equal(t, r[0], NewPhysType(single, FormatScalar).Record(r[:1]))
}

func TestNullPolicy(t *testing.T) {
	assert.Equal(t, Strict, NullPolicyOf(rex.KindPlus))
	assert.Equal(t, SemiStrict, NullPolicyOf(rex.KindDivide))
	assert.Equal(t, None, NullPolicyOf(rex.KindIsNull))
	assert.Equal(t, None, NullPolicyOf(rex.KindCoalesce))
	assert.True(t, Strict.HoistsNullCheck())
	assert.True(t, Any.HoistsNullCheck())
	assert.False(t, And.HoistsNullCheck())
	assert.False(t, None.HoistsNullCheck())
}

func TestAggImplementors(t *testing.T) {
	add := func(impl AggImplementor, vals ...any) sqltypes.Value {
		var st AggState
		impl.Init(&st)
		for _, x := range vals {
			v, err := sqltypes.ValueFromGo(x)
			require.NoError(t, err)
			require.NoError(t, impl.Add(&st, []sqltypes.Value{v}))
		}
		v, err := impl.Result(&st)
		require.NoError(t, err)
		return v
	}
	impl := func(f *rex.AggFunction) AggImplementor {
		i, err := NewAggImplementor(f, nullableInt)
		require.NoError(t, err)
		return i
	}
	assert.Equal(t, sqltypes.NewInt64(2), add(impl(rex.Count), 1, nil, 3))
	assert.Equal(t, sqltypes.NewInt64(4), add(impl(rex.Sum), 1, nil, 3))
	assert.Equal(t, sqltypes.NULL, add(impl(rex.Sum)))
	assert.Equal(t, sqltypes.NewInt64(0), add(impl(rex.Sum0)))
	assert.Equal(t, sqltypes.NewInt64(1), add(impl(rex.Min), 3, 1, nil))
	assert.Equal(t, sqltypes.NewInt64(3), add(impl(rex.Max), 3, 1, nil))

	_, err := NewAggImplementor(rex.RowNumber, nullableInt)
	assert.Error(t, err)
}

func TestRulesMergeJoinOptional(t *testing.T) {
	assert.NotContains(t, Rules(false), MergeJoinRule)
	assert.Contains(t, Rules(true), MergeJoinRule)
}
