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

package enumerable_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/enumerable"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/plan/volcano"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/sqltypes"
	"relopt.io/relopt/go/test/utils"
)

func TestMain(m *testing.M) {
	utils.VerifyTestMain(m)
}

func implement(t *testing.T, logical algebra.Node, mergeJoin bool) *enumerable.Plan {
	t.Helper()
	p := volcano.New()
	for _, r := range enumerable.Rules(mergeJoin) {
		p.AddRule(r)
	}
	p.SetRoot(p.ChangeTraits(logical, enumerable.Traits))
	best, err := p.FindBestExp()
	require.NoError(t, err)
	compiled, err := enumerable.Compile(best, enumerable.FormatArray)
	require.NoError(t, err)
	return compiled
}

func execute(t *testing.T, compiled *enumerable.Plan, params ...sqltypes.Value) []string {
	t.Helper()
	res, err := compiled.Execute(datacontext.New(context.Background(), params...))
	require.NoError(t, err)
	return utils.FormatRows(res.Rows)
}

// run implements logical with and without the merge join rule and checks
// that both plans return the same multiset of rows.
func run(t *testing.T, logical algebra.Node, params ...sqltypes.Value) []string {
	t.Helper()
	rows := execute(t, implement(t, logical, false), params...)
	assert.ElementsMatch(t, rows, execute(t, implement(t, logical, true), params...))
	return rows
}

type fixture struct {
	root  *catalog.Schema
	emps  *catalog.MemTable
	depts *catalog.MemTable
	nums  *catalog.MemTable
	empty *catalog.MemTable
}

func newFixture() *fixture {
	root := testcat.New()
	return &fixture{
		root:  root,
		emps:  testcat.Table(root, "hr", "emps"),
		depts: testcat.Table(root, "hr", "depts"),
		nums:  testcat.Table(root, "test", "nums"),
		empty: testcat.Table(root, "test", "empty"),
	}
}

func TestFilterProject(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Filter(b.Equals(b.Field(1), b.Literal(10)))
	b.Project([]rex.Node{b.Field(2), b.Call(rex.Plus, b.Field(0), b.Literal(1))}, "name", "next")
	assert.ElementsMatch(t, []string{`"Bill",101`, `"Sebastian",151`, `"Theodore",111`}, run(t, b.Build()))
}

func TestFilterParameter(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), rex.NewDynamicParam(0, b.Field(0).Type())))
	b.Project(b.FieldsOf(0))
	logical := b.Build()
	assert.ElementsMatch(t, []string{"200", "150"}, run(t, logical, sqltypes.NewInt64(120)))
	assert.Empty(t, run(t, logical, sqltypes.NewInt64(500)))
}

func joinNames(t *testing.T, f *fixture, jt algebra.JoinType) []string {
	t.Helper()
	b := relbuilder.New().Scan(f.emps).Scan(f.depts)
	b.Join(jt, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
	if jt.ProjectsRight() {
		b.Project(b.FieldsOf(2, 6))
	} else {
		b.Project(b.FieldsOf(2))
	}
	return run(t, b.Build())
}

func TestJoinTypes(t *testing.T) {
	f := newFixture()
	inner := []string{`"Bill","Sales"`, `"Eric","Marketing"`, `"Sebastian","Sales"`, `"Theodore","Sales"`}
	assert.ElementsMatch(t, inner, joinNames(t, f, algebra.JoinInner))
	assert.ElementsMatch(t, append(inner, `"Alice",NULL`), joinNames(t, f, algebra.JoinLeft))
	assert.ElementsMatch(t, append(inner, `NULL,"HR"`), joinNames(t, f, algebra.JoinRight))
	assert.ElementsMatch(t, append(inner, `"Alice",NULL`, `NULL,"HR"`), joinNames(t, f, algebra.JoinFull))
	assert.ElementsMatch(t, []string{`"Bill"`, `"Eric"`, `"Sebastian"`, `"Theodore"`}, joinNames(t, f, algebra.JoinSemi))
	assert.ElementsMatch(t, []string{`"Alice"`}, joinNames(t, f, algebra.JoinAnti))
}

func TestJoinNonEqui(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.depts).Scan(f.depts)
	b.Join(algebra.JoinLeft, b.Call(rex.LessThan, b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	b.Project(b.FieldsOf(0, 2))
	assert.ElementsMatch(t, []string{"10,20", "10,30", "20,30", "30,NULL"}, run(t, b.Build()))
}

func TestJoinResidual(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps).Scan(f.depts)
	b.Join(algebra.JoinLeft,
		b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)),
		b.Call(rex.GreaterThan, b.FieldOf(2, 0, 0), b.Literal(120)))
	b.Project(b.FieldsOf(0, 5))
	assert.ElementsMatch(t, []string{"100,NULL", "200,20", "150,10", "110,NULL", "120,NULL"}, run(t, b.Build()))
}

func TestJoinNullKeysNeverMatch(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.nums).Scan(f.nums)
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	b.Project(b.FieldsOf(0))
	assert.ElementsMatch(t, []string{"1", "2", "2", "2", "2", "3"}, run(t, b.Build()))
}

func TestCorrelate(t *testing.T) {
	f := newFixture()
	const cor = rex.CorrelationID(0)
	b := relbuilder.New().Scan(f.depts).Scan(f.emps)
	deptType := b.PeekN(1).RowType()
	b.Filter(b.Equals(b.Field(1), rex.NewFieldAccess(rex.NewCorrelVariable(cor, deptType), 0)))
	b.Correlate(algebra.JoinLeft, cor)
	b.Project(b.FieldsOf(1, 4))
	assert.ElementsMatch(t, []string{
		`"Sales","Bill"`, `"Sales","Sebastian"`, `"Sales","Theodore"`,
		`"Marketing","Eric"`, `"HR",NULL`,
	}, run(t, b.Build()))
}

func TestAggregate(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Aggregate([]rex.Node{b.Field(1)},
		b.Count(false, "c"),
		b.Sum("s", b.Field(0)),
		b.Agg(rex.Max, b.Field(2)).As("m"),
		b.Count(false, "comm", b.Field(4)))
	assert.ElementsMatch(t, []string{
		`10,3,360,"Theodore",2`,
		`20,1,200,"Eric",1`,
		`40,1,120,"Alice",0`,
	}, run(t, b.Build()))
}

func TestAggregateWithoutKeys(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.empty)
	b.Aggregate(nil, b.Count(false, "c"), b.Sum("s", b.Field(0)))
	assert.Equal(t, []string{"0,NULL"}, run(t, b.Build()))
}

func TestAggregateDistinctAndFilter(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.nums)
	b.Aggregate(nil,
		b.Count(true, "d", b.Field(0)),
		b.Count(false, "all", b.Field(0)),
		b.Count(false, "big").Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1))))
	assert.Equal(t, []string{"3,4,3"}, run(t, b.Build()))
}

func TestAggregateWithinGroup(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Aggregate([]rex.Node{b.Field(1)},
		b.Agg(rex.ListAgg, b.Field(2), b.Literal("|")).WithinGroup(algebra.Collation{algebra.Desc(0)}).As("names"))
	assert.ElementsMatch(t, []string{
		`10,"Sebastian|Theodore|Bill"`,
		`20,"Eric"`,
		`40,"Alice"`,
	}, run(t, b.Build()))
}

func TestSingleValueCardinality(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Aggregate(nil, b.Agg(rex.SingleValue, b.Field(0)).As("v"))
	_, err := implement(t, b.Build(), false).Execute(datacontext.New(context.Background()))
	require.Error(t, err)
	assert.Equal(t, relerrors.CardinalityViolation, relerrors.ErrState(err))
}

func TestSortLimit(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.SortLimit(1, 2, algebra.Desc(0))
	b.Project(b.FieldsOf(0))
	rows := execute(t, implement(t, b.Build(), false))
	assert.Equal(t, []string{"150", "120"}, rows)

	b = relbuilder.New().Scan(f.nums)
	b.Sort(algebra.FieldCollation{Field: 0, Direction: algebra.Descending, Nulls: algebra.NullsFirst}, algebra.Asc(1))
	assert.Equal(t, []string{`NULL,"c"`, `3,NULL`, `2,"b"`, `2,"b"`, `1,"a"`}, execute(t, implement(t, b.Build(), false)))
}

func TestLimitOnly(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.nums)
	b.Limit(3, -1)
	assert.Len(t, run(t, b.Build()), 2)
}

func TestSetOps(t *testing.T) {
	f := newFixture()
	nums := func(b *relbuilder.Builder) *relbuilder.Builder {
		b.Scan(f.nums)
		return b.Project(b.FieldsOf(0))
	}
	pair := func(op func(b *relbuilder.Builder) *relbuilder.Builder) []string {
		b := relbuilder.New()
		nums(b)
		b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1)))
		nums(b)
		return run(t, op(b).Build())
	}
	assert.ElementsMatch(t, []string{"2", "2", "3", "1", "2", "2", "3", "NULL"},
		pair(func(b *relbuilder.Builder) *relbuilder.Builder { return b.Union(true, 2) }))
	assert.ElementsMatch(t, []string{"1", "2", "3", "NULL"},
		pair(func(b *relbuilder.Builder) *relbuilder.Builder { return b.Union(false, 2) }))
	assert.ElementsMatch(t, []string{"2", "2", "3"},
		pair(func(b *relbuilder.Builder) *relbuilder.Builder { return b.Intersect(true, 2) }))
	assert.ElementsMatch(t, []string{"2", "3"},
		pair(func(b *relbuilder.Builder) *relbuilder.Builder { return b.Intersect(false, 2) }))

	b := relbuilder.New()
	nums(b)
	nums(b)
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1)))
	assert.ElementsMatch(t, []string{"1", "NULL"}, run(t, b.Minus(false, 2).Build()))

	b = relbuilder.New()
	nums(b)
	nums(b)
	b.Filter(b.Equals(b.Field(0), b.Literal(2)))
	b.Limit(0, 1)
	assert.ElementsMatch(t, []string{"1", "2", "3", "NULL"}, run(t, b.Minus(true, 2).Build()))
}

func TestWindow(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Project(b.FieldsOf(0, 1))
	b.Window(algebra.WindowGroup{
		Keys:   bitset.Build(1),
		Order:  algebra.Collation{algebra.Asc(0)},
		IsRows: true,
		Lower:  algebra.WindowBound{Kind: algebra.UnboundedPreceding},
		Upper:  algebra.WindowBound{Kind: algebra.CurrentRow},
		Calls: []algebra.WindowCall{
			{Func: rex.RowNumber, Name: "rn"},
			{Func: rex.Sum, Args: []int{0}, Name: "running"},
		},
	})
	assert.ElementsMatch(t, []string{
		"100,10,1,100", "110,10,2,210", "150,10,3,360",
		"200,20,1,200",
		"120,40,1,120",
	}, run(t, b.Build()))
}

func TestWindowRank(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.emps)
	b.Project(b.FieldsOf(1))
	b.Window(algebra.WindowGroup{
		Order: algebra.Collation{algebra.Asc(0)},
		Lower: algebra.WindowBound{Kind: algebra.UnboundedPreceding},
		Upper: algebra.WindowBound{Kind: algebra.CurrentRow},
		Calls: []algebra.WindowCall{
			{Func: rex.Rank, Name: "r"},
			{Func: rex.DenseRank, Name: "dr"},
			{Func: rex.Count, Name: "c"},
		},
	})
	assert.ElementsMatch(t, []string{
		"10,1,1,3", "10,1,1,3", "10,1,1,3",
		"20,4,2,4",
		"40,5,3,5",
	}, run(t, b.Build()))
}

func TestTableModify(t *testing.T) {
	f := newFixture()
	b := relbuilder.New()
	b.Values(f.empty.RowType(), []any{1}, []any{2}, []any{3})
	b.Modify(f.empty, algebra.OpInsert)
	assert.Equal(t, []string{"3"}, execute(t, implement(t, b.Build(), false)))
	assert.Equal(t, []string{"1", "2", "3"}, utils.FormatRows(f.empty.Rows()))

	b = relbuilder.New().Scan(f.empty)
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1)))
	b.ProjectPlus(b.Call(rex.Multiply, b.Field(0), b.Literal(10)))
	b.Modify(f.empty, algebra.OpUpdate, "x")
	assert.Equal(t, []string{"2"}, execute(t, implement(t, b.Build(), false)))
	assert.ElementsMatch(t, []string{"1", "20", "30"}, utils.FormatRows(f.empty.Rows()))

	b = relbuilder.New().Scan(f.empty)
	b.Filter(b.Equals(b.Field(0), b.Literal(20)))
	b.Modify(f.empty, algebra.OpDelete)
	assert.Equal(t, []string{"1"}, execute(t, implement(t, b.Build(), false)))
	assert.ElementsMatch(t, []string{"1", "30"}, utils.FormatRows(f.empty.Rows()))
}

func TestCompileLogicalPlanFails(t *testing.T) {
	f := newFixture()
	_, err := enumerable.Compile(algebra.NewTableScan(f.emps), enumerable.FormatArray)
	require.Error(t, err)
	var ce *enumerable.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, relerrors.ConventionMismatch, relerrors.ErrState(err))
}

func TestPlanFieldsAndRecords(t *testing.T) {
	f := newFixture()
	b := relbuilder.New().Scan(f.depts)
	b.Filter(b.Equals(b.Field(0), b.Literal(20)))
	compiled := implement(t, b.Build(), false)
	fields := compiled.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "deptno", fields[0].Name)
	assert.Equal(t, sqltypes.VarChar, fields[1].Type)
	assert.NotEmpty(t, compiled.Listing())

	recs, err := compiled.Records(datacontext.New(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []any{sqltypes.Row{sqltypes.NewInt64(20), sqltypes.NewVarChar("Marketing")}}, recs)
}

func TestBindCanceled(t *testing.T) {
	f := newFixture()
	compiled := implement(t, relbuilder.New().Scan(f.emps).Build(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := compiled.Bind(datacontext.New(ctx))
	require.NoError(t, err)
	_, err = linq.ToRows(e)
	require.ErrorIs(t, err, context.Canceled)
}
