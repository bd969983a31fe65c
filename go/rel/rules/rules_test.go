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

package rules_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/enumerable"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/plan/hep"
	"relopt.io/relopt/go/rel/plan/volcano"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/rel/rules"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/test/utils"
)

var root = testcat.New()

func scan(path ...string) *relbuilder.Builder {
	return relbuilder.New().Scan(testcat.Table(root, path...))
}

func emps() *relbuilder.Builder { return scan("hr", "emps") }

// rewrite applies r to n at most limit times.
func rewrite(t *testing.T, n algebra.Node, limit int, rs ...plan.Rule) (algebra.Node, int) {
	t.Helper()
	p := hep.New(hep.ProgramOf(hep.Arbitrary, rs...),
		hep.WithMatchLimit(limit),
		hep.WithExecutor(enumerable.NewRexExecutor(nil)))
	p.SetRoot(n)
	out, err := p.FindBestExp()
	require.NoError(t, err)
	return out, p.Transformations()
}

// results implements n with the enumerable backend and returns its rows,
// one string per row.
func results(t *testing.T, n algebra.Node) []string {
	t.Helper()
	p := volcano.New()
	for _, r := range enumerable.Rules(false) {
		p.AddRule(r)
	}
	p.SetRoot(p.ChangeTraits(n, enumerable.Traits))
	best, err := p.FindBestExp()
	require.NoError(t, err, algebra.Explain(n, algebra.ExplainAttributes))
	compiled, err := enumerable.Compile(best, enumerable.FormatArray)
	require.NoError(t, err)
	e, err := compiled.Bind(datacontext.New(context.Background()))
	require.NoError(t, err)
	rows, err := linq.ToRows(e)
	require.NoError(t, err)
	return utils.FormatRows(rows)
}

// check applies r to before until it no longer matches, requires at least
// one rewrite, and compares the rows of both plans.
func check(t *testing.T, before algebra.Node, rs ...plan.Rule) algebra.Node {
	t.Helper()
	return checkLimit(t, before, hep.Unlimited, rs...)
}

func checkLimit(t *testing.T, before algebra.Node, limit int, rs ...plan.Rule) algebra.Node {
	t.Helper()
	after, n := rewrite(t, before, limit, rs...)
	require.Positive(t, n, "no rewrite of\n%s", algebra.Explain(before, algebra.ExplainAttributes))
	assert.True(t, reltype.EqualSansNames(before.RowType(), after.RowType()))
	want, got := results(t, before), results(t, after)
	if diff := utils.RowsDiff(want, got); diff != "" {
		t.Errorf("rows differ after rewrite (-before +after):\n%s\nplan:\n%s", diff, algebra.Explain(after, algebra.ExplainAttributes))
	}
	return after
}

func explain(n algebra.Node) string {
	return algebra.Explain(n, algebra.ExplainAttributes)
}

func TestFilterMerge(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(100)))
	b.Filter(b.Equals(b.Field(1), b.Literal(10)))
	after := check(t, b.Build(), rules.FilterMerge())

	f, ok := after.(*algebra.Filter)
	require.True(t, ok, explain(after))
	assert.IsType(t, &algebra.TableScan{}, f.Input(0))
	assert.Len(t, rex.Conjunctions(f.Condition), 2)
}

func TestProjectMergeIsIdempotent(t *testing.T) {
	b := emps()
	b.Project([]rex.Node{b.Field(0), b.Call(rex.Plus, b.Field(1), b.Literal(1))}, "a", "b")
	b.Project([]rex.Node{b.Call(rex.Multiply, b.Field(1), b.Literal(2)), b.Field(0)}, "c", "d")
	once := check(t, b.Build(), rules.ProjectMerge())
	twice, n := rewrite(t, once, hep.Unlimited, rules.ProjectMerge())
	assert.Zero(t, n)
	assert.Equal(t, algebra.Digest(once), algebra.Digest(twice))
}

func TestProjectRemove(t *testing.T) {
	b := emps()
	b.ProjectForce(b.Fields())
	after := check(t, b.Build(), rules.ProjectRemove())
	assert.IsType(t, &algebra.TableScan{}, after)
}

func TestFilterProjectTranspose(t *testing.T) {
	b := emps()
	b.Project([]rex.Node{b.Call(rex.Plus, b.Field(0), b.Field(1)), b.Field(2)}, "s", "name")
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(150)))
	after := check(t, b.Build(), rules.FilterProjectTranspose())
	assert.IsType(t, &algebra.Project{}, after)
}

func TestFilterIntoJoin(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Literal(true))
	b.Filter(
		b.Equals(b.Field(1), b.Field(5)),
		b.Call(rex.GreaterThan, b.Field(0), b.Literal(110)))
	after := check(t, b.Build(), rules.FilterIntoJoin())
	_, isFilter := after.(*algebra.Filter)
	assert.False(t, isFilter, explain(after))
}

func TestJoinConditionPush(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinLeft,
		b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)),
		b.Call(rex.GreaterThan, b.FieldOf(2, 1, 0), b.Literal(10)))
	check(t, b.Build(), rules.JoinConditionPush())
}

func TestFilterAggregateTranspose(t *testing.T) {
	b := emps()
	b.Aggregate([]rex.Node{b.Field(1)}, b.Count(false, "c"))
	b.Filter(
		b.Call(rex.LessThan, b.Field(0), b.Literal(30)),
		b.Call(rex.GreaterThan, b.Field(1), b.Literal(1)))
	after := check(t, b.Build(), rules.FilterAggregateTranspose())
	f, ok := after.(*algebra.Filter)
	require.True(t, ok, explain(after))
	assert.IsType(t, &algebra.Aggregate{}, f.Input(0))
}

func TestFilterSetOpTranspose(t *testing.T) {
	b := scan("test", "nums")
	nums := b.Build()
	b.Push(nums).Push(nums).Union(true, 2)
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1)))
	after := check(t, b.Build(), rules.FilterSetOpTranspose())
	assert.IsType(t, &algebra.Union{}, after)
}

func TestFilterTableScan(t *testing.T) {
	b := emps()
	b.Filter(b.Equals(b.Field(1), b.Literal(10)))
	after := check(t, b.Build(), rules.FilterTableScan())
	ts, ok := after.(*algebra.TableScan)
	require.True(t, ok, explain(after))
	assert.Len(t, ts.Filters, 1)
}

func TestProjectTableScan(t *testing.T) {
	b := emps()
	b.Project([]rex.Node{b.Field(2), b.Call(rex.Plus, b.Field(0), b.Literal(1))})
	after := check(t, b.Build(), rules.ProjectTableScan())
	require.IsType(t, &algebra.Project{}, after)
	assert.Equal(t, []int{0, 2}, after.Inputs()[0].(*algebra.TableScan).Projects)
}

func TestAggregateProjectMerge(t *testing.T) {
	b := emps()
	b.Project(b.FieldsOf(1, 0))
	b.Aggregate([]rex.Node{b.Field(0)}, b.Sum("s", b.Field(1)))
	after := check(t, b.Build(), rules.AggregateProjectMerge())
	algebra.Walk(after, func(n algebra.Node) bool {
		if a, ok := n.(*algebra.Aggregate); ok {
			assert.IsType(t, &algebra.TableScan{}, a.Input(0))
		}
		return true
	})
}

func TestAggregateRemoveOverUniqueInput(t *testing.T) {
	b := emps()
	b.Aggregate([]rex.Node{b.Field(0)},
		b.Count(false, "c"),
		b.Agg(rex.Max, b.Field(2)).As("m"),
		b.Count(false, "comm", b.Field(4)))
	after := check(t, b.Build(), rules.AggregateRemove())
	algebra.Walk(after, func(n algebra.Node) bool {
		assert.NotEqual(t, "LogicalAggregate", n.OpName())
		return true
	})
}

func TestAggregateReduceFunctions(t *testing.T) {
	b := emps()
	b.Aggregate([]rex.Node{b.Field(1)}, b.Agg(rex.Avg, b.Field(0)).As("a"), b.Count(false, "c"))
	check(t, b.Build(), rules.AggregateReduceFunctions())

	b = scan("test", "empty")
	b.Aggregate(nil, b.Agg(rex.Avg, b.Field(0)).As("a"))
	check(t, b.Build(), rules.AggregateReduceFunctions())
}

func TestUnionMerge(t *testing.T) {
	b := scan("test", "nums")
	n := b.Build()
	b.Push(n).Push(n).Union(true, 2).Push(n).Union(true, 2)
	after := check(t, b.Build(), rules.UnionMerge())
	assert.Len(t, after.Inputs(), 3)

	b.Push(n).Push(n).Push(n).Union(false, 2).Union(false, 2)
	after = check(t, b.Build(), rules.UnionMergeRight())
	assert.Len(t, after.Inputs(), 3)
}

func TestUnionPullUpConstants(t *testing.T) {
	b := scan("test", "nums")
	b.ProjectPlus(b.Literal(7))
	b.Scan(testcat.Table(root, "test", "nums"))
	b.ProjectPlus(b.Literal(7))
	b.Union(false, 2)
	check(t, b.Build(), rules.UnionPullUpConstants())
}

func TestUnionIntersectMinusToDistinct(t *testing.T) {
	nums := func(b *relbuilder.Builder) {
		b.Scan(testcat.Table(root, "test", "nums"))
		b.Project(b.FieldsOf(0))
	}
	big := func(b *relbuilder.Builder) {
		nums(b)
		b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(1)))
	}
	b := relbuilder.New()
	nums(b)
	big(b)
	check(t, b.Union(false, 2).Build(), rules.UnionToDistinct())

	b = relbuilder.New()
	nums(b)
	big(b)
	check(t, b.Intersect(false, 2).Build(), rules.IntersectToDistinct())

	b = relbuilder.New()
	nums(b)
	big(b)
	check(t, b.Minus(false, 2).Build(), rules.MinusToDistinct())
}

func TestSortRemove(t *testing.T) {
	b := emps()
	b.Sort(algebra.Asc(0))
	b.Sort(algebra.Asc(0))
	after := check(t, b.Build(), rules.SortRemove())
	s, ok := after.(*algebra.Sort)
	require.True(t, ok, explain(after))
	assert.IsType(t, &algebra.TableScan{}, s.Input(0))
}

func TestSortProjectTranspose(t *testing.T) {
	b := emps()
	b.Project(b.FieldsOf(2, 0))
	b.Sort(algebra.Desc(1))
	after := checkLimit(t, b.Build(), 1, rules.SortProjectTranspose())
	assert.IsType(t, &algebra.Project{}, after)
}

func TestJoinCommuteRestoresFieldOrder(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
	after := checkLimit(t, b.Build(), 1, rules.JoinCommute(false))
	p, ok := after.(*algebra.Project)
	require.True(t, ok, explain(after))
	assert.Equal(t, "hr.depts", strings.Join(p.Input(0).Inputs()[0].(*algebra.TableScan).Table.QualifiedName(), "."))
}

func TestJoinCommuteOuter(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinLeft, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
	join := b.Build()
	_, n := rewrite(t, join, 1, rules.JoinCommute(false))
	assert.Zero(t, n)
	checkLimit(t, join, 1, rules.JoinCommute(true))
}

func TestJoinAssociate(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
	b.Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 5), b.FieldOf(2, 1, 0)))
	checkLimit(t, b.Build(), 1, rules.JoinAssociate())
}

func TestJoinProjectTranspose(t *testing.T) {
	b := emps()
	b.Project(b.FieldsOf(1, 2))
	b.Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	checkLimit(t, b.Build(), 1, rules.JoinProjectTransposeLeft())

	b = scan("hr", "depts")
	b.Scan(testcat.Table(root, "hr", "emps"))
	b.Project(b.FieldsOf(1, 2))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	checkLimit(t, b.Build(), 1, rules.JoinProjectTransposeRight())
}

func TestSemiJoin(t *testing.T) {
	b := scan("hr", "depts")
	b.Scan(testcat.Table(root, "hr", "emps"))
	b.Aggregate([]rex.Node{b.Field(1)})
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	b.Project(b.FieldsOf(1))
	after := check(t, b.Build(), rules.SemiJoin())
	found := false
	algebra.Walk(after, func(n algebra.Node) bool {
		if j, ok := n.(*algebra.Join); ok && j.JoinType == algebra.JoinSemi {
			found = true
		}
		return true
	})
	assert.True(t, found, explain(after))
}

func TestJoinToCorrelate(t *testing.T) {
	b := scan("hr", "depts")
	b.Scan(testcat.Table(root, "hr", "emps"))
	b.Join(algebra.JoinLeft, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 1)))
	after := checkLimit(t, b.Build(), 1, rules.JoinToCorrelate())
	assert.IsType(t, &algebra.Correlate{}, after)
}

func TestReduceExpressions(t *testing.T) {
	b := emps()
	b.Filter(b.Equals(b.Call(rex.Plus, b.Literal(1), b.Literal(1)), b.Literal(2)))
	after := check(t, b.Build(), rules.ReduceExpressionsFilter())
	assert.IsType(t, &algebra.TableScan{}, after)

	b = emps()
	b.Project([]rex.Node{b.Field(0), b.Call(rex.Multiply, b.Literal(6), b.Literal(7))}, "id", "answer")
	after = check(t, b.Build(), rules.ReduceExpressionsProject())
	lit, ok := after.(*algebra.Project).Exprs[1].(*rex.Literal)
	require.True(t, ok, explain(after))
	assert.Equal(t, "42", lit.Value.ToString())
}

func TestReduceExpressionsFalseEmpties(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Literal(1), b.Literal(2)))
	after, n := rewrite(t, b.Build(), hep.Unlimited, rules.ReduceExpressionsFilter())
	require.Positive(t, n)
	v, ok := after.(*algebra.Values)
	require.True(t, ok, explain(after))
	assert.True(t, v.IsEmpty())
}

func TestValuesReduce(t *testing.T) {
	rowType := testcat.Table(root, "test", "empty").RowType()
	b := relbuilder.New().Values(rowType, []any{1}, []any{5}, []any{9})
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(3)))
	after := check(t, b.Build(), rules.ValuesReduceFilter())
	assert.Len(t, after.(*algebra.Values).Tuples, 2)

	b = relbuilder.New().Values(rowType, []any{1}, []any{5})
	b.Project([]rex.Node{b.Call(rex.Plus, b.Field(0), b.Literal(10))}, "y")
	after = check(t, b.Build(), rules.ValuesReduceProject())
	assert.Len(t, after.(*algebra.Values).Tuples, 2)
}

func TestPruneEmpty(t *testing.T) {
	empty := scan("test", "empty").Empty().Build()
	b := relbuilder.New().Push(empty)
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(3)))
	after := check(t, b.Build(), rules.PruneEmptyFilter())
	assert.IsType(t, &algebra.Values{}, after)

	b = emps().Push(empty)
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 0), b.FieldOf(2, 1, 0)))
	after = check(t, b.Build(), rules.PruneEmptyJoinRight())
	assert.IsType(t, &algebra.Values{}, after)

	n := scan("test", "empty").Build()
	b = relbuilder.New().Push(n).Push(empty).Union(true, 2)
	check(t, b.Build(), rules.PruneEmptyUnion())
}

func TestCalcRules(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(100)))
	b.Project([]rex.Node{b.Field(2), b.Call(rex.Plus, b.Field(0), b.Field(1))}, "name", "s")
	after := check(t, b.Build(), rules.CalcRules()...)
	c, ok := after.(*algebra.Calc)
	require.True(t, ok, explain(after))
	assert.IsType(t, &algebra.TableScan{}, c.Input(0))
	assert.NotNil(t, c.Program.Condition)
}

func TestCalcRemove(t *testing.T) {
	in := scan("test", "nums").Build()
	rt := in.RowType()
	program := rex.NewProgramFromProjectAndFilter(rt, []rex.Node{rex.InputRefOf(rt, 0), rex.InputRefOf(rt, 1)}, nil, rt.FieldNames())
	after := check(t, algebra.NewCalc(in, program), rules.CalcRemove())
	assert.IsType(t, &algebra.TableScan{}, after)
}

func TestRuleSetsPreserveResults(t *testing.T) {
	b := emps().Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Literal(true))
	b.Filter(b.Equals(b.Field(1), b.Field(5)), b.Call(rex.GreaterThan, b.Call(rex.Plus, b.Literal(1), b.Literal(1)), b.Literal(0)))
	b.Project(b.FieldsOf(2, 6))
	b.Aggregate([]rex.Node{b.Field(1)}, b.Count(false, "c"))
	logical := b.Build()
	normalized := check(t, logical, rules.Normalization()...)
	check(t, normalized, rules.CalcRules()...)
}
