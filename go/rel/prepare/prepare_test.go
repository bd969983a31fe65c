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

package prepare

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/relconfig"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/sqltypes"
	"relopt.io/relopt/go/test/utils"
)

func testOptions() Options {
	return Options{
		MaxIterations: 10000,
		Volcano:       true,
		MergeJoin:     true,
		JoinReorder:   true,
		CacheEnabled:  true,
		CacheTTL:      time.Minute,
	}
}

// joinQuery lists the employees above an id with their department name.
func joinQuery(root *catalog.Schema) algebra.Node {
	b := relbuilder.New().
		Scan(testcat.Table(root, "hr", "emps")).
		Scan(testcat.Table(root, "hr", "depts"))
	b.Join(algebra.JoinInner, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(100)))
	b.Project(b.FieldsOf(2, 6), "emp", "dept")
	return b.Build()
}

func TestPrepareModes(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	want := []string{`"Eric","Marketing"`, `"Sebastian","Sales"`, `"Theodore","Sales"`}

	tcases := []struct {
		name   string
		modify func(*Options)
	}{
		{name: "default", modify: func(*Options) {}},
		{name: "no merge join", modify: func(o *Options) { o.MergeJoin = false }},
		{name: "no join reorder", modify: func(o *Options) { o.JoinReorder = false }},
		{name: "heuristic only", modify: func(o *Options) { o.Volcano = false }},
		{name: "hep match limit", modify: func(o *Options) { o.HepMatchLimit = 1 }},
		{name: "join to correlate", modify: func(o *Options) { o.JoinToCorrelate = true }},
		{name: "correlate only", modify: func(o *Options) {
			o.JoinToCorrelate = true
			o.JoinReorder = false
			o.MergeJoin = false
		}},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			tc.modify(&opts)
			res, err := New(opts).Execute(ctx, joinQuery(testcat.New()))
			require.NoError(t, err)
			utils.MustMatchRows(t, want, res.Rows, tc.name)
		})
	}
}

func TestPreparePhases(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	logical := joinQuery(root)

	prepared, err := New(testOptions()).Prepare(ctx, logical)
	require.NoError(t, err)
	assert.NotEmpty(t, prepared.SessionID)
	assert.Equal(t, CacheKey(logical), prepared.Key)
	assert.Same(t, logical, prepared.Logical)
	assert.False(t, prepared.Cached)
	assert.Positive(t, prepared.Iterations)
	assert.True(t, logical.RowType().Equal(prepared.Physical.RowType()))
	assert.True(t, strings.HasPrefix(prepared.Physical.OpName(), "Enumerable"), prepared.Physical.OpName())
	assert.NotContains(t, algebra.Explain(prepared.Physical, algebra.ExplainNoAttributes), "Logical")
	assert.Equal(t, []string{"emp", "dept"}, fieldNames(prepared.Plan.Fields()))
}

func TestPrepareHeuristicUsesCalc(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	b := relbuilder.New().Scan(testcat.Table(root, "hr", "emps"))
	b.Filter(b.Equals(b.Field(1), b.Literal(10)))
	b.Project([]rex.Node{b.Call(rex.Plus, b.Field(0), b.Literal(1))}, "next")

	opts := testOptions()
	opts.Volcano = false
	prepared, err := New(opts).Prepare(ctx, b.Build())
	require.NoError(t, err)
	assert.Contains(t, algebra.Explain(prepared.Normalized, algebra.ExplainNoAttributes), "LogicalCalc")
	assert.Contains(t, algebra.Explain(prepared.Physical, algebra.ExplainNoAttributes), "EnumerableCalc")
}

func fieldNames(fields []*sqltypes.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestPlanCache(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	p := New(testOptions())

	hits, misses := planCacheHits.Get(), planCacheMisses.Get()
	first, err := p.Prepare(ctx, joinQuery(root))
	require.NoError(t, err)
	second, err := p.Prepare(ctx, joinQuery(root))
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Same(t, first.Plan, second.Plan)
	assert.Equal(t, hits+1, planCacheHits.Get())
	assert.Equal(t, misses+1, planCacheMisses.Get())
	assert.Equal(t, 1, p.CachedPlans())

	p.Flush()
	assert.Zero(t, p.CachedPlans())
	third, err := p.Prepare(ctx, joinQuery(root))
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.SessionID, third.SessionID)
}

func TestPlanCacheDisabled(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	opts := testOptions()
	opts.CacheEnabled = false
	p := New(opts)

	for range 2 {
		prepared, err := p.Prepare(ctx, joinQuery(root))
		require.NoError(t, err)
		assert.False(t, prepared.Cached)
	}
	assert.Zero(t, p.CachedPlans())
}

func TestCacheKeyFollowsDigest(t *testing.T) {
	root := testcat.New()
	assert.Equal(t, CacheKey(joinQuery(root)), CacheKey(joinQuery(root)))

	b := relbuilder.New().Scan(testcat.Table(root, "hr", "emps"))
	assert.NotEqual(t, CacheKey(joinQuery(root)), CacheKey(b.Build()))
}

func TestExecuteParameters(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	b := relbuilder.New().Scan(testcat.Table(root, "hr", "emps"))
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), rex.NewDynamicParam(0, reltype.New(sqltypes.Int64, false))))
	b.Project(b.FieldsOf(0))
	logical := b.Build()
	p := New(testOptions())

	res, err := p.Execute(ctx, logical, sqltypes.NewInt64(120))
	require.NoError(t, err)
	utils.MustMatchRows(t, []string{"200", "150"}, res.Rows)

	res, err = p.Execute(ctx, logical, sqltypes.NewInt64(500))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestExecuteModify(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	nums := testcat.Table(root, "test", "nums")
	b := relbuilder.New().Values(nums.RowType(), []any{int64(7), "x"})
	b.Modify(nums, algebra.OpInsert)

	_, err := New(testOptions()).Execute(ctx, b.Build())
	require.NoError(t, err)
	assert.Len(t, nums.Rows(), 6)
}

func TestPrepareCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testOptions()).Prepare(ctx, joinQuery(testcat.New()))
	require.Error(t, err)
	assert.Equal(t, relerrors.Canceled, relerrors.CodeOf(err))
}

func TestRuleSetJoinToCorrelate(t *testing.T) {
	names := func(opts Options) []string {
		var out []string
		for _, r := range New(opts).ruleSet() {
			out = append(out, r.Name())
		}
		return out
	}
	opts := testOptions()
	assert.NotContains(t, names(opts), "JoinToCorrelate")

	opts.JoinToCorrelate = true
	assert.Contains(t, names(opts), "JoinToCorrelate")

	opts.Volcano = false
	assert.NotContains(t, names(opts), "JoinToCorrelate")
}

func TestDefaultOptions(t *testing.T) {
	defer relconfig.Override(useVolcano, false)()
	defer relconfig.Override(cacheTTL, 3*time.Second)()
	defer relconfig.Override(maxIterations, 42)()
	defer relconfig.Override(joinToCorrelate, true)()

	opts := DefaultOptions()
	assert.False(t, opts.Volcano)
	assert.Equal(t, 3*time.Second, opts.CacheTTL)
	assert.Equal(t, 42, opts.MaxIterations)
	assert.True(t, opts.JoinToCorrelate)
	assert.True(t, opts.CacheEnabled)
}

func TestRecent(t *testing.T) {
	ctx := utils.LeakCheckContext(t)
	root := testcat.New()
	p := New(testOptions())

	for range 3 {
		_, err := p.Prepare(ctx, joinQuery(root))
		require.NoError(t, err)
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := p.Prepare(canceled, relbuilder.New().Scan(testcat.Table(root, "hr", "depts")).Build())
	require.Error(t, err)

	recent := p.Recent()
	require.Len(t, recent, 3)
	assert.Error(t, recent[0].Err)
	assert.Equal(t, "LogicalTableScan", recent[0].Root)
	assert.True(t, recent[1].Cached)
	assert.False(t, recent[2].Cached)
	assert.Equal(t, recent[2].SessionID, recent[1].SessionID)
	assert.Equal(t, CacheKey(joinQuery(root)), recent[2].Key)
}
