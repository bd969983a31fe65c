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

package volcano

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/rel/testcat"
)

var testConvention = &algebra.Convention{
	Name: "TEST",
	Enforcer: func(input algebra.Node, required algebra.TraitSet) algebra.Node {
		return algebra.NewSortWith(required, input, required.Collation, nil, nil)
	},
}

var testTraits = algebra.Traits(testConvention)

func converters() []plan.Rule {
	return []plan.Rule{
		plan.NewConverterRule("TestScan", algebra.None, testConvention, func(_ *plan.RuleCall, s *algebra.TableScan) algebra.Node {
			return algebra.NewTableScanWith(testTraits, s.Table, s.Filters, s.Projects)
		}),
		plan.NewConverterRule("TestFilter", algebra.None, testConvention, func(call *plan.RuleCall, f *algebra.Filter) algebra.Node {
			return algebra.NewFilterWith(testTraits, call.Convert(f.Input(0), testTraits), f.Condition)
		}),
		plan.NewConverterRule("TestProject", algebra.None, testConvention, func(call *plan.RuleCall, p *algebra.Project) algebra.Node {
			return algebra.NewProjectWith(testTraits, call.Convert(p.Input(0), testTraits), p.Exprs, p.RowType())
		}),
		plan.NewConverterRule("TestSort", algebra.None, testConvention, func(call *plan.RuleCall, s *algebra.Sort) algebra.Node {
			return algebra.NewSortWith(testTraits.WithCollation(s.Collation), call.Convert(s.Input(0), testTraits), s.Collation, s.Offset, s.Fetch)
		}),
	}
}

type testRule struct {
	plan.RuleBase
	onMatch func(call *plan.RuleCall)
}

func (r *testRule) OnMatch(call *plan.RuleCall) { r.onMatch(call) }

func filterMerge() plan.Rule {
	r := &testRule{RuleBase: plan.NewRuleBase("TestFilterMerge",
		plan.Op[*algebra.Filter]().Convention(algebra.None).Inputs(plan.Op[*algebra.Filter]().Convention(algebra.None).AnyInputs()))}
	r.onMatch = func(call *plan.RuleCall) {
		top, bottom := call.Rel(0).(*algebra.Filter), call.Rel(1).(*algebra.Filter)
		call.TransformTo(call.Builder().Push(bottom.Input(0)).Filter(bottom.Condition, top.Condition).Build())
	}
	return r
}

func projectRemove(markDead bool) plan.Rule {
	r := &testRule{RuleBase: plan.NewRuleBase("TestProjectRemove",
		plan.Op[*algebra.Project]().Convention(algebra.None).Predicate(func(n algebra.Node) bool {
			return n.(*algebra.Project).IsIdentity()
		}).AnyInputs())}
	r.onMatch = func(call *plan.RuleCall) {
		project := call.Rel(0).(*algebra.Project)
		call.TransformTo(project.Input(0))
		if markDead {
			call.Planner().SetImportance(project, 0)
		}
	}
	return r
}

func optimize(t *testing.T, p *Planner, logical algebra.Node, traits algebra.TraitSet, rules ...plan.Rule) (algebra.Node, error) {
	t.Helper()
	for _, r := range rules {
		p.AddRule(r)
	}
	p.SetRoot(p.ChangeTraits(logical, traits))
	return p.FindBestExp()
}

func assertConvention(t *testing.T, n algebra.Node, c *algebra.Convention) {
	t.Helper()
	algebra.Walk(n, func(n algebra.Node) bool {
		assert.NotEqual(t, "RelSubset", n.OpName())
		assert.Same(t, c, n.Traits().Convention, n.OpName())
		return true
	})
}

func emps() *relbuilder.Builder {
	return relbuilder.New().Scan(testcat.Table(testcat.New(), "hr", "emps"))
}

func TestConvertsToPhysical(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(1), b.Literal(10)))
	p := New()
	best, err := optimize(t, p, b.Build(), testTraits, converters()...)
	require.NoError(t, err)
	assertConvention(t, best, testConvention)
	assert.Equal(t, "LogicalFilter(condition=[>($1, 10)])\n  LogicalTableScan(table=[[hr, emps]])\n",
		algebra.Explain(best, algebra.ExplainAttributes))
	assert.Positive(t, p.Iterations())
}

func TestCannotPlan(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(1), b.Literal(10)))
	p := New()
	_, err := optimize(t, p, b.Build(), testTraits, converters()[0])
	require.Error(t, err)
	assert.Equal(t, relerrors.CannotPlan, relerrors.ErrState(err))
	assert.Contains(t, err.Error(), "Set#0")
	assert.Contains(t, err.Error(), "LogicalFilter")
}

func TestEnforcerSatisfiesCollation(t *testing.T) {
	p := New()
	required := testTraits.WithCollation(algebra.Collation{algebra.Desc(2)})
	best, err := optimize(t, p, emps().Build(), required, converters()...)
	require.NoError(t, err)
	assertConvention(t, best, testConvention)
	assert.Equal(t, "LogicalSort(sort0=[$2], dir0=[DESC])\n  LogicalTableScan(table=[[hr, emps]])\n",
		algebra.Explain(best, algebra.ExplainAttributes))
	assert.True(t, best.Traits().Satisfies(required))
}

func TestPicksCheapestAlternative(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(1), b.Literal(10)))
	b.Filter(b.IsNotNull(b.Field(4)))
	p := New()
	best, err := optimize(t, p, b.Build(), testTraits, append(converters(), filterMerge())...)
	require.NoError(t, err)
	f, ok := best.(*algebra.Filter)
	require.True(t, ok)
	assert.IsType(t, &algebra.TableScan{}, f.Input(0))
	assert.Len(t, rex.Conjunctions(f.Condition), 2)
	assert.False(t, p.Root().BestCost().IsInfinite())
}

func TestSetMerge(t *testing.T) {
	b := emps()
	b.ProjectForce(b.Fields())
	logical := b.Build()
	require.IsType(t, &algebra.Project{}, logical)

	p := New()
	best, err := optimize(t, p, logical, testTraits, append(converters(), projectRemove(false))...)
	require.NoError(t, err)
	assert.IsType(t, &algebra.TableScan{}, best)

	live := 0
	for _, s := range p.sets {
		if s.mergedInto == nil {
			live++
		}
	}
	assert.Equal(t, 1, live, p.Dump())
}

func TestDeadNodesAreNotMatched(t *testing.T) {
	b := emps()
	b.ProjectForce(b.Fields())
	logical := b.Build()

	p := New()
	rules := append([]plan.Rule{projectRemove(true)}, converters()...)
	best, err := optimize(t, p, logical, testTraits, rules...)
	require.NoError(t, err)
	assert.IsType(t, &algebra.TableScan{}, best)
	dead := 0
	for _, s := range p.sets {
		for _, r := range s.rels {
			if p.IsDead(r) {
				dead++
				assert.IsType(t, &algebra.Project{}, r)
			}
		}
	}
	assert.Equal(t, 1, dead)
	assert.Contains(t, p.Dump(), "(dead)")
	assert.NotContains(t, p.Dump(), "LogicalProject.TEST")
}

func TestIterationLimit(t *testing.T) {
	b := emps()
	b.Filter(b.Call(rex.GreaterThan, b.Field(1), b.Literal(10)))
	p := New(WithMaxIterations(1))
	_, err := optimize(t, p, b.Build(), testTraits, converters()...)
	assert.Equal(t, 1, p.Iterations())
	assert.Error(t, err)
}

func TestAddRuleDeduplicatesByName(t *testing.T) {
	p := New()
	assert.True(t, p.AddRule(filterMerge()))
	assert.False(t, p.AddRule(filterMerge()))
	assert.Len(t, p.Rules(), 1)
}

func TestFindBestExpWithoutRoot(t *testing.T) {
	_, err := New().FindBestExp()
	assert.Error(t, err)
}
