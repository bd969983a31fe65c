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
	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/sqltypes"
)

// Aggregate groups its input in a hash table.
type Aggregate struct {
	*algebra.Aggregate
}

// SortedAggregate aggregates input sorted on the group keys, one group at
// a time.
type SortedAggregate struct {
	*algebra.Aggregate
}

var (
	_ Node = (*Aggregate)(nil)
	_ Node = (*SortedAggregate)(nil)
)

func newAggregate(traits algebra.TraitSet, input algebra.Node, groupSet bitset.Bitset, calls []*algebra.AggregateCall) *Aggregate {
	return &Aggregate{algebra.NewAggregateWith(traits, input, groupSet, calls)}
}

func newSortedAggregate(traits algebra.TraitSet, input algebra.Node, groupSet bitset.Bitset, calls []*algebra.AggregateCall) *SortedAggregate {
	return &SortedAggregate{algebra.NewAggregateWith(traits, input, groupSet, calls)}
}

func (a *Aggregate) OpName() string       { return "EnumerableAggregate" }
func (a *SortedAggregate) OpName() string { return "EnumerableSortedAggregate" }

func (a *Aggregate) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newAggregate(traits, inputs[0], a.GroupSet, a.AggCalls)
}

func (a *SortedAggregate) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newSortedAggregate(traits, inputs[0], a.GroupSet, a.AggCalls)
}

func (a *Aggregate) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	in := mq.RowCount(a.Input(0))
	return algebra.Cost{Rows: mq.RowCount(a), CPU: in*1.5 + float64(len(a.AggCalls))*in*0.1}
}

func (a *SortedAggregate) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	in := mq.RowCount(a.Input(0))
	return algebra.Cost{Rows: mq.RowCount(a), CPU: in + float64(len(a.AggCalls))*in*0.1}
}

// groupCollation is the order a sorted aggregate needs on its input.
func groupCollation(groupSet bitset.Bitset) algebra.Collation {
	var coll algebra.Collation
	for _, k := range groupSet.Ordinals() {
		coll = append(coll, algebra.Asc(k))
	}
	return coll
}

func (a *Aggregate) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementAggregate(imp, a.Aggregate, prefer, false)
}

func (a *SortedAggregate) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementAggregate(imp, a.Aggregate, prefer, true)
}

func implementAggregate(imp *Implementor, a *algebra.Aggregate, prefer RowFormat, sorted bool) (*Result, error) {
	child, err := imp.VisitChild(a, 0, FormatArray)
	if err != nil {
		return nil, err
	}
	factory, err := NewAggLambdaFactory(a.AggCalls)
	if err != nil {
		return nil, err
	}
	b := imp.NewBlockBuilder()
	in := b.Append(child.Block)
	keys := a.GroupSet.Ordinals()
	method := "groupBy"
	if sorted {
		method = "sortedGroupBy"
	}
	out := b.Declare("agg", "%s.%s(%v, %v)", in, method, keys, a.AggCalls)
	src := func(env *Env) (linq.Enumerator, error) {
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		if sorted {
			return sortedGroups(input, keys, factory), nil
		}
		return materialized(input, func(rows []sqltypes.Row) ([]sqltypes.Row, error) {
			return hashGroups(rows, keys, factory)
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(a.RowType(), prefer)}, nil
}

type group struct {
	key  sqltypes.Row
	accs []Accumulator
}

func (g *group) finish() (sqltypes.Row, error) {
	results, err := Results(g.accs)
	if err != nil {
		return nil, err
	}
	return concatRows(g.key, results), nil
}

func groupKey(row sqltypes.Row, keys []int) sqltypes.Row {
	out := make(sqltypes.Row, len(keys))
	for i, k := range keys {
		out[i] = row[k]
	}
	return out
}

// hashGroups aggregates rows, emitting groups in order of first
// appearance. Without group keys there is exactly one group.
func hashGroups(rows []sqltypes.Row, keys []int, factory *AggLambdaFactory) ([]sqltypes.Row, error) {
	index := map[string]int{}
	var groups []*group
	if len(keys) == 0 {
		groups = append(groups, &group{accs: factory.Accumulators()})
	}
	for _, row := range rows {
		var g *group
		if len(keys) == 0 {
			g = groups[0]
		} else {
			k := sqltypes.RowKey(row, keys)
			i, ok := index[k]
			if !ok {
				i = len(groups)
				index[k] = i
				groups = append(groups, &group{key: groupKey(row, keys), accs: factory.Accumulators()})
			}
			g = groups[i]
		}
		if err := AddAll(g.accs, row); err != nil {
			return nil, err
		}
	}
	out := make([]sqltypes.Row, len(groups))
	for i, g := range groups {
		row, err := g.finish()
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

func sameGroup(a, b sqltypes.Row) bool {
	for i := range a {
		if sqltypes.NullsafeCompare(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}

// sortedGroups aggregates input whose equal keys are adjacent, holding one
// group at a time.
func sortedGroups(input linq.Enumerator, keys []int, factory *AggLambdaFactory) linq.Enumerator {
	var cur *group
	done := false
	return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
		for !done {
			if !input.Next() {
				if err := input.Err(); err != nil {
					return nil, false, err
				}
				done = true
				if cur == nil && len(keys) == 0 {
					cur = &group{accs: factory.Accumulators()}
				}
				if cur == nil {
					break
				}
				row, err := cur.finish()
				return row, err == nil, err
			}
			row := input.Row()
			k := groupKey(row, keys)
			var finished *group
			if cur == nil || !sameGroup(k, cur.key) {
				finished = cur
				cur = &group{key: k, accs: factory.Accumulators()}
			}
			if err := AddAll(cur.accs, row); err != nil {
				return nil, false, err
			}
			if finished != nil {
				out, err := finished.finish()
				return out, err == nil, err
			}
		}
		return nil, false, nil
	}, input.Close)
}
