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

package algebra

import (
	"math"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Nodes opt into metadata by implementing these methods. Physical
// operators inherit them from the logical operator they embed and may
// override them.
type (
	rowCountEstimator interface {
		EstimateRowCount(mq *MetadataQuery) float64
	}
	selfCostEstimator interface {
		ComputeSelfCost(mq *MetadataQuery) Cost
	}
	uniquenessEstimator interface {
		AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool
	}
	collationDeriver interface {
		DeriveCollations(mq *MetadataQuery) []Collation
	}
	constantsDeriver interface {
		ConstantColumns(mq *MetadataQuery) map[int]rex.Node
	}
)

// CostHolder is implemented by planner nodes that know the cost of the
// best expression they stand for.
type CostHolder interface {
	BestCost() Cost
}

type mdKind int

const (
	mdRowCount mdKind = iota
	mdUnique
	mdCollations
	mdConstants
	mdCumulativeCost
)

type mdKey struct {
	id   int
	kind mdKind
	arg  string
}

// MetadataQuery computes and caches metadata about nodes. Results for
// Delegating nodes are not cached since what they stand for changes
// during planning. A MetadataQuery is not safe for concurrent use.
type MetadataQuery struct {
	cache  map[mdKey]any
	active map[mdKey]bool
}

// NewMetadataQuery returns an empty query.
func NewMetadataQuery() *MetadataQuery {
	return &MetadataQuery{cache: map[mdKey]any{}, active: map[mdKey]bool{}}
}

// Invalidate drops every cached result.
func (mq *MetadataQuery) Invalidate() {
	clear(mq.cache)
}

// compute evaluates f once per key. A re-entrant request for a key being
// computed, which happens on cyclic planner graphs, returns cyclic.
func compute[T any](mq *MetadataQuery, n Node, kind mdKind, arg string, cyclic T, f func(Node) T) T {
	key := mdKey{id: n.ID(), kind: kind, arg: arg}
	if v, ok := mq.cache[key]; ok {
		return v.(T)
	}
	if mq.active[key] {
		return cyclic
	}
	mq.active[key] = true
	defer delete(mq.active, key)
	target := n
	_, delegating := n.(Delegating)
	if delegating {
		target = Strip(n)
	}
	v := f(target)
	if !delegating {
		mq.cache[key] = v
	}
	return v
}

// RowCount estimates the number of rows n returns. It is at least 1.
func (mq *MetadataQuery) RowCount(n Node) float64 {
	return compute(mq, n, mdRowCount, "", 1.0, func(n Node) float64 {
		rows := 1.0
		if e, ok := n.(rowCountEstimator); ok {
			rows = e.EstimateRowCount(mq)
		} else if in := n.Inputs(); len(in) > 0 {
			rows = mq.RowCount(in[0])
		}
		if math.IsNaN(rows) || rows < 1 {
			return 1
		}
		return rows
	})
}

// Selectivity estimates the fraction of rows of n that satisfy pred.
func (mq *MetadataQuery) Selectivity(_ Node, pred rex.Node) float64 {
	return GuessSelectivity(pred)
}

// GuessSelectivity estimates the selectivity of a predicate from its
// shape: 0.15 per equality, 0.5 per range comparison, 0.9 per IS NOT NULL
// and 0.25 for anything else.
func GuessSelectivity(pred rex.Node) float64 {
	if pred == nil || rex.IsAlwaysTrue(pred) {
		return 1
	}
	if rex.IsAlwaysFalse(pred) {
		return 0
	}
	sel := 1.0
	for _, c := range rex.Conjunctions(pred) {
		switch c.Kind() {
		case rex.KindIsNotNull:
			sel *= 0.9
		case rex.KindEquals, rex.KindIsNotDistinctFrom:
			sel *= 0.15
		case rex.KindLessThan, rex.KindLessThanOrEqual, rex.KindGreaterThan, rex.KindGreaterThanOrEqual:
			sel *= 0.5
		default:
			sel *= 0.25
		}
	}
	return sel
}

// DistinctRowCount estimates the number of distinct values of cols in n.
func (mq *MetadataQuery) DistinctRowCount(n Node, cols bitset.Bitset) float64 {
	if cols.IsEmpty() {
		return 1
	}
	rows := mq.RowCount(n)
	if mq.AreColumnsUnique(n, cols) {
		return rows
	}
	if v, ok := Strip(n).(*Values); ok {
		seen := map[string]bool{}
		keys := cols.Ordinals()
		for _, r := range v.Rows() {
			seen[sqltypes.RowKey(r, keys)] = true
		}
		return max(1, float64(len(seen)))
	}
	return max(1, min(rows, rows*0.1*float64(cols.Popcount())))
}

// AreColumnsUnique reports whether no two rows of n agree on cols.
func (mq *MetadataQuery) AreColumnsUnique(n Node, cols bitset.Bitset) bool {
	if cols.IsEmpty() {
		return false
	}
	return compute(mq, n, mdUnique, cols.String(), false, func(n Node) bool {
		if e, ok := n.(uniquenessEstimator); ok {
			return e.AreColumnsUnique(mq, cols)
		}
		return false
	})
}

// Collations returns the orderings n is known to produce.
func (mq *MetadataQuery) Collations(n Node) []Collation {
	return compute(mq, n, mdCollations, "", nil, func(n Node) []Collation {
		if e, ok := n.(collationDeriver); ok {
			return e.DeriveCollations(mq)
		}
		if c := n.Traits().Collation; len(c) > 0 {
			return []Collation{c}
		}
		return nil
	})
}

// ConstantColumns returns the columns of n that hold the same value in
// every row, with that value as an expression.
func (mq *MetadataQuery) ConstantColumns(n Node) map[int]rex.Node {
	return compute(mq, n, mdConstants, "", nil, func(n Node) map[int]rex.Node {
		if e, ok := n.(constantsDeriver); ok {
			return e.ConstantColumns(mq)
		}
		return nil
	})
}

// SelfCost estimates the cost of n excluding its inputs.
func (mq *MetadataQuery) SelfCost(n Node) Cost {
	n = Strip(n)
	if e, ok := n.(selfCostEstimator); ok {
		return e.ComputeSelfCost(mq)
	}
	rows := mq.RowCount(n)
	return Cost{Rows: rows, CPU: rows}
}

// CumulativeCost estimates the cost of n including its inputs.
func (mq *MetadataQuery) CumulativeCost(n Node) Cost {
	if h, ok := n.(CostHolder); ok {
		return h.BestCost()
	}
	return compute(mq, n, mdCumulativeCost, "", InfiniteCost, func(n Node) Cost {
		if h, ok := n.(CostHolder); ok {
			return h.BestCost()
		}
		c := mq.SelfCost(n)
		for _, in := range n.Inputs() {
			c = c.Plus(mq.CumulativeCost(in))
		}
		return c
	})
}
