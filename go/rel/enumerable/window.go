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
	"slices"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Window computes window functions over its buffered input, appending one
// column per call to each row. Rows keep their input order.
type Window struct {
	*algebra.Window
}

var _ Node = (*Window)(nil)

func newWindow(traits algebra.TraitSet, input algebra.Node, groups []algebra.WindowGroup) *Window {
	return &Window{algebra.NewWindowWith(traits, input, groups)}
}

func (w *Window) OpName() string { return "EnumerableWindow" }

func (w *Window) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newWindow(traits, inputs[0], w.Groups)
}

func (w *Window) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	child, err := imp.VisitChild(w, 0, FormatArray)
	if err != nil {
		return nil, err
	}
	impls := make([][]AggImplementor, len(w.Groups))
	for gi, g := range w.Groups {
		impls[gi] = make([]AggImplementor, len(g.Calls))
		for ci, c := range g.Calls {
			if c.Func.WindowOnly {
				continue
			}
			if impls[gi][ci], err = NewAggImplementor(c.Func, c.Type); err != nil {
				return nil, err
			}
		}
	}
	b := imp.NewBlockBuilder()
	out := b.Append(child.Block)
	for _, g := range w.Groups {
		out = b.Declare("window", "%s.%s", out, g)
	}
	groups := w.Groups
	src := func(env *Env) (linq.Enumerator, error) {
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		return materialized(input, func(rows []sqltypes.Row) ([]sqltypes.Row, error) {
			out := rows
			for gi, g := range groups {
				cols, err := evalWindowGroup(rows, g, impls[gi])
				if err != nil {
					return nil, err
				}
				next := make([]sqltypes.Row, len(out))
				for i, row := range out {
					next[i] = concatRows(row, cols[i])
				}
				out = next
			}
			return out, nil
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(w.RowType(), prefer)}, nil
}

// evalWindowGroup returns, per input row, the values of the calls of g.
func evalWindowGroup(rows []sqltypes.Row, g algebra.WindowGroup, impls []AggImplementor) ([]sqltypes.Row, error) {
	results := make([]sqltypes.Row, len(rows))
	keys := g.Keys.Ordinals()
	var order []string
	partitions := map[string][]int{}
	for i, row := range rows {
		k := sqltypes.RowKey(row, keys)
		if _, ok := partitions[k]; !ok {
			order = append(order, k)
		}
		partitions[k] = append(partitions[k], i)
	}
	cmp := rowComparator(g.Order)
	for _, k := range order {
		part := partitions[k]
		slices.SortStableFunc(part, func(a, b int) int { return cmp(rows[a], rows[b]) })
		peers := peerGroups(rows, part, cmp)
		for pos, idx := range part {
			lo, hi := windowFrame(g, pos, peers)
			out := make(sqltypes.Row, len(g.Calls))
			for ci, c := range g.Calls {
				v, err := evalWindowCall(c, impls[ci], rows, part, pos, lo, hi, peers)
				if err != nil {
					return nil, err
				}
				out[ci] = v
			}
			results[idx] = out
		}
	}
	return results, nil
}

// peers describes the peer groups of a sorted partition: rows equal on the
// window order.
type peers struct {
	group []int // group of each position
	start []int // first position of each group
	end   []int // last position of each group
}

func peerGroups(rows []sqltypes.Row, part []int, cmp func(a, b sqltypes.Row) int) peers {
	var p peers
	p.group = make([]int, len(part))
	for pos := range part {
		if pos == 0 || cmp(rows[part[pos-1]], rows[part[pos]]) != 0 {
			p.start = append(p.start, pos)
			if pos > 0 {
				p.end = append(p.end, pos-1)
			}
		}
		p.group[pos] = len(p.start) - 1
	}
	if len(part) > 0 {
		p.end = append(p.end, len(part)-1)
	}
	return p
}

// windowFrame returns the first and last positions of the frame of pos, which
// may be empty (lo > hi).
func windowFrame(g algebra.WindowGroup, pos int, p peers) (lo, hi int) {
	n := len(p.group)
	if g.IsRows {
		lo = rowsBound(g.Lower, pos, n)
		hi = rowsBound(g.Upper, pos, n)
	} else {
		groups := len(p.start)
		gl := rowsBound(g.Lower, p.group[pos], groups)
		gh := rowsBound(g.Upper, p.group[pos], groups)
		switch {
		case gl >= groups:
			lo = n
		case gl < 0:
			lo = 0
		default:
			lo = p.start[gl]
		}
		switch {
		case gh < 0:
			hi = -1
		case gh >= groups:
			hi = n - 1
		default:
			hi = p.end[gh]
		}
	}
	return max(lo, 0), min(hi, n-1)
}

// rowsBound resolves a bound relative to cur among n units.
func rowsBound(b algebra.WindowBound, cur, n int) int {
	switch b.Kind {
	case algebra.UnboundedPreceding:
		return 0
	case algebra.Preceding:
		return cur - b.Offset
	case algebra.Following:
		return cur + b.Offset
	case algebra.UnboundedFollowing:
		return n - 1
	}
	return cur
}

func evalWindowCall(c algebra.WindowCall, impl AggImplementor, rows []sqltypes.Row, part []int, pos, lo, hi int, p peers) (sqltypes.Value, error) {
	switch c.Func.Kind {
	case rex.AggRowNumber:
		return sqltypes.NewInt64(int64(pos + 1)), nil
	case rex.AggRank:
		return sqltypes.NewInt64(int64(p.start[p.group[pos]] + 1)), nil
	case rex.AggDenseRank:
		return sqltypes.NewInt64(int64(p.group[pos] + 1)), nil
	}
	acc := newAccumulator(impl, c.Args, c.Type.Name, false, -1, nil, false)
	for i := lo; i <= hi; i++ {
		if err := acc.Add(rows[part[i]]); err != nil {
			return sqltypes.NULL, err
		}
	}
	return acc.Result()
}
