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
	"math"
	"slices"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Sort orders its input in memory, then applies offset and fetch.
type Sort struct {
	*algebra.Sort
}

// Limit skips offset rows of its input and returns at most fetch rows,
// without reordering.
type Limit struct {
	*algebra.Sort
}

var (
	_ Node = (*Sort)(nil)
	_ Node = (*Limit)(nil)
)

func newSort(traits algebra.TraitSet, input algebra.Node, coll algebra.Collation, offset, fetch rex.Node) *Sort {
	return &Sort{algebra.NewSortWith(traits, input, coll, offset, fetch)}
}

func newLimit(traits algebra.TraitSet, input algebra.Node, offset, fetch rex.Node) *Limit {
	return &Limit{algebra.NewSortWith(traits, input, nil, offset, fetch)}
}

func (s *Sort) OpName() string  { return "EnumerableSort" }
func (l *Limit) OpName() string { return "EnumerableLimit" }

func (s *Sort) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newSort(traits, inputs[0], s.Collation, s.Offset, s.Fetch)
}

func (l *Limit) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newLimit(traits, inputs[0], l.Offset, l.Fetch)
}

func (s *Sort) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	n := mq.RowCount(s.Input(0))
	cpu := n
	if n > 1 {
		cpu += n * math.Log2(n) * float64(max(len(s.Collation), 1))
	}
	return algebra.Cost{Rows: mq.RowCount(s), CPU: cpu}
}

func (l *Limit) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	rows := mq.RowCount(l)
	return algebra.Cost{Rows: rows, CPU: rows}
}

// bounds holds the compiled offset and fetch of a sort.
type bounds struct {
	offset, fetch *Expr
}

func compileBounds(imp *Implementor, b *BlockBuilder, s *algebra.Sort) (bounds, error) {
	var out bounds
	var err error
	if s.Offset != nil {
		if out.offset, err = imp.Compile(s.Offset, nil); err != nil {
			return out, err
		}
		b.Code("offset", out.offset)
	}
	if s.Fetch != nil {
		if out.fetch, err = imp.Compile(s.Fetch, nil); err != nil {
			return out, err
		}
		b.Code("fetch", out.fetch)
	}
	return out, nil
}

// eval returns the offset and fetch of one execution. fetch is -1 when
// unbounded.
func (b bounds) eval(env *Env) (offset, fetch int64, err error) {
	read := func(e *Expr, def int64) (int64, error) {
		if e == nil {
			return def, nil
		}
		v, err := e.Eval(env, nil)
		if err != nil {
			return 0, err
		}
		if v.IsNull() {
			return def, nil
		}
		n, err := v.ToInt64()
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "offset and fetch must not be negative, got %d", n)
		}
		return n, nil
	}
	if offset, err = read(b.offset, 0); err != nil {
		return 0, 0, err
	}
	fetch, err = read(b.fetch, -1)
	return offset, fetch, err
}

func page(rows []sqltypes.Row, offset, fetch int64) []sqltypes.Row {
	if offset >= int64(len(rows)) {
		return nil
	}
	rows = rows[offset:]
	if fetch >= 0 && fetch < int64(len(rows)) {
		rows = rows[:fetch]
	}
	return rows
}

func (s *Sort) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	child, err := imp.VisitChild(s, 0, FormatArray)
	if err != nil {
		return nil, err
	}
	b := imp.NewBlockBuilder()
	in := b.Append(child.Block)
	out := b.Declare("sort", "%s.orderBy(%s)", in, s.Collation)
	bnd, err := compileBounds(imp, b, s.Sort)
	if err != nil {
		return nil, err
	}
	cmp := rowComparator(s.Collation)
	src := func(env *Env) (linq.Enumerator, error) {
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		return materialized(input, func(rows []sqltypes.Row) ([]sqltypes.Row, error) {
			offset, fetch, err := bnd.eval(env)
			if err != nil {
				return nil, err
			}
			slices.SortStableFunc(rows, cmp)
			return page(rows, offset, fetch), nil
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(s.RowType(), prefer)}, nil
}

func (l *Limit) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	child, err := imp.VisitChild(l, 0, prefer)
	if err != nil {
		return nil, err
	}
	b := imp.NewBlockBuilder()
	in := b.Append(child.Block)
	out := b.Declare("limit", "%s.skip(offset).take(fetch)", in)
	bnd, err := compileBounds(imp, b, l.Sort)
	if err != nil {
		return nil, err
	}
	src := func(env *Env) (linq.Enumerator, error) {
		offset, fetch, err := bnd.eval(env)
		if err != nil {
			return nil, err
		}
		input, err := open(env, child.Block.Source)
		if err != nil {
			return nil, err
		}
		var taken int64
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			if fetch >= 0 && taken >= fetch {
				return nil, false, nil
			}
			for offset > 0 {
				if !input.Next() {
					return nil, false, input.Err()
				}
				offset--
			}
			if !input.Next() {
				return nil, false, input.Err()
			}
			taken++
			return input.Row(), true, nil
		}, input.Close), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: child.PhysType}, nil
}
