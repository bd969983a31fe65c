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

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// Union concatenates its inputs, removing duplicates unless All is set.
type Union struct {
	*algebra.Union
}

// Intersect returns the rows present in every input.
type Intersect struct {
	*algebra.Intersect
}

// Minus returns the rows of the first input absent from the others.
type Minus struct {
	*algebra.Minus
}

var (
	_ Node = (*Union)(nil)
	_ Node = (*Intersect)(nil)
	_ Node = (*Minus)(nil)
)

func newUnion(traits algebra.TraitSet, all bool, inputs []algebra.Node) *Union {
	return &Union{algebra.NewUnionWith(traits, all, inputs...)}
}

func newIntersect(traits algebra.TraitSet, all bool, inputs []algebra.Node) *Intersect {
	return &Intersect{algebra.NewIntersectWith(traits, all, inputs...)}
}

func newMinus(traits algebra.TraitSet, all bool, inputs []algebra.Node) *Minus {
	return &Minus{algebra.NewMinusWith(traits, all, inputs...)}
}

func (u *Union) OpName() string     { return "EnumerableUnion" }
func (i *Intersect) OpName() string { return "EnumerableIntersect" }
func (m *Minus) OpName() string     { return "EnumerableMinus" }

func (u *Union) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newUnion(traits, u.All, inputs)
}

func (i *Intersect) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newIntersect(traits, i.All, inputs)
}

func (m *Minus) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newMinus(traits, m.All, inputs)
}

// coercions returns, per input, the column types its rows must be cast to,
// or nil when they already match out.
func coercions(inputs []algebra.Node, out *reltype.DataType) [][]sqltypes.Type {
	casts := make([][]sqltypes.Type, len(inputs))
	for i, in := range inputs {
		for c, f := range in.RowType().Fields {
			if f.Type.Name != out.Fields[c].Type.Name {
				casts[i] = typeNames(out)
				break
			}
		}
	}
	return casts
}

func typeNames(t *reltype.DataType) []sqltypes.Type {
	out := make([]sqltypes.Type, t.FieldCount())
	for i, f := range t.Fields {
		out[i] = f.Type.Name
	}
	return out
}

func coerce(row sqltypes.Row, types []sqltypes.Type) (sqltypes.Row, error) {
	if types == nil {
		return row, nil
	}
	out := make(sqltypes.Row, len(row))
	for i, v := range row {
		c, err := sqltypes.Cast(v, types[i])
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// drainAll reads every input, coerced to the output types.
func drainAll(es []linq.Enumerator, casts [][]sqltypes.Type) ([][]sqltypes.Row, error) {
	out := make([][]sqltypes.Row, len(es))
	for i, e := range es {
		rows, err := linq.ToRows(e)
		if err != nil {
			return nil, err
		}
		for r := range rows {
			if rows[r], err = coerce(rows[r], casts[i]); err != nil {
				return nil, err
			}
		}
		out[i] = rows
	}
	return out, nil
}

func (u *Union) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, u)
	if err != nil {
		return nil, err
	}
	method := "union"
	if u.All {
		method = "concat"
	}
	out := b.Declare("union", "%s(%v)", method, names)
	srcs := sources(inputs)
	casts := coercions(u.Inputs(), u.RowType())
	all := u.All
	src := func(env *Env) (linq.Enumerator, error) {
		es, err := openAll(env, srcs)
		if err != nil {
			return nil, err
		}
		cur := 0
		seen := map[string]struct{}{}
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			for cur < len(es) {
				if !es[cur].Next() {
					if err := es[cur].Err(); err != nil {
						return nil, false, err
					}
					cur++
					continue
				}
				row, err := coerce(es[cur].Row(), casts[cur])
				if err != nil {
					return nil, false, err
				}
				if !all {
					k := sqltypes.RowKey(row, nil)
					if _, dup := seen[k]; dup {
						continue
					}
					seen[k] = struct{}{}
				}
				return row, true, nil
			}
			return nil, false, nil
		}, func() error {
			return closeAll(es)
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(u.RowType(), prefer)}, nil
}

// implementCounting implements a set operation that reads all its inputs
// and then decides the output from per-row counts.
func implementCounting(imp *Implementor, n algebra.Node, method string, all bool, prefer RowFormat,
	combine func(first []sqltypes.Row, others []map[string]int, all bool) []sqltypes.Row) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, n)
	if err != nil {
		return nil, err
	}
	out := b.Declare(method, "%s(%v, all=%t)", method, names, all)
	srcs := sources(inputs)
	casts := coercions(n.Inputs(), n.RowType())
	src := func(env *Env) (linq.Enumerator, error) {
		es, err := openAll(env, srcs)
		if err != nil {
			return nil, err
		}
		var rows []sqltypes.Row
		loaded := false
		pos := 0
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			if !loaded {
				loaded = true
				inputs, err := drainAll(es, casts)
				if err != nil {
					return nil, false, err
				}
				others := make([]map[string]int, len(inputs)-1)
				for i, in := range inputs[1:] {
					others[i] = map[string]int{}
					for _, row := range in {
						others[i][sqltypes.RowKey(row, nil)]++
					}
				}
				rows = combine(inputs[0], others, all)
			}
			if pos >= len(rows) {
				return nil, false, nil
			}
			pos++
			return rows[pos-1], true, nil
		}, func() error {
			return closeAll(es)
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(n.RowType(), prefer)}, nil
}

func (i *Intersect) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementCounting(imp, i, "intersect", i.All, prefer, intersectRows)
}

func (m *Minus) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementCounting(imp, m, "except", m.All, prefer, minusRows)
}

// intersectRows keeps each row of first as many times as every other
// input has it, or once without all.
func intersectRows(first []sqltypes.Row, others []map[string]int, all bool) []sqltypes.Row {
	var out []sqltypes.Row
	emitted := map[string]int{}
	for _, row := range first {
		k := sqltypes.RowKey(row, nil)
		limit := 1
		if all {
			limit = math.MaxInt
		}
		for _, o := range others {
			limit = min(limit, o[k])
		}
		if emitted[k] < limit {
			emitted[k]++
			out = append(out, row)
		}
	}
	return out
}

// minusRows removes from first as many copies of each row as the other
// inputs hold together, or every copy without all.
func minusRows(first []sqltypes.Row, others []map[string]int, all bool) []sqltypes.Row {
	var out []sqltypes.Row
	removed := map[string]int{}
	emitted := map[string]bool{}
	for _, row := range first {
		k := sqltypes.RowKey(row, nil)
		n := 0
		for _, o := range others {
			n += o[k]
		}
		if !all {
			if n == 0 && !emitted[k] {
				emitted[k] = true
				out = append(out, row)
			}
			continue
		}
		if removed[k] < n {
			removed[k]++
			continue
		}
		out = append(out, row)
	}
	return out
}
