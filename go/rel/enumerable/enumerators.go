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
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/sqltypes"
)

// closeOnce makes Close idempotent, so an operator may drain an input
// (which closes it) and still close it unconditionally.
type closeOnce struct {
	linq.Enumerator
	closed bool
	err    error
}

func (c *closeOnce) Close() error {
	if !c.closed {
		c.closed = true
		c.err = c.Enumerator.Close()
	}
	return c.err
}

func open(env *Env, src Source) (linq.Enumerator, error) {
	e, err := src(env)
	if err != nil {
		return nil, err
	}
	return &closeOnce{Enumerator: e}, nil
}

// openAll opens every source, closing the opened ones on failure.
func openAll(env *Env, srcs []Source) ([]linq.Enumerator, error) {
	out := make([]linq.Enumerator, 0, len(srcs))
	for _, src := range srcs {
		e, err := open(env, src)
		if err != nil {
			closeAll(out)
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func closeAll(es []linq.Enumerator) error {
	var first error
	for _, e := range es {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// materialized returns an enumerator over the rows load computes from the
// rows of in. in is drained on the first call to Next.
func materialized(in linq.Enumerator, load func(rows []sqltypes.Row) ([]sqltypes.Row, error)) linq.Enumerator {
	var rows []sqltypes.Row
	loaded := false
	pos := 0
	return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
		if !loaded {
			loaded = true
			input, err := linq.ToRows(in)
			if err != nil {
				return nil, false, err
			}
			if rows, err = load(input); err != nil {
				return nil, false, err
			}
		}
		if pos >= len(rows) {
			return nil, false, nil
		}
		pos++
		return rows[pos-1], true, nil
	}, in.Close)
}

// rowComparator orders rows by coll. Nulls go where the field collation
// puts them, whatever the direction.
func rowComparator(coll algebra.Collation) func(a, b sqltypes.Row) int {
	return func(a, b sqltypes.Row) int {
		for _, fc := range coll {
			x, y := a[fc.Field], b[fc.Field]
			var c int
			switch {
			case x.IsNull() && y.IsNull():
				continue
			case x.IsNull():
				c = 1
				if fc.Nulls == algebra.NullsFirst {
					c = -1
				}
			case y.IsNull():
				c = -1
				if fc.Nulls == algebra.NullsFirst {
					c = 1
				}
			default:
				c = sqltypes.NullsafeCompare(x, y)
				if fc.Direction == algebra.Descending {
					c = -c
				}
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

func nullRow(n int) sqltypes.Row {
	return make(sqltypes.Row, n)
}

func concatRows(a, b sqltypes.Row) sqltypes.Row {
	out := make(sqltypes.Row, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func hasNull(row sqltypes.Row, cols []int) bool {
	for _, c := range cols {
		if row[c].IsNull() {
			return true
		}
	}
	return false
}
