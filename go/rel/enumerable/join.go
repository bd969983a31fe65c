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
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// HashJoin builds a hash table over its right input and probes it with
// each left row. It handles every join type, with the non-equi part of the
// condition evaluated on each candidate pair.
type HashJoin struct {
	*algebra.Join
}

// NestedLoopJoin evaluates the condition on every pair of rows.
type NestedLoopJoin struct {
	*algebra.Join
}

// MergeJoin joins inputs sorted on the equi-join keys.
type MergeJoin struct {
	*algebra.Join
}

// SemiJoin returns the left rows whose keys are, or are not for an anti
// join, among the deduplicated keys of the right input.
type SemiJoin struct {
	*algebra.Join
}

var (
	_ Node = (*HashJoin)(nil)
	_ Node = (*NestedLoopJoin)(nil)
	_ Node = (*MergeJoin)(nil)
	_ Node = (*SemiJoin)(nil)
)

func newHashJoin(traits algebra.TraitSet, left, right algebra.Node, cond rex.Node, jt algebra.JoinType) *HashJoin {
	return &HashJoin{algebra.NewJoinWith(traits, left, right, cond, jt)}
}

func newNestedLoopJoin(traits algebra.TraitSet, left, right algebra.Node, cond rex.Node, jt algebra.JoinType) *NestedLoopJoin {
	return &NestedLoopJoin{algebra.NewJoinWith(traits, left, right, cond, jt)}
}

func newMergeJoin(traits algebra.TraitSet, left, right algebra.Node, cond rex.Node) *MergeJoin {
	return &MergeJoin{algebra.NewJoinWith(traits, left, right, cond, algebra.JoinInner)}
}

func newSemiJoin(traits algebra.TraitSet, left, right algebra.Node, cond rex.Node, jt algebra.JoinType) *SemiJoin {
	return &SemiJoin{algebra.NewJoinWith(traits, left, right, cond, jt)}
}

func (j *HashJoin) OpName() string       { return "EnumerableHashJoin" }
func (j *NestedLoopJoin) OpName() string { return "EnumerableNestedLoopJoin" }
func (j *MergeJoin) OpName() string      { return "EnumerableMergeJoin" }
func (j *SemiJoin) OpName() string       { return "EnumerableSemiJoin" }

func (j *HashJoin) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newHashJoin(traits, inputs[0], inputs[1], j.Condition, j.JoinType)
}

func (j *NestedLoopJoin) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newNestedLoopJoin(traits, inputs[0], inputs[1], j.Condition, j.JoinType)
}

func (j *MergeJoin) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newMergeJoin(traits, inputs[0], inputs[1], j.Condition)
}

func (j *SemiJoin) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newSemiJoin(traits, inputs[0], inputs[1], j.Condition, j.JoinType)
}

func joinInputRows(mq *algebra.MetadataQuery, j *algebra.Join) (left, right, out float64) {
	return mq.RowCount(j.Left()), mq.RowCount(j.Right()), mq.RowCount(j)
}

func (j *HashJoin) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	l, r, out := joinInputRows(mq, j.Join)
	return algebra.Cost{Rows: out, CPU: l + 2*r + out}
}

func (j *NestedLoopJoin) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	l, r, out := joinInputRows(mq, j.Join)
	return algebra.Cost{Rows: out, CPU: l*math.Max(r, 1) + out}
}

// ComputeSelfCost is proportional to the input and output sizes; sorting
// the inputs is costed by the enforcers below.
func (j *MergeJoin) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	l, r, out := joinInputRows(mq, j.Join)
	return algebra.Cost{Rows: out, CPU: l + r + out}
}

func (j *SemiJoin) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	l, r, out := joinInputRows(mq, j.Join)
	return algebra.Cost{Rows: out, CPU: l + r}
}

// pairType is the type of a left row followed by a right row, which join
// conditions reference.
func pairType(j *algebra.Join) *reltype.DataType {
	return reltype.JoinRowType(j.Left().RowType(), j.Right().RowType(), false, false)
}

func implementInputs(imp *Implementor, n algebra.Node) ([]*Result, *BlockBuilder, []string, error) {
	b := imp.NewBlockBuilder()
	results := make([]*Result, len(n.Inputs()))
	names := make([]string, len(n.Inputs()))
	for i := range n.Inputs() {
		r, err := imp.VisitChild(n, i, FormatArray)
		if err != nil {
			return nil, nil, nil, err
		}
		results[i] = r
		names[i] = b.Append(r.Block)
	}
	return results, b, names, nil
}

func sources(results []*Result) []Source {
	out := make([]Source, len(results))
	for i, r := range results {
		out[i] = r.Block.Source
	}
	return out
}

func (j *HashJoin) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementProbeJoin(imp, j.Join, prefer, true)
}

func (j *NestedLoopJoin) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	return implementProbeJoin(imp, j.Join, prefer, false)
}

// implementProbeJoin implements a join that probes the materialized right
// input with each left row, through a hash table on the equi-join keys
// when hashed is set.
func implementProbeJoin(imp *Implementor, j *algebra.Join, prefer RowFormat, hashed bool) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, j)
	if err != nil {
		return nil, err
	}
	info := j.Analyze()
	cond := j.Condition
	if hashed {
		cond = info.Residual
	}
	var test *Expr
	if cond != nil && !rex.IsAlwaysTrue(cond) {
		if test, err = imp.Compile(cond, pairType(j)); err != nil {
			return nil, err
		}
	}
	var out string
	if hashed {
		out = b.Declare("join", "%s.hashJoin(%s, left=%v, right=%v, %s)", names[0], names[1], info.LeftKeys, info.RightKeys, j.JoinType)
	} else {
		out = b.Declare("join", "%s.nestedLoopJoin(%s, %s)", names[0], names[1], j.JoinType)
	}
	if test != nil {
		b.Code("condition", test)
	}
	srcs := sources(inputs)
	src := func(env *Env) (linq.Enumerator, error) {
		es, err := openAll(env, srcs)
		if err != nil {
			return nil, err
		}
		p := &probe{
			env:        env,
			jt:         j.JoinType,
			cond:       test,
			rightWidth: j.Right().RowType().FieldCount(),
			leftWidth:  j.Left().RowType().FieldCount(),
		}
		if hashed {
			p.keys = &hashKeys{left: info.LeftKeys, right: info.RightKeys, nullSafe: info.NullSafe}
		}
		return p.enumerate(es[0], es[1]), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(j.RowType(), prefer)}, nil
}

type hashKeys struct {
	left, right []int
	nullSafe    []bool
	table       map[string][]int
}

// key returns the hash key of the given columns of row, or false when a
// null makes the row unmatchable.
func (h *hashKeys) key(row sqltypes.Row, cols []int) (string, bool) {
	for i, c := range cols {
		if row[c].IsNull() && !h.nullSafe[i] {
			return "", false
		}
	}
	return sqltypes.RowKey(row, cols), true
}

// probe runs a join whose right rows are held in memory.
type probe struct {
	env        *Env
	jt         algebra.JoinType
	keys       *hashKeys
	cond       *Expr
	right      []sqltypes.Row
	matched    []bool
	leftWidth  int
	rightWidth int
}

func (p *probe) build(right linq.Enumerator) error {
	rows, err := linq.ToRows(right)
	if err != nil {
		return err
	}
	p.right = rows
	p.matched = make([]bool, len(rows))
	if p.keys == nil {
		return nil
	}
	p.keys.table = map[string][]int{}
	for i, row := range rows {
		if k, ok := p.keys.key(row, p.keys.right); ok {
			p.keys.table[k] = append(p.keys.table[k], i)
		}
	}
	return nil
}

func (p *probe) candidates(left sqltypes.Row) []int {
	if p.keys == nil {
		out := make([]int, len(p.right))
		for i := range out {
			out[i] = i
		}
		return out
	}
	k, ok := p.keys.key(left, p.keys.left)
	if !ok {
		return nil
	}
	return p.keys.table[k]
}

// emit returns the output rows for one left row.
func (p *probe) emit(left sqltypes.Row) ([]sqltypes.Row, error) {
	var out []sqltypes.Row
	found := false
	for _, i := range p.candidates(left) {
		row := concatRows(left, p.right[i])
		if p.cond != nil {
			ok, err := p.cond.Test(p.env, row)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		found = true
		p.matched[i] = true
		if !p.jt.ProjectsRight() {
			break
		}
		out = append(out, row)
	}
	switch p.jt {
	case algebra.JoinSemi:
		if found {
			out = append(out, slices.Clone(left))
		}
	case algebra.JoinAnti:
		if !found {
			out = append(out, slices.Clone(left))
		}
	case algebra.JoinLeft, algebra.JoinFull:
		if !found {
			out = append(out, concatRows(left, nullRow(p.rightWidth)))
		}
	}
	return out, nil
}

func (p *probe) unmatched() []sqltypes.Row {
	var out []sqltypes.Row
	for i, row := range p.right {
		if !p.matched[i] {
			out = append(out, concatRows(nullRow(p.leftWidth), row))
		}
	}
	return out
}

func (p *probe) enumerate(left, right linq.Enumerator) linq.Enumerator {
	var pending []sqltypes.Row
	built, leftDone := false, false
	return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
		if !built {
			built = true
			if err := p.build(right); err != nil {
				return nil, false, err
			}
		}
		for len(pending) == 0 {
			if leftDone {
				return nil, false, nil
			}
			if left.Next() {
				rows, err := p.emit(left.Row())
				if err != nil {
					return nil, false, err
				}
				pending = rows
				continue
			}
			if err := left.Err(); err != nil {
				return nil, false, err
			}
			leftDone = true
			if p.jt.GeneratesNullsOnLeft() {
				pending = p.unmatched()
			}
		}
		row := pending[0]
		pending = pending[1:]
		return row, true, nil
	}, func() error {
		return closeAll([]linq.Enumerator{left, right})
	})
}

// mergeKeys returns the collations the inputs of a merge join must have.
func mergeKeys(info algebra.JoinInfo) (left, right algebra.Collation) {
	for i := range info.LeftKeys {
		left = append(left, algebra.Asc(info.LeftKeys[i]))
		right = append(right, algebra.Asc(info.RightKeys[i]))
	}
	return left, right
}

func (j *MergeJoin) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, j)
	if err != nil {
		return nil, err
	}
	info := j.Analyze()
	var residual *Expr
	if info.Residual != nil {
		if residual, err = imp.Compile(info.Residual, pairType(j.Join)); err != nil {
			return nil, err
		}
	}
	out := b.Declare("join", "%s.mergeJoin(%s, left=%v, right=%v)", names[0], names[1], info.LeftKeys, info.RightKeys)
	if residual != nil {
		b.Code("residual", residual)
	}
	srcs := sources(inputs)
	src := func(env *Env) (linq.Enumerator, error) {
		es, err := openAll(env, srcs)
		if err != nil {
			return nil, err
		}
		right := es[1]
		merged := materialized(es[0], func(left []sqltypes.Row) ([]sqltypes.Row, error) {
			rightRows, err := linq.ToRows(right)
			if err != nil {
				return nil, err
			}
			return mergeJoin(env, left, rightRows, info, residual)
		})
		return &closeWith{Enumerator: merged, also: right}, nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(j.RowType(), prefer)}, nil
}

// closeWith closes another enumerator along with its own.
type closeWith struct {
	linq.Enumerator
	also linq.Enumerator
}

func (c *closeWith) Close() error {
	err := c.Enumerator.Close()
	if err2 := c.also.Close(); err == nil {
		err = err2
	}
	return err
}

func compareKeys(a sqltypes.Row, aKeys []int, b sqltypes.Row, bKeys []int) int {
	for i := range aKeys {
		if c := sqltypes.NullsafeCompare(a[aKeys[i]], b[bKeys[i]]); c != 0 {
			return c
		}
	}
	return 0
}

// mergeJoin joins rows sorted on their keys, one chunk of equal keys at a
// time. Rows with a null key never match.
func mergeJoin(env *Env, left, right []sqltypes.Row, info algebra.JoinInfo, residual *Expr) ([]sqltypes.Row, error) {
	left = slices.DeleteFunc(left, func(r sqltypes.Row) bool { return hasNull(r, info.LeftKeys) })
	right = slices.DeleteFunc(right, func(r sqltypes.Row) bool { return hasNull(r, info.RightKeys) })
	var out []sqltypes.Row
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		c := compareKeys(left[i], info.LeftKeys, right[j], info.RightKeys)
		switch {
		case c < 0:
			i++
			continue
		case c > 0:
			j++
			continue
		}
		iEnd := i + 1
		for iEnd < len(left) && compareKeys(left[iEnd], info.LeftKeys, left[i], info.LeftKeys) == 0 {
			iEnd++
		}
		jEnd := j + 1
		for jEnd < len(right) && compareKeys(right[jEnd], info.RightKeys, right[j], info.RightKeys) == 0 {
			jEnd++
		}
		for _, l := range left[i:iEnd] {
			for _, r := range right[j:jEnd] {
				row := concatRows(l, r)
				if residual != nil {
					ok, err := residual.Test(env, row)
					if err != nil {
						return nil, err
					}
					if !ok {
						continue
					}
				}
				out = append(out, row)
			}
		}
		i, j = iEnd, jEnd
	}
	return out, nil
}

func (j *SemiJoin) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, j)
	if err != nil {
		return nil, err
	}
	info := j.Analyze()
	anti := j.JoinType == algebra.JoinAnti
	out := b.Declare("join", "%s.semiJoin(%s.distinct(%v), left=%v, anti=%t)", names[0], names[1], info.RightKeys, info.LeftKeys, anti)
	srcs := sources(inputs)
	src := func(env *Env) (linq.Enumerator, error) {
		es, err := openAll(env, srcs)
		if err != nil {
			return nil, err
		}
		left, right := es[0], es[1]
		keys := &hashKeys{left: info.LeftKeys, right: info.RightKeys, nullSafe: info.NullSafe}
		var seen map[string]struct{}
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			if seen == nil {
				seen = map[string]struct{}{}
				for right.Next() {
					if k, ok := keys.key(right.Row(), keys.right); ok {
						seen[k] = struct{}{}
					}
				}
				if err := right.Err(); err != nil {
					return nil, false, err
				}
			}
			for left.Next() {
				row := left.Row()
				found := false
				if k, ok := keys.key(row, keys.left); ok {
					_, found = seen[k]
				}
				if found != anti {
					return row, true, nil
				}
			}
			return nil, false, left.Err()
		}, func() error {
			return closeAll(es)
		}), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(j.RowType(), prefer)}, nil
}

// Correlate runs its right input once per left row, with the left row
// bound to the correlation variable.
type Correlate struct {
	*algebra.Correlate
}

var _ Node = (*Correlate)(nil)

func newCorrelate(traits algebra.TraitSet, left, right algebra.Node, c *algebra.Correlate) *Correlate {
	return &Correlate{algebra.NewCorrelateWith(traits, left, right, c.CorrelationID, c.RequiredColumns, c.JoinType)}
}

func (c *Correlate) OpName() string { return "EnumerableCorrelate" }

func (c *Correlate) Copy(traits algebra.TraitSet, inputs []algebra.Node) algebra.Node {
	return newCorrelate(traits, inputs[0], inputs[1], c.Correlate)
}

func (c *Correlate) ComputeSelfCost(mq *algebra.MetadataQuery) algebra.Cost {
	l, r := mq.RowCount(c.Left()), mq.RowCount(c.Right())
	out := mq.RowCount(c)
	return algebra.Cost{Rows: out, CPU: l*math.Max(r, 1)*2 + out}
}

func (c *Correlate) Implement(imp *Implementor, prefer RowFormat) (*Result, error) {
	inputs, b, names, err := implementInputs(imp, c)
	if err != nil {
		return nil, err
	}
	out := b.Declare("correlate", "%s.correlateJoin(%s, %s, %s)", names[0], c.CorrelationID, names[1], c.JoinType)
	leftSrc, rightSrc := inputs[0].Block.Source, inputs[1].Block.Source
	rightWidth := c.Right().RowType().FieldCount()
	id, jt := c.CorrelationID, c.JoinType
	src := func(env *Env) (linq.Enumerator, error) {
		left, err := open(env, leftSrc)
		if err != nil {
			return nil, err
		}
		var pending []sqltypes.Row
		return linq.NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
			for len(pending) == 0 {
				if !left.Next() {
					return nil, false, left.Err()
				}
				row := slices.Clone(left.Row())
				rights, err := runCorrelated(env, id, row, rightSrc)
				if err != nil {
					return nil, false, err
				}
				switch jt {
				case algebra.JoinSemi:
					if len(rights) > 0 {
						pending = append(pending, row)
					}
				case algebra.JoinAnti:
					if len(rights) == 0 {
						pending = append(pending, row)
					}
				default:
					for _, r := range rights {
						pending = append(pending, concatRows(row, r))
					}
					if len(rights) == 0 && jt == algebra.JoinLeft {
						pending = append(pending, concatRows(row, nullRow(rightWidth)))
					}
				}
			}
			row := pending[0]
			pending = pending[1:]
			return row, true, nil
		}, left.Close), nil
	}
	return &Result{Block: b.Build(out, src), PhysType: NewPhysType(c.RowType(), prefer)}, nil
}

func runCorrelated(env *Env, id rex.CorrelationID, row sqltypes.Row, src Source) ([]sqltypes.Row, error) {
	restore := env.bind(id, row)
	defer restore()
	right, err := src(env)
	if err != nil {
		return nil, err
	}
	return linq.ToRows(right)
}
