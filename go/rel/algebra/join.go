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
	"maps"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// JoinType is the kind of a join.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	// JoinSemi returns the left rows that have a match.
	JoinSemi
	// JoinAnti returns the left rows that have no match.
	JoinAnti
)

var joinTypeNames = [...]string{"inner", "left", "right", "full", "semi", "anti"}

func (jt JoinType) String() string { return joinTypeNames[jt] }

// ProjectsRight reports whether the output contains the right columns.
func (jt JoinType) ProjectsRight() bool {
	return jt != JoinSemi && jt != JoinAnti
}

// GeneratesNullsOnLeft reports whether left columns may be null-padded.
func (jt JoinType) GeneratesNullsOnLeft() bool {
	return jt == JoinRight || jt == JoinFull
}

// GeneratesNullsOnRight reports whether right columns may be null-padded.
func (jt JoinType) GeneratesNullsOnRight() bool {
	return jt == JoinLeft || jt == JoinFull
}

// Swap returns the join type with the inputs exchanged. Semi and anti
// joins cannot be swapped and are returned unchanged.
func (jt JoinType) Swap() JoinType {
	switch jt {
	case JoinLeft:
		return JoinRight
	case JoinRight:
		return JoinLeft
	}
	return jt
}

// ParseJoinType reads the lower-case name of a join type.
func ParseJoinType(s string) (JoinType, bool) {
	for i, name := range joinTypeNames {
		if name == s {
			return JoinType(i), true
		}
	}
	return JoinInner, false
}

// JoinOutputType derives the row type of a join of left and right.
func JoinOutputType(left, right *reltype.DataType, jt JoinType) *reltype.DataType {
	if !jt.ProjectsRight() {
		return left
	}
	return reltype.JoinRowType(left, right, jt.GeneratesNullsOnLeft(), jt.GeneratesNullsOnRight())
}

// Join combines two inputs. Condition references the left fields followed
// by the right fields.
type Join struct {
	Base
	Condition rex.Node
	JoinType  JoinType
}

// NewJoin joins left and right.
func NewJoin(left, right Node, condition rex.Node, jt JoinType) *Join {
	return NewJoinWith(LogicalTraits, left, right, condition, jt)
}

// NewJoinWith builds a join with explicit traits.
func NewJoinWith(traits TraitSet, left, right Node, condition rex.Node, jt JoinType) *Join {
	if condition.Type().Name != sqltypes.Boolean {
		panic(invalidRel("Join: condition %s is not BOOLEAN", condition))
	}
	both := reltype.JoinRowType(left.RowType(), right.RowType(), false, false)
	checkRefs("Join", []rex.Node{condition}, both)
	return &Join{
		Base:      NewBase(traits, JoinOutputType(left.RowType(), right.RowType(), jt), left, right),
		Condition: condition,
		JoinType:  jt,
	}
}

func (j *Join) OpName() string { return "LogicalJoin" }

func (j *Join) Copy(traits TraitSet, inputs []Node) Node {
	return NewJoinWith(traits, inputs[0], inputs[1], j.Condition, j.JoinType)
}

func (j *Join) ExplainTerms(t *Terms) {
	t.Input("left", j.Left()).Input("right", j.Right()).
		Item("condition", j.Condition).Item("joinType", j.JoinType)
}

func (j *Join) Left() Node  { return j.Input(0) }
func (j *Join) Right() Node { return j.Input(1) }

// Analyze splits the condition into equi-join keys and a residual.
func (j *Join) Analyze() JoinInfo {
	return AnalyzeJoinCondition(j.Condition, j.Left().RowType().FieldCount())
}

func (j *Join) EstimateRowCount(mq *MetadataQuery) float64 {
	return joinRowCount(mq, j.Left(), j.Right(), j.Condition, j.JoinType)
}

func joinRowCount(mq *MetadataQuery, left, right Node, cond rex.Node, jt JoinType) float64 {
	l, r := mq.RowCount(left), mq.RowCount(right)
	sel := mq.Selectivity(nil, cond)
	switch jt {
	case JoinSemi:
		return l * sel
	case JoinAnti:
		return l * (1 - sel)
	}
	info := AnalyzeJoinCondition(cond, left.RowType().FieldCount())
	inner := l * r * sel
	// A join on a unique key of one side returns at most one row per row
	// of the other side.
	if len(info.LeftKeys) > 0 && info.Residual == nil {
		if mq.AreColumnsUnique(right, bitset.Build(info.RightKeys...)) {
			inner = min(inner, l)
		} else if mq.AreColumnsUnique(left, bitset.Build(info.LeftKeys...)) {
			inner = min(inner, r)
		}
	}
	switch jt {
	case JoinLeft:
		return max(inner, l)
	case JoinRight:
		return max(inner, r)
	case JoinFull:
		return max(inner, l+r)
	}
	return inner
}

func (j *Join) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return joinUnique(mq, j.Left(), j.Right(), j.JoinType, cols)
}

func joinUnique(mq *MetadataQuery, left, right Node, jt JoinType, cols bitset.Bitset) bool {
	n := left.RowType().FieldCount()
	if !jt.ProjectsRight() {
		return mq.AreColumnsUnique(left, cols)
	}
	leftCols := cols.And(bitset.Range(0, n))
	rightCols := cols.AndNot(bitset.Range(0, n)).Shift(-n)
	if leftCols.IsEmpty() || rightCols.IsEmpty() {
		return false
	}
	return mq.AreColumnsUnique(left, leftCols) && mq.AreColumnsUnique(right, rightCols)
}

func (j *Join) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return joinConstants(mq, j.Left(), j.Right(), j.JoinType)
}

func joinConstants(mq *MetadataQuery, left, right Node, jt JoinType) map[int]rex.Node {
	out := map[int]rex.Node{}
	if !jt.GeneratesNullsOnLeft() {
		maps.Copy(out, mq.ConstantColumns(left))
	}
	if jt.ProjectsRight() && !jt.GeneratesNullsOnRight() {
		n := left.RowType().FieldCount()
		for c, v := range mq.ConstantColumns(right) {
			out[c+n] = v
		}
	}
	return out
}

// JoinInfo is the result of splitting a join condition.
type JoinInfo struct {
	// LeftKeys[i] = RightKeys[i] are the equi-join pairs. RightKeys are
	// relative to the right input.
	LeftKeys, RightKeys []int
	// NullSafe[i] is set when the pair compares with IS NOT DISTINCT FROM.
	NullSafe []bool
	// Residual is the rest of the condition, or nil.
	Residual rex.Node
}

// IsEqui reports whether the condition is only equi-join pairs.
func (ji JoinInfo) IsEqui() bool { return ji.Residual == nil }

// AnalyzeJoinCondition splits cond, over a left input with leftCount
// fields, into equi-join keys and a residual.
func AnalyzeJoinCondition(cond rex.Node, leftCount int) JoinInfo {
	var info JoinInfo
	var rest []rex.Node
	for _, c := range rex.Conjunctions(cond) {
		if rex.IsAlwaysTrue(c) {
			continue
		}
		call, ok := c.(*rex.Call)
		if ok && (call.Kind() == rex.KindEquals || call.Kind() == rex.KindIsNotDistinctFrom) {
			a, aok := call.Operands[0].(*rex.InputRef)
			b, bok := call.Operands[1].(*rex.InputRef)
			if aok && bok {
				if a.Index > b.Index {
					a, b = b, a
				}
				if a.Index < leftCount && b.Index >= leftCount {
					info.LeftKeys = append(info.LeftKeys, a.Index)
					info.RightKeys = append(info.RightKeys, b.Index-leftCount)
					info.NullSafe = append(info.NullSafe, call.Kind() == rex.KindIsNotDistinctFrom)
					continue
				}
			}
		}
		rest = append(rest, c)
	}
	if len(rest) > 0 {
		info.Residual = rex.AndOf(rest...)
	}
	return info
}

// Correlate evaluates Right once per row of Left, with the left row bound
// to CorrelationID. RequiredColumns are the left fields Right reads.
type Correlate struct {
	Base
	CorrelationID   rex.CorrelationID
	RequiredColumns bitset.Bitset
	JoinType        JoinType
}

// NewCorrelate builds a correlate. Only inner, left, semi and anti joins
// are allowed.
func NewCorrelate(left, right Node, id rex.CorrelationID, required bitset.Bitset, jt JoinType) *Correlate {
	return NewCorrelateWith(LogicalTraits, left, right, id, required, jt)
}

// NewCorrelateWith builds a correlate with explicit traits.
func NewCorrelateWith(traits TraitSet, left, right Node, id rex.CorrelationID, required bitset.Bitset, jt JoinType) *Correlate {
	if jt == JoinRight || jt == JoinFull {
		panic(invalidRel("Correlate: join type %s not allowed", jt))
	}
	if required.Max() >= left.RowType().FieldCount() {
		panic(invalidRel("Correlate: required column %d out of range", required.Max()))
	}
	return &Correlate{
		Base:            NewBase(traits, JoinOutputType(left.RowType(), right.RowType(), jt), left, right),
		CorrelationID:   id,
		RequiredColumns: required,
		JoinType:        jt,
	}
}

func (c *Correlate) OpName() string { return "LogicalCorrelate" }

func (c *Correlate) Copy(traits TraitSet, inputs []Node) Node {
	return NewCorrelateWith(traits, inputs[0], inputs[1], c.CorrelationID, c.RequiredColumns, c.JoinType)
}

func (c *Correlate) ExplainTerms(t *Terms) {
	t.Input("left", c.Left()).Input("right", c.Right()).
		Item("correlation", c.CorrelationID).
		Item("joinType", c.JoinType).
		Item("requiredColumns", c.RequiredColumns)
}

func (c *Correlate) Left() Node  { return c.Input(0) }
func (c *Correlate) Right() Node { return c.Input(1) }

func (c *Correlate) EstimateRowCount(mq *MetadataQuery) float64 {
	l, r := mq.RowCount(c.Left()), mq.RowCount(c.Right())
	switch c.JoinType {
	case JoinSemi:
		return l * 0.5
	case JoinAnti:
		return l * 0.5
	case JoinLeft:
		return max(l, l*r)
	}
	return l * r
}

func (c *Correlate) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return joinUnique(mq, c.Left(), c.Right(), c.JoinType, cols)
}

func (c *Correlate) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return joinConstants(mq, c.Left(), c.Right(), c.JoinType)
}
