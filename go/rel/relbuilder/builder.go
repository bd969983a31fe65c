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

// Package relbuilder builds relational expressions with a stack: each call
// pops its inputs and pushes the new node. Rules use it to construct the
// expressions they register.
//
// Errors in the built expression panic with an invalid relational
// expression error, which planners turn into a declined rule.
package relbuilder

import (
	"fmt"
	"slices"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Builder holds a stack of relational expressions under construction.
type Builder struct {
	stack []algebra.Node
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

func invalid(format string, args ...any) {
	panic(relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.InvalidRelExpression, format, args...))
}

// Push pushes n.
func (b *Builder) Push(n algebra.Node) *Builder {
	b.stack = append(b.stack, n)
	return b
}

// PushAll pushes every node of ns in order.
func (b *Builder) PushAll(ns ...algebra.Node) *Builder {
	b.stack = append(b.stack, ns...)
	return b
}

// Size is the number of nodes on the stack.
func (b *Builder) Size() int { return len(b.stack) }

// Peek returns the top node.
func (b *Builder) Peek() algebra.Node { return b.PeekN(0) }

// PeekN returns the node n positions below the top.
func (b *Builder) PeekN(n int) algebra.Node {
	if n >= len(b.stack) {
		invalid("relbuilder: stack has %d entries, asked for %d", len(b.stack), n)
	}
	return b.stack[len(b.stack)-1-n]
}

func (b *Builder) pop() algebra.Node {
	n := b.Peek()
	b.stack = b.stack[:len(b.stack)-1]
	return n
}

func (b *Builder) popN(n int) []algebra.Node {
	if n > len(b.stack) {
		invalid("relbuilder: stack has %d entries, need %d", len(b.stack), n)
	}
	out := slices.Clone(b.stack[len(b.stack)-n:])
	b.stack = b.stack[:len(b.stack)-n]
	return out
}

// Build pops and returns the top node.
func (b *Builder) Build() algebra.Node {
	return b.pop()
}

// Scan pushes a scan of table.
func (b *Builder) Scan(table catalog.Table) *Builder {
	return b.Push(algebra.NewTableScan(table))
}

// Values pushes a Values of the given row type. Each row holds Go values
// or sqltypes.Values.
func (b *Builder) Values(rowType *reltype.DataType, rows ...[]any) *Builder {
	tuples := make([][]*rex.Literal, len(rows))
	for i, row := range rows {
		if len(row) != rowType.FieldCount() {
			invalid("Values: row %d has %d values, expected %d", i, len(row), rowType.FieldCount())
		}
		tuple := make([]*rex.Literal, len(row))
		for j, x := range row {
			v, err := sqltypes.ValueFromGo(x)
			if err != nil {
				invalid("Values: %s", err)
			}
			tuple[j] = rex.NewLiteral(v, rowType.Fields[j].Type)
		}
		tuples[i] = tuple
	}
	return b.Push(algebra.NewValues(rowType, tuples))
}

// Empty replaces the top node with an empty Values of the same row type.
func (b *Builder) Empty() *Builder {
	n := b.pop()
	return b.Push(algebra.NewEmptyValues(n.RowType()))
}

// Field references field i of the top node.
func (b *Builder) Field(i int) rex.Node {
	return b.FieldOf(1, 0, i)
}

// FieldOf references field i of input ordinal of the top inputCount
// nodes, with the index offset as seen by a join over those inputs.
func (b *Builder) FieldOf(inputCount, ordinal, i int) rex.Node {
	offset := 0
	for k := range ordinal {
		offset += b.PeekN(inputCount - 1 - k).RowType().FieldCount()
	}
	rt := b.PeekN(inputCount - 1 - ordinal).RowType()
	if i < 0 || i >= rt.FieldCount() {
		invalid("field %d out of range for %s", i, rt)
	}
	return rex.NewInputRef(offset+i, rt.Fields[i].Type)
}

// FieldByName references a field of the top node by name.
func (b *Builder) FieldByName(name string) rex.Node {
	f, ok := b.Peek().RowType().FieldByName(name)
	if !ok {
		invalid("field '%s' not found in %s", name, b.Peek().RowType())
	}
	return rex.NewInputRef(f.Index, f.Type)
}

// Fields references every field of the top node.
func (b *Builder) Fields() []rex.Node {
	return rex.InputRefsOf(b.Peek().RowType())
}

// FieldsOf references the given fields of the top node.
func (b *Builder) FieldsOf(ordinals ...int) []rex.Node {
	out := make([]rex.Node, len(ordinals))
	for i, o := range ordinals {
		out[i] = b.Field(o)
	}
	return out
}

// Literal makes a literal from a Go value or a sqltypes.Value; nil makes
// NULL of type ANY.
func (b *Builder) Literal(x any) rex.Node {
	v, err := sqltypes.ValueFromGo(x)
	if err != nil {
		invalid("literal: %s", err)
	}
	if v.IsNull() {
		return rex.NewNullLiteral(reltype.New(sqltypes.Any, true))
	}
	return rex.LiteralOf(v)
}

// Call applies op to operands.
func (b *Builder) Call(op *rex.Operator, operands ...rex.Node) rex.Node {
	return rex.MustCall(op, operands...)
}

func (b *Builder) Equals(x, y rex.Node) rex.Node { return rex.EqualsOf(x, y) }
func (b *Builder) IsNull(x rex.Node) rex.Node    { return rex.IsNullOf(x) }
func (b *Builder) IsNotNull(x rex.Node) rex.Node { return rex.IsNotNullOf(x) }
func (b *Builder) Not(x rex.Node) rex.Node       { return rex.MakeNot(x) }
func (b *Builder) And(xs ...rex.Node) rex.Node   { return rex.AndOf(xs...) }
func (b *Builder) Or(xs ...rex.Node) rex.Node    { return rex.OrOf(xs...) }

// Cast casts x to typ.
func (b *Builder) Cast(x rex.Node, typ *reltype.DataType) rex.Node {
	return rex.MakeCast(typ, x)
}

// Filter filters the top node by the conjunction of conds. A condition
// that simplifies to TRUE adds no node; FALSE replaces the input with an
// empty Values.
func (b *Builder) Filter(conds ...rex.Node) *Builder {
	cond := rex.SimplifyPredicate(rex.AndOf(conds...))
	if rex.IsAlwaysTrue(cond) {
		return b
	}
	if rex.IsAlwaysFalse(cond) {
		return b.Empty()
	}
	return b.Push(algebra.NewFilter(b.pop(), cond))
}

// Project projects exprs over the top node. An identity projection
// without names adds no node.
func (b *Builder) Project(exprs []rex.Node, names ...string) *Builder {
	return b.project(exprs, names, false)
}

// ProjectForce is Project that always creates a node.
func (b *Builder) ProjectForce(exprs []rex.Node, names ...string) *Builder {
	return b.project(exprs, names, true)
}

// ProjectPlus projects all fields followed by exprs.
func (b *Builder) ProjectPlus(exprs ...rex.Node) *Builder {
	return b.Project(append(b.Fields(), exprs...))
}

func (b *Builder) project(exprs []rex.Node, names []string, force bool) *Builder {
	input := b.Peek()
	if !force && len(names) == 0 && rex.IsIdentity(exprs, input.RowType()) {
		return b
	}
	simplified := make([]rex.Node, len(exprs))
	for i, e := range exprs {
		simplified[i] = rex.Simplify(e)
	}
	rowType := algebra.ProjectRowType(input.RowType(), simplified, names)
	if !force && rex.IsIdentity(simplified, input.RowType()) && slices.Equal(rowType.FieldNames(), input.RowType().FieldNames()) {
		return b
	}
	b.pop()
	return b.Push(algebra.NewProjectWith(algebra.LogicalTraits, input, simplified, rowType))
}

// Rename renames the fields of the top node, adding a projection if any
// name changes. Empty names keep the current name.
func (b *Builder) Rename(names ...string) *Builder {
	cur := b.Peek().RowType().FieldNames()
	next := slices.Clone(cur)
	for i, n := range names {
		if n != "" && i < len(next) {
			next[i] = n
		}
	}
	if slices.Equal(cur, next) {
		return b
	}
	return b.ProjectForce(b.Fields(), next...)
}

// Convert projects the top node to rowType, casting fields whose type
// differs. With rename the field names of rowType are used.
func (b *Builder) Convert(rowType *reltype.DataType, rename bool) *Builder {
	input := b.Peek().RowType()
	if input.FieldCount() != rowType.FieldCount() {
		invalid("convert: %s has %d fields, target %s has %d", input, input.FieldCount(), rowType, rowType.FieldCount())
	}
	exprs := make([]rex.Node, rowType.FieldCount())
	names := make([]string, rowType.FieldCount())
	for i, f := range rowType.Fields {
		exprs[i] = rex.MakeCast(f.Type, b.Field(i))
		names[i] = input.Fields[i].Name
		if rename {
			names[i] = f.Name
		}
	}
	return b.Project(exprs, names...)
}

// Join pops right and left and joins them. Conditions are ANDed.
func (b *Builder) Join(jt algebra.JoinType, conds ...rex.Node) *Builder {
	cond := rex.AndOf(conds...)
	ins := b.popN(2)
	return b.Push(algebra.NewJoin(ins[0], ins[1], rex.Simplify(cond), jt))
}

// JoinUsing joins on equality of the named fields, present on both sides.
func (b *Builder) JoinUsing(jt algebra.JoinType, names ...string) *Builder {
	var conds []rex.Node
	left, right := b.PeekN(1).RowType(), b.PeekN(0).RowType()
	for _, name := range names {
		lf, lok := left.FieldByName(name)
		rf, rok := right.FieldByName(name)
		if !lok || !rok {
			invalid("join using: field '%s' missing on one side", name)
		}
		conds = append(conds, rex.EqualsOf(b.FieldOf(2, 0, lf.Index), b.FieldOf(2, 1, rf.Index)))
	}
	return b.Join(jt, conds...)
}

// SemiJoin keeps the left rows that have a match.
func (b *Builder) SemiJoin(conds ...rex.Node) *Builder {
	return b.Join(algebra.JoinSemi, conds...)
}

// AntiJoin keeps the left rows that have no match.
func (b *Builder) AntiJoin(conds ...rex.Node) *Builder {
	return b.Join(algebra.JoinAnti, conds...)
}

// Correlate pops right and left and correlates them through id. The
// required columns are the left fields that right reads through id.
func (b *Builder) Correlate(jt algebra.JoinType, id rex.CorrelationID) *Builder {
	ins := b.popN(2)
	required := CorrelationColumns(id, ins[1])
	return b.Push(algebra.NewCorrelate(ins[0], ins[1], id, required, jt))
}

// CorrelationColumns returns the fields of the correlated row that n reads
// through id.
func CorrelationColumns(id rex.CorrelationID, n algebra.Node) bitset.Bitset {
	var cols []int
	algebra.Walk(n, func(node algebra.Node) bool {
		for _, e := range NodeExprs(node) {
			rex.Visit(e, func(x rex.Node) bool {
				if fa, ok := x.(*rex.FieldAccess); ok {
					if v, ok := fa.Expr.(*rex.CorrelVariable); ok && v.ID == id {
						cols = append(cols, fa.Field.Index)
					}
				}
				return true
			})
		}
		return true
	})
	return bitset.Build(cols...)
}

// NodeExprs returns the scalar expressions held by n.
func NodeExprs(n algebra.Node) []rex.Node {
	switch n := algebra.Strip(n).(type) {
	case *algebra.Project:
		return n.Exprs
	case *algebra.Filter:
		return []rex.Node{n.Condition}
	case *algebra.Calc:
		return n.Program.Exprs
	case *algebra.Join:
		return []rex.Node{n.Condition}
	case *algebra.TableScan:
		return n.Filters
	case interface{ Exprs() []rex.Node }:
		return n.Exprs()
	}
	return nil
}

// AggCall describes an aggregate call in terms of expressions over the
// aggregate's input.
type AggCall struct {
	fn       *rex.AggFunction
	distinct bool
	args     []rex.Node
	filter   rex.Node
	order    algebra.Collation
	name     string
}

// Agg starts an aggregate call.
func (b *Builder) Agg(fn *rex.AggFunction, args ...rex.Node) *AggCall {
	return &AggCall{fn: fn, args: args}
}

// Count is COUNT([DISTINCT] args).
func (b *Builder) Count(distinct bool, name string, args ...rex.Node) *AggCall {
	return b.Agg(rex.Count, args...).Distinct(distinct).As(name)
}

// Sum is SUM(arg).
func (b *Builder) Sum(name string, arg rex.Node) *AggCall {
	return b.Agg(rex.Sum, arg).As(name)
}

// Distinct sets DISTINCT.
func (c *AggCall) Distinct(d bool) *AggCall {
	c.distinct = d
	return c
}

// Filter sets the FILTER condition.
func (c *AggCall) Filter(cond rex.Node) *AggCall {
	c.filter = cond
	return c
}

// WithinGroup sets the WITHIN GROUP order, over the aggregate's input.
func (c *AggCall) WithinGroup(order algebra.Collation) *AggCall {
	c.order = order
	return c
}

// As names the output field.
func (c *AggCall) As(name string) *AggCall {
	c.name = name
	return c
}

// Aggregate groups the top node by groupKeys. Arguments and filters that
// are not plain field references are first computed by a projection.
func (b *Builder) Aggregate(groupKeys []rex.Node, calls ...*AggCall) *Builder {
	input := b.Peek()
	n := input.RowType().FieldCount()
	extra := []rex.Node{}
	index := func(e rex.Node) int {
		if ref, ok := e.(*rex.InputRef); ok {
			return ref.Index
		}
		for i, x := range extra {
			if rex.Equal(x, e) {
				return n + i
			}
		}
		extra = append(extra, e)
		return n + len(extra) - 1
	}
	keys := make([]int, len(groupKeys))
	for i, k := range groupKeys {
		keys[i] = index(k)
	}
	type resolved struct {
		args   []int
		filter int
	}
	res := make([]resolved, len(calls))
	for i, c := range calls {
		r := resolved{filter: -1}
		for _, a := range c.args {
			r.args = append(r.args, index(a))
		}
		if c.filter != nil {
			r.filter = index(c.filter)
		}
		res[i] = r
	}
	if len(extra) > 0 {
		b.ProjectPlus(extra...)
		input = b.Peek()
	}
	groupSet := bitset.Build(keys...)
	aggCalls := make([]*algebra.AggregateCall, len(calls))
	for i, c := range calls {
		call, err := algebra.NewAggregateCall(c.fn, c.distinct, res[i].args, res[i].filter, c.order, input.RowType(), groupSet.IsEmpty(), c.name)
		if err != nil {
			invalid("aggregate: %s", err)
		}
		aggCalls[i] = call
	}
	b.pop()
	agg := algebra.NewAggregate(input, groupSet, aggCalls)
	b.Push(agg)
	// Group keys come out in ascending order; restore the requested order.
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	if !slices.Equal(ordered, keys) || len(slices.Compact(slices.Clone(ordered))) != len(keys) {
		exprs := make([]rex.Node, 0, len(keys)+len(calls))
		for _, k := range keys {
			exprs = append(exprs, b.Field(slices.Index(groupSet.Ordinals(), k)))
		}
		for i := range calls {
			exprs = append(exprs, b.Field(groupSet.Popcount()+i))
		}
		b.Project(exprs)
	}
	return b
}

// AggregateCalls groups the top node by groupSet with prepared calls.
func (b *Builder) AggregateCalls(groupSet bitset.Bitset, calls ...*algebra.AggregateCall) *Builder {
	return b.Push(algebra.NewAggregate(b.pop(), groupSet, calls))
}

// Distinct removes duplicate rows of the top node.
func (b *Builder) Distinct() *Builder {
	n := b.pop()
	return b.Push(algebra.NewAggregate(n, bitset.Range(0, n.RowType().FieldCount()), nil))
}

// Sort sorts the top node.
func (b *Builder) Sort(collation ...algebra.FieldCollation) *Builder {
	return b.SortLimit(-1, -1, collation...)
}

// Limit skips offset rows and returns at most fetch; negative values are
// omitted.
func (b *Builder) Limit(offset, fetch int64) *Builder {
	return b.SortLimit(offset, fetch)
}

// SortLimit sorts and limits the top node. A sort on an empty collation
// without offset or fetch adds no node.
func (b *Builder) SortLimit(offset, fetch int64, collation ...algebra.FieldCollation) *Builder {
	var off, lim rex.Node
	if offset > 0 {
		off = rex.LiteralOf(sqltypes.NewInt64(offset))
	}
	if fetch >= 0 {
		lim = rex.LiteralOf(sqltypes.NewInt64(fetch))
		if fetch == 0 {
			return b.Empty()
		}
	}
	if len(collation) == 0 && off == nil && lim == nil {
		return b
	}
	return b.Push(algebra.NewSort(b.pop(), algebra.Collation(collation), off, lim))
}

// Union pops n nodes and unions them.
func (b *Builder) Union(all bool, n int) *Builder {
	return b.Push(algebra.NewUnion(all, b.popN(n)...))
}

// Intersect pops n nodes and intersects them.
func (b *Builder) Intersect(all bool, n int) *Builder {
	return b.Push(algebra.NewIntersect(all, b.popN(n)...))
}

// Minus pops n nodes and subtracts the later ones from the first.
func (b *Builder) Minus(all bool, n int) *Builder {
	return b.Push(algebra.NewMinus(all, b.popN(n)...))
}

// Window adds window groups over the top node.
func (b *Builder) Window(groups ...algebra.WindowGroup) *Builder {
	return b.Push(algebra.NewWindow(b.pop(), groups))
}

// Modify writes the top node into table.
func (b *Builder) Modify(table catalog.Table, op algebra.ModifyOperation, updateColumns ...string) *Builder {
	return b.Push(algebra.NewTableModify(table, b.pop(), op, updateColumns))
}

func (b *Builder) String() string {
	return fmt.Sprintf("relbuilder(%d)", len(b.stack))
}
