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
	"fmt"
	"strings"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// AggregateCall is one aggregate function application in an Aggregate.
type AggregateCall struct {
	Func     *rex.AggFunction
	Distinct bool
	Args     []int
	// FilterArg is the input column of a BOOLEAN filter, or -1.
	FilterArg int
	// Collation is the WITHIN GROUP order for order-sensitive functions.
	Collation Collation
	Type      *reltype.DataType
	Name      string
}

// NewAggregateCall derives the call's type over input. groupEmpty says
// whether the aggregate has no group keys.
func NewAggregateCall(f *rex.AggFunction, distinct bool, args []int, filterArg int, collation Collation, input *reltype.DataType, groupEmpty bool, name string) (*AggregateCall, error) {
	if f.WindowOnly {
		return nil, invalidRel("%s is only valid in a window", f.Name)
	}
	n := input.FieldCount()
	argTypes := make([]*reltype.DataType, len(args))
	for i, a := range args {
		if a < 0 || a >= n {
			return nil, invalidRel("%s: argument %d out of range", f.Name, a)
		}
		argTypes[i] = input.Fields[a].Type
	}
	if filterArg >= n {
		return nil, invalidRel("%s: filter argument %d out of range", f.Name, filterArg)
	}
	for _, fc := range collation {
		if fc.Field >= n {
			return nil, invalidRel("%s: WITHIN GROUP field %d out of range", f.Name, fc.Field)
		}
	}
	typ, err := f.InferReturnType(argTypes, groupEmpty, filterArg >= 0)
	if err != nil {
		return nil, err
	}
	return &AggregateCall{
		Func:      f,
		Distinct:  distinct,
		Args:      args,
		FilterArg: filterArg,
		Collation: collation,
		Type:      typ,
		Name:      name,
	}, nil
}

// MustAggregateCall is NewAggregateCall that panics with an invalid
// relational expression error.
func MustAggregateCall(f *rex.AggFunction, distinct bool, args []int, filterArg int, collation Collation, input *reltype.DataType, groupEmpty bool, name string) *AggregateCall {
	call, err := NewAggregateCall(f, distinct, args, filterArg, collation, input, groupEmpty, name)
	if err != nil {
		panic(invalidRel("%s", err))
	}
	return call
}

// HasFilter reports whether the call has a FILTER argument.
func (c *AggregateCall) HasFilter() bool { return c.FilterArg >= 0 }

// WithArgs returns a copy of c with remapped columns. The type is kept.
func (c *AggregateCall) WithArgs(args []int, filterArg int, collation Collation) *AggregateCall {
	cp := *c
	cp.Args, cp.FilterArg, cp.Collation = args, filterArg, collation
	return &cp
}

// WithName returns a copy of c with another output name.
func (c *AggregateCall) WithName(name string) *AggregateCall {
	cp := *c
	cp.Name = name
	return &cp
}

// WithType returns a copy of c with another type.
func (c *AggregateCall) WithType(typ *reltype.DataType) *AggregateCall {
	cp := *c
	cp.Type = typ
	return &cp
}

func (c *AggregateCall) String() string {
	var sb strings.Builder
	sb.WriteString(c.Func.Name)
	sb.WriteByte('(')
	if c.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "$%d", a)
	}
	sb.WriteByte(')')
	if len(c.Collation) > 0 {
		sb.WriteString(" WITHIN GROUP (")
		sb.WriteString(c.Collation.String())
		sb.WriteByte(')')
	}
	if c.FilterArg >= 0 {
		fmt.Fprintf(&sb, " FILTER $%d", c.FilterArg)
	}
	return sb.String()
}

// Aggregate groups its input by GroupSet and computes AggCalls per group.
// The output has the group columns, in ascending order, followed by one
// column per call.
type Aggregate struct {
	Base
	GroupSet bitset.Bitset
	AggCalls []*AggregateCall
}

// NewAggregate groups input.
func NewAggregate(input Node, groupSet bitset.Bitset, calls []*AggregateCall) *Aggregate {
	return NewAggregateWith(LogicalTraits, input, groupSet, calls)
}

// NewAggregateWith builds an aggregate with explicit traits.
func NewAggregateWith(traits TraitSet, input Node, groupSet bitset.Bitset, calls []*AggregateCall) *Aggregate {
	in := input.RowType()
	if groupSet.Max() >= in.FieldCount() {
		panic(invalidRel("Aggregate: group column %d out of range", groupSet.Max()))
	}
	seen := map[string]bool{}
	var fields []reltype.Field
	groupSet.ForEach(func(c int) {
		f := in.Fields[c]
		fields = append(fields, reltype.Field{Name: reltype.UniqueName(f.Name, seen), Type: f.Type})
	})
	for i, call := range calls {
		name := call.Name
		if name == "" {
			name = fmt.Sprintf("$f%d", len(fields))
		}
		if call.Func.WindowOnly {
			panic(invalidRel("Aggregate: %s is only valid in a window", call.Func.Name))
		}
		if call.FilterArg >= in.FieldCount() || (len(call.Args) > 0 && maxInt(call.Args) >= in.FieldCount()) {
			panic(invalidRel("Aggregate: call %d (%s) references a missing column", i, call))
		}
		fields = append(fields, reltype.Field{Name: reltype.UniqueName(name, seen), Type: call.Type})
	}
	return &Aggregate{
		Base:     NewBase(traits, reltype.Struct(fields...), input),
		GroupSet: groupSet,
		AggCalls: calls,
	}
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		m = max(m, x)
	}
	return m
}

func (a *Aggregate) OpName() string { return "LogicalAggregate" }

func (a *Aggregate) Copy(traits TraitSet, inputs []Node) Node {
	return NewAggregateWith(traits, inputs[0], a.GroupSet, a.AggCalls)
}

func (a *Aggregate) ExplainTerms(t *Terms) {
	t.Input("input", a.Input(0)).Item("group", a.GroupSet)
	fields := a.RowType().Fields[a.GroupCount():]
	for i, call := range a.AggCalls {
		t.Item(fields[i].Name, call)
	}
}

// GroupCount is the number of group columns.
func (a *Aggregate) GroupCount() int { return a.GroupSet.Popcount() }

// IsSimple reports whether a has no aggregate calls.
func (a *Aggregate) IsSimple() bool { return len(a.AggCalls) == 0 }

func (a *Aggregate) EstimateRowCount(mq *MetadataQuery) float64 {
	if a.GroupSet.IsEmpty() {
		return 1
	}
	return mq.DistinctRowCount(a.Input(0), a.GroupSet)
}

func (a *Aggregate) AreColumnsUnique(_ *MetadataQuery, cols bitset.Bitset) bool {
	if a.GroupSet.IsEmpty() {
		return true
	}
	return bitset.Range(0, a.GroupCount()).IsContainedBy(cols)
}

func (a *Aggregate) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	in := mq.ConstantColumns(a.Input(0))
	out := map[int]rex.Node{}
	for i, c := range a.GroupSet.Ordinals() {
		if v, ok := in[c]; ok {
			out[i] = v
		}
	}
	return out
}

// WindowBoundKind is the kind of a window frame bound.
type WindowBoundKind int

const (
	UnboundedPreceding WindowBoundKind = iota
	Preceding
	CurrentRow
	Following
	UnboundedFollowing
)

// WindowBound is one end of a window frame. Offset is used by Preceding
// and Following.
type WindowBound struct {
	Kind   WindowBoundKind
	Offset int
}

func (b WindowBound) String() string {
	switch b.Kind {
	case UnboundedPreceding:
		return "UNBOUNDED PRECEDING"
	case Preceding:
		return fmt.Sprintf("%d PRECEDING", b.Offset)
	case CurrentRow:
		return "CURRENT ROW"
	case Following:
		return fmt.Sprintf("%d FOLLOWING", b.Offset)
	}
	return "UNBOUNDED FOLLOWING"
}

// position orders bounds; offsets count rows (or peer groups).
func (b WindowBound) position() int {
	switch b.Kind {
	case UnboundedPreceding:
		return -1 << 30
	case Preceding:
		return -b.Offset
	case Following:
		return b.Offset
	case UnboundedFollowing:
		return 1 << 30
	}
	return 0
}

// WindowCall is one function computed over a window.
type WindowCall struct {
	Func *rex.AggFunction
	Args []int
	Type *reltype.DataType
	Name string
}

func (c WindowCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprintf("$%d", a)
	}
	return c.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

// WindowGroup is a set of calls sharing partitioning, order and frame.
type WindowGroup struct {
	Keys   bitset.Bitset
	Order  Collation
	IsRows bool
	Lower  WindowBound
	Upper  WindowBound
	Calls  []WindowCall
}

func (g WindowGroup) String() string {
	unit := "RANGE"
	if g.IsRows {
		unit = "ROWS"
	}
	calls := make([]string, len(g.Calls))
	for i, c := range g.Calls {
		calls[i] = c.String()
	}
	return fmt.Sprintf("window(partition %s order by %s %s between %s and %s aggs [%s])",
		g.Keys, g.Order, unit, g.Lower, g.Upper, strings.Join(calls, ", "))
}

// includesCurrentRow reports whether every frame contains its current row.
func (g WindowGroup) includesCurrentRow() bool {
	return g.Lower.position() <= 0 && g.Upper.position() >= 0
}

// Window appends the result of each call of each group to its input row.
type Window struct {
	Base
	Groups []WindowGroup
}

// NewWindow builds a window over input, deriving call types.
func NewWindow(input Node, groups []WindowGroup) *Window {
	return NewWindowWith(LogicalTraits, input, groups)
}

// NewWindowWith builds a window with explicit traits.
func NewWindowWith(traits TraitSet, input Node, groups []WindowGroup) *Window {
	in := input.RowType()
	n := in.FieldCount()
	fields := append([]reltype.Field(nil), in.Fields...)
	seen := map[string]bool{}
	for _, f := range in.Fields {
		seen[f.Name] = true
	}
	out := make([]WindowGroup, len(groups))
	for gi, g := range groups {
		if g.Keys.Max() >= n {
			panic(invalidRel("Window: partition column %d out of range", g.Keys.Max()))
		}
		if g.Lower.position() > g.Upper.position() {
			panic(invalidRel("Window: frame lower bound %s is after upper bound %s", g.Lower, g.Upper))
		}
		for _, fc := range g.Order {
			if fc.Field >= n {
				panic(invalidRel("Window: order column %d out of range", fc.Field))
			}
		}
		calls := make([]WindowCall, len(g.Calls))
		for ci, c := range g.Calls {
			argTypes := make([]*reltype.DataType, len(c.Args))
			for i, a := range c.Args {
				if a < 0 || a >= n {
					panic(invalidRel("Window: %s argument %d out of range", c.Func.Name, a))
				}
				argTypes[i] = in.Fields[a].Type
			}
			if c.Type == nil {
				typ, err := c.Func.InferReturnType(argTypes, !g.includesCurrentRow(), false)
				if err != nil {
					panic(invalidRel("Window: %s", err))
				}
				c.Type = typ
			}
			name := c.Name
			if name == "" {
				name = fmt.Sprintf("w%d$o%d", gi, ci)
			}
			c.Name = reltype.UniqueName(name, seen)
			calls[ci] = c
			fields = append(fields, reltype.Field{Name: c.Name, Type: c.Type})
		}
		g.Calls = calls
		out[gi] = g
	}
	return &Window{Base: NewBase(traits, reltype.Struct(fields...), input), Groups: out}
}

func (w *Window) OpName() string { return "LogicalWindow" }

func (w *Window) Copy(traits TraitSet, inputs []Node) Node {
	return NewWindowWith(traits, inputs[0], w.Groups)
}

func (w *Window) ExplainTerms(t *Terms) {
	t.Input("input", w.Input(0))
	for i, g := range w.Groups {
		t.Item(fmt.Sprintf("window#%d", i), g)
	}
}

func (w *Window) EstimateRowCount(mq *MetadataQuery) float64 {
	return mq.RowCount(w.Input(0))
}

func (w *Window) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	n := w.Input(0).RowType().FieldCount()
	inputCols := cols.And(bitset.Range(0, n))
	return !inputCols.IsEmpty() && mq.AreColumnsUnique(w.Input(0), inputCols)
}

func (w *Window) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return mq.ConstantColumns(w.Input(0))
}
