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

// Package algebra defines relational expressions: operators, their traits,
// digests, explain output, metadata and cost.
package algebra

import (
	"fmt"
	"strings"
	"sync/atomic"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
)

// Node is a relational expression. Nodes are immutable: rewrites build new
// nodes through Copy or the constructors.
type Node interface {
	// ID is unique among all nodes created by the process.
	ID() int
	RowType() *reltype.DataType
	Traits() TraitSet
	Inputs() []Node
	// Copy returns a node of the same kind with the given traits and inputs.
	Copy(traits TraitSet, inputs []Node) Node
	// ExplainTerms lists the attributes that identify the node.
	ExplainTerms(t *Terms)
	// OpName is the operator name used in explain output and digests.
	OpName() string
}

// Delegating is a node that stands for another one, such as a planner's
// equivalence set or graph vertex. Metadata is computed on the delegate.
type Delegating interface {
	Node
	Delegate() Node
}

// Digester is implemented by nodes whose digest is not derived from their
// terms.
type Digester interface {
	Digest() string
}

var nextID atomic.Int64

// NewID returns a fresh node id.
func NewID() int {
	return int(nextID.Add(1))
}

// Base holds the state shared by every operator.
type Base struct {
	id      int
	traits  TraitSet
	rowType *reltype.DataType
	inputs  []Node
	digest  string
}

// NewBase initializes the common state of an operator.
func NewBase(traits TraitSet, rowType *reltype.DataType, inputs ...Node) Base {
	return Base{id: NewID(), traits: traits, rowType: rowType, inputs: inputs}
}

func (b *Base) ID() int                    { return b.id }
func (b *Base) Traits() TraitSet           { return b.traits }
func (b *Base) RowType() *reltype.DataType { return b.rowType }
func (b *Base) Inputs() []Node             { return b.inputs }

// Input returns the i-th input.
func (b *Base) Input(i int) Node { return b.inputs[i] }

func (b *Base) cachedDigest() *string { return &b.digest }

type digestCache interface {
	cachedDigest() *string
}

// Digest returns a string identifying n by operator, convention, terms and
// input digests. Two nodes with the same digest are equivalent.
func Digest(n Node) string {
	if d, ok := n.(Digester); ok {
		return d.Digest()
	}
	var cache *string
	if c, ok := n.(digestCache); ok {
		cache = c.cachedDigest()
		if *cache != "" {
			return *cache
		}
	}
	var terms Terms
	n.ExplainTerms(&terms)
	var sb strings.Builder
	sb.WriteString(n.OpName())
	sb.WriteByte('.')
	sb.WriteString(n.Traits().Key())
	sb.WriteByte('(')
	for i, item := range terms.items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(item.Name)
		sb.WriteByte('=')
		if item.Input != nil {
			sb.WriteString(Digest(item.Input))
		} else {
			sb.WriteString(item.Value)
		}
	}
	sb.WriteByte(')')
	d := sb.String()
	if cache != nil {
		*cache = d
	}
	return d
}

// Strip follows Delegating nodes to the node they stand for.
func Strip(n Node) Node {
	for {
		d, ok := n.(Delegating)
		if !ok {
			return n
		}
		next := d.Delegate()
		if next == nil || next == n {
			return n
		}
		n = next
	}
}

// Term is one explain attribute. Inputs carry the input node.
type Term struct {
	Name  string
	Value string
	Input Node
}

// Terms collects the attributes of a node.
type Terms struct {
	items []Term
}

// Input adds an input term.
func (t *Terms) Input(name string, n Node) *Terms {
	t.items = append(t.items, Term{Name: name, Input: n})
	return t
}

// Item adds an attribute. Values are rendered with FormatTerm.
func (t *Terms) Item(name string, v any) *Terms {
	t.items = append(t.items, Term{Name: name, Value: FormatTerm(v)})
	return t
}

// ItemIf adds the attribute only when cond holds.
func (t *Terms) ItemIf(name string, v any, cond bool) *Terms {
	if cond {
		t.Item(name, v)
	}
	return t
}

// Items returns the collected terms.
func (t *Terms) Items() []Term { return t.items }

// FormatTerm renders an attribute value the way explain prints it.
func FormatTerm(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case rex.Node:
		return v.Digest()
	case []rex.Node:
		return "[" + rex.Digests(v) + "]"
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	case []int:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

// invalidRel is the error a rule hits when it builds an expression that
// does not type check. Planners decline the rule instead of failing.
func invalidRel(format string, args ...any) error {
	return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.InvalidRelExpression, format, args...)
}

// IsInvalidRel reports whether err (or a recovered panic value) is an
// invalid relational expression error.
func IsInvalidRel(v any) bool {
	err, ok := v.(error)
	return ok && relerrors.ErrState(err) == relerrors.InvalidRelExpression
}

// Walk visits n and its descendants, parents first. Delegating nodes are
// visited as themselves.
func Walk(n Node, f func(Node) bool) {
	if !f(n) {
		return
	}
	for _, in := range n.Inputs() {
		Walk(in, f)
	}
}
