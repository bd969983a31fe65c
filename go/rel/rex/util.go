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

package rex

import (
	"slices"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// Children returns the direct sub-expressions of n.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Call:
		return n.Operands
	case *FieldAccess:
		return []Node{n.Expr}
	}
	return nil
}

func withChildren(n Node, children []Node) Node {
	switch n := n.(type) {
	case *Call:
		return n.WithOperands(children)
	case *FieldAccess:
		return NewFieldAccess(children[0], n.Field.Index)
	}
	return n
}

// Transform rewrites n bottom-up: children are transformed first, then f is
// applied to the node rebuilt from the new children. Unchanged subtrees are
// not copied.
func Transform(n Node, f func(Node) Node) Node {
	children := Children(n)
	if len(children) > 0 {
		var changed []Node
		for i, c := range children {
			nc := Transform(c, f)
			if nc != c && changed == nil {
				changed = slices.Clone(children)
			}
			if changed != nil {
				changed[i] = nc
			}
		}
		if changed != nil {
			n = withChildren(n, changed)
		}
	}
	return f(n)
}

// TransformAll applies Transform to each node.
func TransformAll(nodes []Node, f func(Node) Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Transform(n, f)
	}
	return out
}

// Visit walks n in pre-order. Returning false from f skips the children of
// the current node.
func Visit(n Node, f func(Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range Children(n) {
		Visit(c, f)
	}
}

// Conjunctions flattens nested ANDs. TRUE yields no conjuncts and nil yields
// none.
func Conjunctions(n Node) []Node {
	return flatten(n, KindAnd, true)
}

// Disjunctions flattens nested ORs. FALSE yields no disjuncts.
func Disjunctions(n Node) []Node {
	return flatten(n, KindOr, false)
}

func flatten(n Node, kind Kind, identity bool) []Node {
	if n == nil {
		return nil
	}
	if IsLiteralBool(n, identity) {
		return nil
	}
	if c, ok := n.(*Call); ok && c.Op.Kind == kind {
		var out []Node
		for _, o := range c.Operands {
			out = append(out, flatten(o, kind, identity)...)
		}
		return out
	}
	return []Node{n}
}

// AndOf returns the conjunction of nodes, flattening nested ANDs, removing
// TRUE and duplicate conjuncts. No conjuncts yields TRUE; any FALSE yields
// FALSE.
func AndOf(nodes ...Node) Node {
	return composite(KindAnd, nodes)
}

// OrOf is the disjunctive counterpart of AndOf.
func OrOf(nodes ...Node) Node {
	return composite(KindOr, nodes)
}

func composite(kind Kind, nodes []Node) Node {
	identity := kind == KindAnd
	var terms []Node
	seen := map[string]bool{}
	for _, n := range nodes {
		for _, t := range flatten(n, kind, identity) {
			if IsLiteralBool(t, !identity) {
				return BoolLiteral(!identity)
			}
			if seen[t.Digest()] {
				continue
			}
			seen[t.Digest()] = true
			terms = append(terms, t)
		}
	}
	switch len(terms) {
	case 0:
		return BoolLiteral(identity)
	case 1:
		return terms[0]
	}
	op := And
	if kind == KindOr {
		op = Or
	}
	return MustCall(op, terms...)
}

// IsLiteralBool returns true if n is the non-null boolean literal b.
func IsLiteralBool(n Node, b bool) bool {
	lit, ok := n.(*Literal)
	if !ok || lit.IsNull() || lit.Value.Type() != sqltypes.Boolean {
		return false
	}
	v, _ := lit.Value.ToBool()
	return v == b
}

// IsAlwaysTrue returns true if n is nil or the literal TRUE.
func IsAlwaysTrue(n Node) bool {
	return n == nil || IsLiteralBool(n, true)
}

// IsAlwaysFalse returns true if n is the literal FALSE or a NULL literal;
// as a condition both reject every row.
func IsAlwaysFalse(n Node) bool {
	if lit, ok := n.(*Literal); ok && lit.IsNull() {
		return true
	}
	return IsLiteralBool(n, false)
}

// IsNullLiteral returns true if n is a NULL literal, possibly wrapped in
// casts.
func IsNullLiteral(n Node) bool {
	for {
		switch x := n.(type) {
		case *Literal:
			return x.IsNull()
		case *Call:
			if x.Op.Kind != KindCast {
				return false
			}
			n = x.Operands[0]
		default:
			return false
		}
	}
}

// Shift adds offset to every input reference in n.
func Shift(n Node, offset int) Node {
	return ShiftFrom(n, 0, offset)
}

// ShiftFrom adds offset to every input reference whose index is >= start.
func ShiftFrom(n Node, start, offset int) Node {
	if offset == 0 {
		return n
	}
	return Transform(n, func(n Node) Node {
		if ref, ok := n.(*InputRef); ok && ref.Index >= start {
			return NewInputRef(ref.Index+offset, ref.Type())
		}
		return n
	})
}

// ShiftAll applies Shift to each node.
func ShiftAll(nodes []Node, offset int) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Shift(n, offset)
	}
	return out
}

// Permute replaces input reference i with a reference to mapping[i]. It
// panics if a referenced field has no mapping.
func Permute(n Node, mapping []int) Node {
	return Transform(n, func(n Node) Node {
		if ref, ok := n.(*InputRef); ok {
			if ref.Index >= len(mapping) || mapping[ref.Index] < 0 {
				panic(invalidRel("input $%d has no mapping", ref.Index))
			}
			return NewInputRef(mapping[ref.Index], ref.Type())
		}
		return n
	})
}

// Substitute replaces input reference i with exprs[i]. It is used to push
// an expression through a Project.
func Substitute(n Node, exprs []Node) Node {
	return Transform(n, func(n Node) Node {
		if ref, ok := n.(*InputRef); ok {
			e := exprs[ref.Index]
			if !e.Type().Equal(ref.Type()) && e.Type().Name == ref.Type().Name {
				// Keep the referencing type, e.g. when the expression is
				// non-nullable and the reference was made nullable.
				return MakeCast(ref.Type(), e)
			}
			return e
		}
		return n
	})
}

// SubstituteAll applies Substitute to each node.
func SubstituteAll(nodes []Node, exprs []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Substitute(n, exprs)
	}
	return out
}

// InputRefs returns the set of input fields referenced by the nodes.
func InputRefs(nodes ...Node) bitset.Bitset {
	var ords []int
	for _, n := range nodes {
		if n == nil {
			continue
		}
		Visit(n, func(n Node) bool {
			if ref, ok := n.(*InputRef); ok {
				ords = append(ords, ref.Index)
			}
			return true
		})
	}
	return bitset.Build(ords...)
}

// IsIdentity returns true if exprs are exactly $0, $1, ... over inputType.
func IsIdentity(exprs []Node, inputType *reltype.DataType) bool {
	if len(exprs) != inputType.FieldCount() {
		return false
	}
	for i, e := range exprs {
		ref, ok := e.(*InputRef)
		if !ok || ref.Index != i {
			return false
		}
	}
	return true
}

// IsConstant returns true if n references no input, local, correlation or
// parameter, so it can be evaluated at planning time.
func IsConstant(n Node) bool {
	constant := true
	Visit(n, func(n Node) bool {
		switch n.(type) {
		case *InputRef, *LocalRef, *CorrelVariable, *DynamicParam:
			constant = false
		}
		return constant
	})
	return constant
}

// ContainsCorrelation returns true if n references a correlation variable.
func ContainsCorrelation(n Node) bool {
	return len(CorrelationIDs(n)) > 0
}

// CorrelationIDs returns the correlation variables referenced by nodes.
func CorrelationIDs(nodes ...Node) []CorrelationID {
	var ids []CorrelationID
	for _, n := range nodes {
		if n == nil {
			continue
		}
		Visit(n, func(n Node) bool {
			if v, ok := n.(*CorrelVariable); ok && !slices.Contains(ids, v.ID) {
				ids = append(ids, v.ID)
			}
			return true
		})
	}
	return ids
}

// Types returns the types of nodes.
func Types(nodes []Node) []*reltype.DataType {
	out := make([]*reltype.DataType, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type()
	}
	return out
}

// RowTypeOf builds a row type from expressions and optional names. Missing
// names are generated as $f<i> and duplicates are made unique.
func RowTypeOf(exprs []Node, names []string) *reltype.DataType {
	fields := make([]reltype.Field, len(exprs))
	seen := map[string]bool{}
	for i, e := range exprs {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if name == "" {
			name = "$f" + itoa(i)
		}
		fields[i] = reltype.Field{Name: reltype.UniqueName(name, seen), Type: e.Type()}
	}
	return reltype.Struct(fields...)
}
