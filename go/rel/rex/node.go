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

// Package rex models the scalar expressions held by relational operators:
// references to input fields, literals, calls to operators and references
// to correlated variables.
package rex

import (
	"fmt"
	"strconv"
	"strings"

	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// Node is an immutable scalar expression.
type Node interface {
	// Type is the type of the value the expression produces.
	Type() *reltype.DataType
	// Kind classifies the node; calls report the kind of their operator.
	Kind() Kind
	// Digest is a canonical string identifying the expression. Two
	// expressions with equal digests are interchangeable.
	Digest() string
	String() string
}

type (
	// InputRef references a field of the input row by position.
	InputRef struct {
		Index int
		typ   *reltype.DataType
	}

	// LocalRef references an expression of a Program by position.
	LocalRef struct {
		Index int
		typ   *reltype.DataType
	}

	// Literal is a constant value.
	Literal struct {
		Value  sqltypes.Value
		typ    *reltype.DataType
		digest string
	}

	// Call applies an operator to operands.
	Call struct {
		Op       *Operator
		Operands []Node
		typ      *reltype.DataType
		digest   string
	}

	// CorrelVariable references the current row of a correlating relation.
	// Its type is the row type of that relation.
	CorrelVariable struct {
		ID  CorrelationID
		typ *reltype.DataType
	}

	// FieldAccess reads a field of a row-typed expression, usually a
	// CorrelVariable.
	FieldAccess struct {
		Expr   Node
		Field  reltype.Field
		digest string
	}

	// DynamicParam is a positional parameter bound at execution time.
	DynamicParam struct {
		Index int
		typ   *reltype.DataType
	}
)

// CorrelationID names a correlating relation, printed as $cor0.
type CorrelationID int

func (id CorrelationID) String() string {
	return "$cor" + strconv.Itoa(int(id))
}

var (
	_ Node = (*InputRef)(nil)
	_ Node = (*LocalRef)(nil)
	_ Node = (*Literal)(nil)
	_ Node = (*Call)(nil)
	_ Node = (*CorrelVariable)(nil)
	_ Node = (*FieldAccess)(nil)
	_ Node = (*DynamicParam)(nil)
)

// NewInputRef returns a reference to input field index of type typ.
func NewInputRef(index int, typ *reltype.DataType) *InputRef {
	return &InputRef{Index: index, typ: typ}
}

// InputRefOf returns a reference to field index of rowType.
func InputRefOf(rowType *reltype.DataType, index int) *InputRef {
	return NewInputRef(index, rowType.Fields[index].Type)
}

// InputRefsOf returns references to every field of rowType.
func InputRefsOf(rowType *reltype.DataType) []Node {
	refs := make([]Node, rowType.FieldCount())
	for i := range refs {
		refs[i] = InputRefOf(rowType, i)
	}
	return refs
}

func (r *InputRef) Type() *reltype.DataType { return r.typ }
func (r *InputRef) Kind() Kind              { return KindInputRef }
func (r *InputRef) Digest() string          { return "$" + strconv.Itoa(r.Index) }
func (r *InputRef) String() string          { return r.Digest() }

// NewLocalRef returns a reference to expression index of a program.
func NewLocalRef(index int, typ *reltype.DataType) *LocalRef {
	return &LocalRef{Index: index, typ: typ}
}

func (r *LocalRef) Type() *reltype.DataType { return r.typ }
func (r *LocalRef) Kind() Kind              { return KindLocalRef }
func (r *LocalRef) Digest() string          { return "$t" + strconv.Itoa(r.Index) }
func (r *LocalRef) String() string          { return r.Digest() }

// NewLiteral returns a literal of the given type. The value is cast to the
// type if needed.
func NewLiteral(v sqltypes.Value, typ *reltype.DataType) *Literal {
	if !v.IsNull() && typ.Name != sqltypes.Any && v.Type() != typ.Name {
		if c, err := sqltypes.Cast(v, typ.Name); err == nil {
			v = c
		}
	}
	l := &Literal{Value: v, typ: typ}
	if v.IsNull() {
		l.digest = "null:" + typ.Digest()
	} else {
		l.digest = v.String()
		if v.Type() == sqltypes.Boolean {
			l.digest = v.ToString()
		}
		if v.Type() == sqltypes.Decimal || v.Type() == sqltypes.Float64 {
			l.digest += ":" + typ.Name.String()
		}
	}
	return l
}

// NewNullLiteral returns NULL of the given type, made nullable.
func NewNullLiteral(typ *reltype.DataType) *Literal {
	return NewLiteral(sqltypes.NULL, typ.WithNullable(true))
}

// LiteralOf returns a non-nullable literal of the value's own type.
func LiteralOf(v sqltypes.Value) *Literal {
	if v.IsNull() {
		return NewNullLiteral(reltype.New(sqltypes.Null, true))
	}
	return NewLiteral(v, reltype.New(v.Type(), false))
}

// BoolLiteral returns TRUE or FALSE.
func BoolLiteral(b bool) *Literal {
	return LiteralOf(sqltypes.NewBoolean(b))
}

func (l *Literal) Type() *reltype.DataType { return l.typ }
func (l *Literal) Kind() Kind              { return KindLiteral }
func (l *Literal) Digest() string          { return l.digest }
func (l *Literal) String() string          { return l.digest }

// IsNull returns true for NULL literals.
func (l *Literal) IsNull() bool { return l.Value.IsNull() }

// NewCall returns a call with an explicit return type. Most callers should
// use MakeCall, which infers the type.
func NewCall(op *Operator, typ *reltype.DataType, operands ...Node) *Call {
	c := &Call{Op: op, Operands: operands, typ: typ}
	c.digest = c.computeDigest()
	return c
}

func (c *Call) Type() *reltype.DataType { return c.typ }
func (c *Call) Kind() Kind              { return c.Op.Kind }
func (c *Call) Digest() string          { return c.digest }
func (c *Call) String() string          { return c.digest }

// WithOperands returns a copy of the call with new operands and the same
// type.
func (c *Call) WithOperands(operands []Node) *Call {
	return NewCall(c.Op, c.typ, operands...)
}

func (c *Call) computeDigest() string {
	var sb strings.Builder
	sb.WriteString(c.Op.Name)
	sb.WriteByte('(')
	for i, o := range c.Operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.Digest())
	}
	sb.WriteByte(')')
	if c.Op.Kind == KindCast {
		sb.WriteByte(':')
		sb.WriteString(c.typ.Digest())
	}
	return sb.String()
}

// NewCorrelVariable returns a reference to the correlated row id of type
// rowType.
func NewCorrelVariable(id CorrelationID, rowType *reltype.DataType) *CorrelVariable {
	return &CorrelVariable{ID: id, typ: rowType}
}

func (v *CorrelVariable) Type() *reltype.DataType { return v.typ }
func (v *CorrelVariable) Kind() Kind              { return KindCorrelVariable }
func (v *CorrelVariable) Digest() string          { return v.ID.String() }
func (v *CorrelVariable) String() string          { return v.Digest() }

// NewFieldAccess returns expr.field. It panics if expr is not row-typed or
// has no such field.
func NewFieldAccess(expr Node, index int) *FieldAccess {
	t := expr.Type()
	if !t.IsStruct() || index < 0 || index >= t.FieldCount() {
		panic(fmt.Sprintf("rex: no field %d in %s", index, t))
	}
	f := t.Fields[index]
	return &FieldAccess{Expr: expr, Field: f, digest: expr.Digest() + "." + f.Name}
}

func (a *FieldAccess) Type() *reltype.DataType { return a.Field.Type }
func (a *FieldAccess) Kind() Kind              { return KindFieldAccess }
func (a *FieldAccess) Digest() string          { return a.digest }
func (a *FieldAccess) String() string          { return a.digest }

// NewDynamicParam returns positional parameter index.
func NewDynamicParam(index int, typ *reltype.DataType) *DynamicParam {
	return &DynamicParam{Index: index, typ: typ}
}

func (p *DynamicParam) Type() *reltype.DataType { return p.typ }
func (p *DynamicParam) Kind() Kind              { return KindDynamicParam }
func (p *DynamicParam) Digest() string          { return "?" + strconv.Itoa(p.Index) }
func (p *DynamicParam) String() string          { return p.Digest() }

// Equal reports whether two expressions are interchangeable. Types must
// match as well as digests.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Digest() == b.Digest() && a.Type().Equal(b.Type())
}

// Digests returns the digests of nodes joined by ", ".
func Digests(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Digest()
	}
	return strings.Join(parts, ", ")
}
