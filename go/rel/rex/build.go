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
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// MakeCall builds a call, inferring its return type from the operands.
func MakeCall(op *Operator, operands ...Node) (Node, error) {
	if len(operands) < op.MinArgs || (op.MaxArgs >= 0 && len(operands) > op.MaxArgs) {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.WrongParameterCount,
			"%s called with %d operands", op.Name, len(operands))
	}
	types := make([]*reltype.DataType, len(operands))
	for i, o := range operands {
		types[i] = o.Type()
	}
	typ, err := op.ReturnType(types)
	if err != nil {
		return nil, relerrors.Wrapf(err, "%s", op.Name)
	}
	return NewCall(op, typ, operands...), nil
}

// MustCall is like MakeCall but panics with an InvalidRelExpression error
// if the call is not valid. Planners turn that panic into a declined rule.
func MustCall(op *Operator, operands ...Node) Node {
	n, err := MakeCall(op, operands...)
	if err != nil {
		panic(relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.InvalidRelExpression, "invalid call: %s", err))
	}
	return n
}

// MakeCast returns CAST(expr AS typ). If expr already has type typ it is
// returned unchanged. Casting a literal folds the value when possible.
func MakeCast(typ *reltype.DataType, expr Node) Node {
	if expr.Type().Equal(typ) {
		return expr
	}
	if lit, ok := expr.(*Literal); ok {
		if lit.IsNull() {
			if typ.Nullable {
				return NewNullLiteral(typ)
			}
		} else if v, err := sqltypes.Cast(lit.Value, typ.Name); err == nil && typ.Precision == reltype.Unspecified {
			return NewLiteral(v, typ)
		}
	}
	return NewCall(Cast, typ, expr)
}

// MakeNot returns NOT(expr), folding literals and negating comparisons.
func MakeNot(expr Node) Node {
	if lit, ok := expr.(*Literal); ok && !lit.IsNull() {
		b, err := lit.Value.ToBool()
		if err == nil {
			return MakeCast(expr.Type(), BoolLiteral(!b))
		}
	}
	if c, ok := expr.(*Call); ok {
		if c.Op.Kind == KindNot {
			return c.Operands[0]
		}
		if neg, ok := c.Op.Kind.Negate(); ok {
			if o := operatorOfKind(neg); o != nil {
				return NewCall(o, c.Type(), c.Operands...)
			}
		}
	}
	return NewCall(Not, expr.Type(), expr)
}

// EqualsOf returns a = b.
func EqualsOf(a, b Node) Node {
	return MustCall(Equals, a, b)
}

// IsNullOf returns expr IS NULL, folded to FALSE when expr is not nullable.
func IsNullOf(expr Node) Node {
	if !expr.Type().Nullable {
		return BoolLiteral(false)
	}
	return NewCall(IsNull, boolean, expr)
}

// IsNotNullOf returns expr IS NOT NULL, folded to TRUE when expr is not
// nullable.
func IsNotNullOf(expr Node) Node {
	if !expr.Type().Nullable {
		return BoolLiteral(true)
	}
	return NewCall(IsNotNull, boolean, expr)
}

// FieldAccessByName returns expr.name.
func FieldAccessByName(expr Node, name string) (*FieldAccess, error) {
	f, ok := expr.Type().FieldByName(name)
	if !ok {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "no field %q in %s", name, expr.Type())
	}
	return NewFieldAccess(expr, f.Index), nil
}
