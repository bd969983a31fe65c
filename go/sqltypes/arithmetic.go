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

package sqltypes

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"relopt.io/relopt/go/rel/relerrors"
)

var (
	decCtx   = apd.BaseContext.WithPrecision(38)
	truncCtx = func() *apd.Context {
		c := *decCtx
		c.Rounding = apd.RoundDown
		return &c
	}()
)

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opMod
)

var arithNames = [...]string{opAdd: "+", opSub: "-", opMul: "*", opDiv: "/", opMod: "MOD"}

// Add returns v1 + v2. If either value is NULL the result is NULL.
func Add(v1, v2 Value) (Value, error) { return arithmetic(opAdd, v1, v2) }

// Subtract returns v1 - v2.
func Subtract(v1, v2 Value) (Value, error) { return arithmetic(opSub, v1, v2) }

// Multiply returns v1 * v2.
func Multiply(v1, v2 Value) (Value, error) { return arithmetic(opMul, v1, v2) }

// Divide returns v1 / v2. Integer division truncates toward zero.
func Divide(v1, v2 Value) (Value, error) { return arithmetic(opDiv, v1, v2) }

// Mod returns the remainder of v1 / v2, with the sign of v1.
func Mod(v1, v2 Value) (Value, error) { return arithmetic(opMod, v1, v2) }

// Negate returns -v.
func Negate(v Value) (Value, error) {
	switch v.typ {
	case Null:
		return NULL, nil
	case Int64:
		if v.i == math.MinInt64 {
			return NULL, overflow("-", v, NULL)
		}
		return NewInt64(-v.i), nil
	case Float64:
		return NewFloat64(-v.f), nil
	case Decimal:
		return Value{typ: Decimal, d: new(apd.Decimal).Neg(v.d)}, nil
	}
	return NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot negate %s value", v.typ)
}

func arithmetic(op arithOp, v1, v2 Value) (Value, error) {
	if v1.IsNull() || v2.IsNull() {
		return NULL, nil
	}
	if !v1.IsNumber() || !v2.IsNumber() {
		return NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch,
			"cannot apply %s to %s and %s", arithNames[op], v1.typ, v2.typ)
	}
	switch NumericResultType(v1.typ, v2.typ) {
	case Int64:
		return intArithmetic(op, v1, v2)
	case Decimal:
		return decimalArithmetic(op, v1, v2)
	default:
		return floatArithmetic(op, v1, v2)
	}
}

func intArithmetic(op arithOp, v1, v2 Value) (Value, error) {
	a, b := v1.i, v2.i
	switch op {
	case opAdd:
		r := a + b
		if (r > a) != (b > 0) {
			return NULL, overflow("+", v1, v2)
		}
		return NewInt64(r), nil
	case opSub:
		r := a - b
		if (r < a) != (b > 0) {
			return NULL, overflow("-", v1, v2)
		}
		return NewInt64(r), nil
	case opMul:
		if a == 0 || b == 0 {
			return NewInt64(0), nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return NULL, overflow("*", v1, v2)
		}
		return NewInt64(r), nil
	case opDiv:
		if b == 0 {
			return NULL, divisionByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return NULL, overflow("/", v1, v2)
		}
		return NewInt64(a / b), nil
	default:
		if b == 0 {
			return NULL, divisionByZero()
		}
		if b == -1 {
			return NewInt64(0), nil
		}
		return NewInt64(a % b), nil
	}
}

func floatArithmetic(op arithOp, v1, v2 Value) (Value, error) {
	a, err := v1.ToFloat64()
	if err != nil {
		return NULL, err
	}
	b, err := v2.ToFloat64()
	if err != nil {
		return NULL, err
	}
	var r float64
	switch op {
	case opAdd:
		r = a + b
	case opSub:
		r = a - b
	case opMul:
		r = a * b
	case opDiv:
		if b == 0 {
			return NULL, divisionByZero()
		}
		r = a / b
	default:
		if b == 0 {
			return NULL, divisionByZero()
		}
		r = math.Mod(a, b)
	}
	if math.IsInf(r, 0) {
		return NULL, overflow(arithNames[op], v1, v2)
	}
	return NewFloat64(r), nil
}

func decimalArithmetic(op arithOp, v1, v2 Value) (Value, error) {
	a, err := v1.ToDecimal()
	if err != nil {
		return NULL, err
	}
	b, err := v2.ToDecimal()
	if err != nil {
		return NULL, err
	}
	r := new(apd.Decimal)
	switch op {
	case opAdd:
		_, err = decCtx.Add(r, a, b)
	case opSub:
		_, err = decCtx.Sub(r, a, b)
	case opMul:
		_, err = decCtx.Mul(r, a, b)
	case opDiv:
		if b.IsZero() {
			return NULL, divisionByZero()
		}
		_, err = decCtx.Quo(r, a, b)
	default:
		if b.IsZero() {
			return NULL, divisionByZero()
		}
		_, err = decCtx.Rem(r, a, b)
	}
	if err != nil {
		return NULL, relerrors.Wrapf(err, "DECIMAL %s", arithNames[op])
	}
	return Value{typ: Decimal, d: r}, nil
}

func overflow(op string, v1, v2 Value) error {
	return relerrors.NewErrorf(relerrors.OutOfRange, relerrors.NumericOverflow, "%s value is out of range in '%s %s %s'",
		NumericResultType(v1.typ, v2.typ), v1.String(), op, v2.String())
}

func divisionByZero() error {
	return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.DivisionByZero, "division by zero")
}
