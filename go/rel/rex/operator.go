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
	"strings"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/sqltypes"
)

// ReturnTypeInference derives the type of a call from its operand types.
type ReturnTypeInference func(operands []*reltype.DataType) (*reltype.DataType, error)

// Operator is a scalar operator or function.
type Operator struct {
	Name       string
	Kind       Kind
	ReturnType ReturnTypeInference
	// MinArgs and MaxArgs bound the operand count; MaxArgs < 0 means any.
	MinArgs, MaxArgs int
}

func (op *Operator) String() string {
	return op.Name
}

var (
	boolean         = reltype.New(sqltypes.Boolean, false)
	nullableBoolean = reltype.New(sqltypes.Boolean, true)
)

func anyNullable(types []*reltype.DataType) bool {
	for _, t := range types {
		if t.Nullable {
			return true
		}
	}
	return false
}

func booleanNullableIfAny(types []*reltype.DataType) (*reltype.DataType, error) {
	if anyNullable(types) {
		return nullableBoolean, nil
	}
	return boolean, nil
}

func booleanNotNull([]*reltype.DataType) (*reltype.DataType, error) {
	return boolean, nil
}

func areComparable(a, b *reltype.DataType) bool {
	switch {
	case a.Name == b.Name:
		return true
	case a.Name == sqltypes.Null || b.Name == sqltypes.Null:
		return true
	case a.Name == sqltypes.Any || b.Name == sqltypes.Any:
		return true
	case sqltypes.IsNumber(a.Name) && sqltypes.IsNumber(b.Name):
		return true
	case sqltypes.IsTemporal(a.Name) && sqltypes.IsTemporal(b.Name):
		return true
	}
	return false
}

func comparison(nullSafe bool) ReturnTypeInference {
	return func(types []*reltype.DataType) (*reltype.DataType, error) {
		if !areComparable(types[0], types[1]) {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "cannot compare %s and %s", types[0], types[1])
		}
		if nullSafe {
			return boolean, nil
		}
		return booleanNullableIfAny(types)
	}
}

func logical(types []*reltype.DataType) (*reltype.DataType, error) {
	for _, t := range types {
		if t.Name != sqltypes.Boolean && t.Name != sqltypes.Null && t.Name != sqltypes.Any {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "expected BOOLEAN operand, got %s", t)
		}
	}
	return booleanNullableIfAny(types)
}

func arithmetic(types []*reltype.DataType) (*reltype.DataType, error) {
	for _, t := range types {
		if !sqltypes.IsNumber(t.Name) && t.Name != sqltypes.Null && t.Name != sqltypes.Any {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "expected numeric operand, got %s", t)
		}
	}
	t, err := reltype.LeastRestrictive(types...)
	if err != nil {
		return nil, err
	}
	if t.Name == sqltypes.Null {
		return reltype.New(sqltypes.Int64, true), nil
	}
	// Precision of the result is not tracked.
	return reltype.New(t.Name, t.Nullable), nil
}

func firstArg(types []*reltype.DataType) (*reltype.DataType, error) {
	return types[0], nil
}

func varcharNullableIfAny(types []*reltype.DataType) (*reltype.DataType, error) {
	return reltype.New(sqltypes.VarChar, anyNullable(types)), nil
}

func caseReturnType(types []*reltype.DataType) (*reltype.DataType, error) {
	if len(types)%2 == 0 {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.WrongParameterCount, "CASE requires an ELSE operand")
	}
	var values []*reltype.DataType
	for i := 0; i < len(types)-1; i += 2 {
		values = append(values, types[i+1])
	}
	values = append(values, types[len(types)-1])
	return reltype.LeastRestrictive(values...)
}

func coalesceReturnType(types []*reltype.DataType) (*reltype.DataType, error) {
	t, err := reltype.LeastRestrictive(types...)
	if err != nil {
		return nil, err
	}
	for _, o := range types {
		if !o.Nullable {
			return t.WithNullable(false), nil
		}
	}
	return t, nil
}

func castReturnType([]*reltype.DataType) (*reltype.DataType, error) {
	return nil, relerrors.NewErrorf(relerrors.Internal, relerrors.InvalidRelExpression, "CAST requires an explicit type; use MakeCast")
}

func op(name string, kind Kind, minArgs, maxArgs int, rt ReturnTypeInference) *Operator {
	o := &Operator{Name: name, Kind: kind, ReturnType: rt, MinArgs: minArgs, MaxArgs: maxArgs}
	operators[strings.ToUpper(name)] = o
	return o
}

var operators = map[string]*Operator{}

// The standard operators.
var (
	And                = op("AND", KindAnd, 2, -1, logical)
	Or                 = op("OR", KindOr, 2, -1, logical)
	Not                = op("NOT", KindNot, 1, 1, logical)
	Equals             = op("=", KindEquals, 2, 2, comparison(false))
	NotEquals          = op("<>", KindNotEquals, 2, 2, comparison(false))
	LessThan           = op("<", KindLessThan, 2, 2, comparison(false))
	LessThanOrEqual    = op("<=", KindLessThanOrEqual, 2, 2, comparison(false))
	GreaterThan        = op(">", KindGreaterThan, 2, 2, comparison(false))
	GreaterThanOrEqual = op(">=", KindGreaterThanOrEqual, 2, 2, comparison(false))
	IsDistinctFrom     = op("IS DISTINCT FROM", KindIsDistinctFrom, 2, 2, comparison(true))
	IsNotDistinctFrom  = op("IS NOT DISTINCT FROM", KindIsNotDistinctFrom, 2, 2, comparison(true))
	IsNull             = op("IS NULL", KindIsNull, 1, 1, booleanNotNull)
	IsNotNull          = op("IS NOT NULL", KindIsNotNull, 1, 1, booleanNotNull)
	IsTrue             = op("IS TRUE", KindIsTrue, 1, 1, booleanNotNull)
	IsFalse            = op("IS FALSE", KindIsFalse, 1, 1, booleanNotNull)
	IsNotTrue          = op("IS NOT TRUE", KindIsNotTrue, 1, 1, booleanNotNull)
	IsNotFalse         = op("IS NOT FALSE", KindIsNotFalse, 1, 1, booleanNotNull)
	Plus               = op("+", KindPlus, 2, 2, arithmetic)
	Minus              = op("-", KindMinus, 2, 2, arithmetic)
	Multiply           = op("*", KindTimes, 2, 2, arithmetic)
	Divide             = op("/", KindDivide, 2, 2, arithmetic)
	Mod                = op("MOD", KindMod, 2, 2, arithmetic)
	UnaryMinus         = op("-/1", KindMinusPrefix, 1, 1, arithmetic)
	Case               = op("CASE", KindCase, 1, -1, caseReturnType)
	Cast               = op("CAST", KindCast, 1, 1, castReturnType)
	Coalesce           = op("COALESCE", KindCoalesce, 1, -1, coalesceReturnType)
	Like               = op("LIKE", KindLike, 2, 2, booleanNullableIfAny)
	Upper              = op("UPPER", KindUpper, 1, 1, varcharNullableIfAny)
	Lower              = op("LOWER", KindLower, 1, 1, varcharNullableIfAny)
	Concat             = op("||", KindConcat, 2, 2, varcharNullableIfAny)
	Abs                = op("ABS", KindAbs, 1, 1, firstArg)
)

// LookupOperator returns the operator with the given name, as printed in
// digests.
func LookupOperator(name string) (*Operator, bool) {
	o, ok := operators[strings.ToUpper(name)]
	return o, ok
}

// operatorOfKind returns the standard operator of a comparison or
// predicate kind.
func operatorOfKind(k Kind) *Operator {
	switch k {
	case KindEquals:
		return Equals
	case KindNotEquals:
		return NotEquals
	case KindLessThan:
		return LessThan
	case KindLessThanOrEqual:
		return LessThanOrEqual
	case KindGreaterThan:
		return GreaterThan
	case KindGreaterThanOrEqual:
		return GreaterThanOrEqual
	case KindIsDistinctFrom:
		return IsDistinctFrom
	case KindIsNotDistinctFrom:
		return IsNotDistinctFrom
	case KindIsNull:
		return IsNull
	case KindIsNotNull:
		return IsNotNull
	case KindIsTrue:
		return IsTrue
	case KindIsFalse:
		return IsFalse
	case KindIsNotTrue:
		return IsNotTrue
	case KindIsNotFalse:
		return IsNotFalse
	}
	return nil
}
