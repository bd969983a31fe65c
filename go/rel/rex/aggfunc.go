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

// AggKind identifies an aggregate or window function.
type AggKind int

// Aggregate and window function kinds.
const (
	AggCount AggKind = iota
	AggSum
	AggSum0
	AggMin
	AggMax
	AggAvg
	AggAnyValue
	AggSingleValue
	AggListAgg
	AggRowNumber
	AggRank
	AggDenseRank
)

// AggFunction is an aggregate function, or a ranking function usable only
// in a Window.
type AggFunction struct {
	Name string
	Kind AggKind
	// MinArgs and MaxArgs bound the argument count.
	MinArgs, MaxArgs int
	// WindowOnly functions may not appear in an Aggregate.
	WindowOnly bool
	// OrderSensitive functions observe the WITHIN GROUP collation.
	OrderSensitive bool
	// DuplicateInsensitive functions return the same result with or
	// without DISTINCT.
	DuplicateInsensitive bool
}

func (f *AggFunction) String() string {
	return f.Name
}

var aggFunctions = map[string]*AggFunction{}

func aggFunc(name string, kind AggKind, minArgs, maxArgs int, f func(*AggFunction)) *AggFunction {
	a := &AggFunction{Name: name, Kind: kind, MinArgs: minArgs, MaxArgs: maxArgs}
	if f != nil {
		f(a)
	}
	aggFunctions[name] = a
	return a
}

// The supported aggregate and window functions.
var (
	Count       = aggFunc("COUNT", AggCount, 0, -1, nil)
	Sum         = aggFunc("SUM", AggSum, 1, 1, nil)
	Sum0        = aggFunc("$SUM0", AggSum0, 1, 1, nil)
	Min         = aggFunc("MIN", AggMin, 1, 1, func(a *AggFunction) { a.DuplicateInsensitive = true })
	Max         = aggFunc("MAX", AggMax, 1, 1, func(a *AggFunction) { a.DuplicateInsensitive = true })
	Avg         = aggFunc("AVG", AggAvg, 1, 1, nil)
	AnyValue    = aggFunc("ANY_VALUE", AggAnyValue, 1, 1, func(a *AggFunction) { a.DuplicateInsensitive = true })
	SingleValue = aggFunc("SINGLE_VALUE", AggSingleValue, 1, 1, nil)
	ListAgg     = aggFunc("LISTAGG", AggListAgg, 1, 2, func(a *AggFunction) { a.OrderSensitive = true })
	RowNumber   = aggFunc("ROW_NUMBER", AggRowNumber, 0, 0, func(a *AggFunction) { a.WindowOnly = true })
	Rank        = aggFunc("RANK", AggRank, 0, 0, func(a *AggFunction) { a.WindowOnly = true; a.OrderSensitive = true })
	DenseRank   = aggFunc("DENSE_RANK", AggDenseRank, 0, 0, func(a *AggFunction) { a.WindowOnly = true; a.OrderSensitive = true })
)

// LookupAggFunction returns the aggregate function with the given name.
func LookupAggFunction(name string) (*AggFunction, bool) {
	f, ok := aggFunctions[strings.ToUpper(name)]
	return f, ok
}

// InferReturnType derives the type of an aggregate call. groupEmpty is true
// when the aggregate has no group keys (so it runs over a possibly empty
// input) and filtered when the call has a FILTER argument.
func (f *AggFunction) InferReturnType(args []*reltype.DataType, groupEmpty, filtered bool) (*reltype.DataType, error) {
	if len(args) < f.MinArgs || (f.MaxArgs >= 0 && len(args) > f.MaxArgs) {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.WrongParameterCount,
			"%s called with %d arguments", f.Name, len(args))
	}
	nullIfEmpty := groupEmpty || filtered
	switch f.Kind {
	case AggCount, AggRowNumber, AggRank, AggDenseRank:
		return reltype.New(sqltypes.Int64, false), nil
	case AggSum0:
		if !sqltypes.IsNumber(args[0].Name) {
			return nil, notNumeric(f, args[0])
		}
		return reltype.New(args[0].Name, false), nil
	case AggSum, AggAvg:
		if !sqltypes.IsNumber(args[0].Name) && args[0].Name != sqltypes.Any {
			return nil, notNumeric(f, args[0])
		}
		return reltype.New(args[0].Name, args[0].Nullable || nullIfEmpty), nil
	case AggMin, AggMax, AggAnyValue:
		return args[0].WithNullable(args[0].Nullable || nullIfEmpty), nil
	case AggSingleValue:
		return args[0].WithNullable(true), nil
	case AggListAgg:
		return reltype.New(sqltypes.VarChar, true), nil
	}
	return nil, relerrors.NewErrorf(relerrors.Unimplemented, relerrors.UnknownOperator, "unknown aggregate %s", f.Name)
}

func notNumeric(f *AggFunction, t *reltype.DataType) error {
	return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.TypeMismatch, "%s requires a numeric argument, got %s", f.Name, t)
}
