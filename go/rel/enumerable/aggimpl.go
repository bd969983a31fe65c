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

package enumerable

import (
	"slices"
	"strings"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// AggState is the accumulator of one aggregate call over one group.
type AggState struct {
	Value  sqltypes.Value
	Count  int64
	Values []string
}

// AggImplementor implements an aggregate function as an accumulator that
// is initialized, fed one row of arguments at a time, and read.
type AggImplementor interface {
	Init(state *AggState)
	Add(state *AggState, args []sqltypes.Value) error
	Result(state *AggState) (sqltypes.Value, error)
}

// NewAggImplementor returns the implementor of f producing values of typ.
func NewAggImplementor(f *rex.AggFunction, typ *reltype.DataType) (AggImplementor, error) {
	switch f.Kind {
	case rex.AggCount:
		return countImpl{}, nil
	case rex.AggSum:
		return sumImpl{typ: typ.Name}, nil
	case rex.AggSum0:
		return sumImpl{typ: typ.Name, zero: true}, nil
	case rex.AggMin:
		return minMaxImpl{}, nil
	case rex.AggMax:
		return minMaxImpl{max: true}, nil
	case rex.AggAvg:
		return avgImpl{typ: typ.Name}, nil
	case rex.AggAnyValue:
		return anyValueImpl{}, nil
	case rex.AggSingleValue:
		return singleValueImpl{}, nil
	case rex.AggListAgg:
		return listAggImpl{}, nil
	}
	return nil, relerrors.NewErrorf(relerrors.Unimplemented, relerrors.CodeGenFailure, "aggregate function %s cannot be implemented", f.Name)
}

type baseImpl struct{}

func (baseImpl) Init(state *AggState) { *state = AggState{} }

// countImpl counts rows whose arguments are all non-null; COUNT(*) has no
// arguments and counts every row.
type countImpl struct{ baseImpl }

func (countImpl) Add(state *AggState, args []sqltypes.Value) error {
	for _, a := range args {
		if a.IsNull() {
			return nil
		}
	}
	state.Count++
	return nil
}

func (countImpl) Result(state *AggState) (sqltypes.Value, error) {
	return sqltypes.NewInt64(state.Count), nil
}

type sumImpl struct {
	baseImpl
	typ  sqltypes.Type
	zero bool
}

func (sumImpl) Add(state *AggState, args []sqltypes.Value) error {
	v := args[0]
	if v.IsNull() {
		return nil
	}
	if state.Count == 0 {
		state.Value = v
	} else {
		sum, err := sqltypes.Add(state.Value, v)
		if err != nil {
			return err
		}
		state.Value = sum
	}
	state.Count++
	return nil
}

func (s sumImpl) Result(state *AggState) (sqltypes.Value, error) {
	if state.Count == 0 {
		if s.zero {
			return sqltypes.Cast(sqltypes.NewInt64(0), s.typ)
		}
		return sqltypes.NULL, nil
	}
	return sqltypes.Cast(state.Value, s.typ)
}

type minMaxImpl struct {
	baseImpl
	max bool
}

func (m minMaxImpl) Add(state *AggState, args []sqltypes.Value) error {
	v := args[0]
	if v.IsNull() {
		return nil
	}
	if state.Count > 0 {
		c, err := sqltypes.Compare(v, state.Value)
		if err != nil {
			return err
		}
		if (m.max && c <= 0) || (!m.max && c >= 0) {
			return nil
		}
	}
	state.Value = v
	state.Count++
	return nil
}

func (minMaxImpl) Result(state *AggState) (sqltypes.Value, error) {
	return state.Value, nil
}

type avgImpl struct {
	baseImpl
	typ sqltypes.Type
}

func (avgImpl) Add(state *AggState, args []sqltypes.Value) error {
	return sumImpl{}.Add(state, args)
}

func (a avgImpl) Result(state *AggState) (sqltypes.Value, error) {
	if state.Count == 0 {
		return sqltypes.NULL, nil
	}
	q, err := sqltypes.Divide(state.Value, sqltypes.NewInt64(state.Count))
	if err != nil {
		return sqltypes.NULL, err
	}
	return sqltypes.Cast(q, a.typ)
}

type anyValueImpl struct{ baseImpl }

func (anyValueImpl) Add(state *AggState, args []sqltypes.Value) error {
	if state.Count == 0 && !args[0].IsNull() {
		state.Value = args[0]
		state.Count++
	}
	return nil
}

func (anyValueImpl) Result(state *AggState) (sqltypes.Value, error) {
	return state.Value, nil
}

// singleValueImpl fails when its group has more than one row.
type singleValueImpl struct{ baseImpl }

func (singleValueImpl) Add(state *AggState, args []sqltypes.Value) error {
	state.Count++
	if state.Count > 1 {
		return relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.CardinalityViolation, "more than one value in agg SINGLE_VALUE")
	}
	state.Value = args[0]
	return nil
}

func (singleValueImpl) Result(state *AggState) (sqltypes.Value, error) {
	return state.Value, nil
}

// listAggImpl concatenates the non-null values of its first argument,
// separated by the second (a comma by default).
type listAggImpl struct{ baseImpl }

func (listAggImpl) Add(state *AggState, args []sqltypes.Value) error {
	if args[0].IsNull() {
		return nil
	}
	if state.Count == 0 {
		state.Value = sqltypes.NewVarChar(",")
		if len(args) > 1 && !args[1].IsNull() {
			state.Value = sqltypes.NewVarChar(args[1].ToString())
		}
	}
	state.Values = append(state.Values, args[0].ToString())
	state.Count++
	return nil
}

func (listAggImpl) Result(state *AggState) (sqltypes.Value, error) {
	if state.Count == 0 {
		return sqltypes.NULL, nil
	}
	return sqltypes.NewVarChar(strings.Join(state.Values, state.Value.ToString())), nil
}

// Accumulator folds the rows of one group for one aggregate call.
type Accumulator interface {
	Add(row sqltypes.Row) error
	Result() (sqltypes.Value, error)
}

type folding struct {
	impl  AggImplementor
	state AggState
	args  []int
	buf   []sqltypes.Value
	typ   sqltypes.Type
}

func (f *folding) Add(row sqltypes.Row) error {
	f.buf = f.buf[:0]
	for _, a := range f.args {
		f.buf = append(f.buf, row[a])
	}
	return f.impl.Add(&f.state, f.buf)
}

func (f *folding) Result() (sqltypes.Value, error) {
	v, err := f.impl.Result(&f.state)
	if err != nil {
		return sqltypes.NULL, err
	}
	return sqltypes.Cast(v, f.typ)
}

// filtered skips rows whose filter column is not TRUE.
type filtered struct {
	Accumulator
	filterArg int
}

func (f *filtered) Add(row sqltypes.Row) error {
	if !isTrue(row[f.filterArg]) {
		return nil
	}
	return f.Accumulator.Add(row)
}

// distinctArgs passes on the first row of each distinct argument tuple.
type distinctArgs struct {
	Accumulator
	args []int
	seen map[string]struct{}
}

func (d *distinctArgs) Add(row sqltypes.Row) error {
	k := sqltypes.RowKey(row, d.args)
	if _, ok := d.seen[k]; ok {
		return nil
	}
	d.seen[k] = struct{}{}
	return d.Accumulator.Add(row)
}

// ordered buffers the rows of the group and feeds them sorted when the
// result is read.
type ordered struct {
	Accumulator
	cmp  func(a, b sqltypes.Row) int
	rows []sqltypes.Row
}

func (o *ordered) Add(row sqltypes.Row) error {
	o.rows = append(o.rows, slices.Clone(row))
	return nil
}

func (o *ordered) Result() (sqltypes.Value, error) {
	slices.SortStableFunc(o.rows, o.cmp)
	for _, row := range o.rows {
		if err := o.Accumulator.Add(row); err != nil {
			return sqltypes.NULL, err
		}
	}
	o.rows = nil
	return o.Accumulator.Result()
}

// AggLambdaFactory builds the accumulators of a list of aggregate calls.
type AggLambdaFactory struct {
	calls []*algebra.AggregateCall
	impls []AggImplementor
}

// NewAggLambdaFactory returns a factory for calls, failing if a function
// has no implementation.
func NewAggLambdaFactory(calls []*algebra.AggregateCall) (*AggLambdaFactory, error) {
	f := &AggLambdaFactory{calls: calls, impls: make([]AggImplementor, len(calls))}
	for i, c := range calls {
		impl, err := NewAggImplementor(c.Func, c.Type)
		if err != nil {
			return nil, err
		}
		f.impls[i] = impl
	}
	return f, nil
}

// Accumulators returns fresh accumulators, one per call, for a group.
func (f *AggLambdaFactory) Accumulators() []Accumulator {
	out := make([]Accumulator, len(f.calls))
	for i, c := range f.calls {
		out[i] = newAccumulator(f.impls[i], c.Args, c.Type.Name, c.Distinct, c.FilterArg, c.Collation, c.Func.OrderSensitive)
	}
	return out
}

func newAccumulator(impl AggImplementor, args []int, typ sqltypes.Type, distinct bool, filterArg int, coll algebra.Collation, orderSensitive bool) Accumulator {
	f := &folding{impl: impl, args: args, typ: typ}
	impl.Init(&f.state)
	var acc Accumulator = f
	if distinct {
		acc = &distinctArgs{Accumulator: acc, args: args, seen: map[string]struct{}{}}
	}
	if orderSensitive && len(coll) > 0 {
		acc = &ordered{Accumulator: acc, cmp: rowComparator(coll)}
	}
	if filterArg >= 0 {
		acc = &filtered{Accumulator: acc, filterArg: filterArg}
	}
	return acc
}

// Results reads every accumulator.
func Results(accs []Accumulator) (sqltypes.Row, error) {
	out := make(sqltypes.Row, len(accs))
	for i, a := range accs {
		v, err := a.Result()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AddAll feeds row to every accumulator.
func AddAll(accs []Accumulator, row sqltypes.Row) error {
	for _, a := range accs {
		if err := a.Add(row); err != nil {
			return err
		}
	}
	return nil
}
