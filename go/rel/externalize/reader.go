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

package externalize

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Reader rebuilds logical plans against a catalog.
type Reader struct {
	schema *catalog.Schema
	rels   map[string]algebra.Node
	last   algebra.Node
}

// NewReader returns a reader resolving table names in schema.
func NewReader(schema *catalog.Schema) *Reader {
	return &Reader{schema: schema}
}

// Read decodes a plan written by Write. It returns the root operator.
func Read(schema *catalog.Schema, data []byte) (algebra.Node, error) {
	return NewReader(schema).Read(data)
}

// Read decodes one plan.
func (r *Reader) Read(data []byte) (root algebra.Node, err error) {
	if !gjson.ValidBytes(data) {
		return nil, relerrors.Errorf(relerrors.InvalidArgument, "plan is not valid JSON")
	}
	rels := gjson.GetBytes(data, "rels")
	if !rels.IsArray() || len(rels.Array()) == 0 {
		return nil, relerrors.Errorf(relerrors.InvalidArgument, "plan has no rels")
	}
	r.rels = map[string]algebra.Node{}
	r.last = nil
	for _, rel := range rels.Array() {
		n, err := r.readRel(rel)
		if err != nil {
			return nil, relerrors.Wrapf(err, "rel %s", rel.Get("id").String())
		}
		r.rels[rel.Get("id").String()] = n
		r.last = n
	}
	return r.last, nil
}

// readRel turns constructor panics into errors so that a malformed plan
// file never takes the process down.
func (r *Reader) readRel(rel gjson.Result) (n algebra.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
				return
			}
			err = relerrors.Errorf(relerrors.InvalidArgument, "%v", p)
		}
	}()
	return r.build(rel)
}

func (r *Reader) inputs(rel gjson.Result) ([]algebra.Node, error) {
	ids := rel.Get("inputs")
	if !ids.Exists() {
		if r.last == nil {
			return nil, nil
		}
		return []algebra.Node{r.last}, nil
	}
	var out []algebra.Node
	for _, id := range ids.Array() {
		n, ok := r.rels[id.String()]
		if !ok {
			return nil, relerrors.Errorf(relerrors.InvalidArgument, "unknown input %s", id.String())
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *Reader) input(rel gjson.Result, want int) ([]algebra.Node, error) {
	in, err := r.inputs(rel)
	if err != nil {
		return nil, err
	}
	if want >= 0 && len(in) != want {
		return nil, relerrors.Errorf(relerrors.InvalidArgument, "%s expects %d inputs, got %d", rel.Get("relOp").String(), want, len(in))
	}
	if want < 0 && len(in) < 2 {
		return nil, relerrors.Errorf(relerrors.InvalidArgument, "%s expects at least 2 inputs", rel.Get("relOp").String())
	}
	return in, nil
}

func (r *Reader) build(rel gjson.Result) (algebra.Node, error) {
	op := rel.Get("relOp").String()
	switch op {
	case "LogicalTableScan":
		t, err := r.table(rel)
		if err != nil {
			return nil, err
		}
		filters, err := readExprs(rel.Get("filters"), t.RowType())
		if err != nil {
			return nil, err
		}
		var projects []int
		if p := rel.Get("projects"); p.Exists() {
			projects = ints(p)
		}
		return algebra.NewTableScanWith(algebra.LogicalTraits, t, filters, projects), nil

	case "LogicalValues":
		rowType, err := readRowType(rel.Get("type"))
		if err != nil {
			return nil, err
		}
		var tuples [][]*rex.Literal
		for _, tuple := range rel.Get("tuples").Array() {
			var lits []*rex.Literal
			for _, x := range tuple.Array() {
				e, err := readExpr(x, rowType)
				if err != nil {
					return nil, err
				}
				lit, ok := e.(*rex.Literal)
				if !ok {
					return nil, relerrors.Errorf(relerrors.InvalidArgument, "values tuple holds non-literal %s", e)
				}
				lits = append(lits, lit)
			}
			tuples = append(tuples, lits)
		}
		return algebra.NewValues(rowType, tuples), nil

	case "LogicalProject", "LogicalCalc":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		projects, err := readExprs(rel.Get("exprs"), in[0].RowType())
		if err != nil {
			return nil, err
		}
		names := strs(rel.Get("fields"))
		if op == "LogicalProject" {
			return algebra.NewProject(in[0], projects, names), nil
		}
		var cond rex.Node
		if c := rel.Get("condition"); c.Exists() {
			if cond, err = readExpr(c, in[0].RowType()); err != nil {
				return nil, err
			}
		}
		return algebra.NewCalc(in[0], rex.NewProgramFromProjectAndFilter(in[0].RowType(), projects, cond, names)), nil

	case "LogicalFilter":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		cond, err := readExpr(rel.Get("condition"), in[0].RowType())
		if err != nil {
			return nil, err
		}
		return algebra.NewFilter(in[0], cond), nil

	case "LogicalJoin":
		in, err := r.input(rel, 2)
		if err != nil {
			return nil, err
		}
		jt, err := joinType(rel)
		if err != nil {
			return nil, err
		}
		both := reltype.JoinRowType(in[0].RowType(), in[1].RowType(), false, false)
		cond, err := readExpr(rel.Get("condition"), both)
		if err != nil {
			return nil, err
		}
		return algebra.NewJoin(in[0], in[1], cond, jt), nil

	case "LogicalCorrelate":
		in, err := r.input(rel, 2)
		if err != nil {
			return nil, err
		}
		jt, err := joinType(rel)
		if err != nil {
			return nil, err
		}
		id := rex.CorrelationID(rel.Get("correlation").Int())
		return algebra.NewCorrelate(in[0], in[1], id, bitset.Build(ints(rel.Get("requiredColumns"))...), jt), nil

	case "LogicalAggregate":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		group := bitset.Build(ints(rel.Get("group"))...)
		var calls []*algebra.AggregateCall
		for _, agg := range rel.Get("aggs").Array() {
			f, err := aggFunction(agg)
			if err != nil {
				return nil, err
			}
			filter := -1
			if fa := agg.Get("filter"); fa.Exists() {
				filter = int(fa.Int())
			}
			coll, err := readCollation(agg.Get("collation"))
			if err != nil {
				return nil, err
			}
			call, err := algebra.NewAggregateCall(f, agg.Get("distinct").Bool(), ints(agg.Get("operands")), filter, coll, in[0].RowType(), group.IsEmpty(), agg.Get("name").String())
			if err != nil {
				return nil, err
			}
			calls = append(calls, call)
		}
		return algebra.NewAggregate(in[0], group, calls), nil

	case "LogicalSort":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		coll, err := readCollation(rel.Get("collation"))
		if err != nil {
			return nil, err
		}
		var offset, fetch rex.Node
		if o := rel.Get("offset"); o.Exists() {
			if offset, err = readExpr(o, in[0].RowType()); err != nil {
				return nil, err
			}
		}
		if f := rel.Get("fetch"); f.Exists() {
			if fetch, err = readExpr(f, in[0].RowType()); err != nil {
				return nil, err
			}
		}
		return algebra.NewSort(in[0], coll, offset, fetch), nil

	case "LogicalUnion", "LogicalIntersect", "LogicalMinus":
		in, err := r.input(rel, -1)
		if err != nil {
			return nil, err
		}
		all := rel.Get("all").Bool()
		switch op {
		case "LogicalUnion":
			return algebra.NewUnion(all, in...), nil
		case "LogicalIntersect":
			return algebra.NewIntersect(all, in...), nil
		}
		return algebra.NewMinus(all, in...), nil

	case "LogicalWindow":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		var groups []algebra.WindowGroup
		for _, g := range rel.Get("groups").Array() {
			group, err := readWindowGroup(g)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group)
		}
		return algebra.NewWindow(in[0], groups), nil

	case "LogicalTableModify":
		in, err := r.input(rel, 1)
		if err != nil {
			return nil, err
		}
		t, err := r.table(rel)
		if err != nil {
			return nil, err
		}
		var mop algebra.ModifyOperation
		switch strings.ToUpper(rel.Get("operation").String()) {
		case "INSERT":
			mop = algebra.OpInsert
		case "UPDATE":
			mop = algebra.OpUpdate
		case "DELETE":
			mop = algebra.OpDelete
		default:
			return nil, relerrors.Errorf(relerrors.InvalidArgument, "unknown table operation %q", rel.Get("operation").String())
		}
		return algebra.NewTableModify(t, in[0], mop, strs(rel.Get("updateColumnList"))), nil
	}
	return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.UnknownOperator, "unknown relOp %q", op)
}

func (r *Reader) table(rel gjson.Result) (catalog.Table, error) {
	path := strs(rel.Get("table"))
	return r.schema.Lookup(path...)
}

func joinType(rel gjson.Result) (algebra.JoinType, error) {
	name := strings.ToLower(rel.Get("joinType").String())
	jt, ok := algebra.ParseJoinType(name)
	if !ok {
		return jt, relerrors.Errorf(relerrors.InvalidArgument, "unknown join type %q", name)
	}
	return jt, nil
}

func aggFunction(agg gjson.Result) (*rex.AggFunction, error) {
	name := agg.Get("agg").String()
	f, ok := rex.LookupAggFunction(name)
	if !ok {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.UnknownOperator, "unknown aggregate function %q", name)
	}
	return f, nil
}

func readWindowGroup(g gjson.Result) (algebra.WindowGroup, error) {
	order, err := readCollation(g.Get("orderKeys"))
	if err != nil {
		return algebra.WindowGroup{}, err
	}
	lower, err := readBound(g.Get("lowerBound"))
	if err != nil {
		return algebra.WindowGroup{}, err
	}
	upper, err := readBound(g.Get("upperBound"))
	if err != nil {
		return algebra.WindowGroup{}, err
	}
	group := algebra.WindowGroup{
		Keys:   bitset.Build(ints(g.Get("keys"))...),
		Order:  order,
		IsRows: g.Get("rows").Bool(),
		Lower:  lower,
		Upper:  upper,
	}
	for _, c := range g.Get("aggs").Array() {
		f, err := aggFunction(c)
		if err != nil {
			return group, err
		}
		call := algebra.WindowCall{Func: f, Args: ints(c.Get("operands")), Name: c.Get("name").String()}
		if t := c.Get("type"); t.Exists() {
			if call.Type, err = reltype.Parse(t.String()); err != nil {
				return group, err
			}
		}
		group.Calls = append(group.Calls, call)
	}
	return group, nil
}

func readBound(b gjson.Result) (algebra.WindowBound, error) {
	kind := b.Get("kind").String()
	for k, name := range boundNames {
		if name == kind {
			return algebra.WindowBound{Kind: k, Offset: int(b.Get("offset").Int())}, nil
		}
	}
	return algebra.WindowBound{}, relerrors.Errorf(relerrors.InvalidArgument, "unknown window bound %q", kind)
}

func readCollation(c gjson.Result) (algebra.Collation, error) {
	var out algebra.Collation
	for _, fc := range c.Array() {
		f := algebra.Asc(int(fc.Get("field").Int()))
		switch strings.ToUpper(fc.Get("direction").String()) {
		case "", "ASCENDING":
		case "DESCENDING":
			f = algebra.Desc(f.Field)
		default:
			return nil, relerrors.Errorf(relerrors.InvalidArgument, "unknown direction %q", fc.Get("direction").String())
		}
		switch strings.ToUpper(fc.Get("nulls").String()) {
		case "":
		case "FIRST":
			f.Nulls = algebra.NullsFirst
		case "LAST":
			f.Nulls = algebra.NullsLast
		default:
			return nil, relerrors.Errorf(relerrors.InvalidArgument, "unknown null direction %q", fc.Get("nulls").String())
		}
		out = append(out, f)
	}
	return out, nil
}

func readRowType(fields gjson.Result) (*reltype.DataType, error) {
	var names []string
	var types []*reltype.DataType
	for _, f := range fields.Array() {
		t, err := reltype.Parse(f.Get("type").String())
		if err != nil {
			return nil, relerrors.Wrapf(err, "field %s", f.Get("name").String())
		}
		names = append(names, f.Get("name").String())
		types = append(types, t)
	}
	return reltype.StructOf(names, types), nil
}

func readExprs(list gjson.Result, input *reltype.DataType) ([]rex.Node, error) {
	var out []rex.Node
	for _, x := range list.Array() {
		e, err := readExpr(x, input)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func readExpr(x gjson.Result, input *reltype.DataType) (rex.Node, error) {
	if !x.IsObject() {
		return nil, relerrors.Errorf(relerrors.InvalidArgument, "expression %s is not an object", x.Raw)
	}
	switch {
	case x.Get("input").Exists():
		i := int(x.Get("input").Int())
		if i < 0 || i >= input.FieldCount() {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "input %d out of range for %s", i, input)
		}
		return rex.InputRefOf(input, i), nil

	case x.Get("literal").Exists():
		typ, err := reltype.Parse(x.Get("type").String())
		if err != nil {
			return nil, err
		}
		v, err := literalValue(x.Get("literal"), typ.Name)
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			return rex.NewNullLiteral(typ), nil
		}
		return rex.NewLiteral(v, typ), nil

	case x.Get("dynamicParam").Exists():
		typ, err := reltype.Parse(x.Get("type").String())
		if err != nil {
			return nil, err
		}
		return rex.NewDynamicParam(int(x.Get("dynamicParam").Int()), typ), nil

	case x.Get("correl").Exists():
		name := x.Get("correl").String()
		id, err := strconv.Atoi(strings.TrimPrefix(name, "$cor"))
		if err != nil {
			return nil, relerrors.Errorf(relerrors.InvalidArgument, "malformed correlation %q", name)
		}
		rowType, err := readRowType(x.Get("type"))
		if err != nil {
			return nil, err
		}
		return rex.NewCorrelVariable(rex.CorrelationID(id), rowType), nil

	case x.Get("field").Exists():
		e, err := readExpr(x.Get("expr"), input)
		if err != nil {
			return nil, err
		}
		if idx := x.Get("index"); idx.Exists() {
			i := int(idx.Int())
			if !e.Type().IsStruct() || i < 0 || i >= e.Type().FieldCount() {
				return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.BadFieldReference, "no field %d in %s", i, e.Type())
			}
			return rex.NewFieldAccess(e, i), nil
		}
		return rex.FieldAccessByName(e, x.Get("field").String())

	case x.Get("op").Exists():
		name := x.Get("op").String()
		op, ok := rex.LookupOperator(name)
		if !ok {
			return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.UnknownOperator, "unknown operator %q", name)
		}
		operands, err := readExprs(x.Get("operands"), input)
		if err != nil {
			return nil, err
		}
		var typ *reltype.DataType
		if t := x.Get("type"); t.Exists() {
			if typ, err = reltype.Parse(t.String()); err != nil {
				return nil, err
			}
		}
		if op.Kind == rex.KindCast {
			if typ == nil || len(operands) != 1 {
				return nil, relerrors.Errorf(relerrors.InvalidArgument, "CAST needs one operand and a type")
			}
			return rex.MakeCast(typ, operands[0]), nil
		}
		call, err := rex.MakeCall(op, operands...)
		if err != nil {
			return nil, err
		}
		if typ != nil && !typ.Equal(call.Type()) {
			return rex.NewCall(op, typ, operands...), nil
		}
		return call, nil
	}
	return nil, relerrors.Errorf(relerrors.InvalidArgument, "unrecognized expression %s", x.Raw)
}

func literalValue(x gjson.Result, typ sqltypes.Type) (sqltypes.Value, error) {
	switch x.Type {
	case gjson.Null:
		return sqltypes.NULL, nil
	case gjson.True, gjson.False:
		return sqltypes.Cast(sqltypes.NewBoolean(x.Bool()), typ)
	case gjson.Number:
		return sqltypes.ParseValue(typ, x.Raw)
	case gjson.String:
		return sqltypes.Cast(sqltypes.NewVarChar(x.Str), typ)
	}
	return sqltypes.NULL, relerrors.Errorf(relerrors.InvalidArgument, "literal %s is not a scalar", x.Raw)
}

func ints(list gjson.Result) []int {
	var out []int
	for _, x := range list.Array() {
		out = append(out, int(x.Int()))
	}
	return out
}

func strs(list gjson.Result) []string {
	var out []string
	for _, x := range list.Array() {
		out = append(out, x.String())
	}
	return out
}
