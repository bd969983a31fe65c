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

// Package externalize reads and writes logical plans as JSON.
//
// A plan is a list of relational operators, inputs first:
//
//	{"rels": [
//	  {"id": "0", "relOp": "LogicalTableScan", "table": ["hr", "emps"]},
//	  {"id": "1", "relOp": "LogicalFilter", "condition": {"op": ">", "operands": [{"input": 1}, {"literal": 10, "type": "BIGINT NOT NULL"}]}},
//	  {"id": "2", "relOp": "LogicalProject", "fields": ["name"], "exprs": [{"input": 2}]}
//	]}
//
// The last operator is the root. An operator without "inputs" reads the
// operator listed just before it.
package externalize

import (
	"encoding/json"
	"strconv"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

type jsonRel map[string]any

type writer struct {
	rels []jsonRel
	ids  map[algebra.Node]string
}

// Write encodes the logical plan rooted at n.
func Write(n algebra.Node) ([]byte, error) {
	w := &writer{ids: map[algebra.Node]string{}}
	if _, err := w.rel(algebra.Strip(n)); err != nil {
		return nil, err
	}
	return json.MarshalIndent(map[string]any{"rels": w.rels}, "", "  ")
}

func (w *writer) rel(n algebra.Node) (string, error) {
	if id, ok := w.ids[n]; ok {
		return id, nil
	}
	var inputs []string
	for _, in := range n.Inputs() {
		id, err := w.rel(algebra.Strip(in))
		if err != nil {
			return "", err
		}
		inputs = append(inputs, id)
	}

	id := strconv.Itoa(len(w.rels))
	r := jsonRel{"id": id, "relOp": n.OpName()}
	if err := w.explain(r, n); err != nil {
		return "", err
	}
	if len(inputs) > 1 || (len(inputs) == 1 && inputs[0] != w.lastID()) {
		r["inputs"] = inputs
	}
	w.ids[n] = id
	w.rels = append(w.rels, r)
	return id, nil
}

func (w *writer) lastID() string {
	if len(w.rels) == 0 {
		return ""
	}
	return w.rels[len(w.rels)-1]["id"].(string)
}

func (w *writer) explain(r jsonRel, n algebra.Node) error {
	switch n := n.(type) {
	case *algebra.TableScan:
		r["table"] = n.Table.QualifiedName()
		if len(n.Filters) > 0 {
			r["filters"] = exprs(n.Filters)
		}
		if n.Projects != nil {
			r["projects"] = n.Projects
		}
	case *algebra.Values:
		r["type"] = rowType(n.RowType())
		tuples := make([][]any, len(n.Tuples))
		for i, tuple := range n.Tuples {
			tuples[i] = make([]any, len(tuple))
			for j, lit := range tuple {
				tuples[i][j] = expr(lit)
			}
		}
		r["tuples"] = tuples
	case *algebra.Project:
		r["fields"] = n.RowType().FieldNames()
		r["exprs"] = exprs(n.Exprs)
	case *algebra.Filter:
		r["condition"] = expr(n.Condition)
	case *algebra.Calc:
		r["fields"] = n.RowType().FieldNames()
		r["exprs"] = exprs(n.Program.ExpandedProjects())
		if cond := n.Program.ExpandedCondition(); cond != nil {
			r["condition"] = expr(cond)
		}
	case *algebra.Join:
		r["joinType"] = n.JoinType.String()
		r["condition"] = expr(n.Condition)
	case *algebra.Correlate:
		r["joinType"] = n.JoinType.String()
		r["correlation"] = int(n.CorrelationID)
		r["requiredColumns"] = ordinals(n.RequiredColumns)
	case *algebra.Aggregate:
		r["group"] = ordinals(n.GroupSet)
		aggs := make([]map[string]any, len(n.AggCalls))
		for i, c := range n.AggCalls {
			agg := map[string]any{
				"agg":      c.Func.Name,
				"distinct": c.Distinct,
				"operands": orEmpty(c.Args),
				"name":     c.Name,
				"type":     c.Type.Digest(),
			}
			if c.HasFilter() {
				agg["filter"] = c.FilterArg
			}
			if len(c.Collation) > 0 {
				agg["collation"] = collation(c.Collation)
			}
			aggs[i] = agg
		}
		r["aggs"] = aggs
	case *algebra.Sort:
		r["collation"] = collation(n.Collation)
		if n.Offset != nil {
			r["offset"] = expr(n.Offset)
		}
		if n.Fetch != nil {
			r["fetch"] = expr(n.Fetch)
		}
	case *algebra.Union:
		r["all"] = n.All
	case *algebra.Intersect:
		r["all"] = n.All
	case *algebra.Minus:
		r["all"] = n.All
	case *algebra.Window:
		groups := make([]map[string]any, len(n.Groups))
		for i, g := range n.Groups {
			calls := make([]map[string]any, len(g.Calls))
			for j, c := range g.Calls {
				calls[j] = map[string]any{
					"agg":      c.Func.Name,
					"operands": orEmpty(c.Args),
					"name":     c.Name,
					"type":     c.Type.Digest(),
				}
			}
			groups[i] = map[string]any{
				"keys":       ordinals(g.Keys),
				"orderKeys":  collation(g.Order),
				"rows":       g.IsRows,
				"lowerBound": bound(g.Lower),
				"upperBound": bound(g.Upper),
				"aggs":       calls,
			}
		}
		r["groups"] = groups
	case *algebra.TableModify:
		r["table"] = n.Table.QualifiedName()
		r["operation"] = n.Operation.String()
		if len(n.UpdateColumns) > 0 {
			r["updateColumnList"] = n.UpdateColumns
		}
	default:
		return relerrors.NewErrorf(relerrors.Unimplemented, relerrors.NotSupportedYet, "cannot externalize %s", n.OpName())
	}
	return nil
}

func orEmpty(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}

func ordinals(bs bitset.Bitset) []int {
	return orEmpty(bs.Ordinals())
}

func rowType(t *reltype.DataType) []map[string]string {
	out := make([]map[string]string, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = map[string]string{"name": f.Name, "type": f.Type.Digest()}
	}
	return out
}

var boundNames = map[algebra.WindowBoundKind]string{
	algebra.UnboundedPreceding: "UNBOUNDED_PRECEDING",
	algebra.Preceding:          "PRECEDING",
	algebra.CurrentRow:         "CURRENT_ROW",
	algebra.Following:          "FOLLOWING",
	algebra.UnboundedFollowing: "UNBOUNDED_FOLLOWING",
}

func bound(b algebra.WindowBound) map[string]any {
	out := map[string]any{"kind": boundNames[b.Kind]}
	if b.Kind == algebra.Preceding || b.Kind == algebra.Following {
		out["offset"] = b.Offset
	}
	return out
}

func collation(c algebra.Collation) []map[string]any {
	out := make([]map[string]any, len(c))
	for i, fc := range c {
		dir, nulls := "ASCENDING", "LAST"
		if fc.Direction == algebra.Descending {
			dir = "DESCENDING"
		}
		if fc.Nulls == algebra.NullsFirst {
			nulls = "FIRST"
		}
		out[i] = map[string]any{"field": fc.Field, "direction": dir, "nulls": nulls}
	}
	return out
}

func exprs(nodes []rex.Node) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = expr(n)
	}
	return out
}

func expr(n rex.Node) any {
	switch n := n.(type) {
	case *rex.InputRef:
		return map[string]any{"input": n.Index, "name": n.Digest()}
	case *rex.Literal:
		var v any
		switch n.Value.Type() {
		case sqltypes.Null, sqltypes.Boolean, sqltypes.Int64, sqltypes.Float64:
			v = n.Value.Raw()
		default:
			v = n.Value.ToString()
		}
		return map[string]any{"literal": v, "type": n.Type().Digest()}
	case *rex.DynamicParam:
		return map[string]any{"dynamicParam": n.Index, "type": n.Type().Digest()}
	case *rex.CorrelVariable:
		return map[string]any{"correl": n.ID.String(), "type": rowType(n.Type())}
	case *rex.FieldAccess:
		return map[string]any{"field": n.Field.Name, "index": n.Field.Index, "expr": expr(n.Expr)}
	case *rex.Call:
		return map[string]any{"op": n.Op.Name, "operands": exprs(n.Operands), "type": n.Type().Digest()}
	}
	// LocalRefs only live inside programs, which are written expanded.
	panic(relerrors.Errorf(relerrors.Internal, "cannot externalize expression %s", n))
}
