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

package externalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/externalize"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/sqltypes"
)

var root = testcat.New()

func scan(path ...string) *relbuilder.Builder {
	return relbuilder.New().Scan(testcat.Table(root, path...))
}

func explain(n algebra.Node) string {
	return algebra.Explain(n, algebra.ExplainAttributes)
}

// roundTrip writes n, reads it back and requires the same plan.
func roundTrip(t *testing.T, n algebra.Node) []byte {
	t.Helper()
	data, err := externalize.Write(n)
	require.NoError(t, err)
	back, err := externalize.Read(root, data)
	require.NoError(t, err, string(data))
	assert.Equal(t, explain(n), explain(back), string(data))
	assert.True(t, n.RowType().Equal(back.RowType()))
	assert.Equal(t, algebra.Digest(n), algebra.Digest(back))
	return data
}

func TestRoundTrip(t *testing.T) {
	tcases := []struct {
		name  string
		build func() algebra.Node
	}{{
		name: "filter project",
		build: func() algebra.Node {
			b := scan("hr", "emps")
			b.Filter(b.And(
				b.Call(rex.GreaterThan, b.Field(3), b.Cast(b.Literal(8000), reltype.NewWithPrecision(sqltypes.Decimal, 10, 2, false))),
				b.Call(rex.Like, b.Field(2), b.Literal("%o%"))))
			b.Project([]rex.Node{b.Field(2), b.Call(rex.Plus, b.Field(0), b.Literal(1))}, "name", "next")
			return b.Build()
		},
	}, {
		name: "join sort limit",
		build: func() algebra.Node {
			b := scan("hr", "emps")
			b.Scan(testcat.Table(root, "hr", "depts"))
			b.Join(algebra.JoinLeft, b.Equals(b.FieldOf(2, 0, 1), b.FieldOf(2, 1, 0)))
			b.SortLimit(1, 2, algebra.Desc(0), algebra.Asc(6))
			return b.Build()
		},
	}, {
		name: "aggregate",
		build: func() algebra.Node {
			b := scan("hr", "emps")
			b.Aggregate([]rex.Node{b.Field(1)},
				b.Count(true, "c", b.Field(4)),
				b.Sum("s", b.Field(0)).Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(100))),
				b.Agg(rex.ListAgg, b.Field(2)).WithinGroup(algebra.Collation{algebra.Desc(0)}).As("names"))
			return b.Build()
		},
	}, {
		name: "set ops and values",
		build: func() algebra.Node {
			b := scan("test", "nums")
			b.Values(b.Peek().RowType(), []any{int64(9), "z"}, []any{nil, nil})
			b.Union(true, 2)
			b.Push(scan("test", "nums").Build())
			b.Minus(false, 2)
			return b.Build()
		},
	}, {
		name: "window",
		build: func() algebra.Node {
			b := scan("hr", "emps")
			b.Project(b.FieldsOf(0, 1))
			b.Window(algebra.WindowGroup{
				Keys:   bitset.Build(1),
				Order:  algebra.Collation{algebra.Asc(0)},
				IsRows: true,
				Lower:  algebra.WindowBound{Kind: algebra.Preceding, Offset: 2},
				Upper:  algebra.WindowBound{Kind: algebra.CurrentRow},
				Calls: []algebra.WindowCall{
					{Func: rex.RowNumber, Name: "rn"},
					{Func: rex.Sum, Args: []int{0}, Name: "running"},
				},
			})
			return b.Build()
		},
	}, {
		name: "correlate",
		build: func() algebra.Node {
			const cor = rex.CorrelationID(0)
			b := scan("hr", "depts")
			b.Scan(testcat.Table(root, "hr", "emps"))
			deptType := b.PeekN(1).RowType()
			b.Filter(b.Equals(b.Field(1), rex.NewFieldAccess(rex.NewCorrelVariable(cor, deptType), 0)))
			b.Correlate(algebra.JoinLeft, cor)
			return b.Build()
		},
	}, {
		name: "parameters and case",
		build: func() algebra.Node {
			b := scan("test", "nums")
			b.Filter(b.Call(rex.GreaterThan, b.Field(0), rex.NewDynamicParam(0, reltype.New(sqltypes.Int64, true))))
			b.Project([]rex.Node{
				b.Call(rex.Case, b.IsNull(b.Field(1)), b.Literal("none"), b.Field(1)),
				b.Call(rex.UnaryMinus, b.Field(0)),
			}, "s", "neg")
			return b.Build()
		},
	}, {
		name: "table modify",
		build: func() algebra.Node {
			b := scan("test", "nums")
			b.Project([]rex.Node{b.Field(0), b.Field(1), b.Call(rex.Upper, b.Field(1))})
			b.Modify(testcat.Table(root, "test", "nums"), algebra.OpUpdate, "s")
			return b.Build()
		},
	}}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			roundTrip(t, tc.build())
		})
	}
}

func TestWriteOmitsSequentialInputs(t *testing.T) {
	b := scan("hr", "emps")
	b.Filter(b.Call(rex.GreaterThan, b.Field(0), b.Literal(100)))
	data := roundTrip(t, b.Build())

	rels := gjson.GetBytes(data, "rels").Array()
	require.Len(t, rels, 2)
	assert.Equal(t, "LogicalTableScan", rels[0].Get("relOp").String())
	assert.False(t, rels[1].Get("inputs").Exists())
	assert.Equal(t, int64(100), rels[1].Get("condition.operands.1.literal").Int())
}

func TestWriteSharesCommonInputs(t *testing.T) {
	b := scan("test", "nums")
	nums := b.Peek()
	b.Push(nums)
	b.Intersect(false, 2)
	data := roundTrip(t, b.Build())

	rels := gjson.GetBytes(data, "rels").Array()
	require.Len(t, rels, 2)
	var inputs []string
	for _, in := range rels[1].Get("inputs").Array() {
		inputs = append(inputs, in.String())
	}
	assert.Equal(t, []string{"0", "0"}, inputs)
}

func TestReadHandWritten(t *testing.T) {
	plan := `{"rels": [
	  {"id": "scan", "relOp": "LogicalTableScan", "table": ["hr", "emps"]},
	  {"id": "f", "relOp": "LogicalFilter", "condition": {"op": "=", "operands": [{"input": 1}, {"literal": 10, "type": "BIGINT NOT NULL"}]}},
	  {"id": "p", "relOp": "LogicalProject", "fields": ["name"], "exprs": [{"input": 2}]}
	]}`
	n, err := externalize.Read(root, []byte(plan))
	require.NoError(t, err)
	assert.Equal(t, "LogicalProject(name=[$2])\n"+
		"  LogicalFilter(condition=[=($1, 10)])\n"+
		"    LogicalTableScan(table=[[hr, emps]])\n", explain(n))
}

func TestReadErrors(t *testing.T) {
	tcases := []struct {
		name  string
		plan  string
		code  relerrors.Code
		state relerrors.State
	}{{
		name: "not json",
		plan: `{"rels": [`,
		code: relerrors.InvalidArgument,
	}, {
		name: "empty",
		plan: `{"rels": []}`,
		code: relerrors.InvalidArgument,
	}, {
		name:  "unknown table",
		plan:  `{"rels": [{"id": "0", "relOp": "LogicalTableScan", "table": ["hr", "nope"]}]}`,
		code:  relerrors.NotFound,
		state: relerrors.UnknownTable,
	}, {
		name:  "unknown op",
		plan:  `{"rels": [{"id": "0", "relOp": "LogicalExchange"}]}`,
		code:  relerrors.InvalidArgument,
		state: relerrors.UnknownOperator,
	}, {
		name: "bad input ref",
		plan: `{"rels": [{"id": "0", "relOp": "LogicalTableScan", "table": ["test", "nums"]},
		  {"id": "1", "relOp": "LogicalProject", "fields": ["x"], "exprs": [{"input": 7}]}]}`,
		code:  relerrors.InvalidArgument,
		state: relerrors.BadFieldReference,
	}, {
		name: "non boolean filter",
		plan: `{"rels": [{"id": "0", "relOp": "LogicalTableScan", "table": ["test", "nums"]},
		  {"id": "1", "relOp": "LogicalFilter", "condition": {"input": 0}}]}`,
		code:  relerrors.InvalidArgument,
		state: relerrors.InvalidRelExpression,
	}, {
		name: "missing join input",
		plan: `{"rels": [{"id": "0", "relOp": "LogicalTableScan", "table": ["test", "nums"]},
		  {"id": "1", "relOp": "LogicalJoin", "joinType": "inner", "inputs": ["0", "9"], "condition": {"literal": true, "type": "BOOLEAN NOT NULL"}}]}`,
		code: relerrors.InvalidArgument,
	}}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := externalize.Read(root, []byte(tc.plan))
			require.Error(t, err)
			assert.Equal(t, tc.code, relerrors.CodeOf(err), err.Error())
			if tc.state != relerrors.Undefined {
				assert.Equal(t, tc.state, relerrors.ErrState(err), err.Error())
			}
		})
	}
}
