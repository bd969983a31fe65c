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

package command

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/sqltypes"
)

const salesPlan = `{"rels": [
  {"id": "scan", "relOp": "LogicalTableScan", "table": ["hr", "emps"]},
  {"id": "f", "relOp": "LogicalFilter", "condition": {"op": "=", "operands": [{"input": 1}, {"literal": 10, "type": "BIGINT NOT NULL"}]}},
  {"id": "p", "relOp": "LogicalProject", "fields": ["name"], "exprs": [{"input": 2}]}
]}`

const paramPlan = `{"rels": [
  {"id": "scan", "relOp": "LogicalTableScan", "table": ["hr", "emps"]},
  {"id": "f", "relOp": "LogicalFilter", "condition": {"op": ">", "operands": [{"input": 0}, {"dynamicParam": 0, "type": "BIGINT NOT NULL"}]}},
  {"id": "p", "relOp": "LogicalProject", "fields": ["empid"], "exprs": [{"input": 0}]}
]}`

// setup installs an in-memory file system holding the fixture catalog and
// plans, and returns a fresh catalog home.
func setup(t *testing.T) string {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/catalog.yaml", []byte(testcat.Snapshot), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/sales.json", []byte(salesPlan), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/param.json", []byte(paramPlan), 0o644))
	fs = mem
	t.Cleanup(func() { fs = afero.NewOsFs() })
	return t.TempDir()
}

func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	explainOptions.Catalog, explainOptions.Phase, explainOptions.Format, explainOptions.Listing = "", "physical", "text", false
	runOptions.Catalog, runOptions.Params = "", nil

	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetErr(io.Discard)
	Root.SetArgs(append(args, "--catalog-home", home, "--plancache-enabled=false"))
	err := Root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExplainLogical(t *testing.T) {
	home := setup(t)
	out, err := execute(t, home, "explain", "--catalog", "/catalog.yaml", "--plan", "/sales.json", "--phase", "logical")
	require.NoError(t, err)
	assert.Equal(t, "LogicalProject(name=[$2])\n"+
		"  LogicalFilter(condition=[=($1, 10)])\n"+
		"    LogicalTableScan(table=[[hr, emps]])\n", out)
}

func TestExplainFormats(t *testing.T) {
	home := setup(t)

	out, err := execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Enumerable")
	assert.NotContains(t, out, "Logical")

	out, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--phase", "logical", "--format", "json")
	require.NoError(t, err)
	assert.True(t, gjson.Valid(out), out)

	out, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--phase", "logical", "--format", "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "LogicalTableScan")

	out, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--phase", "normalized")
	require.NoError(t, err)
	assert.Contains(t, out, "LogicalTableScan")

	out, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--listing")
	require.NoError(t, err)
	assert.Contains(t, out, "Enumerable")
}

func TestExplainErrors(t *testing.T) {
	home := setup(t)

	_, err := execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--phase", "late")
	assert.Equal(t, relerrors.InvalidArgument, relerrors.CodeOf(err))

	_, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--format", "xml")
	assert.Equal(t, relerrors.InvalidArgument, relerrors.CodeOf(err))

	_, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/sales.json", "--phase", "logical", "--listing")
	assert.Equal(t, relerrors.InvalidArgument, relerrors.CodeOf(err))

	_, err = execute(t, home, "explain", "-c", "/catalog.yaml", "-p", "/missing.json")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	home := setup(t)

	out, err := execute(t, home, "run", "-c", "/catalog.yaml", "-p", "/sales.json")
	require.NoError(t, err)
	for _, name := range []string{"Bill", "Sebastian", "Theodore", "(3 rows)"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "Eric")

	out, err = execute(t, home, "run", "-c", "/catalog.yaml", "-p", "/param.json", "--param", "120")
	require.NoError(t, err)
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "150")
	assert.Contains(t, out, "(2 rows)")
}

func TestCatalogLifecycle(t *testing.T) {
	home := setup(t)

	_, err := execute(t, home, "run", "-p", "/sales.json")
	require.Error(t, err)
	assert.Equal(t, relerrors.NotFound, relerrors.CodeOf(err))

	out, err := execute(t, home, "catalog", "import", "/catalog.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "stored 4 tables")

	out, err = execute(t, home, "catalog", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "hr.emps")
	assert.Contains(t, out, "test.empty")

	out, err = execute(t, home, "run", "-p", "/sales.json")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 rows)")

	_, err = execute(t, home, "catalog", "drop")
	require.NoError(t, err)
	_, err = execute(t, home, "catalog", "show")
	assert.Equal(t, relerrors.NotFound, relerrors.CodeOf(err))
}

func TestParseParam(t *testing.T) {
	tcases := []struct {
		in   string
		want sqltypes.Value
	}{
		{in: "7", want: sqltypes.NewInt64(7)},
		{in: "1.5", want: sqltypes.NewFloat64(1.5)},
		{in: "true", want: sqltypes.NewBoolean(true)},
		{in: "NULL", want: sqltypes.NULL},
		{in: "Sales", want: sqltypes.NewVarChar("Sales")},
		{in: "VARCHAR:7", want: sqltypes.NewVarChar("7")},
		{in: "BIGINT:42", want: sqltypes.NewInt64(42)},
		{in: "a:b", want: sqltypes.NewVarChar("a:b")},
	}
	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseParam(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want.Type(), got.Type())
			assert.Equal(t, tc.want.ToString(), got.ToString())
		})
	}
}
