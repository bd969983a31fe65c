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

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

const hrYAML = `
schemas:
- name: hr
  tables:
  - name: emps
    columns:
    - {name: empid, type: BIGINT NOT NULL}
    - {name: deptno, type: BIGINT}
    - {name: name, type: VARCHAR}
    - {name: salary, type: "DECIMAL(10, 2)"}
    uniqueKeys: [[empid]]
    rows:
    - [100, 10, Bill, 10000]
    - [110, 10, Theodore, 11500.5]
    - [150, 20, Sebastian, 7000]
    - [200, null, Eric, 8000]
  - name: depts
    columns:
    - {name: deptno, type: BIGINT NOT NULL}
    - {name: name, type: VARCHAR NOT NULL}
    rowCount: 1000
    rows:
    - [10, Sales]
    - [20, Marketing]
`

func loadHR(t *testing.T) *Schema {
	t.Helper()
	snap, err := ParseSnapshot([]byte(hrYAML))
	require.NoError(t, err)
	root, err := snap.Build()
	require.NoError(t, err)
	return root
}

func TestSnapshotBuild(t *testing.T) {
	root := loadHR(t)
	emps, err := root.Lookup("hr", "EMPS")
	require.NoError(t, err)
	assert.Equal(t, []string{"hr", "emps"}, emps.QualifiedName())
	assert.Equal(t, "RecordType(BIGINT NOT NULL empid, BIGINT deptno, VARCHAR name, DECIMAL(10, 2) salary)", emps.RowType().Digest())

	stat := emps.Statistic()
	assert.Equal(t, 4.0, stat.RowCount)
	assert.True(t, stat.IsKey(bitset.Build(0, 2)))
	assert.False(t, stat.IsKey(bitset.Build(1)))

	depts, err := root.Lookup("hr", "depts")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, depts.Statistic().RowCount)

	rows := emps.(*MemTable).Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, sqltypes.Decimal, rows[1][3].Type())
	assert.Equal(t, "11500.5", rows[1][3].ToString())
	assert.True(t, rows[3][1].IsNull())
}

func TestLookupErrors(t *testing.T) {
	root := loadHR(t)
	_, err := root.Lookup("sales", "emps")
	require.Error(t, err)
	assert.Equal(t, relerrors.NotFound, relerrors.CodeOf(err))
	assert.Equal(t, relerrors.UnknownSchema, relerrors.ErrState(err))

	_, err = root.Lookup("hr", "nope")
	require.ErrorContains(t, err, "table 'hr.nope' not found")
	assert.Equal(t, relerrors.UnknownTable, relerrors.ErrState(err))
}

func TestSnapshotRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"wrong arity": `
tables:
- name: t
  columns: [{name: a, type: BIGINT}]
  rows: [[1, 2]]`,
		"null in not null": `
tables:
- name: t
  columns: [{name: a, type: BIGINT NOT NULL}]
  rows: [[null]]`,
		"bad key": `
tables:
- name: t
  columns: [{name: a, type: BIGINT}]
  uniqueKeys: [[b]]`,
		"bad type": `
tables:
- name: t
  columns: [{name: a, type: BLOB}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			snap, err := ParseSnapshot([]byte(doc))
			require.NoError(t, err)
			_, err = snap.Build()
			require.Error(t, err)
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := loadHR(t)
	data, err := SnapshotOf(root).Marshal()
	require.NoError(t, err)

	snap, err := ParseSnapshot(data)
	require.NoError(t, err)
	again, err := snap.Build()
	require.NoError(t, err)

	for _, path := range [][]string{{"hr", "emps"}, {"hr", "depts"}} {
		want, err := root.Lookup(path...)
		require.NoError(t, err)
		got, err := again.Lookup(path...)
		require.NoError(t, err)
		assert.Equal(t, want.RowType().Digest(), got.RowType().Digest())
		assert.Equal(t, want.Statistic(), got.Statistic())
		assert.True(t, sqltypes.RowsEquivalent(want.(*MemTable).Rows(), got.(*MemTable).Rows()))
	}
}

func scanAll(t *testing.T, e linq.Enumerator) []sqltypes.Row {
	t.Helper()
	rows, err := linq.ToRows(e)
	require.NoError(t, err)
	return rows
}

func TestMemTableFilterPushdown(t *testing.T) {
	root := loadHR(t)
	tbl, err := root.Lookup("hr", "emps")
	require.NoError(t, err)
	emps := tbl.(*MemTable)
	rt := emps.RowType()
	dc := datacontext.New(context.Background())

	deptno := rex.InputRefOf(rt, 1)
	eq10 := rex.EqualsOf(deptno, rex.LiteralOf(sqltypes.NewInt64(10)))
	reversed := rex.MustCall(rex.LessThan, rex.LiteralOf(sqltypes.NewInt64(105)), rex.InputRefOf(rt, 0))
	isNull := rex.IsNullOf(deptno)
	complexPred := rex.EqualsOf(rex.MustCall(rex.Plus, deptno, rex.LiteralOf(sqltypes.NewInt64(1))), rex.LiteralOf(sqltypes.NewInt64(11)))

	assert.True(t, emps.CanFilter(eq10))
	assert.True(t, emps.CanFilter(reversed))
	assert.True(t, emps.CanFilter(isNull))
	assert.False(t, emps.CanFilter(complexPred))

	filtered, err := emps.ScanFiltered(dc, []rex.Node{eq10, reversed})
	require.NoError(t, err)
	rows := scanAll(t, filtered)
	require.Len(t, rows, 1)
	assert.Equal(t, "Theodore", rows[0][2].ToString())

	projected, err := emps.ScanProjected(dc, []rex.Node{isNull}, []int{2, 0})
	require.NoError(t, err)
	rows = scanAll(t, projected)
	require.Len(t, rows, 1)
	assert.Equal(t, "Eric|200", sqltypes.RowString(rows[0]))

	_, err = emps.ScanFiltered(dc, []rex.Node{complexPred})
	require.Error(t, err)
	_, err = emps.ScanProjected(dc, nil, []int{9})
	require.Error(t, err)
}

func TestMemTableModify(t *testing.T) {
	rt := reltype.StructOf([]string{"a", "b"}, []*reltype.DataType{
		reltype.New(sqltypes.Int64, false),
		reltype.New(sqltypes.VarChar, true),
	})
	tbl := NewMemTable([]string{"t"}, rt, nil)
	row := func(a int64, b string) sqltypes.Row {
		return sqltypes.Row{sqltypes.NewInt64(a), sqltypes.NewVarChar(b)}
	}

	n, err := tbl.Insert([]sqltypes.Row{row(1, "x"), row(2, "y")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2.0, tbl.Statistic().RowCount)

	_, err = tbl.Insert([]sqltypes.Row{{sqltypes.NULL, sqltypes.NULL}})
	require.ErrorContains(t, err, "column 'a' cannot be null")

	n, err = tbl.Update([]sqltypes.Row{row(2, "y"), row(9, "z")}, []sqltypes.Row{row(2, "yy"), row(9, "zz")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = tbl.Delete([]sqltypes.Row{row(1, "x")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, sqltypes.RowsEquivalent([]sqltypes.Row{row(2, "yy")}, tbl.Rows()))
}

func TestScanHonorsCancellation(t *testing.T) {
	root := loadHR(t)
	tbl, err := root.Lookup("hr", "emps")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := tbl.(ScannableTable).Scan(datacontext.New(ctx))
	require.NoError(t, err)
	_, err = linq.ToRows(e)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWalk(t *testing.T) {
	root := loadHR(t)
	var names []string
	require.NoError(t, root.Walk(func(tbl Table) error {
		names = append(names, tbl.QualifiedName()[1])
		return nil
	}))
	assert.Equal(t, []string{"depts", "emps"}, names)
}
