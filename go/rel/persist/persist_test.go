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

package persist

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/catalog"
	"relopt.io/relopt/go/rel/relconfig"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/testcat"
	"relopt.io/relopt/go/test/utils"
)

func TestReadBeforeWrite(t *testing.T) {
	p := New(afero.NewMemMapFs(), "/home/u")
	assert.False(t, p.Exists())
	_, err := p.Read()
	require.Error(t, err)
	assert.Equal(t, relerrors.NotFound, relerrors.CodeOf(err))
}

func TestWriteRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/home/u")
	assert.Equal(t, "/home/u/.relopt/catalog.zst", p.Path())

	blob := bytes.Repeat([]byte("relopt "), 1000)
	require.NoError(t, p.Write(blob))
	assert.True(t, p.Exists())

	onDisk, err := afero.ReadFile(fs, p.Path())
	require.NoError(t, err)
	assert.Less(t, len(onDisk), len(blob))

	got, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// a second persister over the same fs sees the blob
	got, err = New(fs, "/home/u").Read()
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	ok, err := afero.Exists(fs, p.Path()+".tmp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverwriteAndRemove(t *testing.T) {
	p := New(afero.NewMemMapFs(), "/h")
	require.NoError(t, p.Write([]byte("one")))
	require.NoError(t, p.Write([]byte("two")))
	got, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, p.Remove())
	require.NoError(t, p.Remove())
	assert.False(t, p.Exists())
}

func TestCorruptBlob(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := New(fs, "/h")
	require.NoError(t, fs.MkdirAll("/h/.relopt", 0o755))
	require.NoError(t, afero.WriteFile(fs, p.Path(), []byte("not zstd"), 0o644))
	_, err := p.Read()
	require.Error(t, err)
	assert.Equal(t, relerrors.DataLoss, relerrors.CodeOf(err))
}

func TestReadOnlyFs(t *testing.T) {
	p := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/h")
	assert.Error(t, p.Write([]byte("x")))
}

func TestCatalogSnapshotRoundTrip(t *testing.T) {
	p := New(afero.NewMemMapFs(), "/h")
	snap, err := catalog.SnapshotOf(testcat.New()).Marshal()
	require.NoError(t, err)
	require.NoError(t, p.Write(snap))

	blob, err := p.Read()
	require.NoError(t, err)
	parsed, err := catalog.ParseSnapshot(blob)
	require.NoError(t, err)
	schema, err := parsed.Build()
	require.NoError(t, err)
	emps, err := schema.Lookup("hr", "emps")
	require.NoError(t, err)
	assert.Len(t, emps.(*catalog.MemTable).Rows(), 5)
	utils.MustMatch(t, catalog.SnapshotOf(testcat.New()), catalog.SnapshotOf(schema), "stored catalog differs")
}

func TestConfiguredHome(t *testing.T) {
	dir := t.TempDir()
	defer relconfig.Override(home, dir)()

	p, err := Configured()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Dir, FileName), p.Path())
	require.NoError(t, p.Write([]byte("schemas: []")))
	blob, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, "schemas: []", string(blob))
}
