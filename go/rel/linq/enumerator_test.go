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

package linq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/sqltypes"
)

func TestFromRows(t *testing.T) {
	rows := []sqltypes.Row{{sqltypes.NewInt64(1)}, {sqltypes.NewInt64(2)}}
	got, err := ToRows(FromRows(rows))
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	e := Empty()
	assert.False(t, e.Next())
	assert.False(t, e.Next())
}

func TestFuncEnumerator(t *testing.T) {
	i := 0
	closed := 0
	e := NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
		i++
		if i > 3 {
			return nil, false, nil
		}
		return sqltypes.Row{sqltypes.NewInt64(int64(i))}, true, nil
	}, func() error {
		closed++
		return nil
	})
	rows, err := ToRows(e)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, 1, closed)
	require.NoError(t, e.Close())
	assert.Equal(t, 1, closed)
}

func TestFuncEnumeratorError(t *testing.T) {
	boom := errors.New("boom")
	e := NewFuncEnumerator(func() (sqltypes.Row, bool, error) {
		return nil, false, boom
	}, nil)
	_, err := ToRows(e)
	require.ErrorIs(t, err, boom)
}

func TestWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows := make([]sqltypes.Row, 10)
	_, err := ToRows(WithContext(ctx, FromRows(rows)))
	require.ErrorIs(t, err, context.Canceled)

	got, err := ToRows(WithContext(context.Background(), FromRows(rows)))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}
