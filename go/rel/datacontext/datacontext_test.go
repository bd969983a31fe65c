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

package datacontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/sqltypes"
)

func TestParameters(t *testing.T) {
	dc := New(context.Background(), sqltypes.NewInt64(7))
	v, err := dc.Parameter(0)
	require.NoError(t, err)
	assert.Equal(t, sqltypes.NewInt64(7), v)

	_, err = dc.Parameter(1)
	assert.Equal(t, relerrors.WrongParameterCount, relerrors.ErrState(err))
	assert.Equal(t, 1, dc.ParameterCount())
}

func TestClockIsFixed(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	dc := New(context.TODO()).WithTime(now)
	assert.Equal(t, now, dc.CurrentTimestamp())
	assert.Equal(t, dc.CurrentTimestamp(), dc.CurrentTimestamp())
	assert.NotNil(t, dc.Context())
}
