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

package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleBitReturnsNegativeOneWhenMultipleBitsAreSet(t *testing.T) {
	bs := Build(1, 2)
	require.Equal(t, -1, bs.SingleBit())
	require.Equal(t, 3, Single(3).SingleBit())
	require.Equal(t, 40, Single(40).SingleBit())
}

func TestSetOperations(t *testing.T) {
	a := Build(0, 2, 9)
	b := Build(2, 3)

	assert.Equal(t, Build(0, 2, 3, 9), a.Or(b))
	assert.Equal(t, Build(2), a.And(b))
	assert.Equal(t, Build(0, 9), a.AndNot(b))
	assert.True(t, a.Overlaps(b))
	assert.False(t, Build(0).Overlaps(Build(9)))
	assert.True(t, Build(2).IsContainedBy(a))
	assert.False(t, b.IsContainedBy(a))
	assert.Equal(t, 3, a.Popcount())
	assert.Equal(t, 9, a.Max())
	assert.Equal(t, -1, Bitset("").Max())
}

func TestClearTruncates(t *testing.T) {
	a := Build(1, 12)
	cleared := a.Clear(12)
	assert.Equal(t, Build(1), cleared)
	assert.Equal(t, Bitset(""), cleared.Clear(1))
	assert.Equal(t, a, a.Clear(5))
}

func TestOrdinalsShiftPermute(t *testing.T) {
	a := Build(0, 3, 8)
	assert.Equal(t, []int{0, 3, 8}, a.Ordinals())
	assert.Equal(t, []int{2, 5, 10}, a.Shift(2).Ordinals())
	assert.Equal(t, []int{1, 6}, a.Shift(-2).Ordinals())
	assert.Equal(t, []int{0, 1}, a.Permute([]int{1, -1, -1, 0}).Ordinals())
	assert.Equal(t, Build(2, 3, 4), Range(2, 5))
	assert.True(t, Range(3, 3).IsEmpty())
	assert.Equal(t, "{0, 3, 8}", a.String())
	assert.True(t, a.Contains(8))
	assert.False(t, a.Contains(100))
}

func TestSingleMatchesBuild(t *testing.T) {
	for i := range 40 {
		assert.Equal(t, Build(i), Single(i), "bit %d", i)
	}
}
