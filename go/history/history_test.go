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

package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := New[int](3, nil)
	assert.Empty(t, h.Records())

	h.Add(1)
	h.Add(2)
	assert.Equal(t, []int{2, 1}, h.Records())

	h.Add(3)
	h.Add(4)
	assert.Equal(t, []int{4, 3, 2}, h.Records())
	assert.Equal(t, 3, h.Len())
}

func TestHistoryDropsDuplicates(t *testing.T) {
	h := New(4, func(prev, next string) bool { return prev == next })
	for _, s := range []string{"a", "a", "b", "a", "a", "c"} {
		h.Add(s)
	}
	assert.Equal(t, []string{"c", "a", "b", "a"}, h.Records())
}

func TestHistoryConcurrentAdd(t *testing.T) {
	h := New[int](10, nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Add(i)
		}()
	}
	wg.Wait()
	assert.Len(t, h.Records(), 10)
}
