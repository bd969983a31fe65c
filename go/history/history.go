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

// Package history keeps the most recent records of some activity in a
// fixed-size ring.
package history

import "sync"

// History is a thread-safe ring of the last records added to it.
type History[T any] struct {
	mu      sync.Mutex
	records []T
	next    int
	length  int
	same    func(prev, next T) bool
}

// New returns a history that keeps the last length records. A nil same
// keeps every record; otherwise a record that same reports as a duplicate
// of the previous one is dropped.
func New[T any](length int, same func(prev, next T) bool) *History[T] {
	if length < 1 {
		length = 1
	}
	return &History[T]{records: make([]T, length), same: same}
}

// Add records r, overwriting the oldest record once the ring is full.
func (h *History[T]) Add(r T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.same != nil && h.length > 0 {
		last := h.records[(h.next+len(h.records)-1)%len(h.records)]
		if h.same(last, r) {
			return
		}
	}

	h.records[h.next] = r
	if h.length < len(h.records) {
		h.length++
	}
	h.next = (h.next + 1) % len(h.records)
}

// Records returns the kept records, newest first.
func (h *History[T]) Records() []T {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]T, 0, h.length)
	for i := 1; i <= h.length; i++ {
		out = append(out, h.records[(h.next+len(h.records)-i)%len(h.records)])
	}
	return out
}

// Len returns the number of kept records.
func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.length
}
