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

// Package linq defines the pull-based row iterator produced by executable
// plans, together with small helpers to build and drain iterators.
package linq

import (
	"context"
	"errors"

	"relopt.io/relopt/go/sqltypes"
)

// Enumerator iterates over rows.
//
//	for e.Next() {
//		row := e.Row()
//		...
//	}
//	if err := e.Err(); err != nil { ... }
//	e.Close()
//
// Row returns the current row; it is valid until the next call to Next and
// must not be modified.
type Enumerator interface {
	Next() bool
	Row() sqltypes.Row
	Err() error
	Close() error
}

type sliceEnumerator struct {
	rows []sqltypes.Row
	pos  int
}

// FromRows returns an enumerator over rows.
func FromRows(rows []sqltypes.Row) Enumerator {
	return &sliceEnumerator{rows: rows, pos: -1}
}

// Empty returns an enumerator with no rows.
func Empty() Enumerator {
	return FromRows(nil)
}

func (e *sliceEnumerator) Next() bool {
	if e.pos+1 >= len(e.rows) {
		e.pos = len(e.rows)
		return false
	}
	e.pos++
	return true
}

func (e *sliceEnumerator) Row() sqltypes.Row { return e.rows[e.pos] }
func (e *sliceEnumerator) Err() error        { return nil }
func (e *sliceEnumerator) Close() error      { return nil }

// FuncEnumerator adapts a generator function to Enumerator. next returns
// the next row, false at the end, or an error.
type FuncEnumerator struct {
	next    func() (sqltypes.Row, bool, error)
	onClose func() error
	row     sqltypes.Row
	err     error
	done    bool
}

// NewFuncEnumerator returns an enumerator calling next for every row and
// onClose (which may be nil) once on Close.
func NewFuncEnumerator(next func() (sqltypes.Row, bool, error), onClose func() error) *FuncEnumerator {
	return &FuncEnumerator{next: next, onClose: onClose}
}

func (e *FuncEnumerator) Next() bool {
	if e.done {
		return false
	}
	row, ok, err := e.next()
	if err != nil || !ok {
		e.err = err
		e.done = true
		e.row = nil
		return false
	}
	e.row = row
	return true
}

func (e *FuncEnumerator) Row() sqltypes.Row { return e.row }
func (e *FuncEnumerator) Err() error        { return e.err }

func (e *FuncEnumerator) Close() error {
	e.done = true
	if e.onClose != nil {
		f := e.onClose
		e.onClose = nil
		return f()
	}
	return nil
}

// ToRows drains and closes e, returning every row. Rows are copied.
func ToRows(e Enumerator) (rows []sqltypes.Row, err error) {
	defer func() {
		err = errors.Join(err, e.Close())
	}()
	for e.Next() {
		rows = append(rows, append(sqltypes.Row(nil), e.Row()...))
	}
	return rows, e.Err()
}

const checkInterval = 256

type ctxEnumerator struct {
	Enumerator
	ctx   context.Context
	count int
	err   error
}

// WithContext returns an enumerator that stops with the context's error
// once ctx is done. The context is checked every few rows.
func WithContext(ctx context.Context, e Enumerator) Enumerator {
	if ctx == nil || ctx.Done() == nil {
		return e
	}
	return &ctxEnumerator{Enumerator: e, ctx: ctx}
}

func (e *ctxEnumerator) Next() bool {
	if e.err != nil {
		return false
	}
	if e.count%checkInterval == 0 {
		if err := e.ctx.Err(); err != nil {
			e.err = err
			return false
		}
	}
	e.count++
	return e.Enumerator.Next()
}

func (e *ctxEnumerator) Err() error {
	if e.err != nil {
		return e.err
	}
	return e.Enumerator.Err()
}
