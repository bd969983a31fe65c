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

// Package datacontext carries the runtime bindings of one execution of a
// compiled plan: the cancellation context, positional parameters and the
// statement clock.
package datacontext

import (
	"context"
	"time"

	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/sqltypes"
)

// DataContext provides runtime values to executing plans.
type DataContext interface {
	// Context is checked for cancellation while rows are produced.
	Context() context.Context
	// Parameter returns the value of positional parameter i.
	Parameter(i int) (sqltypes.Value, error)
	// CurrentTimestamp is fixed for the duration of the execution.
	CurrentTimestamp() time.Time
}

// Context is the default DataContext.
type Context struct {
	ctx    context.Context
	params []sqltypes.Value
	now    time.Time
}

var _ DataContext = (*Context)(nil)

// New returns a DataContext over ctx with the given parameters. The clock
// is read once.
func New(ctx context.Context, params ...sqltypes.Value) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{ctx: ctx, params: params, now: time.Now().UTC()}
}

// WithTime returns a copy of c whose CurrentTimestamp is now.
func (c *Context) WithTime(now time.Time) *Context {
	cp := *c
	cp.now = now.UTC()
	return &cp
}

func (c *Context) Context() context.Context { return c.ctx }

func (c *Context) Parameter(i int) (sqltypes.Value, error) {
	if i < 0 || i >= len(c.params) {
		return sqltypes.NULL, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.WrongParameterCount,
			"parameter ?%d is not bound (%d parameters given)", i, len(c.params))
	}
	return c.params[i], nil
}

func (c *Context) CurrentTimestamp() time.Time { return c.now }

// ParameterCount returns the number of bound parameters.
func (c *Context) ParameterCount() int { return len(c.params) }
