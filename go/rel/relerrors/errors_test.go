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

package relerrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, "no error"))
	require.Nil(t, Wrapf(nil, "no error %d", 1))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		err         error
		message     string
		wantMessage string
		wantCode    Code
	}{
		{io.EOF, "read error", "read error: EOF", Unknown},
		{New(AlreadyExists, "oops"), "client error", "client error: oops", AlreadyExists},
	}

	for _, tt := range tests {
		got := Wrap(tt.err, tt.message)
		assert.Equal(t, tt.wantMessage, got.Error())
		assert.Equal(t, tt.wantCode, CodeOf(got))
	}
}

func TestRootCause(t *testing.T) {
	x := New(FailedPrecondition, "error")
	tests := []struct {
		err  error
		want error
	}{
		{err: nil, want: nil},
		{err: io.EOF, want: io.EOF},
		{err: Wrap(io.EOF, "ignored"), want: io.EOF},
		{err: Wrapf(Wrap(io.EOF, "inner"), "outer"), want: io.EOF},
		{err: x, want: x},
	}

	for i, tt := range tests {
		assert.Equal(t, tt.want, RootCause(tt.err), "test %d", i+1)
	}
}

func TestCause(t *testing.T) {
	require.Nil(t, Cause(nil))
	require.Nil(t, Cause(io.EOF))
	require.Equal(t, io.EOF, Cause(Wrap(io.EOF, "ignored")))
	require.Nil(t, Cause(New(FailedPrecondition, "error")))
}

func TestErrorf(t *testing.T) {
	require.Equal(t, "read error without format specifiers", Errorf(DataLoss, "read error without format specifiers").Error())
	require.Equal(t, "read error with 1 format specifier", Errorf(DataLoss, "read error with %d format specifier", 1).Error())
}

func TestCode(t *testing.T) {
	testcases := []struct {
		in   error
		want Code
	}{
		{in: nil, want: OK},
		{in: errors.New("generic"), want: Unknown},
		{in: New(Canceled, "generic"), want: Canceled},
		{in: context.Canceled, want: Canceled},
		{in: context.DeadlineExceeded, want: DeadlineExceeded},
		{in: fmt.Errorf("wrapped: %w", New(Internal, "boom")), want: Internal},
	}
	for _, tcase := range testcases {
		assert.Equal(t, tcase.want, CodeOf(tcase.in), "CodeOf(%v)", tcase.in)
	}
}

func TestErrState(t *testing.T) {
	err := NewErrorf(FailedPrecondition, CannotPlan, "no plan for %s", "root")
	require.Equal(t, CannotPlan, ErrState(err))
	require.Equal(t, CannotPlan, ErrState(Wrap(err, "optimize")))
	require.Equal(t, Undefined, ErrState(io.EOF))
	require.Equal(t, "FAILED_PRECONDITION", CodeOf(err).String())
}

func innerMost() error {
	return Wrap(io.ErrNoProgress, "oh noes")
}

func middle() error {
	return innerMost()
}

func outer() error {
	return middle()
}

func TestStackFormat(t *testing.T) {
	err := outer()
	got := fmt.Sprintf("%v", err)
	assert.False(t, strings.Contains(got, "innerMost"))

	LogErrStacks = true
	defer func() { LogErrStacks = false }()
	got = fmt.Sprintf("%v", err)
	assert.True(t, strings.Contains(got, "innerMost"))
	assert.True(t, strings.Contains(got, "middle"))
	assert.True(t, strings.Contains(got, "outer"))
}

func TestWrapping(t *testing.T) {
	err1 := Errorf(Unavailable, "foo")
	err2 := Wrapf(err1, "bar")
	err3 := Wrapf(err2, "baz")

	require.Equal(t, "baz: bar: foo", err3.Error())
	require.Equal(t, Unavailable, CodeOf(err3))
	require.True(t, errors.Is(err3, err1))
}
