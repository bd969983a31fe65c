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

// Package utils holds helpers shared by tests across the module.
package utils

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"relopt.io/relopt/go/sqltypes"
)

// FormatRows renders each row as its comma-separated values.
func FormatRows(rows []sqltypes.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		vals := make([]string, len(row))
		for j, v := range row {
			vals[j] = v.String()
		}
		out[i] = strings.Join(vals, ",")
	}
	return out
}

// Multiset compares string slices regardless of order.
var Multiset = cmpopts.SortSlices(func(a, b string) bool { return a < b })

// RowsDiff returns the difference between two row multisets, or "" when
// they hold the same rows.
func RowsDiff(want, got []string) string {
	return cmp.Diff(want, got, Multiset, cmpopts.EquateEmpty())
}

// MustMatchRows fails t unless got holds exactly the rows of want, in any
// order.
func MustMatchRows(t testing.TB, want []string, got []sqltypes.Row, msg ...any) {
	t.Helper()
	if diff := RowsDiff(want, FormatRows(got)); diff != "" {
		t.Fatalf("%v: rows differ (-want +got)\n%s", msg, diff)
	}
}

// MustMatchFn returns a helper that fails the test when want and got differ.
// Unexported fields are compared. Fields whose cmp path step matches one of
// ignored, such as ".Elapsed", are skipped.
func MustMatchFn(ignored ...string) func(t testing.TB, want, got any, msg ...any) {
	skip := make(map[string]bool, len(ignored))
	for _, name := range ignored {
		skip[name] = true
	}
	opts := []cmp.Option{
		cmp.Exporter(func(reflect.Type) bool { return true }),
		cmp.FilterPath(func(p cmp.Path) bool { return skip[p.Last().String()] }, cmp.Ignore()),
	}
	return func(t testing.TB, want, got any, msg ...any) {
		t.Helper()
		if diff := cmp.Diff(want, got, opts...); diff != "" {
			t.Fatalf("%v: (-want +got)\n%s", msg, diff)
		}
	}
}

// MustMatch compares every field.
var MustMatch = MustMatchFn()
