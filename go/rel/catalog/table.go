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

// Package catalog defines how the optimizer sees tables and schemas, and
// provides an in-memory implementation used by the CLI and by tests.
package catalog

import (
	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/linq"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Statistic holds what the optimizer knows about a table's contents.
type Statistic struct {
	// RowCount is the estimated number of rows.
	RowCount float64
	// UniqueKeys lists sets of columns whose values are unique.
	UniqueKeys []bitset.Bitset
}

// IsKey reports whether cols contain one of the unique keys.
func (s Statistic) IsKey(cols bitset.Bitset) bool {
	for _, k := range s.UniqueKeys {
		if k.IsContainedBy(cols) {
			return true
		}
	}
	return false
}

// Table is a named relation with a row type.
type Table interface {
	// QualifiedName is the path of the table from the root schema.
	QualifiedName() []string
	RowType() *reltype.DataType
	Statistic() Statistic
}

// ScannableTable can return all of its rows.
type ScannableTable interface {
	Table
	Scan(dc datacontext.DataContext) (linq.Enumerator, error)
}

// FilterableTable can apply some filters itself. At planning time the
// optimizer offers each conjunct to CanFilter; the accepted ones are passed
// to ScanFiltered, which must apply all of them.
type FilterableTable interface {
	Table
	CanFilter(filter rex.Node) bool
	ScanFiltered(dc datacontext.DataContext, filters []rex.Node) (linq.Enumerator, error)
}

// ProjectableFilterableTable can also return a subset of the columns.
// Filters reference the full row type; returned rows hold only projects.
type ProjectableFilterableTable interface {
	FilterableTable
	ScanProjected(dc datacontext.DataContext, filters []rex.Node, projects []int) (linq.Enumerator, error)
}

// ModifiableTable accepts INSERT, UPDATE and DELETE.
type ModifiableTable interface {
	Table
	Insert(rows []sqltypes.Row) (uint64, error)
	// Update replaces each row of old with the row of the same position in
	// updated.
	Update(old, updated []sqltypes.Row) (uint64, error)
	Delete(rows []sqltypes.Row) (uint64, error)
}
