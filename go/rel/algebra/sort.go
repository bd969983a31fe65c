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

package algebra

import (
	"fmt"

	"relopt.io/relopt/go/rel/bitset"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/sqltypes"
)

// Sort orders its input by Collation and optionally skips Offset rows and
// returns at most Fetch rows. Offset and Fetch are literals or dynamic
// parameters.
type Sort struct {
	Base
	Collation Collation
	Offset    rex.Node
	Fetch     rex.Node
}

// NewSort sorts input.
func NewSort(input Node, collation Collation, offset, fetch rex.Node) *Sort {
	return NewSortWith(LogicalTraits.WithCollation(collation), input, collation, offset, fetch)
}

// NewSortWith builds a sort with explicit traits.
func NewSortWith(traits TraitSet, input Node, collation Collation, offset, fetch rex.Node) *Sort {
	n := input.RowType().FieldCount()
	for _, fc := range collation {
		if fc.Field < 0 || fc.Field >= n {
			panic(invalidRel("Sort: field %d out of range", fc.Field))
		}
	}
	for _, e := range []rex.Node{offset, fetch} {
		if e == nil {
			continue
		}
		switch e.(type) {
		case *rex.Literal, *rex.DynamicParam:
		default:
			panic(invalidRel("Sort: offset/fetch %s must be a literal or parameter", e))
		}
		if e.Type().Name != sqltypes.Int64 {
			panic(invalidRel("Sort: offset/fetch %s must be BIGINT", e))
		}
	}
	return &Sort{
		Base:      NewBase(traits, input.RowType(), input),
		Collation: collation,
		Offset:    offset,
		Fetch:     fetch,
	}
}

func (s *Sort) OpName() string { return "LogicalSort" }

func (s *Sort) Copy(traits TraitSet, inputs []Node) Node {
	return NewSortWith(traits, inputs[0], s.Collation, s.Offset, s.Fetch)
}

func (s *Sort) ExplainTerms(t *Terms) {
	t.Input("input", s.Input(0))
	for i, fc := range s.Collation {
		t.Item(fmt.Sprintf("sort%d", i), fmt.Sprintf("$%d", fc.Field))
	}
	for i, fc := range s.Collation {
		dir := "ASC"
		if fc.Direction == Descending {
			dir = "DESC"
		}
		if !fc.defaultNulls() {
			if fc.Nulls == NullsFirst {
				dir += "-nulls-first"
			} else {
				dir += "-nulls-last"
			}
		}
		t.Item(fmt.Sprintf("dir%d", i), dir)
	}
	t.ItemIf("offset", s.Offset, s.Offset != nil).
		ItemIf("fetch", s.Fetch, s.Fetch != nil)
}

// IsPureLimit reports whether s has no collation, only offset/fetch.
func (s *Sort) IsPureLimit() bool {
	return len(s.Collation) == 0 && (s.Offset != nil || s.Fetch != nil)
}

// IsPureSort reports whether s has no offset and no fetch.
func (s *Sort) IsPureSort() bool {
	return s.Offset == nil && s.Fetch == nil
}

// LiteralInt returns the value of a BIGINT literal, or def.
func LiteralInt(e rex.Node, def int64) int64 {
	if lit, ok := e.(*rex.Literal); ok && !lit.IsNull() {
		if v, err := lit.Value.ToInt64(); err == nil {
			return v
		}
	}
	return def
}

func (s *Sort) EstimateRowCount(mq *MetadataQuery) float64 {
	return limitRowCount(mq.RowCount(s.Input(0)), s.Offset, s.Fetch)
}

func limitRowCount(rows float64, offset, fetch rex.Node) float64 {
	rows = max(0, rows-float64(LiteralInt(offset, 0)))
	if fetch != nil {
		if _, isParam := fetch.(*rex.DynamicParam); !isParam {
			rows = min(rows, float64(LiteralInt(fetch, 0)))
		}
	}
	return rows
}

func (s *Sort) AreColumnsUnique(mq *MetadataQuery, cols bitset.Bitset) bool {
	return mq.AreColumnsUnique(s.Input(0), cols)
}

func (s *Sort) DeriveCollations(_ *MetadataQuery) []Collation {
	if len(s.Collation) == 0 {
		return nil
	}
	return []Collation{s.Collation}
}

func (s *Sort) ConstantColumns(mq *MetadataQuery) map[int]rex.Node {
	return mq.ConstantColumns(s.Input(0))
}
