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

package catalog

import (
	"sort"
	"strings"
	"sync"

	"relopt.io/relopt/go/rel/relerrors"
)

// Schema is a named collection of tables and sub-schemas. Names are
// matched case-insensitively. A Schema is safe for concurrent use.
type Schema struct {
	name string

	mu         sync.RWMutex
	tables     map[string]Table
	subSchemas map[string]*Schema
}

// NewSchema creates an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{
		name:       name,
		tables:     make(map[string]Table),
		subSchemas: make(map[string]*Schema),
	}
}

// Name returns the schema name. The root schema has an empty name.
func (s *Schema) Name() string { return s.name }

// AddTable registers t under name, replacing any previous table.
func (s *Schema) AddTable(name string, t Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[strings.ToLower(name)] = t
}

// AddSubSchema creates (or returns the existing) sub-schema name.
func (s *Schema) AddSubSchema(name string) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if sub, ok := s.subSchemas[key]; ok {
		return sub
	}
	sub := NewSchema(name)
	s.subSchemas[key] = sub
	return sub
}

// Table returns the table called name.
func (s *Schema) Table(name string) (Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

// SubSchema returns the sub-schema called name.
func (s *Schema) SubSchema(name string) (*Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subSchemas[strings.ToLower(name)]
	return sub, ok
}

// TableNames returns the sorted names of the tables in s.
func (s *Schema) TableNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		qn := t.QualifiedName()
		names = append(names, qn[len(qn)-1])
	}
	sort.Strings(names)
	return names
}

// SubSchemaNames returns the sorted names of the sub-schemas of s.
func (s *Schema) SubSchemaNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.subSchemas))
	for _, sub := range s.subSchemas {
		names = append(names, sub.name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a table path such as ["hr", "emps"] relative to s.
func (s *Schema) Lookup(path ...string) (Table, error) {
	if len(path) == 0 {
		return nil, relerrors.NewErrorf(relerrors.InvalidArgument, relerrors.UnknownTable, "empty table path")
	}
	cur := s
	for i, name := range path[:len(path)-1] {
		sub, ok := cur.SubSchema(name)
		if !ok {
			return nil, relerrors.NewErrorf(relerrors.NotFound, relerrors.UnknownSchema, "unknown schema '%s'", strings.Join(path[:i+1], "."))
		}
		cur = sub
	}
	t, ok := cur.Table(path[len(path)-1])
	if !ok {
		return nil, relerrors.NewErrorf(relerrors.NotFound, relerrors.UnknownTable, "table '%s' not found", strings.Join(path, "."))
	}
	return t, nil
}

// Walk calls f for every table reachable from s, in name order.
func (s *Schema) Walk(f func(t Table) error) error {
	for _, name := range s.TableNames() {
		t, _ := s.Table(name)
		if err := f(t); err != nil {
			return err
		}
	}
	for _, name := range s.SubSchemaNames() {
		sub, _ := s.SubSchema(name)
		if err := sub.Walk(f); err != nil {
			return err
		}
	}
	return nil
}
