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

// Package testcat provides the fixture catalog used by tests.
package testcat

import (
	"fmt"

	"relopt.io/relopt/go/rel/catalog"
)

// Snapshot is the fixture catalog in snapshot form.
const Snapshot = `
schemas:
- name: hr
  tables:
  - name: emps
    columns:
    - {name: empid, type: BIGINT NOT NULL}
    - {name: deptno, type: BIGINT NOT NULL}
    - {name: name, type: VARCHAR NOT NULL}
    - {name: salary, type: "DECIMAL(10, 2) NOT NULL"}
    - {name: commission, type: BIGINT}
    uniqueKeys: [[empid]]
    rows:
    - [100, 10, Bill, 10000, 1000]
    - [200, 20, Eric, 8000, 500]
    - [150, 10, Sebastian, 7000, null]
    - [110, 10, Theodore, 11500, 250]
    - [120, 40, Alice, 9000, null]
  - name: depts
    columns:
    - {name: deptno, type: BIGINT NOT NULL}
    - {name: name, type: VARCHAR NOT NULL}
    uniqueKeys: [[deptno]]
    rows:
    - [10, Sales]
    - [20, Marketing]
    - [30, HR]
- name: test
  tables:
  - name: nums
    columns:
    - {name: n, type: BIGINT}
    - {name: s, type: VARCHAR}
    rows:
    - [1, a]
    - [2, b]
    - [2, b]
    - [3, null]
    - [null, c]
  - name: empty
    columns:
    - {name: x, type: BIGINT NOT NULL}
`

// New builds a fresh copy of the fixture catalog. Tables are mutable
// MemTables, so tests that modify them should not share a catalog.
func New() *catalog.Schema {
	snap, err := catalog.ParseSnapshot([]byte(Snapshot))
	if err != nil {
		panic(err)
	}
	root, err := snap.Build()
	if err != nil {
		panic(err)
	}
	return root
}

// Table looks up a table and panics if it is missing.
func Table(root *catalog.Schema, path ...string) *catalog.MemTable {
	t, err := root.Lookup(path...)
	if err != nil {
		panic(fmt.Sprintf("testcat: %s", err))
	}
	return t.(*catalog.MemTable)
}
