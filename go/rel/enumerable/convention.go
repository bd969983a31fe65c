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

// Package enumerable is the executable convention. Its operators compile a
// plan tree into a pipeline of linq enumerators, with scalar expressions
// compiled into code for a small stack machine.
package enumerable

import (
	"relopt.io/relopt/go/rel/algebra"
)

// Convention is the convention of nodes that can be compiled and run.
// Collation is enforced by inserting a Sort.
var Convention = &algebra.Convention{
	Name:     "ENUMERABLE",
	Enforcer: enforceCollation,
}

// Traits is the trait set of an unsorted enumerable node.
var Traits = algebra.Traits(Convention)

func enforceCollation(input algebra.Node, required algebra.TraitSet) algebra.Node {
	if len(required.Collation) == 0 {
		return nil
	}
	return newSort(required, input, required.Collation, nil, nil)
}

// Node is an operator of the enumerable convention.
type Node interface {
	algebra.Node
	// Implement builds the code block of the node. prefer is the row
	// format the parent would like to receive.
	Implement(imp *Implementor, prefer RowFormat) (*Result, error)
}
