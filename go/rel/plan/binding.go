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

package plan

import (
	"relopt.io/relopt/go/rel/algebra"
)

// Candidates returns the nodes an input of a bound node may be bound to.
// The heuristic planner returns the single current node of a vertex; the
// cost-based planner returns every live node of the input's set.
type Candidates func(input algebra.Node) []algebra.Node

// Parents returns the nodes that use n as an input.
type Parents func(n algebra.Node) []algebra.Node

// Bindings enumerates the ways the operand tree rooted at o matches the
// tree rooted at n. Each binding lists the bound nodes in operand
// pre-order.
func Bindings(o *Operand, n algebra.Node, candidates Candidates) [][]algebra.Node {
	if !o.Matches(n) {
		return nil
	}
	self := [][]algebra.Node{{n}}
	switch o.policy {
	case Some:
		acc := self
		inputs := n.Inputs()
		for i, child := range o.children {
			var sub [][]algebra.Node
			for _, cand := range candidates(inputs[i]) {
				sub = append(sub, Bindings(child, cand, candidates)...)
			}
			acc = product(acc, sub)
			if len(acc) == 0 {
				return nil
			}
		}
		return acc
	case Unordered:
		var sub [][]algebra.Node
		for _, in := range n.Inputs() {
			for _, cand := range candidates(in) {
				sub = append(sub, Bindings(o.children[0], cand, candidates)...)
			}
		}
		return product(self, sub)
	default:
		return self
	}
}

func product(prefixes, suffixes [][]algebra.Node) [][]algebra.Node {
	out := make([][]algebra.Node, 0, len(prefixes)*len(suffixes))
	for _, p := range prefixes {
		for _, s := range suffixes {
			b := make([]algebra.Node, 0, len(p)+len(s))
			b = append(b, p...)
			b = append(b, s...)
			out = append(out, b)
		}
	}
	return out
}

// BindingsAt enumerates the bindings of the rule tree containing o in
// which n is bound to o. Ancestors of n are found through parents.
func BindingsAt(o *Operand, n algebra.Node, candidates Candidates, parents Parents) [][]algebra.Node {
	if !o.Matches(n) {
		return nil
	}
	root := o
	for root.parent != nil {
		root = root.parent
	}
	var out [][]algebra.Node
	for _, r := range roots(o, n, parents) {
		for _, b := range Bindings(root, r, candidates) {
			if b[o.ordinal] == n {
				out = append(out, b)
			}
		}
	}
	return out
}

// roots walks up from n, bound to o, to the nodes that may be bound to
// the root operand.
func roots(o *Operand, n algebra.Node, parents Parents) []algebra.Node {
	if o.parent == nil {
		return []algebra.Node{n}
	}
	var out []algebra.Node
	seen := map[int]bool{}
	for _, p := range parents(n) {
		if !o.parent.Matches(p) {
			continue
		}
		for _, r := range roots(o.parent, p, parents) {
			if !seen[r.ID()] {
				seen[r.ID()] = true
				out = append(out, r)
			}
		}
	}
	return out
}
