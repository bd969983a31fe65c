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

package volcano

import (
	"strconv"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/reltype"
)

// RelSet is a set of equivalent relational expressions.
type RelSet struct {
	id      int
	rowType *reltype.DataType
	rels    []algebra.Node
	subsets []*RelSubset
	// parents use a subset of this set as an input.
	parents []algebra.Node
	// mergedInto is set once the set was merged into another one.
	mergedInto *RelSet
}

// ID returns the set id.
func (s *RelSet) ID() int { return s.id }

// Rels returns the expressions of the set in registration order.
func (s *RelSet) Rels() []algebra.Node { return s.rels }

// Subsets returns the trait subsets of the set.
func (s *RelSet) Subsets() []*RelSubset { return s.subsets }

func (s *RelSet) canonical() *RelSet {
	for s.mergedInto != nil {
		s = s.mergedInto
	}
	return s
}

func (s *RelSet) subset(traits algebra.TraitSet) *RelSubset {
	key := traits.Key()
	for _, sub := range s.subsets {
		if sub.traits.Key() == key {
			return sub
		}
	}
	return nil
}

// RelSubset is the part of a RelSet whose expressions have given traits.
// It stands in as the input of expressions registered with the planner,
// delegating to the cheapest expression found so far.
type RelSubset struct {
	id       int
	set      *RelSet
	traits   algebra.TraitSet
	best     algebra.Node
	bestCost algebra.Cost
	// alias is the equivalent subset that replaced this one when sets
	// were merged.
	alias *RelSubset
}

var (
	_ algebra.Delegating = (*RelSubset)(nil)
	_ algebra.Digester   = (*RelSubset)(nil)
	_ algebra.CostHolder = (*RelSubset)(nil)
)

func newSubset(set *RelSet, traits algebra.TraitSet) *RelSubset {
	return &RelSubset{id: algebra.NewID(), set: set, traits: traits, bestCost: algebra.InfiniteCost}
}

func (s *RelSubset) canonical() *RelSubset {
	for s.alias != nil {
		s = s.alias
	}
	return s
}

// Set returns the set the subset belongs to.
func (s *RelSubset) Set() *RelSet { return s.canonical().set.canonical() }

// Best returns the cheapest expression of the subset, or nil.
func (s *RelSubset) Best() algebra.Node { return s.canonical().best }

// BestCost implements algebra.CostHolder.
func (s *RelSubset) BestCost() algebra.Cost { return s.canonical().bestCost }

// Rels returns the expressions of the set that satisfy the subset traits.
func (s *RelSubset) Rels() []algebra.Node {
	c := s.canonical()
	var out []algebra.Node
	for _, r := range c.Set().rels {
		if r.Traits().Satisfies(c.traits) {
			out = append(out, r)
		}
	}
	return out
}

func (s *RelSubset) ID() int                    { return s.id }
func (s *RelSubset) RowType() *reltype.DataType { return s.Set().rowType }
func (s *RelSubset) Traits() algebra.TraitSet   { return s.traits }
func (s *RelSubset) Inputs() []algebra.Node     { return nil }
func (s *RelSubset) OpName() string             { return "RelSubset" }

func (s *RelSubset) Copy(algebra.TraitSet, []algebra.Node) algebra.Node {
	return s
}

// Digest identifies the subset by id, so parents keep their digest while
// the subset gains expressions.
func (s *RelSubset) Digest() string {
	return "RelSubset#" + strconv.Itoa(s.id) + "." + s.traits.Key()
}

// Delegate returns the best expression, or the first member when nothing
// has been costed yet.
func (s *RelSubset) Delegate() algebra.Node {
	if b := s.Best(); b != nil {
		return b
	}
	if rels := s.Rels(); len(rels) > 0 {
		return rels[0]
	}
	if rels := s.Set().rels; len(rels) > 0 {
		return rels[0]
	}
	return nil
}

func (s *RelSubset) ExplainTerms(t *algebra.Terms) {
	t.Item("set", s.Set().id)
	if b := s.Best(); b != nil {
		t.Item("best", b.ID())
	}
}
