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
	"strconv"
	"strings"
)

// Convention is the calling convention of a node: how it is executed.
type Convention struct {
	Name string
	// Enforcer, when set, builds a node that converts input to the
	// required traits within this convention, e.g. a sort. It returns nil
	// when it cannot.
	Enforcer func(input Node, required TraitSet) Node
}

func (c *Convention) String() string { return c.Name }

// None is the convention of logical nodes. Nodes in it cannot be executed.
var None = &Convention{Name: "NONE"}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// NullDirection says where nulls sort.
type NullDirection int

const (
	NullsLast NullDirection = iota
	NullsFirst
)

// FieldCollation orders by one field.
type FieldCollation struct {
	Field     int
	Direction Direction
	Nulls     NullDirection
}

// Asc orders field ascending with nulls last.
func Asc(field int) FieldCollation {
	return FieldCollation{Field: field, Direction: Ascending, Nulls: NullsLast}
}

// Desc orders field descending with nulls first.
func Desc(field int) FieldCollation {
	return FieldCollation{Field: field, Direction: Descending, Nulls: NullsFirst}
}

func (fc FieldCollation) defaultNulls() bool {
	return (fc.Direction == Ascending) == (fc.Nulls == NullsLast)
}

func (fc FieldCollation) String() string {
	s := strconv.Itoa(fc.Field)
	if fc.Direction == Descending {
		s += " DESC"
	}
	if !fc.defaultNulls() {
		if fc.Direction == Ascending {
			s += " ASC"
		}
		if fc.Nulls == NullsFirst {
			s += "-nulls-first"
		} else {
			s += "-nulls-last"
		}
	}
	return s
}

// Collation is an ordering of rows, most significant field first. An
// empty collation means no order.
type Collation []FieldCollation

// Satisfies reports whether rows ordered by c are also ordered by
// required, which holds when required is a prefix of c.
func (c Collation) Satisfies(required Collation) bool {
	if len(required) > len(c) {
		return false
	}
	for i, fc := range required {
		if c[i] != fc {
			return false
		}
	}
	return true
}

// Keys returns the fields of c in order.
func (c Collation) Keys() []int {
	keys := make([]int, len(c))
	for i, fc := range c {
		keys[i] = fc.Field
	}
	return keys
}

// Permute maps every field through mapping. The second result is false if
// some field has no image (mapping value < 0); the collation is then
// truncated before that field.
func (c Collation) Permute(mapping []int) (Collation, bool) {
	out := make(Collation, 0, len(c))
	for _, fc := range c {
		if fc.Field >= len(mapping) || mapping[fc.Field] < 0 {
			return out, false
		}
		fc.Field = mapping[fc.Field]
		out = append(out, fc)
	}
	return out, true
}

// Shift adds offset to every field.
func (c Collation) Shift(offset int) Collation {
	out := make(Collation, len(c))
	for i, fc := range c {
		fc.Field += offset
		out[i] = fc
	}
	return out
}

func (c Collation) String() string {
	parts := make([]string, len(c))
	for i, fc := range c {
		parts[i] = fc.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Distribution says how rows are spread across execution units.
type Distribution int

const (
	// DistributionAny makes no claim.
	DistributionAny Distribution = iota
	// DistributionSingleton means all rows are in one place.
	DistributionSingleton
)

func (d Distribution) String() string {
	if d == DistributionSingleton {
		return "single"
	}
	return "any"
}

// Satisfies reports whether d meets required.
func (d Distribution) Satisfies(required Distribution) bool {
	return required == DistributionAny || d == required
}

// TraitSet is the set of physical properties of a node.
type TraitSet struct {
	Convention   *Convention
	Collation    Collation
	Distribution Distribution
}

// LogicalTraits is the trait set of a logical node.
var LogicalTraits = TraitSet{Convention: None}

// Traits returns a trait set of convention c with no other claims.
func Traits(c *Convention) TraitSet {
	return TraitSet{Convention: c}
}

// WithConvention returns ts with the convention replaced.
func (ts TraitSet) WithConvention(c *Convention) TraitSet {
	ts.Convention = c
	return ts
}

// WithCollation returns ts with the collation replaced.
func (ts TraitSet) WithCollation(c Collation) TraitSet {
	ts.Collation = c
	return ts
}

// WithDistribution returns ts with the distribution replaced.
func (ts TraitSet) WithDistribution(d Distribution) TraitSet {
	ts.Distribution = d
	return ts
}

// Satisfies reports whether a node with traits ts can be used where
// required is needed.
func (ts TraitSet) Satisfies(required TraitSet) bool {
	return ts.Convention == required.Convention &&
		ts.Collation.Satisfies(required.Collation) &&
		ts.Distribution.Satisfies(required.Distribution)
}

// Equal reports whether ts and o are the same traits.
func (ts TraitSet) Equal(o TraitSet) bool {
	return ts.Key() == o.Key()
}

// Key is a string that identifies the trait set.
func (ts TraitSet) Key() string {
	name := "NONE"
	if ts.Convention != nil {
		name = ts.Convention.Name
	}
	s := name
	if len(ts.Collation) > 0 {
		s += "." + ts.Collation.String()
	}
	if ts.Distribution != DistributionAny {
		s += "." + ts.Distribution.String()
	}
	return s
}

func (ts TraitSet) String() string { return ts.Key() }
