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

// Package plan is the rule engine core shared by the heuristic and the
// cost-based planners: rules, operand trees, rule calls and binding
// enumeration.
package plan

import (
	"fmt"
	"strings"

	"relopt.io/relopt/go/rel/algebra"
)

// ChildPolicy says how an operand matches the inputs of its node.
type ChildPolicy int

const (
	// AnyChildren matches a node with any inputs.
	AnyChildren ChildPolicy = iota
	// Leaf matches a node without inputs.
	Leaf
	// Some matches child operands against the leading inputs, in order.
	Some
	// Unordered matches the single child operand against any input.
	Unordered
)

// Operand is one node of a rule's pattern tree.
type Operand struct {
	typeName   string
	isType     func(algebra.Node) bool
	convention *algebra.Convention
	predicates []func(algebra.Node) bool
	policy     ChildPolicy
	children   []*Operand

	// set by Flatten
	ordinal int
	parent  *Operand
}

// Op returns an operand matching nodes of type T. T may be a concrete node
// type or an interface such as algebra.SetOperation.
func Op[T algebra.Node]() *Operand {
	var zero T
	name := fmt.Sprintf("%T", zero)
	if name == "<nil>" {
		name = fmt.Sprintf("%T", (*T)(nil))
	}
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return &Operand{
		typeName: name,
		isType: func(n algebra.Node) bool {
			_, ok := n.(T)
			return ok
		},
	}
}

// Convention restricts the operand to nodes of convention c.
func (o *Operand) Convention(c *algebra.Convention) *Operand {
	o.convention = c
	return o
}

// Predicate adds a condition the node must satisfy.
func (o *Operand) Predicate(f func(algebra.Node) bool) *Operand {
	o.predicates = append(o.predicates, f)
	return o
}

// Inputs matches children against the leading inputs of the node.
func (o *Operand) Inputs(children ...*Operand) *Operand {
	o.policy = Some
	o.children = children
	return o
}

// AnyInputs matches whatever inputs the node has.
func (o *Operand) AnyInputs() *Operand {
	o.policy = AnyChildren
	o.children = nil
	return o
}

// NoInputs matches nodes without inputs.
func (o *Operand) NoInputs() *Operand {
	o.policy = Leaf
	o.children = nil
	return o
}

// Unordered matches child against any one input of the node.
func (o *Operand) Unordered(child *Operand) *Operand {
	o.policy = Unordered
	o.children = []*Operand{child}
	return o
}

// Children returns the child operands.
func (o *Operand) Children() []*Operand { return o.children }

// Policy returns the child policy.
func (o *Operand) Policy() ChildPolicy { return o.policy }

// Ordinal returns the position of the operand in its flattened rule tree.
func (o *Operand) Ordinal() int { return o.ordinal }

// Parent returns the parent operand, nil for the root.
func (o *Operand) Parent() *Operand { return o.parent }

// Matches reports whether n satisfies the operand itself, not its
// children.
func (o *Operand) Matches(n algebra.Node) bool {
	n = algebra.Strip(n)
	if !o.isType(n) {
		return false
	}
	if o.convention != nil && n.Traits().Convention != o.convention {
		return false
	}
	if o.policy == Leaf && len(n.Inputs()) > 0 {
		return false
	}
	if o.policy == Some && len(n.Inputs()) < len(o.children) {
		return false
	}
	for _, p := range o.predicates {
		if !p(n) {
			return false
		}
	}
	return true
}

func (o *Operand) String() string {
	var sb strings.Builder
	sb.WriteString(o.typeName)
	if o.convention != nil {
		sb.WriteString("." + o.convention.Name)
	}
	switch o.policy {
	case Leaf:
		sb.WriteString("()")
	case Some, Unordered:
		sb.WriteByte('(')
		for i, c := range o.children {
			if i > 0 {
				sb.WriteString(", ")
			}
			if o.policy == Unordered {
				sb.WriteString("any ")
			}
			sb.WriteString(c.String())
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// Flatten numbers the operands of the tree rooted at o in pre-order and
// returns them in that order.
func Flatten(root *Operand) []*Operand {
	var out []*Operand
	var walk func(o, parent *Operand)
	walk = func(o, parent *Operand) {
		o.ordinal = len(out)
		o.parent = parent
		out = append(out, o)
		for _, c := range o.children {
			walk(c, o)
		}
	}
	walk(root, nil)
	return out
}
