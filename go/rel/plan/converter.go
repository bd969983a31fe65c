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

// ConverterRule converts nodes of type T from one convention to another.
type ConverterRule struct {
	RuleBase
	In, Out *algebra.Convention
	convert func(call *RuleCall, n algebra.Node) algebra.Node
}

// NewConverterRule returns a rule that calls convert on every node of
// type T in convention in. convert returns nil when it cannot convert.
func NewConverterRule[T algebra.Node](name string, in, out *algebra.Convention, convert func(call *RuleCall, n T) algebra.Node) *ConverterRule {
	return &ConverterRule{
		RuleBase: NewRuleBase(name, Op[T]().Convention(in).AnyInputs()),
		In:       in,
		Out:      out,
		convert: func(call *RuleCall, n algebra.Node) algebra.Node {
			return convert(call, n.(T))
		},
	}
}

// OnMatch implements Rule.
func (r *ConverterRule) OnMatch(call *RuleCall) {
	if n := r.convert(call, call.Rel(0)); n != nil {
		call.TransformTo(n)
	}
}

// ConvertInputs returns the inputs of n converted to traits.
func ConvertInputs(call *RuleCall, n algebra.Node, traits algebra.TraitSet) []algebra.Node {
	inputs := make([]algebra.Node, len(n.Inputs()))
	for i, in := range n.Inputs() {
		inputs[i] = call.Convert(in, traits)
	}
	return inputs
}
