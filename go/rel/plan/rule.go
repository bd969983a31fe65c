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
	"fmt"
	"log/slog"
	"time"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/relbuilder"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/stats"
)

var (
	rulesFired    = stats.NewCountersWithSingleLabel("RulesFired", "Number of rule matches fired", "rule")
	rulesDeclined = stats.NewCountersWithSingleLabel("RulesDeclined", "Number of rule matches that built an invalid expression", "rule")
	ruleTimings   = stats.NewTimings("RuleTimings", "Time spent in rule OnMatch", "rule")
)

// Rule is a transformation: when its operand tree matches part of a plan,
// OnMatch may register equivalent expressions with call.TransformTo.
// OnMatch must not modify the matched nodes.
type Rule interface {
	Name() string
	Operand() *Operand
	OnMatch(call *RuleCall)
}

// Matcher is implemented by rules that can reject a binding before
// OnMatch runs.
type Matcher interface {
	Matches(call *RuleCall) bool
}

// RuleBase carries the name and operand tree of a rule. Rules embed it.
type RuleBase struct {
	name     string
	operand  *Operand
	operands []*Operand
}

// NewRuleBase returns a RuleBase for the operand tree rooted at op.
func NewRuleBase(name string, op *Operand) RuleBase {
	return RuleBase{name: name, operand: op, operands: Flatten(op)}
}

// Name returns the rule name; planners treat rules with equal names as
// the same rule.
func (r *RuleBase) Name() string { return r.name }

// Operand returns the root operand.
func (r *RuleBase) Operand() *Operand { return r.operand }

// Operands returns the operands in pre-order.
func (r *RuleBase) Operands() []*Operand { return r.operands }

func (r *RuleBase) String() string { return r.name }

// Operands returns the flattened operand tree of rule r.
func Operands(r Rule) []*Operand {
	if o, ok := r.(interface{ Operands() []*Operand }); ok {
		return o.Operands()
	}
	return Flatten(r.Operand())
}

// RuleCall is one binding of a rule's operands to nodes.
type RuleCall struct {
	rule        Rule
	rels        []algebra.Node
	planner     Planner
	onTransform func(algebra.Node)
	results     []algebra.Node
}

// NewRuleCall returns a call binding rels, in operand pre-order, to rule.
// onTransform receives each expression passed to TransformTo.
func NewRuleCall(p Planner, rule Rule, rels []algebra.Node, onTransform func(algebra.Node)) *RuleCall {
	return &RuleCall{rule: rule, rels: rels, planner: p, onTransform: onTransform}
}

// Rule returns the rule being fired.
func (c *RuleCall) Rule() Rule { return c.rule }

// Rel returns the node bound to the operand with ordinal i.
func (c *RuleCall) Rel(i int) algebra.Node { return c.rels[i] }

// Rels returns all bound nodes in operand pre-order.
func (c *RuleCall) Rels() []algebra.Node { return c.rels }

// Planner returns the planner firing the rule.
func (c *RuleCall) Planner() Planner { return c.planner }

// Metadata returns the planner's metadata query.
func (c *RuleCall) Metadata() *algebra.MetadataQuery { return c.planner.Metadata() }

// Builder returns a fresh relational expression builder.
func (c *RuleCall) Builder() *relbuilder.Builder { return relbuilder.New() }

// Results returns the expressions registered so far.
func (c *RuleCall) Results() []algebra.Node { return c.results }

// TransformTo registers n as equivalent to the root of the binding. The
// row types must be equal apart from field names.
func (c *RuleCall) TransformTo(n algebra.Node) {
	if !reltype.EqualSansNames(n.RowType(), c.rels[0].RowType()) {
		panic(relerrors.Errorf(relerrors.Internal, "rule %s produced row type %s, expected %s",
			c.rule.Name(), n.RowType(), c.rels[0].RowType()))
	}
	c.results = append(c.results, n)
	if c.onTransform != nil {
		c.onTransform(n)
	}
}

// Convert asks the planner for an expression equivalent to n with traits.
func (c *RuleCall) Convert(n algebra.Node, traits algebra.TraitSet) algebra.Node {
	return c.planner.ChangeTraits(n, traits)
}

// Fire runs the rule of call. It returns false when the rule rejected the
// binding or declined because it built an invalid expression. Other
// panics propagate.
func Fire(call *RuleCall) (fired bool) {
	name := call.rule.Name()
	if m, ok := call.rule.(Matcher); ok && !m.Matches(call) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			if !algebra.IsInvalidRel(r) {
				panic(r)
			}
			rulesDeclined.Add(name, 1)
			log.WarnS("rule declined", "rule", name, "err", r)
			fired = false
		}
	}()
	if log.Enabled(slog.LevelDebug) {
		log.DebugS("firing rule", "rule", name, "rels", relIDs(call.rels))
	}
	start := time.Now()
	call.rule.OnMatch(call)
	ruleTimings.Record(name, start)
	rulesFired.Add(name, 1)
	return true
}

func relIDs(rels []algebra.Node) string {
	s := "["
	for i, r := range rels {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s#%d", r.OpName(), r.ID())
	}
	return s + "]"
}

// Planner drives rules over a plan.
type Planner interface {
	// SetRoot sets the expression to optimize.
	SetRoot(n algebra.Node)
	// AddRule registers r. It returns false if a rule of the same name is
	// already registered.
	AddRule(r Rule) bool
	// FindBestExp runs the rules and returns the chosen expression.
	FindBestExp() (algebra.Node, error)
	// SetImportance sets the importance of n. Importance 0 takes n out of
	// rule matching.
	SetImportance(n algebra.Node, importance float64)
	// ChangeTraits returns an expression equivalent to n with the given
	// traits, or n if it already has them.
	ChangeTraits(n algebra.Node, traits algebra.TraitSet) algebra.Node
	// Metadata returns the metadata query used by rules.
	Metadata() *algebra.MetadataQuery
	// Executor returns the executor used to reduce constant expressions,
	// or nil.
	Executor() rex.Executor
	SetExecutor(e rex.Executor)
}
