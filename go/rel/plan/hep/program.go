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

package hep

import (
	"math"

	"relopt.io/relopt/go/rel/plan"
)

// MatchOrder is the order in which the graph is walked when looking for
// rule matches.
type MatchOrder int

const (
	// Arbitrary walks depth first from the root and resumes from the new
	// vertex after a transformation.
	Arbitrary MatchOrder = iota
	// BottomUp visits children before parents, restarting after every
	// transformation.
	BottomUp
	// TopDown visits parents before children, restarting after every
	// transformation.
	TopDown
	// DepthFirst is like Arbitrary but keeps applying rules below the new
	// vertex before resuming.
	DepthFirst
)

func (o MatchOrder) String() string {
	switch o {
	case BottomUp:
		return "BOTTOM_UP"
	case TopDown:
		return "TOP_DOWN"
	case DepthFirst:
		return "DEPTH_FIRST"
	}
	return "ARBITRARY"
}

// Unlimited is the match limit that runs rules to a fixed point.
const Unlimited = math.MaxInt

type instruction interface {
	execute(p *Planner, state *programState)
}

// Program is a sequence of instructions for the heuristic planner.
type Program struct {
	instructions []instruction
}

type programState struct {
	order MatchOrder
	limit int
}

// ruleInstance applies one rule.
type ruleInstance struct {
	rule plan.Rule
}

func (i ruleInstance) execute(p *Planner, s *programState) {
	p.applyRules([]plan.Rule{i.rule}, s)
}

// ruleCollection applies a set of rules together.
type ruleCollection struct {
	rules []plan.Rule
}

func (i ruleCollection) execute(p *Planner, s *programState) {
	p.applyRules(i.rules, s)
}

type matchOrder struct {
	order MatchOrder
}

func (i matchOrder) execute(_ *Planner, s *programState) {
	s.order = i.order
}

type matchLimit struct {
	limit int
}

func (i matchLimit) execute(_ *Planner, s *programState) {
	s.limit = i.limit
}

// subprogram runs a program repeatedly until it makes no change.
type subprogram struct {
	program *Program
}

func (i subprogram) execute(p *Planner, _ *programState) {
	for !p.exhausted() {
		before := p.transformations
		p.executeProgram(i.program)
		if p.transformations == before {
			return
		}
	}
}

// ProgramBuilder assembles a Program.
type ProgramBuilder struct {
	instructions []instruction
}

// NewProgramBuilder returns an empty builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{}
}

// AddRuleInstance applies r until it no longer matches.
func (b *ProgramBuilder) AddRuleInstance(r plan.Rule) *ProgramBuilder {
	b.instructions = append(b.instructions, ruleInstance{rule: r})
	return b
}

// AddRuleCollection applies rules together until none of them matches.
func (b *ProgramBuilder) AddRuleCollection(rules ...plan.Rule) *ProgramBuilder {
	b.instructions = append(b.instructions, ruleCollection{rules: rules})
	return b
}

// AddMatchOrder sets the match order for the instructions that follow.
func (b *ProgramBuilder) AddMatchOrder(o MatchOrder) *ProgramBuilder {
	b.instructions = append(b.instructions, matchOrder{order: o})
	return b
}

// AddMatchLimit bounds the matches of each following instruction.
func (b *ProgramBuilder) AddMatchLimit(limit int) *ProgramBuilder {
	b.instructions = append(b.instructions, matchLimit{limit: limit})
	return b
}

// AddSubprogram runs sub repeatedly until it reaches a fixed point.
func (b *ProgramBuilder) AddSubprogram(sub *Program) *ProgramBuilder {
	b.instructions = append(b.instructions, subprogram{program: sub})
	return b
}

// Build returns the program.
func (b *ProgramBuilder) Build() *Program {
	return &Program{instructions: append([]instruction(nil), b.instructions...)}
}

// ProgramOf returns a program applying rules together in the given order.
func ProgramOf(order MatchOrder, rules ...plan.Rule) *Program {
	return NewProgramBuilder().AddMatchOrder(order).AddRuleCollection(rules...).Build()
}
