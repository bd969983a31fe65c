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

// Package hep implements a heuristic planner that applies rules to a plan
// graph in the order a Program dictates, without cost comparison except
// among the alternatives produced by a single rule call.
package hep

import (
	"fmt"
	"strconv"
	"strings"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/reltype"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/stats"
)

var transformationsCount = stats.NewCounter("HepTransformations", "Number of graph transformations applied by the heuristic planner")

// vertex wraps the current node of one position in the plan graph. Nodes
// in the graph have vertices as inputs, so replacing the node of a vertex
// does not change the digests of its parents.
type vertex struct {
	id   int
	node algebra.Node
}

func (v *vertex) ID() int                    { return v.id }
func (v *vertex) RowType() *reltype.DataType { return v.node.RowType() }
func (v *vertex) Traits() algebra.TraitSet   { return v.node.Traits() }
func (v *vertex) Inputs() []algebra.Node     { return nil }
func (v *vertex) OpName() string             { return "HepVertex" }
func (v *vertex) Delegate() algebra.Node     { return v.node }
func (v *vertex) Digest() string             { return "HepVertex#" + strconv.Itoa(v.id) }

func (v *vertex) ExplainTerms(t *algebra.Terms) {
	t.Item("current", algebra.Digest(v.node))
}

func (v *vertex) Copy(algebra.TraitSet, []algebra.Node) algebra.Node {
	return v
}

// Option configures a Planner.
type Option func(*Planner)

// WithMatchLimit bounds the number of transformations over the whole run.
func WithMatchLimit(limit int) Option {
	return func(p *Planner) {
		if limit > 0 {
			p.globalLimit = limit
		}
	}
}

// WithExecutor sets the executor used to reduce constant expressions.
func WithExecutor(e rex.Executor) Option {
	return func(p *Planner) { p.executor = e }
}

// Planner is a heuristic planner. It is not safe for concurrent use.
type Planner struct {
	program     *Program
	root        *vertex
	byDigest    map[string]*vertex
	rules       map[string]plan.Rule
	mq          *algebra.MetadataQuery
	executor    rex.Executor
	globalLimit int

	transformations int
}

var _ plan.Planner = (*Planner)(nil)

// New returns a planner that runs program.
func New(program *Program, opts ...Option) *Planner {
	p := &Planner{
		program:     program,
		byDigest:    map[string]*vertex{},
		rules:       map[string]plan.Rule{},
		mq:          algebra.NewMetadataQuery(),
		globalLimit: Unlimited,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetRoot implements plan.Planner.
func (p *Planner) SetRoot(n algebra.Node) {
	p.root = p.addNode(n)
}

// AddRule records r. The program decides when rules run.
func (p *Planner) AddRule(r plan.Rule) bool {
	if _, ok := p.rules[r.Name()]; ok {
		return false
	}
	p.rules[r.Name()] = r
	return true
}

// SetImportance is a no-op: the heuristic planner keeps only one node per
// vertex.
func (p *Planner) SetImportance(algebra.Node, float64) {}

// ChangeTraits returns n. The heuristic planner does not convert.
func (p *Planner) ChangeTraits(n algebra.Node, _ algebra.TraitSet) algebra.Node { return n }

// Metadata implements plan.Planner.
func (p *Planner) Metadata() *algebra.MetadataQuery { return p.mq }

// Executor implements plan.Planner.
func (p *Planner) Executor() rex.Executor { return p.executor }

// SetExecutor implements plan.Planner.
func (p *Planner) SetExecutor(e rex.Executor) { p.executor = e }

// Transformations returns the number of transformations applied so far.
func (p *Planner) Transformations() int { return p.transformations }

// FindBestExp runs the program and returns the rewritten plan.
func (p *Planner) FindBestExp() (algebra.Node, error) {
	if p.root == nil {
		return nil, relerrors.Errorf(relerrors.FailedPrecondition, "planner has no root")
	}
	p.executeProgram(p.program)
	return p.buildFinal(p.root, map[*vertex]algebra.Node{}), nil
}

func (p *Planner) exhausted() bool {
	return p.transformations >= p.globalLimit
}

func (p *Planner) executeProgram(prog *Program) {
	state := &programState{order: Arbitrary, limit: Unlimited}
	for _, inst := range prog.instructions {
		if p.exhausted() {
			log.DebugS("heuristic planner match limit reached", "limit", p.globalLimit)
			return
		}
		inst.execute(p, state)
	}
}

// applyRules fires rules over the graph until no rule matches or the match
// limit is reached.
func (p *Planner) applyRules(rules []plan.Rule, s *programState) {
	fullRestart := s.order == BottomUp || s.order == TopDown
	matches := 0
	for {
		fixedPoint := true
		order := p.walk(p.root, s.order)
	scan:
		for i := 0; i < len(order); i++ {
			v := order[i]
			for _, r := range rules {
				nv := p.applyRule(r, v)
				if nv == nil || nv == v {
					continue
				}
				matches++
				if matches >= s.limit || p.exhausted() {
					return
				}
				if fullRestart {
					order = p.walk(p.root, s.order)
					i = -1
					continue scan
				}
				if s.order == DepthFirst {
					matches = p.depthFirstApply(nv, rules, s, matches)
					if matches >= s.limit || p.exhausted() {
						return
					}
				}
				order = p.walk(nv, s.order)
				i = -1
				fixedPoint = false
				continue scan
			}
		}
		if fixedPoint {
			return
		}
	}
}

func (p *Planner) depthFirstApply(start *vertex, rules []plan.Rule, s *programState, matches int) int {
	for _, v := range p.walk(start, s.order) {
		for _, r := range rules {
			nv := p.applyRule(r, v)
			if nv == nil || nv == v {
				continue
			}
			matches++
			if matches >= s.limit || p.exhausted() {
				return matches
			}
			return p.depthFirstApply(nv, rules, s, matches)
		}
	}
	return matches
}

// walk lists the vertices reachable from start in match order and drops
// vertices no longer reachable from the root.
func (p *Planner) walk(start *vertex, order MatchOrder) []*vertex {
	p.collectGarbage()
	if !p.live(start) {
		start = p.root
	}
	seen := map[*vertex]bool{}
	switch order {
	case TopDown, BottomUp:
		// Reverse post-order lists parents before children.
		var post []*vertex
		var visit func(v *vertex)
		visit = func(v *vertex) {
			seen[v] = true
			for _, in := range v.node.Inputs() {
				if c := in.(*vertex); !seen[c] {
					visit(c)
				}
			}
			post = append(post, v)
		}
		visit(start)
		if order == BottomUp {
			return post
		}
		for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
			post[i], post[j] = post[j], post[i]
		}
		return post
	default:
		var pre []*vertex
		var visit func(v *vertex)
		visit = func(v *vertex) {
			seen[v] = true
			pre = append(pre, v)
			for _, in := range v.node.Inputs() {
				if c := in.(*vertex); !seen[c] {
					visit(c)
				}
			}
		}
		visit(start)
		return pre
	}
}

func (p *Planner) live(v *vertex) bool {
	return p.byDigest[algebra.Digest(v.node)] == v
}

func (p *Planner) candidates(in algebra.Node) []algebra.Node {
	if v, ok := in.(*vertex); ok {
		return []algebra.Node{v.node}
	}
	return []algebra.Node{in}
}

// applyRule fires r on v if it matches and returns the vertex that now
// holds the result, or nil.
func (p *Planner) applyRule(r plan.Rule, v *vertex) *vertex {
	if !p.live(v) {
		return nil
	}
	bindings := plan.Bindings(r.Operand(), v.node, p.candidates)
	if len(bindings) == 0 {
		return nil
	}
	call := plan.NewRuleCall(p, r, bindings[0], nil)
	if !plan.Fire(call) || len(call.Results()) == 0 {
		return nil
	}
	return p.applyResults(v, call)
}

func (p *Planner) applyResults(v *vertex, call *plan.RuleCall) *vertex {
	results := call.Results()
	best := results[0]
	if len(results) > 1 {
		bestCost := p.mq.CumulativeCost(best)
		for _, n := range results[1:] {
			if c := p.mq.CumulativeCost(n); c.Less(bestCost) {
				best, bestCost = n, c
			}
		}
	}
	parents := p.parents(v)
	nv := p.addNode(best)
	if nv == v {
		return nil
	}
	p.transformations++
	transformationsCount.Add(1)
	p.mq.Invalidate()
	for _, parent := range parents {
		if parent == nv {
			// The rule produced a parent of v; leave the graph as it is.
			return nv
		}
	}
	p.contract(nv, v, parents)
	return nv
}

// addNode adds n and its inputs to the graph, reusing vertices with equal
// digests.
func (p *Planner) addNode(n algebra.Node) *vertex {
	if v, ok := n.(*vertex); ok {
		return v
	}
	inputs := n.Inputs()
	changed := false
	vs := make([]algebra.Node, len(inputs))
	for i, in := range inputs {
		vs[i] = p.addNode(in)
		if vs[i] != in {
			changed = true
		}
	}
	if changed {
		n = n.Copy(n.Traits(), vs)
	}
	digest := algebra.Digest(n)
	if v, ok := p.byDigest[digest]; ok {
		return v
	}
	v := &vertex{id: algebra.NewID(), node: n}
	p.byDigest[digest] = v
	return v
}

// parents returns the vertices reachable from the root that have v as an
// input. It does not collect garbage, so it is safe mid-contraction.
func (p *Planner) parents(v *vertex) []*vertex {
	var out []*vertex
	seen := map[*vertex]bool{}
	var visit func(u *vertex)
	visit = func(u *vertex) {
		seen[u] = true
		isParent := false
		for _, in := range u.node.Inputs() {
			c := in.(*vertex)
			if c == v {
				isParent = true
			}
			if !seen[c] {
				visit(c)
			}
		}
		if isParent {
			out = append(out, u)
		}
	}
	visit(p.root)
	return out
}

// contract redirects the parents of discarded to preserved.
func (p *Planner) contract(preserved, discarded *vertex, parents []*vertex) {
	for _, parent := range parents {
		inputs := replaceInputs(parent.node.Inputs(), discarded, preserved)
		p.setNode(parent, parent.node.Copy(parent.node.Traits(), inputs))
	}
	if discarded == p.root {
		p.root = preserved
	}
}

func replaceInputs(inputs []algebra.Node, old, repl algebra.Node) []algebra.Node {
	out := make([]algebra.Node, len(inputs))
	for i, in := range inputs {
		if in == old {
			in = repl
		}
		out[i] = in
	}
	return out
}

// setNode replaces the node of v. If another vertex already holds an equal
// node, v is merged into it and its parents are redirected.
func (p *Planner) setNode(v *vertex, n algebra.Node) {
	if old := algebra.Digest(v.node); p.byDigest[old] == v {
		delete(p.byDigest, old)
	}
	digest := algebra.Digest(n)
	if other, ok := p.byDigest[digest]; ok && other != v {
		parents := p.parents(v)
		v.node = n
		p.contract(other, v, parents)
		return
	}
	v.node = n
	p.byDigest[digest] = v
}

// collectGarbage forgets vertices that are no longer reachable from the
// root.
func (p *Planner) collectGarbage() {
	if p.root == nil {
		return
	}
	reachable := map[*vertex]bool{}
	var visit func(v *vertex)
	visit = func(v *vertex) {
		if reachable[v] {
			return
		}
		reachable[v] = true
		for _, in := range v.node.Inputs() {
			visit(in.(*vertex))
		}
	}
	visit(p.root)
	for d, v := range p.byDigest {
		if !reachable[v] {
			delete(p.byDigest, d)
		}
	}
}

func (p *Planner) buildFinal(v *vertex, built map[*vertex]algebra.Node) algebra.Node {
	if n, ok := built[v]; ok {
		return n
	}
	n := v.node
	if inputs := n.Inputs(); len(inputs) > 0 {
		final := make([]algebra.Node, len(inputs))
		for i, in := range inputs {
			final[i] = p.buildFinal(in.(*vertex), built)
		}
		n = n.Copy(n.Traits(), final)
	}
	built[v] = n
	return n
}

// Dump returns the live graph, one vertex per line.
func (p *Planner) Dump() string {
	var sb strings.Builder
	for _, v := range p.walk(p.root, Arbitrary) {
		fmt.Fprintf(&sb, "%s: %s\n", v.Digest(), algebra.Digest(v.node))
	}
	return sb.String()
}
