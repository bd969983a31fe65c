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

// Package volcano implements a cost-based planner. Equivalent expressions
// are kept in sets of a memo; rules add alternatives until no rule match
// is left or the iteration limit is reached, then the cheapest expression
// of the root subset is extracted.
package volcano

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gammazero/deque"

	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rex"
	"relopt.io/relopt/go/stats"
)

var (
	iterationsCount = stats.NewCounter("VolcanoIterations", "Number of rule matches fired by the cost-based planner")
	setMerges       = stats.NewCounter("VolcanoSetMerges", "Number of equivalence set merges")
)

// DefaultMaxIterations bounds rule firings when no limit is configured.
const DefaultMaxIterations = 100000

type match struct {
	rule plan.Rule
	rels []algebra.Node
	key  string
}

// Option configures a Planner.
type Option func(*Planner)

// WithMaxIterations bounds the number of rule matches fired.
func WithMaxIterations(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// WithExecutor sets the executor used to reduce constant expressions.
func WithExecutor(e rex.Executor) Option {
	return func(p *Planner) { p.executor = e }
}

// Planner is a cost-based planner. It is not safe for concurrent use.
type Planner struct {
	root     *RelSubset
	rules    []plan.Rule
	operands map[string][]*plan.Operand
	sets     []*RelSet
	byDigest map[string]algebra.Node
	setOf    map[int]*RelSet
	dead     map[int]bool
	queue    deque.Deque[*match]
	seen     map[string]bool

	mq            *algebra.MetadataQuery
	executor      rex.Executor
	maxIterations int
	iterations    int
}

var _ plan.Planner = (*Planner)(nil)

// New returns an empty planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		operands:      map[string][]*plan.Operand{},
		byDigest:      map[string]algebra.Node{},
		setOf:         map[int]*RelSet{},
		dead:          map[int]bool{},
		seen:          map[string]bool{},
		mq:            algebra.NewMetadataQuery(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddRule registers r and queues its matches against expressions already
// registered.
func (p *Planner) AddRule(r plan.Rule) bool {
	if _, ok := p.operands[r.Name()]; ok {
		return false
	}
	p.rules = append(p.rules, r)
	p.operands[r.Name()] = plan.Operands(r)
	for _, set := range p.sets {
		if set.mergedInto != nil {
			continue
		}
		for _, rel := range set.rels {
			p.queueMatches(rel, []plan.Rule{r})
		}
	}
	return true
}

// Rules returns the registered rules.
func (p *Planner) Rules() []plan.Rule { return p.rules }

// SetRoot registers n and makes its subset the one to optimize.
func (p *Planner) SetRoot(n algebra.Node) {
	p.root = p.register(n, nil)
}

// Root returns the root subset.
func (p *Planner) Root() *RelSubset {
	if p.root == nil {
		return nil
	}
	return p.root.canonical()
}

// Metadata implements plan.Planner.
func (p *Planner) Metadata() *algebra.MetadataQuery { return p.mq }

// Executor implements plan.Planner.
func (p *Planner) Executor() rex.Executor { return p.executor }

// SetExecutor implements plan.Planner.
func (p *Planner) SetExecutor(e rex.Executor) { p.executor = e }

// Iterations returns the number of rule matches fired.
func (p *Planner) Iterations() int { return p.iterations }

// SetImportance marks n dead when importance is 0: it is no longer
// matched by rules and only chosen when its subset has no live
// alternative.
func (p *Planner) SetImportance(n algebra.Node, importance float64) {
	if _, ok := n.(*RelSubset); ok {
		return
	}
	if importance == 0 {
		p.dead[n.ID()] = true
	} else {
		delete(p.dead, n.ID())
	}
	set, ok := p.setOf[n.ID()]
	if !ok {
		return
	}
	set = set.canonical()
	for _, sub := range set.subsets {
		if sub.best == n {
			sub.best, sub.bestCost = nil, algebra.InfiniteCost
		}
	}
	p.propagate(append([]algebra.Node(nil), set.rels...))
}

// IsDead reports whether n was marked dead.
func (p *Planner) IsDead(n algebra.Node) bool { return p.dead[n.ID()] }

// ChangeTraits registers n and returns the subset of its set with traits.
// A new subset gets an enforcer from its convention when it has one.
func (p *Planner) ChangeTraits(n algebra.Node, traits algebra.TraitSet) algebra.Node {
	sub := p.register(n, nil)
	if sub.traits.Equal(traits) {
		return sub
	}
	return p.subset(sub.Set(), traits)
}

// FindBestExp fires queued rule matches until none is left or the
// iteration limit is reached and returns the cheapest plan of the root.
func (p *Planner) FindBestExp() (algebra.Node, error) {
	if p.root == nil {
		return nil, relerrors.Errorf(relerrors.FailedPrecondition, "planner has no root")
	}
	for p.queue.Len() > 0 {
		if p.iterations >= p.maxIterations {
			log.WarnS("cost-based planner reached its iteration limit", "limit", p.maxIterations, "pending", p.queue.Len())
			break
		}
		m := p.queue.PopFront()
		if p.isDeadBinding(m.rels) {
			continue
		}
		p.iterations++
		iterationsCount.Add(1)
		first := m.rels[0]
		set := p.setOf[first.ID()].canonical()
		call := plan.NewRuleCall(p, m.rule, m.rels, func(n algebra.Node) {
			p.register(n, set.canonical())
		})
		plan.Fire(call)
	}
	root := p.Root()
	if root.Best() == nil {
		return nil, relerrors.NewErrorf(relerrors.FailedPrecondition, relerrors.CannotPlan,
			"could not find a finite-cost plan for %s\n%s", root.traits.Key(), p.Dump())
	}
	return p.buildCheapest(root, map[*RelSubset]algebra.Node{}), nil
}

func (p *Planner) buildCheapest(s *RelSubset, built map[*RelSubset]algebra.Node) algebra.Node {
	s = s.canonical()
	if n, ok := built[s]; ok {
		return n
	}
	best := s.best
	inputs := best.Inputs()
	if len(inputs) > 0 {
		final := make([]algebra.Node, len(inputs))
		for i, in := range inputs {
			if sub, ok := in.(*RelSubset); ok {
				final[i] = p.buildCheapest(sub, built)
			} else {
				final[i] = in
			}
		}
		best = best.Copy(best.Traits(), final)
	}
	built[s] = best
	return best
}

// register adds n and its inputs to the memo and returns the subset of n.
// A non-nil equiv is the set n is equivalent to.
func (p *Planner) register(n algebra.Node, equiv *RelSet) *RelSubset {
	if sub, ok := n.(*RelSubset); ok {
		sub = sub.canonical()
		if equiv != nil && sub.Set() != equiv.canonical() {
			p.merge(equiv.canonical(), sub.Set())
		}
		return sub.canonical()
	}
	if existing, ok := p.byDigest[algebra.Digest(n)]; ok {
		set := p.setOf[existing.ID()].canonical()
		if equiv != nil && set != equiv.canonical() {
			set = p.merge(equiv.canonical(), set)
		}
		return p.subset(set, existing.Traits())
	}

	inputs := n.Inputs()
	subs := make([]algebra.Node, len(inputs))
	changed := false
	for i, in := range inputs {
		subs[i] = p.register(in, nil)
		if subs[i] != in {
			changed = true
		}
	}
	if changed {
		n = n.Copy(n.Traits(), subs)
		if existing, ok := p.byDigest[algebra.Digest(n)]; ok {
			set := p.setOf[existing.ID()].canonical()
			if equiv != nil && set != equiv.canonical() {
				set = p.merge(equiv.canonical(), set)
			}
			return p.subset(set, existing.Traits())
		}
	}

	var set *RelSet
	if equiv != nil {
		set = equiv.canonical()
	} else {
		set = &RelSet{id: len(p.sets), rowType: n.RowType()}
		p.sets = append(p.sets, set)
	}
	set.rels = append(set.rels, n)
	p.setOf[n.ID()] = set
	p.byDigest[algebra.Digest(n)] = n
	for _, in := range n.Inputs() {
		inSet := in.(*RelSubset).Set()
		inSet.parents = append(inSet.parents, n)
	}
	if log.Enabled(slog.LevelDebug) {
		log.DebugS("registered expression", "set", set.id, "rel", algebra.Digest(n))
	}
	sub := p.subset(set, n.Traits())
	p.propagate([]algebra.Node{n})
	p.queueMatches(n, p.rules)
	return sub
}

// subset returns the subset of set with traits, creating it and its
// enforcer if needed.
func (p *Planner) subset(set *RelSet, traits algebra.TraitSet) *RelSubset {
	set = set.canonical()
	if sub := set.subset(traits); sub != nil {
		return sub
	}
	sub := newSubset(set, traits)
	set.subsets = append(set.subsets, sub)
	// Members registered earlier may already satisfy the new subset.
	var members []algebra.Node
	for _, r := range set.rels {
		if r.Traits().Satisfies(traits) {
			members = append(members, r)
		}
	}
	p.propagate(members)
	conv := traits.Convention
	if conv != nil && conv.Enforcer != nil && len(traits.Collation) > 0 {
		base := p.subset(set, traits.WithCollation(nil))
		if e := conv.Enforcer(base, traits); e != nil {
			p.register(e, set)
		}
	}
	return set.canonical().subset(traits).canonical()
}

// merge moves every expression of from into into and returns into.
func (p *Planner) merge(into, from *RelSet) *RelSet {
	if into == from {
		return into
	}
	if from.id < into.id {
		into, from = from, into
	}
	setMerges.Add(1)
	log.DebugS("merging sets", "into", into.id, "from", from.id)
	from.mergedInto = into
	for _, r := range from.rels {
		p.setOf[r.ID()] = into
	}
	into.rels = append(into.rels, from.rels...)
	into.parents = append(into.parents, from.parents...)
	for _, sub := range from.subsets {
		if existing := into.subset(sub.traits); existing != nil {
			sub.alias = existing
			continue
		}
		sub.set = into
		into.subsets = append(into.subsets, sub)
	}
	from.rels, from.subsets, from.parents = nil, nil, nil
	if p.root != nil {
		p.root = p.root.canonical()
	}
	p.mq.Invalidate()
	p.propagate(append([]algebra.Node(nil), into.rels...))
	for _, r := range into.rels {
		p.queueMatches(r, p.rules)
	}
	return into
}

// relCost is the cost of rel with the best known inputs. Expressions
// without a convention cannot be implemented and cost infinity.
func (p *Planner) relCost(rel algebra.Node) algebra.Cost {
	if c := rel.Traits().Convention; c == nil || c == algebra.None {
		return algebra.InfiniteCost
	}
	cost := p.mq.SelfCost(rel)
	for _, in := range rel.Inputs() {
		cost = cost.Plus(p.mq.CumulativeCost(in))
	}
	return cost
}

// better reports whether rel with cost should replace the best of sub.
// Dead expressions only win over dead or missing ones.
func (p *Planner) better(sub *RelSubset, rel algebra.Node, cost algebra.Cost) bool {
	if cost.IsInfinite() || sub.best == rel {
		return false
	}
	if sub.best == nil {
		return true
	}
	relDead, bestDead := p.dead[rel.ID()], p.dead[sub.best.ID()]
	if relDead != bestDead {
		return bestDead
	}
	return cost.Less(sub.bestCost)
}

// propagate recomputes the costs of rels and of their ancestors until no
// subset improves.
func (p *Planner) propagate(rels []algebra.Node) {
	var work deque.Deque[algebra.Node]
	for _, r := range rels {
		work.PushBack(r)
	}
	for work.Len() > 0 {
		rel := work.PopFront()
		set, ok := p.setOf[rel.ID()]
		if !ok {
			continue
		}
		set = set.canonical()
		cost := p.relCost(rel)
		improved := false
		for _, sub := range set.subsets {
			if sub.alias != nil || !rel.Traits().Satisfies(sub.traits) {
				continue
			}
			if sub.best == rel {
				// The cost of the current best changed with its inputs.
				if cost != sub.bestCost {
					sub.bestCost = cost
					improved = true
				}
				continue
			}
			if p.better(sub, rel, cost) {
				sub.best, sub.bestCost = rel, cost
				improved = true
			}
		}
		if improved {
			for _, parent := range set.parents {
				work.PushBack(parent)
			}
		}
	}
}

func (p *Planner) candidates(in algebra.Node) []algebra.Node {
	sub, ok := in.(*RelSubset)
	if !ok {
		return []algebra.Node{in}
	}
	var out []algebra.Node
	for _, r := range sub.Rels() {
		if !p.dead[r.ID()] {
			out = append(out, r)
		}
	}
	return out
}

func (p *Planner) parents(n algebra.Node) []algebra.Node {
	set, ok := p.setOf[n.ID()]
	if !ok {
		return nil
	}
	set = set.canonical()
	var out []algebra.Node
	for _, parent := range set.parents {
		if p.dead[parent.ID()] {
			continue
		}
		for _, in := range parent.Inputs() {
			sub := in.(*RelSubset)
			if sub.Set() == set && n.Traits().Satisfies(sub.Traits()) {
				out = append(out, parent)
				break
			}
		}
	}
	return out
}

// queueMatches queues every binding of rules in which n takes part.
func (p *Planner) queueMatches(n algebra.Node, rules []plan.Rule) {
	if p.dead[n.ID()] {
		return
	}
	for _, r := range rules {
		for _, op := range p.operands[r.Name()] {
			if !op.Matches(n) {
				continue
			}
			for _, b := range plan.BindingsAt(op, n, p.candidates, p.parents) {
				key := bindingKey(r, b)
				if p.seen[key] {
					continue
				}
				p.seen[key] = true
				p.queue.PushBack(&match{rule: r, rels: b, key: key})
			}
		}
	}
}

func bindingKey(r plan.Rule, rels []algebra.Node) string {
	var sb strings.Builder
	sb.WriteString(r.Name())
	for _, rel := range rels {
		fmt.Fprintf(&sb, ",%d", rel.ID())
	}
	return sb.String()
}

func (p *Planner) isDeadBinding(rels []algebra.Node) bool {
	for _, r := range rels {
		if p.dead[r.ID()] {
			return true
		}
	}
	return false
}

// Dump describes the memo: every live set with its subsets and members.
func (p *Planner) Dump() string {
	var sb strings.Builder
	for _, set := range p.sets {
		if set.mergedInto != nil {
			continue
		}
		fmt.Fprintf(&sb, "Set#%d %s\n", set.id, set.rowType)
		subs := append([]*RelSubset(nil), set.subsets...)
		sort.Slice(subs, func(i, j int) bool { return subs[i].traits.Key() < subs[j].traits.Key() })
		for _, sub := range subs {
			if sub.alias != nil {
				continue
			}
			best := "none"
			if sub.best != nil {
				best = fmt.Sprintf("#%d", sub.best.ID())
			}
			fmt.Fprintf(&sb, "  subset %s best=%s cost=%s\n", sub.traits.Key(), best, sub.bestCost)
		}
		for _, r := range set.rels {
			mark := ""
			if p.dead[r.ID()] {
				mark = " (dead)"
			}
			fmt.Fprintf(&sb, "  #%d %s rows=%g cost=%s%s\n", r.ID(), algebra.Digest(r), p.mq.RowCount(r), p.relCost(r), mark)
		}
	}
	return sb.String()
}
