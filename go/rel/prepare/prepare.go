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

// Package prepare turns a logical plan into an executable one. A Preparer
// normalizes the plan with the heuristic planner, explores alternatives with
// the cost-based planner, compiles the cheapest physical plan and caches the
// result by plan digest.
package prepare

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"relopt.io/relopt/go/history"
	"relopt.io/relopt/go/rel/algebra"
	"relopt.io/relopt/go/rel/datacontext"
	"relopt.io/relopt/go/rel/enumerable"
	"relopt.io/relopt/go/rel/log"
	"relopt.io/relopt/go/rel/plan"
	"relopt.io/relopt/go/rel/plan/hep"
	"relopt.io/relopt/go/rel/plan/volcano"
	"relopt.io/relopt/go/rel/relerrors"
	"relopt.io/relopt/go/rel/rules"
	"relopt.io/relopt/go/sqltypes"
	"relopt.io/relopt/go/stats"
	"relopt.io/relopt/go/trace"
)

var (
	prepares        = stats.NewCounter("Prepares", "Number of plans prepared")
	planCacheHits   = stats.NewCounter("PlanCacheHits", "Number of prepares served from the plan cache")
	planCacheMisses = stats.NewCounter("PlanCacheMisses", "Number of prepares that missed the plan cache")
	compileErrors   = stats.NewCounter("CompileErrors", "Number of physical plans that failed to compile")
	prepareTimings  = stats.NewTimings("PrepareTimings", "Time spent in each prepare phase", "phase")
)

// Prepare phases, as reported in timings and trace spans.
const (
	PhaseNormalize = "normalize"
	PhaseOptimize  = "optimize"
	PhaseCompile   = "compile"
)

// Prepared is the outcome of preparing one logical plan.
type Prepared struct {
	// SessionID identifies the prepare call that built the plan.
	SessionID string
	// Key is the plan cache key of Logical.
	Key string
	// Logical is the plan as it was given.
	Logical algebra.Node
	// Normalized is Logical after the heuristic phase.
	Normalized algebra.Node
	// Physical is the cheapest enumerable plan.
	Physical algebra.Node
	// Plan is the compiled form of Physical.
	Plan *enumerable.Plan
	// Iterations is the number of rule matches the cost-based planner fired.
	Iterations int
	// Cached is set when the plan came from the cache.
	Cached bool
}

// Preparer prepares logical plans. It is safe for concurrent use; the
// planners it creates are not shared between calls.
//
// Cached plans hold references to the tables they scan. Use one Preparer
// per catalog.
type Preparer struct {
	opts   Options
	cache  *cache.Cache
	recent *history.History[Record]
}

// Record summarizes one Prepare call.
type Record struct {
	SessionID string
	Key       string
	Root      string
	Elapsed   time.Duration
	Cached    bool
	Err       error
}

// historySize is the number of Prepare calls a Preparer remembers.
const historySize = 64

// repeatedHit reports whether next is another cache hit on the plan of prev.
func repeatedHit(prev, next Record) bool {
	return prev.Cached && next.Cached && prev.Key == next.Key
}

// New returns a Preparer with the given options.
func New(opts Options) *Preparer {
	p := &Preparer{opts: opts, recent: history.New(historySize, repeatedHit)}
	if opts.CacheEnabled {
		p.cache = cache.New(opts.CacheTTL, 0)
	}
	return p
}

// Options returns the options the Preparer was created with.
func (p *Preparer) Options() Options { return p.opts }

// CacheKey returns the plan cache key of a logical plan: the xxhash of its
// digest.
func CacheKey(root algebra.Node) string {
	return strconv.FormatUint(xxhash.Sum64String(algebra.Digest(root)), 16)
}

// Recent returns the last Prepare calls, newest first. Consecutive cache
// hits on the same plan are recorded once.
func (p *Preparer) Recent() []Record { return p.recent.Records() }

// Prepare optimizes and compiles root.
func (p *Preparer) Prepare(ctx context.Context, root algebra.Node) (*Prepared, error) {
	start := time.Now()
	prepared, err := p.prepare(ctx, root)
	rec := Record{Root: root.OpName(), Elapsed: time.Since(start), Err: err}
	if prepared != nil {
		rec.SessionID, rec.Key, rec.Cached = prepared.SessionID, prepared.Key, prepared.Cached
	}
	p.recent.Add(rec)
	return prepared, err
}

func (p *Preparer) prepare(ctx context.Context, root algebra.Node) (*Prepared, error) {
	session := uuid.NewString()
	span, ctx := trace.NewSpan(ctx, "prepare")
	defer span.Finish()
	span.Annotate("session", session)
	lg := log.With("session", session)
	prepares.Add(1)

	key := CacheKey(root)
	trace.AnnotateDigest(span, algebra.Digest(root))
	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			planCacheHits.Add(1)
			cached := *v.(*Prepared)
			cached.Cached = true
			lg.DebugS("plan cache hit", "key", key, "prepared_by", cached.SessionID)
			return &cached, nil
		}
		planCacheMisses.Add(1)
	}
	if err := ctx.Err(); err != nil {
		return nil, relerrors.Wrap(err, "prepare")
	}

	out := &Prepared{SessionID: session, Key: key, Logical: root}
	var err error
	if out.Normalized, err = p.phase(ctx, lg, PhaseNormalize, func() (algebra.Node, error) {
		return p.Normalize(root)
	}); err != nil {
		return nil, err
	}
	if out.Physical, err = p.phase(ctx, lg, PhaseOptimize, func() (algebra.Node, error) {
		var n algebra.Node
		n, out.Iterations, err = p.optimize(out.Normalized)
		return n, err
	}); err != nil {
		return nil, err
	}
	if _, err = p.phase(ctx, lg, PhaseCompile, func() (algebra.Node, error) {
		out.Plan, err = enumerable.Compile(out.Physical, enumerable.FormatArray)
		if err != nil {
			compileErrors.Add(1)
		}
		return out.Physical, err
	}); err != nil {
		return nil, err
	}

	lg.InfoS("plan prepared", "key", key, "root", out.Physical.OpName(), "iterations", out.Iterations)
	if p.cache != nil {
		p.cache.SetDefault(key, out)
	}
	return out, nil
}

func (p *Preparer) phase(ctx context.Context, lg *log.Logger, name string, run func() (algebra.Node, error)) (algebra.Node, error) {
	span, _ := trace.NewSpan(ctx, "prepare."+name)
	defer span.Finish()
	start := time.Now()
	defer prepareTimings.Record(name, start)

	n, err := run()
	if err != nil {
		span.Annotate("error", err.Error())
		lg.WarnS("prepare phase failed", "phase", name, "error", err)
		return nil, err
	}
	lg.DebugS("prepare phase done", "phase", name, "elapsed", time.Since(start))
	return n, nil
}

// Normalize runs the heuristic phase: normalization and scan pushdown, then
// calc conversion when cost-based exploration is off. HepMatchLimit bounds
// the transformations of the whole phase.
func (p *Preparer) Normalize(root algebra.Node) (algebra.Node, error) {
	b := hep.NewProgramBuilder().
		AddSubprogram(hep.ProgramOf(hep.BottomUp, rules.Normalization()...)).
		AddSubprogram(hep.ProgramOf(hep.BottomUp, rules.ScanPushdown()...))
	if !p.opts.Volcano {
		b.AddSubprogram(hep.ProgramOf(hep.BottomUp, rules.CalcRules()...))
	}
	planner := hep.New(b.Build(),
		hep.WithMatchLimit(p.opts.HepMatchLimit),
		hep.WithExecutor(enumerable.NewRexExecutor(nil)))
	planner.SetRoot(root)
	return planner.FindBestExp()
}

// Optimize returns the cheapest enumerable plan for a normalized root.
func (p *Preparer) Optimize(root algebra.Node) (algebra.Node, error) {
	n, _, err := p.optimize(root)
	return n, err
}

func (p *Preparer) optimize(root algebra.Node) (algebra.Node, int, error) {
	planner := volcano.New(
		volcano.WithMaxIterations(p.opts.MaxIterations),
		volcano.WithExecutor(enumerable.NewRexExecutor(nil)))
	for _, r := range p.ruleSet() {
		planner.AddRule(r)
	}
	planner.SetRoot(planner.ChangeTraits(root, enumerable.Traits))
	best, err := planner.FindBestExp()
	if err != nil {
		if log.Enabled(slog.LevelDebug) {
			log.DebugS("planner state", "memo", planner.Dump())
		}
		return nil, planner.Iterations(), err
	}
	return best, planner.Iterations(), nil
}

func (p *Preparer) ruleSet() []plan.Rule {
	var set []plan.Rule
	if p.opts.Volcano {
		for _, r := range rules.Exploration() {
			switch r.Name() {
			case "JoinCommute", "JoinAssociate":
				if !p.opts.JoinReorder {
					continue
				}
			}
			set = append(set, r)
		}
		if p.opts.JoinToCorrelate {
			set = append(set, rules.JoinToCorrelate())
		}
	}
	return append(set, enumerable.Rules(p.opts.MergeJoin)...)
}

// Execute prepares root and runs it with the given positional parameters.
func (p *Preparer) Execute(ctx context.Context, root algebra.Node, params ...sqltypes.Value) (*sqltypes.Result, error) {
	prepared, err := p.Prepare(ctx, root)
	if err != nil {
		return nil, err
	}
	span, ctx := trace.NewSpan(ctx, "execute")
	defer span.Finish()
	span.Annotate("session", prepared.SessionID)
	return prepared.Plan.Execute(datacontext.New(ctx, params...))
}

// Flush drops every cached plan.
func (p *Preparer) Flush() {
	if p.cache != nil {
		p.cache.Flush()
	}
}

// CachedPlans returns the number of plans in the cache.
func (p *Preparer) CachedPlans() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.ItemCount()
}
