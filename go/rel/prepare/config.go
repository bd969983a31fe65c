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

package prepare

import (
	"time"

	"github.com/spf13/pflag"

	"relopt.io/relopt/go/rel/plan/volcano"
	"relopt.io/relopt/go/rel/relconfig"
)

var (
	maxIterations = relconfig.Configure("planner.max-iterations", relconfig.Options[int]{
		FlagName: "planner-max-iterations",
		Default:  volcano.DefaultMaxIterations,
	})
	hepMatchLimit = relconfig.Configure("planner.hep-match-limit", relconfig.Options[int]{
		FlagName: "planner-hep-match-limit",
		Default:  0,
	})
	useVolcano = relconfig.Configure("planner.volcano", relconfig.Options[bool]{
		FlagName: "planner-volcano",
		Default:  true,
	})
	mergeJoin = relconfig.Configure("planner.merge-join", relconfig.Options[bool]{
		FlagName: "planner-merge-join",
		Default:  true,
	})
	joinReorder = relconfig.Configure("planner.join-reorder", relconfig.Options[bool]{
		FlagName: "planner-join-reorder",
		Default:  true,
	})
	joinToCorrelate = relconfig.Configure("planner.join-to-correlate", relconfig.Options[bool]{
		FlagName: "planner-join-to-correlate",
		Default:  false,
	})
	cacheTTL = relconfig.Configure("plancache.ttl", relconfig.Options[time.Duration]{
		FlagName: "plancache-ttl",
		Default:  10 * time.Minute,
	})
	cacheEnabled = relconfig.Configure("plancache.enabled", relconfig.Options[bool]{
		FlagName: "plancache-enabled",
		Default:  true,
	})
)

// Options configures a Preparer.
type Options struct {
	// MaxIterations bounds the rule matches fired by the cost-based planner.
	MaxIterations int
	// HepMatchLimit bounds the transformations of the heuristic phase.
	// Zero or less means no limit.
	HepMatchLimit int
	// Volcano enables cost-based exploration. Without it the logical plan is
	// normalized, turned into calcs and implemented as is.
	Volcano bool
	// MergeJoin lets the cost-based planner consider sort-merge joins.
	MergeJoin bool
	// JoinReorder enables join commutation and association.
	JoinReorder bool
	// JoinToCorrelate lets the cost-based planner run joins as correlated
	// nested loops.
	JoinToCorrelate bool
	// CacheEnabled turns the plan cache on.
	CacheEnabled bool
	// CacheTTL is how long a prepared plan stays cached.
	CacheTTL time.Duration
}

// DefaultOptions returns the options of the current configuration.
func DefaultOptions() Options {
	return Options{
		MaxIterations:   maxIterations.Get(),
		HepMatchLimit:   hepMatchLimit.Get(),
		Volcano:         useVolcano.Get(),
		MergeJoin:       mergeJoin.Get(),
		JoinReorder:     joinReorder.Get(),
		JoinToCorrelate: joinToCorrelate.Get(),
		CacheEnabled:    cacheEnabled.Get(),
		CacheTTL:        cacheTTL.Get(),
	}
}

// RegisterFlags defines the planner flags on fs. Bind them with
// relconfig.BindFlags after registration.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int(maxIterations.FlagName(), maxIterations.Default(), "maximum number of rule matches fired by the cost-based planner")
	fs.Int(hepMatchLimit.FlagName(), hepMatchLimit.Default(), "maximum number of transformations in the heuristic phase (0 for no limit)")
	fs.Bool(useVolcano.FlagName(), useVolcano.Default(), "explore alternative plans with the cost-based planner")
	fs.Bool(mergeJoin.FlagName(), mergeJoin.Default(), "consider sort-merge joins")
	fs.Bool(joinReorder.FlagName(), joinReorder.Default(), "consider join commutation and association")
	fs.Bool(joinToCorrelate.FlagName(), joinToCorrelate.Default(), "consider running joins as correlated nested loops")
	fs.Duration(cacheTTL.FlagName(), cacheTTL.Default(), "how long prepared plans stay cached")
	fs.Bool(cacheEnabled.FlagName(), cacheEnabled.Default(), "cache prepared plans")
}
