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

package stats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timings records durations per category. Each category also keeps a count
// and total so the values can be read back without scraping.
type Timings struct {
	mu        sync.Mutex
	totalTime map[string]time.Duration
	counts    map[string]int64
	hist      *prometheus.HistogramVec
	label     string
}

// NewTimings creates a new Timings object, and publishes it if name is set.
func NewTimings(name, help, label string) *Timings {
	t := &Timings{
		totalTime: make(map[string]time.Duration),
		counts:    make(map[string]int64),
		label:     label,
		hist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name + "_seconds",
			Help:      help,
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{label}),
	}
	if name != "" {
		if existing, ok := publish(t.hist).(*prometheus.HistogramVec); ok {
			t.hist = existing
		}
	}
	return t
}

// Add will add a new value to the named histogram.
func (t *Timings) Add(name string, elapsed time.Duration) {
	t.mu.Lock()
	t.totalTime[name] += elapsed
	t.counts[name]++
	t.mu.Unlock()
	t.hist.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Record is a convenience function that records completion
// timing data based on the provided start time of an event.
func (t *Timings) Record(name string, startTime time.Time) {
	t.Add(name, time.Since(startTime))
}

// Counts returns the number of recordings per category.
func (t *Timings) Counts() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int64, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	return counts
}

// Total returns the accumulated time of a category.
func (t *Timings) Total(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalTime[name]
}
