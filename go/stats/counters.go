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

// Package stats holds in-process counters and timings for the optimizer and
// publishes each of them to prometheus through Registry.
package stats

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the prometheus registry every stats variable is published to.
var Registry = prometheus.NewRegistry()

const namespace = "relopt"

// publish registers c. If an equal collector is already registered the
// existing one is returned instead.
func publish(c prometheus.Collector) prometheus.Collector {
	if err := Registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Counter is a monotonically increasing value.
type Counter struct {
	i    atomic.Int64
	help string
}

// NewCounter returns a new Counter published under name.
func NewCounter(name string, help string) *Counter {
	v := &Counter{help: help}
	if name != "" {
		publish(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(v.Get()) }))
	}
	return v
}

// Add adds the provided value to the Counter
func (v *Counter) Add(delta int64) {
	v.i.Add(delta)
}

// Reset resets the counter value to 0
func (v *Counter) Reset() {
	v.i.Store(0)
}

// Get returns the value
func (v *Counter) Get() int64 {
	return v.i.Load()
}

// Help returns the help string
func (v *Counter) Help() string {
	return v.help
}

// CountersWithSingleLabel tracks multiple counter values for a single
// dimension ("label").
type CountersWithSingleLabel struct {
	// mu only protects adding and retrieving the value (*int64) from the map,
	// modification to the actual number (int64) should be done with atomic funcs.
	mu     sync.RWMutex
	counts map[string]*int64
	help   string
	label  string
	desc   *prometheus.Desc
}

// NewCountersWithSingleLabel creates a new CountersWithSingleLabel
// instance with the given name, help and label.
func NewCountersWithSingleLabel(name, help, label string) *CountersWithSingleLabel {
	c := &CountersWithSingleLabel{
		counts: make(map[string]*int64),
		help:   help,
		label:  label,
		desc:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{label}, nil),
	}
	if name != "" {
		if existing, ok := publish(c).(*CountersWithSingleLabel); ok {
			return existing
		}
	}
	return c
}

func (c *CountersWithSingleLabel) getValueAddr(name string) *int64 {
	c.mu.RLock()
	a, ok := c.counts[name]
	c.mu.RUnlock()

	if ok {
		return a
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// we need to check the existence again
	// as it may be created by other goroutine.
	a, ok = c.counts[name]
	if ok {
		return a
	}
	a = new(int64)
	c.counts[name] = a
	return a
}

// Add adds a value to a named counter.
func (c *CountersWithSingleLabel) Add(name string, value int64) {
	atomic.AddInt64(c.getValueAddr(name), value)
}

// Counts returns a copy of the Counters' map.
func (c *CountersWithSingleLabel) Counts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int64, len(c.counts))
	for k, a := range c.counts {
		counts[k] = atomic.LoadInt64(a)
	}
	return counts
}

// Label returns the label name.
func (c *CountersWithSingleLabel) Label() string {
	return c.label
}

// ResetAll resets all counter values.
func (c *CountersWithSingleLabel) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]*int64)
}

// Describe implements prometheus.Collector.
func (c *CountersWithSingleLabel) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *CountersWithSingleLabel) Collect(ch chan<- prometheus.Metric) {
	counts := c.Counts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(counts[k]), k)
	}
}
