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

// Package trace contains a helper interface that allows tracing of the
// planning phases. Spans are created through opentracing; with no tracer
// installed the global no-op tracer is used.
package trace

import (
	"context"

	"github.com/opentracing/opentracing-go"
)

// Span represents a unit of work within a trace.
type Span interface {
	// Finish marks the span as complete.
	Finish()
	// Annotate records a key/value pair associated with a Span.
	Annotate(key string, value any)
}

var _ Span = (*openTracingSpan)(nil)

type openTracingSpan struct {
	otSpan opentracing.Span
}

// Finish will mark a span as finished
func (js openTracingSpan) Finish() {
	js.otSpan.Finish()
}

// Annotate will add information to an existing span
func (js openTracingSpan) Annotate(key string, value any) {
	js.otSpan.SetTag(key, value)
}

// NewSpan creates a new Span with the currently installed tracer. The span
// is a child of the span stored in ctx, if any. The returned context carries
// the new span.
func NewSpan(ctx context.Context, label string) (Span, context.Context) {
	var opts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		opts = append(opts, opentracing.ChildOf(parent.Context()))
	}
	span := tracer().StartSpan(label, opts...)
	return openTracingSpan{otSpan: span}, opentracing.ContextWithSpan(ctx, span)
}

// FromContext returns the Span from a Context if present. The bool return
// value indicates whether a Span was present in the Context.
func FromContext(ctx context.Context) (Span, bool) {
	innerSpan := opentracing.SpanFromContext(ctx)
	if innerSpan == nil {
		return nil, false
	}
	return openTracingSpan{otSpan: innerSpan}, true
}

// AnnotateDigest is a convenience for tagging a span with a plan digest.
func AnnotateDigest(span Span, digest string) {
	const maxDigest = 512
	if len(digest) > maxDigest {
		digest = digest[:maxDigest-3] + "..."
	}
	span.Annotate("plan.digest", digest)
}

func tracer() opentracing.Tracer {
	return opentracing.GlobalTracer()
}
