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

package trace

import (
	"context"
	"strings"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/require"
)

func TestNewSpanChildOf(t *testing.T) {
	mt := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(mt)
	defer opentracing.SetGlobalTracer(prev)

	root, ctx := NewSpan(context.Background(), "prepare")
	child, _ := NewSpan(ctx, "optimize")
	child.Annotate("rules", 12)
	AnnotateDigest(child, strings.Repeat("x", 1000))
	child.Finish()
	root.Finish()

	spans := mt.FinishedSpans()
	require.Len(t, spans, 2)
	require.Equal(t, "optimize", spans[0].OperationName)
	require.Equal(t, "prepare", spans[1].OperationName)
	require.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	require.Equal(t, 12, spans[0].Tag("rules"))
	require.Len(t, spans[0].Tag("plan.digest"), 512)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.NotNil(t, got)
}

func TestFromContextEmpty(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
}
