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

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relopt.io/relopt/go/rel/relerrors"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":  slog.LevelDebug,
		" INFO ": slog.LevelInfo,
		"warn":   slog.LevelWarn,
		"error":  slog.LevelError,
	} {
		got, err := parseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLevel("verbose")
	require.ErrorContains(t, err, "invalid log-level")
}

func TestInitWithoutFormatFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Init(fs))
	assert.False(t, structured.Load())
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt=xml"}))
	require.ErrorContains(t, Init(fs), "invalid log-fmt")
}

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(restore)
	return &buf
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestStructuredRecords(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	InfoS("rule fired", "rule", "FilterMerge", "node", 7)
	DebugS("hidden")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "rule fired", recs[0]["msg"])
	assert.Equal(t, "FilterMerge", recs[0]["rule"])
	assert.False(t, Enabled(slog.LevelDebug))
	assert.True(t, Enabled(slog.LevelWarn))
}

func TestLoggerWith(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	session := With("session", "s1")
	session.With("phase", "optimize").DebugS("phase done", "iterations", 3)
	session.WarnS("phase failed")

	recs := records(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "s1", recs[0]["session"])
	assert.Equal(t, "optimize", recs[0]["phase"])
	assert.EqualValues(t, 3, recs[0]["iterations"])
	assert.Equal(t, "s1", recs[1]["session"])
	assert.NotContains(t, recs[1], "phase")
}

func TestCodedErrorsLogOnOneLine(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	err := relerrors.Wrapf(relerrors.Errorf(relerrors.InvalidArgument, "cannot compare VARCHAR and BIGINT"), "%s", "=")
	args := []any{"rule", "FilterMerge", "err", err}
	WarnS("rule declined", args...)

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "=: cannot compare VARCHAR and BIGINT", recs[0]["err"])
	assert.Same(t, err, args[3])
	assert.Equal(t, "declined err==: cannot compare VARCHAR and BIGINT", formatPairs("declined", errorMessages([]any{"err", err})))
}

func TestFormatPairs(t *testing.T) {
	assert.Equal(t, "prepared key=ab iterations=12", formatPairs("prepared", []any{"key", "ab", "iterations", 12}))
	assert.Equal(t, "odd dangling", formatPairs("odd", []any{"dangling"}))
}

func TestTintHandlerWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTintHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, true))
	logger.Info("planner converged", "iterations", 12)
	assert.Contains(t, buf.String(), "planner converged")
	assert.Contains(t, buf.String(), "iterations=12")
}
