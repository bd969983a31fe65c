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
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// structured is set once a slog logger has been installed.
var structured atomic.Bool

// callerDepth is the number of frames between emit and the code that logs.
const callerDepth = 4

// Logger writes records that carry a fixed set of key/value pairs, such as
// the session of a prepare call.
type Logger struct {
	attrs []any
}

var std = &Logger{}

// With returns a Logger that adds args to every record.
func With(args ...any) *Logger {
	return std.With(args...)
}

// With returns a Logger with args added to those of l.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{attrs: append(slices.Clip(l.attrs), args...)}
}

// InfoS logs at the info level.
func (l *Logger) InfoS(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// WarnS logs at the warn level.
func (l *Logger) WarnS(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// DebugS logs at the debug level.
func (l *Logger) DebugS(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// ErrorS logs at the error level.
func (l *Logger) ErrorS(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

// InfoS logs at the info level.
func InfoS(msg string, args ...any) { std.log(slog.LevelInfo, msg, args) }

// WarnS logs at the warn level.
func WarnS(msg string, args ...any) { std.log(slog.LevelWarn, msg, args) }

// DebugS logs at the debug level.
func DebugS(msg string, args ...any) { std.log(slog.LevelDebug, msg, args) }

// ErrorS logs at the error level.
func ErrorS(msg string, args ...any) { std.log(slog.LevelError, msg, args) }

func (l *Logger) log(level slog.Level, msg string, args []any) {
	if len(l.attrs) > 0 {
		args = append(slices.Clip(l.attrs), args...)
	}
	emit(level, msg, args)
}

func emit(level slog.Level, msg string, args []any) {
	args = errorMessages(args)
	if !structured.Load() {
		toGlog(level, msg, args)
		return
	}
	logger := slog.Default()
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(callerDepth, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)
}

// errorMessages replaces error values with their messages. Coded errors
// format %v and %+v across several lines.
func errorMessages(args []any) []any {
	out := args
	for i, a := range args {
		if err, ok := a.(error); ok {
			if &out[0] == &args[0] {
				out = slices.Clone(args)
			}
			out[i] = err.Error()
		}
	}
	return out
}

// toGlog writes msg followed by key=value pairs. Debug records need -v=1.
func toGlog(level slog.Level, msg string, args []any) {
	if level < slog.LevelInfo && !glog.V(1) {
		return
	}
	line := formatPairs(msg, args)
	switch {
	case level >= slog.LevelError:
		glog.ErrorDepth(callerDepth, line)
	case level >= slog.LevelWarn:
		glog.WarningDepth(callerDepth, line)
	default:
		glog.InfoDepth(callerDepth, line)
	}
}

func formatPairs(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fmt.Fprintf(&b, " %v", args[i])
			break
		}
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	return b.String()
}

// Enabled reports whether a record at level would be written.
func Enabled(level slog.Level) bool {
	if structured.Load() {
		return slog.Default().Enabled(context.Background(), level)
	}
	return level >= slog.LevelInfo || bool(glog.V(1))
}

// SetLogger installs logger for structured records and returns a function
// that restores the previous state.
func SetLogger(logger *slog.Logger) (restore func()) {
	if logger == nil {
		return func() {}
	}
	prevLogger, prevStructured := slog.Default(), structured.Load()
	slog.SetDefault(logger)
	structured.Store(true)
	return func() {
		slog.SetDefault(prevLogger)
		structured.Store(prevStructured)
	}
}
