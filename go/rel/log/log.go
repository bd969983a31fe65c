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

// Package log is the logging front end of the optimizer. Records go to glog
// unless --log-fmt is set, in which case a slog handler writes them to
// stderr in the chosen format.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

var (
	// Flush writes any buffered glog output.
	Flush = glog.Flush
	// Infof logs a formatted message at the info level through glog.
	Infof = glog.Infof
	// Warningf logs a formatted message at the warning level through glog.
	Warningf = glog.Warningf
	// Errorf logs a formatted message at the error level through glog.
	Errorf = glog.Errorf
)

var flags = struct {
	format string
	level  string
	source bool
}{
	format: "json",
	level:  "info",
}

// RegisterFlags defines the logging flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flags.format, "log-fmt", flags.format, "structured log format: json, logfmt or tint (glog is used when unset)")
	fs.StringVar(&flags.level, "log-level", flags.level, "minimum structured log level: debug, info, warn or error")
	fs.BoolVar(&flags.source, "log-source", flags.source, "add the calling file and line to structured records")
}

type handlerFunc func(w *os.File, opts *slog.HandlerOptions) slog.Handler

var handlers = map[string]handlerFunc{
	"json": func(w *os.File, opts *slog.HandlerOptions) slog.Handler {
		return slog.NewJSONHandler(w, opts)
	},
	"logfmt": func(w *os.File, opts *slog.HandlerOptions) slog.Handler {
		return slog.NewTextHandler(w, opts)
	},
	"tint": func(w *os.File, opts *slog.HandlerOptions) slog.Handler {
		return newTintHandler(w, opts, !isTerminal(w))
	},
}

// Init switches to structured logging when --log-fmt was given in fs.
func Init(fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	if f := fs.Lookup("log-fmt"); f == nil || !f.Changed {
		return nil
	}

	level, err := parseLevel(flags.level)
	if err != nil {
		return err
	}
	newHandler, ok := handlers[strings.ToLower(strings.TrimSpace(flags.format))]
	if !ok {
		return fmt.Errorf("invalid log-fmt %q: expected json, logfmt or tint", flags.format)
	}
	SetLogger(slog.New(newHandler(os.Stderr, &slog.HandlerOptions{AddSource: flags.source, Level: level})))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn or error", s)
	}
	return level, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newTintHandler(w io.Writer, opts *slog.HandlerOptions, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		AddSource:  opts.AddSource,
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}
