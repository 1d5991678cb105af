// Copyright 2026 The Hegel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger builds the process-wide slog.Logger from CLI flags. It is
// constructed once per invocation and threaded explicitly; there is no
// package-level default logger to keep global state out of the core.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Format selects the console renderer.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Options configures logger construction.
type Options struct {
	Level  slog.Level
	Format Format
	Output io.Writer

	// NoisyComponents names "component" attribute values whose records are
	// dropped outright, whatever their own level, unless Level is Debug or
	// finer.
	NoisyComponents []string
}

// New builds a logger per Options. Console format uses a colored
// single-line renderer for interactive terminals; JSON format is used for
// the hook ingestor and any other invocation whose stdout must stay
// machine-parseable.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var base slog.Handler
	switch opts.Format {
	case FormatJSON:
		base = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	default:
		base = tint.NewHandler(out, &tint.Options{Level: opts.Level})
	}

	return slog.New(&filteringHandler{
		next:  base,
		level: opts.Level,
		noisy: opts.NoisyComponents,
	})
}

// filteringHandler suppresses records from a fixed set of noisy components
// (typically verbose third-party client libraries wired in as dependencies)
// unless the configured level is Debug or finer, so normal operation output
// stays readable at the
// default Info level without losing the detail when it is asked for.
type filteringHandler struct {
	next  slog.Handler
	level slog.Level
	noisy []string
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.level > slog.LevelDebug {
		suppressed := false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "component" {
				for _, c := range h.noisy {
					if a.Value.String() == c {
						suppressed = true
						return false
					}
				}
			}
			return true
		})
		if suppressed {
			return nil
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{next: h.next.WithAttrs(attrs), level: h.level, noisy: h.noisy}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{next: h.next.WithGroup(name), level: h.level, noisy: h.noisy}
}
