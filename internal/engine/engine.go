/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package engine runs the full pipeline from script text to a finished
// layout. A run either returns a complete layout or an error, never both.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"karaokay/internal/layout"
	applog "karaokay/internal/log"
	"karaokay/internal/script"
	"karaokay/internal/telemetry"
	"karaokay/internal/timing"
)

// TracerName names the engine's tracer.
const TracerName = "karaokay/engine"

// Span names
const (
	SpanRun     = "engine.run"
	SpanParse   = "engine.parse"
	SpanResolve = "engine.resolve"
	SpanLayout  = "engine.layout"
)

// Engine holds the collaborators of a run. The zero value is not usable;
// build one with New.
type Engine struct {
	measurer layout.Measurer
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records run metrics into m.
func WithMetrics(m *telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// New builds an engine that measures text with m.
func New(m layout.Measurer, opts ...Option) *Engine {
	e := &Engine{measurer: m}
	for _, o := range opts {
		o(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(TracerName)
	}
	if e.log == nil {
		e.log = applog.WithComponent("engine")
	}
	return e
}

// Run parses, resolves and lays out text with the default engine.
func Run(ctx context.Context, text string, cfg layout.Config, m layout.Measurer) (*layout.Layout, error) {
	return New(m).Run(ctx, text, cfg)
}

// Run parses, resolves and lays out text.
func (e *Engine) Run(ctx context.Context, text string, cfg layout.Config) (l *layout.Layout, err error) {
	ctx, span := e.tracer.Start(ctx, SpanRun)
	defer span.End()
	lg := applog.WithOperation(e.log, "run")
	started := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			var pe *script.ParseError
			if errors.As(err, &pe) {
				result = "parse_error"
				e.metrics.RecordParseError(pe.Kind.String())
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			lg.ErrorContext(ctx, "run failed", slog.Any("err", err))
		}
		e.metrics.RecordRun(result)
		e.metrics.ObserveStage("run", started)
	}()

	s, err := e.parse(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, w := range Lint(s) {
		lg.WarnContext(ctx, w.Message, slog.Int("card", w.Card))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved := e.resolve(ctx, s)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l = e.layout(ctx, s, resolved, cfg)
	span.SetAttributes(
		attribute.Int("cards", len(s.Cards)),
		attribute.Int("entries", len(l.Entries)),
		attribute.Float64("font_size", l.FontSize),
	)
	lg.DebugContext(ctx, "layout built",
		slog.Int("cards", len(s.Cards)),
		slog.Int("entries", len(l.Entries)),
		slog.Int("max_slots", l.MaxSlots),
		slog.Float64("font_size", l.FontSize),
		slog.Duration("took", time.Since(started)),
	)
	return l, nil
}

func (e *Engine) parse(ctx context.Context, text string) (script.Script, error) {
	_, span := e.tracer.Start(ctx, SpanParse, trace.WithAttributes(attribute.Int("bytes", len(text))))
	defer span.End()
	start := time.Now()
	defer e.metrics.ObserveStage("parse", start)
	s, err := script.Parse(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return script.Script{}, err
	}
	span.SetAttributes(attribute.Int("cards", len(s.Cards)), attribute.Float64("duration", s.Duration))
	return s, nil
}

func (e *Engine) resolve(ctx context.Context, s script.Script) [][]timing.Line {
	_, span := e.tracer.Start(ctx, SpanResolve)
	defer span.End()
	defer e.metrics.ObserveStage("resolve", time.Now())
	return timing.Resolve(s)
}

func (e *Engine) layout(ctx context.Context, s script.Script, resolved [][]timing.Line, cfg layout.Config) *layout.Layout {
	_, span := e.tracer.Start(ctx, SpanLayout)
	defer span.End()
	defer e.metrics.ObserveStage("layout", time.Now())
	l := layout.BuildResolved(s, resolved, cfg, e.measurer)

	counts := map[layout.Kind]int{}
	for _, en := range l.Entries {
		counts[en.Kind]++
	}
	for _, k := range []layout.Kind{layout.Regular, layout.Cue, layout.Peek, layout.Pause} {
		e.metrics.RecordEntries(k.String(), counts[k])
		span.SetAttributes(attribute.Int("entries."+k.String(), counts[k]))
	}
	e.metrics.SetLayout(l.Duration, l.FontSize)
	return l
}
