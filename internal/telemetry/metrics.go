/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus collectors of the render pipeline. Each set
// owns its registry so tests and the CLI's --metrics dump see only it.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	StageSeconds    *prometheus.HistogramVec
	EntriesTotal    *prometheus.CounterVec
	FramesTotal     *prometheus.CounterVec
	ScriptDuration  prometheus.Gauge
	FontSize        prometheus.Gauge
	ParseErrorTotal *prometheus.CounterVec
}

// NewMetrics creates and registers a fresh metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karaokay_runs_total",
				Help: "Layout runs by result",
			},
			[]string{"result"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "karaokay_stage_seconds",
				Help:    "Latency of each pipeline stage",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"stage"},
		),
		EntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karaokay_entries_total",
				Help: "Display entries planned, by kind",
			},
			[]string{"kind"},
		),
		FramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karaokay_frames_total",
				Help: "Frames rendered, by format",
			},
			[]string{"format"},
		),
		ScriptDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "karaokay_script_duration_seconds",
			Help: "Declared duration of the last script",
		}),
		FontSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "karaokay_font_size",
			Help: "Font size chosen for the last layout",
		}),
		ParseErrorTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karaokay_parse_errors_total",
				Help: "Script parse failures, by kind",
			},
			[]string{"kind"},
		),
	}
}

// ObserveStage records the time since start for stage. Safe on nil.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordRun counts a finished run. Safe on nil.
func (m *Metrics) RecordRun(result string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}

// RecordParseError counts a parse failure. Safe on nil.
func (m *Metrics) RecordParseError(kind string) {
	if m == nil {
		return
	}
	m.ParseErrorTotal.WithLabelValues(kind).Inc()
}

// RecordEntries adds n planned entries of kind. Safe on nil.
func (m *Metrics) RecordEntries(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.EntriesTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordFrame counts one rendered frame. Safe on nil.
func (m *Metrics) RecordFrame(format string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(format).Inc()
}

// SetLayout records the gauges of the last layout. Safe on nil.
func (m *Metrics) SetLayout(duration, fontSize float64) {
	if m == nil {
		return
	}
	m.ScriptDuration.Set(duration)
	m.FontSize.Set(fontSize)
}

// WriteText writes all gathered metrics in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	mfs, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
