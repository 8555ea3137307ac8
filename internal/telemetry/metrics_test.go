/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndWriteText(t *testing.T) {
	m := NewMetrics()
	m.RecordRun("ok")
	m.RecordRun("ok")
	m.RecordRun("parse_error")
	m.RecordParseError("missing duration")
	m.RecordEntries("cue", 3)
	m.RecordEntries("peek", 0)
	m.RecordFrame("png")
	m.ObserveStage("parse", time.Now())
	m.SetLayout(65, 172)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("parse_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EntriesTotal.WithLabelValues("cue")))
	assert.Equal(t, 65.0, testutil.ToFloat64(m.ScriptDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageSeconds))

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, `karaokay_runs_total{result="ok"} 2`)
	assert.Contains(t, out, "# TYPE karaokay_stage_seconds histogram")
	assert.Contains(t, out, "karaokay_font_size 172")
	assert.NotContains(t, out, `kind="peek"`)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordRun("ok")
	m.RecordParseError("x")
	m.RecordEntries("cue", 1)
	m.RecordFrame("svg")
	m.ObserveStage("parse", time.Now())
	m.SetLayout(1, 2)
}
