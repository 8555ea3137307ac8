/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func lastJSONLine(t *testing.T, data []byte) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("unmarshal json log: %v (%q)", err, data)
	}
	return m
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	fpath := filepath.Join(t.TempDir(), "logs", "karaokay.json")
	l := New(Options{Level: "debug", Writer: &console, File: fpath})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xaa, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		SpanID:     trace.SpanID{0xbb, 1, 2, 3, 4, 5, 6, 7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	lg := WithScript(WithOperation(l.With(slog.String("component", "engine")), "layout"), "songs/my song.txt")
	lg.DebugContext(ctx, "planned", slog.Int("cards", 3))

	line := console.String()
	for _, want := range []string{" DBG planned", " component=engine", " op=layout", ` script="songs/my song.txt"`, " cards=3", " trace_id=" + sc.TraceID().String()} {
		if !strings.Contains(line, want) {
			t.Fatalf("console line missing %q: %q", want, line)
		}
	}

	data, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, data)
	if m["app"] != "karaokay" || m["script"] != "songs/my song.txt" || m["op"] != "layout" {
		t.Fatalf("file record attrs: %v", m)
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr: %v", m)
	}
	if m["span_id"] != sc.SpanID().String() || m["cards"] != float64(3) {
		t.Fatalf("file record enrichment: %v", m)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "json", Writer: &buf})
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
	l.Warn("loud")
	if m := lastJSONLine(t, buf.Bytes()); m["msg"] != "loud" || m["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", m)
	}
}

func TestWithScriptEmptyPathKeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "json", Writer: &buf})
	if WithScript(l, "") != l {
		t.Fatalf("empty script path should return the logger unchanged")
	}
	WithScript(l, "").Info("x")
	if strings.Contains(buf.String(), `"script"`) {
		t.Fatalf("unexpected script attr: %q", buf.String())
	}
}

func TestInitInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		defaultLoggerMu.Lock()
		defaultLogger = nil
		defaultLoggerMu.Unlock()
	})

	var buf bytes.Buffer
	Init(Options{Level: "info", Writer: &buf})
	WithComponent("storage").Info("opened")
	slog.Info("via slog")

	out := buf.String()
	if !strings.Contains(out, "INF opened") || !strings.Contains(out, "component=storage") {
		t.Fatalf("component logger not installed: %q", out)
	}
	if !strings.Contains(out, "INF via slog") {
		t.Fatalf("slog default not replaced: %q", out)
	}
	if L().Handler() != slog.Default().Handler() {
		t.Fatalf("L and slog.Default should share the handler")
	}
}
