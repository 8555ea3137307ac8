/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"karaokay/internal/version"
)

type request struct {
	path        string
	contentType string
	body        []byte
}

// recorder serves every request into a buffered channel.
func recorder(t *testing.T) (*httptest.Server, <-chan request) {
	t.Helper()
	ch := make(chan request, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ch <- request{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: b}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func receive(t *testing.T, ch <-chan request) request {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("no request received")
		return request{}
	}
}

func TestClientPostsRunEvent(t *testing.T) {
	srv, ch := recorder(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c.Close()

	c.Event("run", map[string]any{"command": "layout", "result": "ok", "cards": 4})
	r := receive(t, ch)
	if r.path != "/events" || r.contentType != "application/json" {
		t.Fatalf("unexpected request %s %s", r.path, r.contentType)
	}
	var m map[string]any
	if err := json.Unmarshal(r.body, &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "run" || m["command"] != "layout" || m["cards"] != float64(4) {
		t.Fatalf("event fields: %v", m)
	}
	if m["version"] != version.String() || m["os"] != runtime.GOOS || m["arch"] != runtime.GOARCH {
		t.Fatalf("event build fields: %v", m)
	}
	if _, err := time.Parse(time.RFC3339Nano, m["ts"].(string)); err != nil {
		t.Fatalf("ts: %v", err)
	}
}

func TestClientUploadsCrashAsText(t *testing.T) {
	srv, ch := recorder(t)
	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("events need an events URL")
	}

	report := []byte("panic: boom\n<script>")
	c.UploadCrash(report)
	report[0] = 'X' // the upload owns a copy
	r := receive(t, ch)
	if r.path != "/crash" || r.contentType != "text/plain; charset=utf-8" || string(r.body) != "panic: boom\n<script>" {
		t.Fatalf("unexpected crash upload %q %q %q", r.path, r.contentType, r.body)
	}
}

func TestClientCloseCancelsPendingSend(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Minute})
	c.Event("first", nil)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("send never started")
	}

	// the sender is stuck, so the queue fills up and further events are dropped
	start := time.Now()
	for i := 0; i < 200; i++ {
		c.Event("more", nil)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Event blocked on a full queue")
	}

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not cancel the in-flight request")
	}
	select {
	case <-c.done:
	default:
		t.Fatalf("sender still running after Close")
	}
	c.Close()
}

func TestClientDrainsQueueWhenSendFails(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	defer c.Close()

	c.Event("a", nil)
	c.Event("b", map[string]any{"n": 1})
	c.UploadCrash([]byte("trace"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Flush(ctx)
	if n := len(c.q); n != 0 {
		t.Fatalf("queue not drained after failed sends: %d left", n)
	}
}

func TestFromEnvAndUserOptIn(t *testing.T) {
	t.Setenv("KOK_TELEMETRY_OPT_IN", "")
	t.Setenv("KOK_TELEMETRY_URL", " http://127.0.0.1:1/events ")
	t.Setenv("KOK_TELEMETRY_TIMEOUT_MS", "250")

	cfg := FromEnv()
	if cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:1/events" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("FromEnv: %+v", cfg)
	}

	t.Cleanup(func() { NewDefault(Config{}) })
	NewDefault(cfg)
	if Enabled() {
		t.Fatalf("not opted in yet")
	}
	NewDefault(cfg.WithOptIn(true))
	if !Enabled() {
		t.Fatalf("config opt-in should enable the default client")
	}

	t.Setenv("KOK_TELEMETRY_TIMEOUT_MS", "soon")
	if got := FromEnv().Timeout; got != 1500*time.Millisecond {
		t.Fatalf("invalid timeout should keep the default, got %v", got)
	}
}
