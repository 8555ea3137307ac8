/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry holds the process metrics registry and a tiny opt‑in
// event sender for anonymous usage events and crash uploads.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "karaokay/internal/log"
	"karaokay/internal/version"
)

// Config holds runtime configuration for events and crash uploads.
// Sending is strictly opt‑in and disabled by default.
//
// Environment variables (read by FromEnv):
//   - KOK_TELEMETRY_OPT_IN: "1", "true", "yes" to enable events
//   - KOK_TELEMETRY_URL: URL to POST JSON events to
//   - KOK_CRASH_UPLOAD_URL: URL to POST crash reports to
//   - KOK_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
//   - KOK_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs events are dropped even when opted in.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("KOK_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("KOK_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("KOK_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("KOK_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("KOK_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// WithOptIn returns cfg opted in when either the environment or the user
// config says so.
func (c Config) WithOptIn(optIn bool) Config {
	c.OptIn = c.OptIn || optIn
	return c
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is a minimal async sender; it drops events silently on errors.
// It never blocks a render; the queue is bounded.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// InitDefault installs a client configured from the environment unless one
// is already installed.
func InitDefault() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// NewDefault replaces the default client with one built from cfg.
func NewDefault(cfg Config) *Client {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
	return c
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether events are enabled on the default client.
func Enabled() bool { return InitDefault().Enabled() }

// Event queues a small JSON event if enabled. props must not carry
// personal data; script text and paths are never sent.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	select {
	case c.q <- payload:
	default:
	}
}

// Event queues on the default client.
func Event(name string, props map[string]any) { InitDefault().Event(name, props) }

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender and waits for an in-flight request to finish.
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		<-c.done
	})
}

func (c *Client) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case item := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", item)
		}
	}
}

func (c *Client) post(url, contentType string, item any) {
	var body []byte
	switch v := item.(type) {
	case []byte:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		body = b
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts an already‑serialized crash report if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", append([]byte(nil), report...))
}

// UploadCrash posts on the default client.
func UploadCrash(report []byte) { InitDefault().UploadCrash(report) }
