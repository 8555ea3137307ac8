/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
)

func TestDumpCacheRoundTrip(t *testing.T) {
	ix := openTemp(t)
	ctx := context.Background()

	if _, ok, err := ix.LookupDump(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := ix.SaveDump(ctx, "h1", "first"); err != nil {
		t.Fatalf("SaveDump: %v", err)
	}
	if err := ix.SaveDump(ctx, "h1", "second"); err != nil {
		t.Fatalf("SaveDump upsert: %v", err)
	}
	got, ok, err := ix.LookupDump(ctx, "h1")
	if err != nil || !ok || got != "second" {
		t.Fatalf("LookupDump = %q %v %v", got, ok, err)
	}
	total, err := ix.DumpBytes(ctx)
	if err != nil || total != int64(len("second")) {
		t.Fatalf("DumpBytes = %d %v", total, err)
	}
	if err := ix.SaveDump(ctx, "", "x"); err == nil {
		t.Fatal("expected error for empty hash")
	}
}

func TestEvictDumpsLeastRecentlyUsed(t *testing.T) {
	ix := openTemp(t)
	ix.MaxDumpBytes = 0
	ctx := context.Background()
	for _, h := range []string{"a", "b", "c"} {
		if err := ix.SaveDump(ctx, h, "123456"); err != nil {
			t.Fatal(err)
		}
	}
	stamps := map[string]string{
		"a": "2026-01-01T00:00:03.000000000Z",
		"b": "2026-01-01T00:00:01.000000000Z",
		"c": "2026-01-01T00:00:02.000000000Z",
	}
	for h, ts := range stamps {
		if _, err := ix.db.ExecContext(ctx, `UPDATE dumps SET last_access=? WHERE hash=?`, ts, h); err != nil {
			t.Fatal(err)
		}
	}

	if err := ix.EvictDumpsToFit(ctx, 12); err != nil {
		t.Fatalf("EvictDumpsToFit: %v", err)
	}
	if _, ok, _ := ix.LookupDump(ctx, "b"); ok {
		t.Fatal("least recently used dump should be evicted")
	}
	for _, h := range []string{"a", "c"} {
		if _, ok, _ := ix.LookupDump(ctx, h); !ok {
			t.Fatalf("dump %s should remain", h)
		}
	}
}

func TestSaveDumpEnforcesCap(t *testing.T) {
	ix := openTemp(t)
	ix.MaxDumpBytes = 8
	ctx := context.Background()
	if err := ix.SaveDump(ctx, "a", "123456"); err != nil {
		t.Fatal(err)
	}
	if err := ix.SaveDump(ctx, "b", "123456"); err != nil {
		t.Fatal(err)
	}
	total, _ := ix.DumpBytes(ctx)
	if total > 8 {
		t.Fatalf("cache exceeds cap: %d", total)
	}
}

func TestMaxDumpBytesFromEnv(t *testing.T) {
	t.Setenv(DumpCacheEnv, "")
	if got := MaxDumpBytesFromEnv(); got != defaultMaxDumpBytes {
		t.Fatalf("default = %d", got)
	}
	t.Setenv(DumpCacheEnv, "1024")
	if got := MaxDumpBytesFromEnv(); got != 1024 {
		t.Fatalf("got %d", got)
	}
	t.Setenv(DumpCacheEnv, "-5")
	if got := MaxDumpBytesFromEnv(); got != defaultMaxDumpBytes {
		t.Fatalf("negative should fall back, got %d", got)
	}
}
