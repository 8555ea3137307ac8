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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// language=SQL
// dialect=SQLite
const insertRunSQL = `INSERT INTO runs(id, command, script_path, script_hash, duration, cards, entries, font_size, result, elapsed_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectRunsSQL = `SELECT id, command, script_path, script_hash, duration, cards, entries, font_size, result, elapsed_ms, created_at
	FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectRunsByHashSQL = `SELECT id, command, script_path, script_hash, duration, cards, entries, font_size, result, elapsed_ms, created_at
	FROM runs WHERE script_hash = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRunsSQL = `DELETE FROM runs WHERE id NOT IN (
	SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
)`

// Run is one recorded invocation of the engine.
type Run struct {
	ID         string
	Command    string
	ScriptPath string
	ScriptHash string
	Duration   float64
	Cards      int
	Entries    int
	FontSize   float64
	Result     string // ok, cached, parse_error or error
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// HashScript returns the hex SHA-256 of a script's text.
func HashScript(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// RecordRun stores r. A missing ID or creation time is filled in; the stored
// run is returned.
func (ix *Index) RecordRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	_, err := ix.db.ExecContext(ctx, insertRunSQL,
		r.ID, r.Command, r.ScriptPath, r.ScriptHash, r.Duration, r.Cards, r.Entries, r.FontSize,
		r.Result, r.Elapsed.Milliseconds(), formatTime(r.CreatedAt))
	if err != nil {
		return r, fmt.Errorf("insert run: %w", err)
	}
	ix.log.Debug("run recorded", slog.String("id", r.ID), slog.String("result", r.Result))
	return r, nil
}

// Runs returns up to limit runs, newest first. limit <= 0 means 50.
func (ix *Index) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return ix.queryRuns(ctx, selectRunsSQL, limit)
}

// RunsForScript returns up to limit runs of the script with the given hash,
// newest first.
func (ix *Index) RunsForScript(ctx context.Context, hash string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return ix.queryRuns(ctx, selectRunsByHashSQL, hash, limit)
}

func (ix *Index) queryRuns(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		var r Run
		var elapsed int64
		var created string
		if err := rows.Scan(&r.ID, &r.Command, &r.ScriptPath, &r.ScriptHash, &r.Duration, &r.Cards,
			&r.Entries, &r.FontSize, &r.Result, &elapsed, &created); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRuns keeps the newest keepLast runs and deletes the rest.
func (ix *Index) PruneRuns(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneRunsSQL, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
