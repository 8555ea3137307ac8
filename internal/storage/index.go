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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "karaokay/internal/log"
	"karaokay/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexFileName is the default file name of the history database.
	IndexFileName = "history.sqlite"

	// schemaVersion tracks the local SQLite schema. Fresh databases start at
	// baseSchema and are migrated up.
	schemaVersion = 2
	baseSchema    = 1

	// timeLayout sorts lexicographically, unlike RFC3339Nano.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Index is an open history database.
type Index struct {
	db   *sql.DB
	path string
	log  *slog.Logger

	// MaxDumpBytes caps the dump cache; 0 disables eviction.
	MaxDumpBytes int64
}

// Open creates or opens the history database at path, enables WAL mode and
// brings the schema up to date.
func Open(path string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready")
	return &Index{
		db:           db,
		path:         path,
		log:          applog.WithComponent("storage").With(slog.String("path", path)),
		MaxDumpBytes: MaxDumpBytesFromEnv(),
	}, nil
}

// OpenOrRebuild opens the database at path. When it cannot be opened or
// fails an integrity check, the file is moved to a timestamped backup and a
// fresh database is created. rebuilt reports whether that happened.
func OpenOrRebuild(ctx context.Context, path string) (ix *Index, rebuilt bool, err error) {
	ix, err = Open(path)
	if err == nil {
		if ix.healthy(ctx) {
			return ix, false, nil
		}
		_ = ix.Close()
	}
	applog.WithComponent("storage").Warn("rebuilding history index", slog.String("path", path), slog.Any("err", err))
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	ix, rerr := Open(path)
	if rerr != nil {
		if err != nil {
			return nil, false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rerr, err)
		}
		return nil, false, fmt.Errorf("rebuild: %w", rerr)
	}
	return ix, true, nil
}

func (ix *Index) healthy(ctx context.Context) bool {
	var chk string
	if err := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		return false
	}
	_, err := ix.db.ExecContext(ctx, `SELECT 1 FROM runs LIMIT 1;`)
	return err == nil
}

// Path returns the database file path.
func (ix *Index) Path() string { return ix.path }

// Close closes the database.
func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// SchemaVersion returns the schema version recorded in the database.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, baseSchema, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// keep the stored schema; migrations move it forward
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureSchema creates the base (version 1) tables.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT    PRIMARY KEY,
			command      TEXT    NOT NULL,
			script_path  TEXT    NOT NULL,
			script_hash  TEXT    NOT NULL,
			duration     REAL    NOT NULL,
			cards        INTEGER NOT NULL,
			entries      INTEGER NOT NULL,
			font_size    REAL    NOT NULL,
			result       TEXT    NOT NULL,
			elapsed_ms   INTEGER NOT NULL,
			created_at   TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`,
		`CREATE TABLE IF NOT EXISTS dumps (
			hash       TEXT    PRIMARY KEY,
			dump       TEXT    NOT NULL,
			size       INTEGER NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// written by a newer build; leave it alone
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// LRU tracking for the dump cache and lookups by script
			has, err := hasColumn(ctx, db, "dumps", "last_access")
			if err != nil {
				return err
			}
			if !has {
				stmts = append(stmts, `ALTER TABLE dumps ADD COLUMN last_access TEXT;`)
			}
			stmts = append(stmts,
				`CREATE INDEX IF NOT EXISTS idx_dumps_access ON dumps(last_access);`,
				`CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(script_hash);`,
			)
		}
		if err := applyMigration(ctx, db, next, stmts); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, next int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", next, err)
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d stmt failed: %w", next, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d update version: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d commit: %w", next, err)
	}
	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	found := false
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			found = true
		}
	}
	return found, rows.Err()
}

// backupIndexFile copies the index file into a timestamped backup next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
