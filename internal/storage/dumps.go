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
	"os"
	"strconv"
	"strings"
	"time"
)

// DumpCacheEnv overrides the dump cache size cap in bytes.
const DumpCacheEnv = "KOK_DUMP_CACHE_MAX_BYTES"

const defaultMaxDumpBytes = 16 * 1024 * 1024

// language=SQL
// dialect=SQLite
const upsertDumpSQL = `INSERT INTO dumps(hash, dump, size, updated_at, last_access) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(hash) DO UPDATE SET dump=excluded.dump, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`

// SaveDump stores the resolved timing dump of the script with the given hash
// and evicts least recently used dumps beyond MaxDumpBytes.
func (ix *Index) SaveDump(ctx context.Context, hash, dump string) error {
	if hash == "" {
		return errors.New("dump hash is required")
	}
	now := formatTime(time.Now())
	if _, err := ix.db.ExecContext(ctx, upsertDumpSQL, hash, dump, len(dump), now, now); err != nil {
		return fmt.Errorf("upsert dump: %w", err)
	}
	if ix.MaxDumpBytes > 0 {
		return ix.EvictDumpsToFit(ctx, ix.MaxDumpBytes)
	}
	return nil
}

// LookupDump returns the cached dump for hash and marks it as used.
func (ix *Index) LookupDump(ctx context.Context, hash string) (string, bool, error) {
	var dump string
	err := ix.db.QueryRowContext(ctx, `SELECT dump FROM dumps WHERE hash=?`, hash).Scan(&dump)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query dump: %w", err)
	}
	_, _ = ix.db.ExecContext(ctx, `UPDATE dumps SET last_access=? WHERE hash=?`, formatTime(time.Now()), hash)
	return dump, true, nil
}

// EvictDumpsToFit deletes least recently used dumps until the total size is
// at most capBytes.
func (ix *Index) EvictDumpsToFit(ctx context.Context, capBytes int64) error {
	total, err := ix.DumpBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT hash, size FROM dumps ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	victims := make([]any, 0, 8)
	cur := total
	for rows.Next() && cur > capBytes {
		var hash string
		var size int64
		if err := rows.Scan(&hash, &size); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, hash)
		cur -= size
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the single connection must be free before writing
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM dumps WHERE hash IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := ix.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	ix.log.Debug("dumps evicted", "count", len(victims))
	return nil
}

// DumpBytes returns the total size of cached dumps.
func (ix *Index) DumpBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := ix.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM dumps`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum dump size: %w", err)
	}
	return total, nil
}

// MaxDumpBytesFromEnv reads KOK_DUMP_CACHE_MAX_BYTES, defaulting to 16MB.
func MaxDumpBytesFromEnv() int64 {
	v := os.Getenv(DumpCacheEnv)
	if v == "" {
		return defaultMaxDumpBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxDumpBytes
	}
	return n
}
