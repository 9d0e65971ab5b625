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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"diagramcore/internal/editor"
	applog "diagramcore/internal/log"
	"diagramcore/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// JournalDirName holds per-workspace data next to the scene files.
	JournalDirName  = ".dcr"
	JournalFileName = "journal.sqlite"

	// schemaVersion tracks the journal schema. Bump it with a migration step.
	schemaVersion = 2

	opTimeout = 5 * time.Second
)

// ErrNoHistory is returned when a scene has no recorded change.
var ErrNoHistory = errors.New("storage: no history")

// JournalPath returns the default journal location under dir.
func JournalPath(dir string) string {
	return filepath.Join(dir, JournalDirName, JournalFileName)
}

// Entry is one recorded change without its scene blob.
type Entry struct {
	ID       int64
	Session  string
	SceneID  string
	Op       editor.Op
	ShapeIDs []string
	At       time.Time
	// Size is the length of the encoded scene in bytes.
	Size int
}

// Journal appends every editor change to a SQLite table. It implements
// editor.History and is safe for concurrent use.
type Journal struct {
	db         *sql.DB
	path       string
	session    string
	maxEntries int
	log        *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenJournal creates or opens the journal at path, enables WAL mode and
// brings the schema up to date. maxEntries caps the rows kept per scene
// (0 keeps everything).
func OpenJournal(path string, maxEntries int) (*Journal, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "journal_open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create journal dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
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
	if err := ensureJournalSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure journal schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	j := &Journal{
		db:         db,
		path:       path,
		session:    uuid.NewString(),
		maxEntries: maxEntries,
		log:        applog.WithComponent("storage").With(slog.String("journal", path)),
	}
	l.Info("journal ready", slog.String("session", j.session))
	return j, nil
}

// Path is the database file.
func (j *Journal) Path() string { return j.path }

// Session identifies the process that opened the journal.
func (j *Journal) Session() string { return j.session }

// Record stores the change. Failures are logged, never returned, since the
// editor cannot act on them.
func (j *Journal) Record(ch editor.Change) {
	if ch.Scene == nil {
		return
	}
	blob, err := ch.Scene()
	if err != nil {
		j.log.Warn("encode scene failed", "op", ch.Op, "err", err)
		return
	}
	ids := make([]string, 0, len(ch.Shapes))
	for _, s := range ch.Shapes {
		ids = append(ids, s.ID)
	}
	at := ch.At
	if at.IsZero() {
		at = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := j.insert(ctx, ch.SceneID, ch.Op, ids, at, blob); err != nil {
		j.log.Error("record change failed", "op", ch.Op, "scene", ch.SceneID, "err", err)
	}
}

func (j *Journal) insert(ctx context.Context, sceneID string, op editor.Op, ids []string, at time.Time, blob []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New("journal closed")
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal shape ids: %w", err)
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history (session, scene_id, op, shape_ids, at, scene) VALUES(?, ?, ?, ?, ?, ?)`,
		j.session, sceneID, string(op), string(idsJSON), at.UTC().Format(time.RFC3339Nano), blob,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert history: %w", err)
	}
	if j.maxEntries > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM history WHERE scene_id = ? AND id NOT IN (
				SELECT id FROM history WHERE scene_id = ? ORDER BY id DESC LIMIT ?
			)`, sceneID, sceneID, j.maxEntries,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prune history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	j.log.Debug("change recorded", "op", op, "scene", sceneID, "shapes", len(ids), "bytes", len(blob))
	return nil
}

// Entries lists the newest changes first. An empty sceneID lists every
// scene; limit <= 0 lists everything.
func (j *Journal) Entries(ctx context.Context, sceneID string, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, errors.New("journal closed")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session, scene_id, op, shape_ids, at, length(scene) FROM history
		 WHERE (? = '' OR scene_id = ?) ORDER BY id DESC LIMIT ?`, sceneID, sceneID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			op, ts string
			ids    string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.SceneID, &op, &ids, &ts, &e.Size); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Op = editor.Op(op)
		if err := json.Unmarshal([]byte(ids), &e.ShapeIDs); err != nil {
			j.log.Debug("bad shape ids in journal", "id", e.ID, "err", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			j.log.Debug("bad timestamp in journal", "id", e.ID, "err", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Scene returns the encoded scene stored with entry id.
func (j *Journal) Scene(ctx context.Context, id int64) ([]byte, error) {
	return j.blob(ctx, `SELECT scene FROM history WHERE id = ?`, id)
}

// Latest returns the most recent encoded scene of sceneID.
func (j *Journal) Latest(ctx context.Context, sceneID string) ([]byte, error) {
	return j.blob(ctx, `SELECT scene FROM history WHERE scene_id = ? ORDER BY id DESC LIMIT 1`, sceneID)
}

func (j *Journal) blob(ctx context.Context, q string, arg any) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, errors.New("journal closed")
	}
	var b []byte
	err := j.db.QueryRowContext(ctx, q, arg).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return b, nil
}

// Close releases the database. Further calls are no-ops.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
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
			return fmt.Errorf("create meta/version: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh journal starts at schema 1 and migrates forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureJournalSchema(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS history (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		session   TEXT NOT NULL,
		scene_id  TEXT NOT NULL,
		op        TEXT NOT NULL,
		shape_ids TEXT NOT NULL,
		at        TEXT NOT NULL,
		scene     BLOB NOT NULL
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_history_scene ON history(scene_id, id);`,
				`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session);`,
			}
		}
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
		cur = next
	}
	return nil
}
