// Package history keeps a SQLite log of sync runs and the new items each one
// produced.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapetech/m3u2strm/internal/strm"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	cause       TEXT NOT NULL,
	mode        TEXT NOT NULL,
	entries     INTEGER NOT NULL,
	new_count   INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	unchanged   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	live_removed INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS new_items (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	category TEXT NOT NULL,
	name     TEXT NOT NULL,
	season   INTEGER NOT NULL DEFAULT 0,
	episode  INTEGER NOT NULL DEFAULT 0,
	display  TEXT NOT NULL,
	path     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS new_items_run ON new_items(run_id);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);
`

// Run is one recorded pipeline run.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Trigger  string
	Mode     string
	Entries  int
	Totals   strm.Counts
	// LiveRemoved is set when the run tore down the live manifest.
	LiveRemoved bool
	Err         string
	NewItems    []strm.NewItem
}

// DB is an open history database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history DB: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (h *DB) Close() error { return h.db.Close() }

// Record stores run and its new items in one transaction.
func (h *DB) Record(ctx context.Context, run Run) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, started_at, finished_at, cause, mode, entries, new_count, updated, unchanged, failed, live_removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Started.UnixMilli(), run.Finished.UnixMilli(), run.Trigger, run.Mode, run.Entries,
		run.Totals.New, run.Totals.Updated, run.Totals.Unchanged, run.Totals.Failed, boolInt(run.LiveRemoved), run.Err)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, it := range run.NewItems {
		_, err := tx.ExecContext(ctx, `INSERT INTO new_items (run_id, category, name, season, episode, display, path)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, run.ID, it.Category, it.Name, it.Season, it.Episode, it.Display, it.Path)
		if err != nil {
			return fmt.Errorf("insert new item: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first, without their items.
func (h *DB) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `SELECT id, started_at, finished_at, cause, mode, entries,
		new_count, updated, unchanged, failed, live_removed, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var liveRemoved int
		if err := rows.Scan(&r.ID, &started, &finished, &r.Trigger, &r.Mode, &r.Entries,
			&r.Totals.New, &r.Totals.Updated, &r.Totals.Unchanged, &r.Totals.Failed, &liveRemoved, &r.Err); err != nil {
			return nil, err
		}
		r.Started = time.UnixMilli(started)
		r.Finished = time.UnixMilli(finished)
		r.LiveRemoved = liveRemoved != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Items returns the new items recorded for a run, in insertion order.
func (h *DB) Items(ctx context.Context, runID string) ([]strm.NewItem, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT category, name, season, episode, display, path
		FROM new_items WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []strm.NewItem
	for rows.Next() {
		var it strm.NewItem
		if err := rows.Scan(&it.Category, &it.Name, &it.Season, &it.Episode, &it.Display, &it.Path); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Prune deletes runs started before cutoff and returns how many were removed.
func (h *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
