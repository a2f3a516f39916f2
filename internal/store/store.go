// Package store archives pipeline runs in SQLite so past feeds stay
// queryable after the cache snapshot has been overwritten.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/futuresdesk/newsradar/internal/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	source TEXT NOT NULL,
	event_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	impact TEXT NOT NULL,
	event_time_utc TEXT NOT NULL,
	forecast TEXT,
	previous TEXT,
	ai_bias TEXT NOT NULL,
	ai_volatility TEXT NOT NULL,
	ai_comment TEXT NOT NULL,
	ai_event_score INTEGER NOT NULL,
	ai_confidence INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
`

// Run is one archived pipeline pass.
type Run struct {
	ID         int64
	StartedAt  string
	Source     string
	EventCount int
}

// Stats summarizes the archive contents.
type Stats struct {
	Runs   int
	Events int
}

// DB wraps the SQLite archive connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the archive at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the archive connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the archive file path.
func (db *DB) Path() string {
	return db.path
}

// RecordRun stores one pipeline pass and its events in a single
// transaction. Returns the new run's ID.
func (db *DB) RecordRun(startedAt time.Time, source string, events []event.EnrichedEvent) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO runs (started_at, source, event_count) VALUES (?, ?, ?)",
		startedAt.UTC().Format(time.RFC3339), source, len(events),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO events (run_id, source_id, title, impact, event_time_utc, forecast, previous,
			ai_bias, ai_volatility, ai_comment, ai_event_score, ai_confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(
			runID, ev.ID, ev.Title, string(ev.Impact), ev.EventTimeUTC, ev.Forecast, ev.Previous,
			string(ev.AIBias), string(ev.AIVolatility), ev.AIComment, ev.AIEventScore, ev.AIConfidence, ev.CreatedAt,
		); err != nil {
			return 0, fmt.Errorf("inserting event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LastRun returns the most recent run, or nil when the archive is empty.
func (db *DB) LastRun() (*Run, error) {
	row := db.conn.QueryRow(
		"SELECT id, started_at, source, event_count FROM runs ORDER BY id DESC LIMIT 1",
	)
	var r Run
	if err := row.Scan(&r.ID, &r.StartedAt, &r.Source, &r.EventCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// RunEvents returns the archived events for a run, in insertion order.
func (db *DB) RunEvents(runID int64) ([]event.EnrichedEvent, error) {
	rows, err := db.conn.Query(
		`SELECT source_id, title, impact, event_time_utc, forecast, previous,
			ai_bias, ai_volatility, ai_comment, ai_event_score, ai_confidence, created_at
		FROM events WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []event.EnrichedEvent
	for rows.Next() {
		var ev event.EnrichedEvent
		var impact, bias, vol string
		if err := rows.Scan(
			&ev.ID, &ev.Title, &impact, &ev.EventTimeUTC, &ev.Forecast, &ev.Previous,
			&bias, &vol, &ev.AIComment, &ev.AIEventScore, &ev.AIConfidence, &ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		ev.Impact = event.Impact(impact)
		ev.AIBias = event.Bias(bias)
		ev.AIVolatility = event.Volatility(vol)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Stats reports archive totals.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&s.Runs); err != nil {
		return s, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM events").Scan(&s.Events); err != nil {
		return s, err
	}
	return s, nil
}
