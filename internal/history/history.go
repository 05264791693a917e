// Package history stores interval runs recorded by the CLI timer in a local
// SQLite database and syncs them to a GymFlow server.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one locally recorded interval run.
type Run struct {
	ID          uuid.UUID `json:"id"`
	Rounds      int       `json:"rounds"`
	WorkSeconds int       `json:"work_seconds"`
	RestSeconds int       `json:"rest_seconds"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Completed   bool      `json:"completed"`
	Durations   []int     `json:"round_durations"`
	Synced      bool      `json:"-"`
}

// DB is the local run history database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite history database at dir/history.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		rounds        INTEGER NOT NULL,
		work_seconds  INTEGER NOT NULL,
		rest_seconds  INTEGER NOT NULL,
		started_at    TIMESTAMP NOT NULL,
		ended_at      TIMESTAMP NOT NULL,
		completed     INTEGER NOT NULL,
		durations     TEXT NOT NULL,
		synced        INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &DB{db: db}, nil
}

// Record stores a finished run. Durations are serialized as a JSON array so
// the table stays a single flat row per run.
func (d *DB) Record(run Run) error {
	durations, err := json.Marshal(run.Durations)
	if err != nil {
		return fmt.Errorf("marshaling durations: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT INTO runs (id, rounds, work_seconds, rest_seconds, started_at, ended_at, completed, durations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Rounds, run.WorkSeconds, run.RestSeconds,
		run.StartedAt.UTC().Format(time.RFC3339), run.EndedAt.UTC().Format(time.RFC3339),
		boolToInt(run.Completed), string(durations),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Unsynced returns runs that have not been sent to the server yet, oldest first.
func (d *DB) Unsynced() ([]Run, error) {
	rows, err := d.db.Query(
		`SELECT id, rounds, work_seconds, rest_seconds, started_at, ended_at, completed, durations, synced
		 FROM runs WHERE synced = 0 ORDER BY started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying unsynced runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Recent returns the most recent runs, newest first.
func (d *DB) Recent(limit int) ([]Run, error) {
	rows, err := d.db.Query(
		`SELECT id, rounds, work_seconds, rest_seconds, started_at, ended_at, completed, durations, synced
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// MarkSynced flags runs as sent so they are never re-synced.
func (d *DB) MarkSynced(ids []uuid.UUID) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE runs SET synced = 1 WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("marking run %s synced: %w", id, err)
		}
	}
	return tx.Commit()
}

// Close closes the history database.
func (d *DB) Close() error {
	return d.db.Close()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var idStr, startedStr, endedStr, durationsStr string
	var completed, synced int

	if err := rows.Scan(&idStr, &run.Rounds, &run.WorkSeconds, &run.RestSeconds,
		&startedStr, &endedStr, &completed, &durationsStr, &synced); err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Run{}, fmt.Errorf("parsing run ID: %w", err)
	}
	run.ID = id
	run.Completed = completed != 0
	run.Synced = synced != 0

	if run.StartedAt, err = time.Parse(time.RFC3339, startedStr); err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.EndedAt, err = time.Parse(time.RFC3339, endedStr); err != nil {
		return Run{}, fmt.Errorf("parsing ended_at: %w", err)
	}
	if err := json.Unmarshal([]byte(durationsStr), &run.Durations); err != nil {
		return Run{}, fmt.Errorf("parsing durations: %w", err)
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
