package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/gymflow/internal/models"
)

// InsertIntervalSession persists a finished run with its rounds and phase
// events in one transaction. Re-inserting the same session ID is a no-op, so
// a race between the ticker goroutine and an explicit stop cannot double-write.
func (db *DB) InsertIntervalSession(ctx context.Context, row models.IntervalSessionRow, rounds []models.IntervalRoundRow, events []models.PhaseEventRow) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning session insert: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO interval_sessions (id, user_id, template_id, rounds, work_seconds, rest_seconds,
		 started_at, ended_at, completed, stop_reason, source)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.UserID, row.TemplateID, row.Rounds, row.WorkSeconds, row.RestSeconds,
		row.StartedAt, row.EndedAt, row.Completed, row.StopReason, row.Source)
	if err != nil {
		return fmt.Errorf("inserting interval session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already persisted by the other path; nothing more to do.
		return tx.Commit(ctx)
	}

	if len(rounds) > 0 {
		query := `INSERT INTO interval_rounds (session_id, round_number, work_seconds) VALUES `
		args := make([]any, 0, len(rounds)*3)
		valueStrings := make([]string, 0, len(rounds))
		for i, r := range rounds {
			base := i * 3
			valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
			args = append(args, r.SessionID, r.RoundNumber, r.WorkSeconds)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return fmt.Errorf("inserting interval rounds: %w", err)
		}
	}

	if len(events) > 0 {
		query := `INSERT INTO interval_phase_events (session_id, at, from_phase, to_phase) VALUES `
		args := make([]any, 0, len(events)*4)
		valueStrings := make([]string, 0, len(events))
		for i, e := range events {
			base := i * 4
			valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
			args = append(args, e.SessionID, e.At, e.FromPhase, e.ToPhase)
		}
		if _, err := tx.Exec(ctx, query+strings.Join(valueStrings, ","), args...); err != nil {
			return fmt.Errorf("inserting phase events: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// QueryIntervalSessions retrieves sessions in a time range, newest first.
func (db *DB) QueryIntervalSessions(ctx context.Context, start, end time.Time, userID int) ([]models.IntervalSessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, template_id, rounds, work_seconds, rest_seconds,
		 started_at, ended_at, completed, stop_reason, source
		 FROM interval_sessions
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying interval sessions: %w", err)
	}
	defer rows.Close()

	var result []models.IntervalSessionRow
	for rows.Next() {
		var s models.IntervalSessionRow
		if err := rows.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.Rounds, &s.WorkSeconds, &s.RestSeconds,
			&s.StartedAt, &s.EndedAt, &s.Completed, &s.StopReason, &s.Source); err != nil {
			return nil, fmt.Errorf("scanning interval session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SessionDetail is a session with its rounds and phase events.
type SessionDetail struct {
	models.IntervalSessionRow
	RoundsDone  []models.IntervalRoundRow `json:"rounds_done"`
	PhaseEvents []models.PhaseEventRow    `json:"phase_events"`
}

// GetIntervalSession retrieves one session with all associated data.
func (db *DB) GetIntervalSession(ctx context.Context, id uuid.UUID, userID int) (*SessionDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, template_id, rounds, work_seconds, rest_seconds,
		 started_at, ended_at, completed, stop_reason, source
		 FROM interval_sessions
		 WHERE id = $1 AND user_id = $2`,
		id, userID)

	var s models.IntervalSessionRow
	err := row.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.Rounds, &s.WorkSeconds, &s.RestSeconds,
		&s.StartedAt, &s.EndedAt, &s.Completed, &s.StopReason, &s.Source)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying interval session: %w", err)
	}

	detail := &SessionDetail{IntervalSessionRow: s}

	roundRows, err := db.Pool.Query(ctx,
		`SELECT session_id, round_number, work_seconds
		 FROM interval_rounds
		 WHERE session_id = $1
		 ORDER BY round_number ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying interval rounds: %w", err)
	}
	defer roundRows.Close()

	for roundRows.Next() {
		var r models.IntervalRoundRow
		if err := roundRows.Scan(&r.SessionID, &r.RoundNumber, &r.WorkSeconds); err != nil {
			return nil, fmt.Errorf("scanning interval round: %w", err)
		}
		detail.RoundsDone = append(detail.RoundsDone, r)
	}
	if err := roundRows.Err(); err != nil {
		return nil, err
	}

	eventRows, err := db.Pool.Query(ctx,
		`SELECT session_id, at, from_phase, to_phase
		 FROM interval_phase_events
		 WHERE session_id = $1
		 ORDER BY at ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("querying phase events: %w", err)
	}
	defer eventRows.Close()

	for eventRows.Next() {
		var e models.PhaseEventRow
		if err := eventRows.Scan(&e.SessionID, &e.At, &e.FromPhase, &e.ToPhase); err != nil {
			return nil, fmt.Errorf("scanning phase event: %w", err)
		}
		detail.PhaseEvents = append(detail.PhaseEvents, e)
	}

	return detail, eventRows.Err()
}
