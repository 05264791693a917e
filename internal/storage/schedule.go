package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
)

// InsertScheduledWorkout creates a calendar entry.
func (db *DB) InsertScheduledWorkout(ctx context.Context, s models.ScheduledWorkout) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO schedule (id, user_id, template_id, scheduled_on, recurrence, notes)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.UserID, s.TemplateID, s.ScheduledOn, s.Recurrence, s.Notes)
	if err != nil {
		return fmt.Errorf("inserting scheduled workout: %w", err)
	}
	return nil
}

// UpdateScheduledWorkout updates an entry's date, recurrence, and notes.
func (db *DB) UpdateScheduledWorkout(ctx context.Context, s models.ScheduledWorkout) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE schedule SET scheduled_on = $3, recurrence = $4, notes = $5
		 WHERE id = $1 AND user_id = $2`,
		s.ID, s.UserID, s.ScheduledOn, s.Recurrence, s.Notes)
	if err != nil {
		return fmt.Errorf("updating scheduled workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteScheduledWorkout removes a calendar entry.
func (db *DB) DeleteScheduledWorkout(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM schedule WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting scheduled workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteScheduledWorkout stamps an entry as done.
func (db *DB) CompleteScheduledWorkout(ctx context.Context, id uuid.UUID, userID int, at time.Time) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE schedule SET completed_at = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, at)
	if err != nil {
		return fmt.Errorf("completing scheduled workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// QuerySchedule retrieves calendar entries whose base date falls in the range.
func (db *DB) QuerySchedule(ctx context.Context, start, end time.Time, userID int) ([]models.ScheduledWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, template_id, scheduled_on, recurrence, notes, completed_at
		 FROM schedule
		 WHERE scheduled_on >= $1 AND scheduled_on < $2 AND user_id = $3
		 ORDER BY scheduled_on ASC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule: %w", err)
	}
	defer rows.Close()

	var result []models.ScheduledWorkout
	for rows.Next() {
		var s models.ScheduledWorkout
		if err := rows.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.ScheduledOn, &s.Recurrence, &s.Notes, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning scheduled workout: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Occurrence is one concrete date an entry lands on after recurrence expansion.
type Occurrence struct {
	Entry models.ScheduledWorkout `json:"entry"`
	On    time.Time               `json:"on"`
}

// UpcomingOccurrences expands recurring entries into concrete dates within
// [from, to). Recurrence is expanded in Go rather than SQL so the rules stay
// in one testable place.
func (db *DB) UpcomingOccurrences(ctx context.Context, from, to time.Time, userID int) ([]Occurrence, error) {
	// Recurring entries created before the window still occur inside it, so
	// the base query looks back without a lower bound.
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, template_id, scheduled_on, recurrence, notes, completed_at
		 FROM schedule
		 WHERE scheduled_on < $1 AND user_id = $2 AND completed_at IS NULL
		 ORDER BY scheduled_on ASC`,
		to, userID)
	if err != nil {
		return nil, fmt.Errorf("querying schedule for expansion: %w", err)
	}
	defer rows.Close()

	var entries []models.ScheduledWorkout
	for rows.Next() {
		var s models.ScheduledWorkout
		if err := rows.Scan(&s.ID, &s.UserID, &s.TemplateID, &s.ScheduledOn, &s.Recurrence, &s.Notes, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning scheduled workout: %w", err)
		}
		entries = append(entries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ExpandOccurrences(entries, from, to), nil
}

// ExpandOccurrences turns schedule entries into concrete occurrences within
// [from, to). One-off entries contribute at most one occurrence; daily and
// weekly entries repeat from their base date.
func ExpandOccurrences(entries []models.ScheduledWorkout, from, to time.Time) []Occurrence {
	var out []Occurrence
	for _, e := range entries {
		switch e.Recurrence {
		case models.RecurrenceDaily:
			for d := nextOnOrAfter(e.ScheduledOn, from, 24*time.Hour); d.Before(to); d = d.Add(24 * time.Hour) {
				out = append(out, Occurrence{Entry: e, On: d})
			}
		case models.RecurrenceWeekly:
			for d := nextOnOrAfter(e.ScheduledOn, from, 7*24*time.Hour); d.Before(to); d = d.Add(7 * 24 * time.Hour) {
				out = append(out, Occurrence{Entry: e, On: d})
			}
		default:
			if !e.ScheduledOn.Before(from) && e.ScheduledOn.Before(to) {
				out = append(out, Occurrence{Entry: e, On: e.ScheduledOn})
			}
		}
	}
	return out
}

// nextOnOrAfter returns the first repetition of base (stepping by interval)
// that is not before from.
func nextOnOrAfter(base, from time.Time, interval time.Duration) time.Time {
	if !base.Before(from) {
		return base
	}
	steps := from.Sub(base) / interval
	next := base.Add(steps * interval)
	if next.Before(from) {
		next = next.Add(interval)
	}
	return next
}
