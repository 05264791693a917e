package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/claude/gymflow/internal/interval"
	"github.com/claude/gymflow/internal/models"
)

// ErrNotFound is returned when a requested row does not exist for the user.
var ErrNotFound = errors.New("storage: not found")

// InsertTemplate creates a workout template.
func (db *DB) InsertTemplate(ctx context.Context, t models.WorkoutTemplate) error {
	var rounds, workSec, restSec *int
	if t.Interval != nil {
		rounds, workSec, restSec = &t.Interval.Rounds, &t.Interval.WorkSeconds, &t.Interval.RestSeconds
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_templates (id, user_id, name, notes, interval_rounds, interval_work_sec, interval_rest_sec)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.UserID, t.Name, t.Notes, rounds, workSec, restSec)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// UpdateTemplate updates a template's name, notes, and interval block.
func (db *DB) UpdateTemplate(ctx context.Context, t models.WorkoutTemplate) error {
	var rounds, workSec, restSec *int
	if t.Interval != nil {
		rounds, workSec, restSec = &t.Interval.Rounds, &t.Interval.WorkSeconds, &t.Interval.RestSeconds
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE workout_templates
		 SET name = $3, notes = $4, interval_rounds = $5, interval_work_sec = $6, interval_rest_sec = $7, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		t.ID, t.UserID, t.Name, t.Notes, rounds, workSec, restSec)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template and (via FK cascade) its set groups.
func (db *DB) DeleteTemplate(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTemplate retrieves one template by ID.
func (db *DB) GetTemplate(ctx context.Context, id uuid.UUID, userID int) (*models.WorkoutTemplate, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, notes, interval_rounds, interval_work_sec, interval_rest_sec, created_at, updated_at
		 FROM workout_templates
		 WHERE id = $1 AND user_id = $2`,
		id, userID)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying template: %w", err)
	}
	return t, nil
}

// ListTemplates retrieves all templates for a user, newest first.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, notes, interval_rounds, interval_work_sec, interval_rest_sec, created_at, updated_at
		 FROM workout_templates
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func scanTemplate(row pgx.Row) (*models.WorkoutTemplate, error) {
	var t models.WorkoutTemplate
	var rounds, workSec, restSec *int
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Notes,
		&rounds, &workSec, &restSec, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if rounds != nil && workSec != nil && restSec != nil {
		t.Interval = &interval.Config{Rounds: *rounds, WorkSeconds: *workSec, RestSeconds: *restSec}
	}
	return &t, nil
}
