package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
)

// InsertSetGroup appends a set group at the end of a template. The position
// is assigned inside the insert so concurrent appends never collide.
func (db *DB) InsertSetGroup(ctx context.Context, g models.SetGroup) (int, error) {
	var position int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO set_groups (id, template_id, user_id, position, exercise, equipment,
		 sets, target_reps, weight_kg, target_rir, is_warmup, is_amrap)
		 SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1, $4, $5, $6, $7, $8, $9, $10, $11
		 FROM set_groups WHERE template_id = $2
		 RETURNING position`,
		g.ID, g.TemplateID, g.UserID, g.Exercise, g.Equipment,
		g.Sets, g.TargetReps, g.WeightKg, g.TargetRIR, g.IsWarmup, g.IsAMRAP).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("inserting set group: %w", err)
	}
	return position, nil
}

// UpdateSetGroup updates a set group's exercise and scheme.
func (db *DB) UpdateSetGroup(ctx context.Context, g models.SetGroup) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE set_groups
		 SET exercise = $3, equipment = $4, sets = $5, target_reps = $6,
		     weight_kg = $7, target_rir = $8, is_warmup = $9, is_amrap = $10
		 WHERE id = $1 AND user_id = $2`,
		g.ID, g.UserID, g.Exercise, g.Equipment, g.Sets, g.TargetReps,
		g.WeightKg, g.TargetRIR, g.IsWarmup, g.IsAMRAP)
	if err != nil {
		return fmt.Errorf("updating set group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSetGroup removes a set group.
func (db *DB) DeleteSetGroup(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM set_groups WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting set group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderSetGroups rewrites the positions of a template's set groups to match
// the given ID order. IDs not belonging to the template are ignored by the
// WHERE clause; the whole rewrite happens in one transaction.
func (db *DB) ReorderSetGroups(ctx context.Context, templateID uuid.UUID, userID int, order []uuid.UUID) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, id := range order {
		if _, err := tx.Exec(ctx,
			`UPDATE set_groups SET position = $1
			 WHERE id = $2 AND template_id = $3 AND user_id = $4`,
			i+1, id, templateID, userID); err != nil {
			return fmt.Errorf("reordering set group %s: %w", id, err)
		}
	}
	return tx.Commit(ctx)
}

// ListSetGroups retrieves a template's set groups in position order.
func (db *DB) ListSetGroups(ctx context.Context, templateID uuid.UUID, userID int) ([]models.SetGroup, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, template_id, user_id, position, exercise, equipment,
		 sets, target_reps, weight_kg, target_rir, is_warmup, is_amrap
		 FROM set_groups
		 WHERE template_id = $1 AND user_id = $2
		 ORDER BY position ASC`,
		templateID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying set groups: %w", err)
	}
	defer rows.Close()

	var result []models.SetGroup
	for rows.Next() {
		var g models.SetGroup
		if err := rows.Scan(&g.ID, &g.TemplateID, &g.UserID, &g.Position, &g.Exercise, &g.Equipment,
			&g.Sets, &g.TargetReps, &g.WeightKg, &g.TargetRIR, &g.IsWarmup, &g.IsAMRAP); err != nil {
			return nil, fmt.Errorf("scanning set group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
