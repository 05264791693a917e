package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
	"github.com/claude/gymflow/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryIntervalSessions(ctx context.Context, start, end time.Time, userID int) ([]models.IntervalSessionRow, error)
	GetIntervalSession(ctx context.Context, id uuid.UUID, userID int) (*storage.SessionDetail, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	ListTemplates(ctx context.Context, userID int) ([]models.WorkoutTemplate, error)
	ListSetGroups(ctx context.Context, templateID uuid.UUID, userID int) ([]models.SetGroup, error)
	QuerySchedule(ctx context.Context, start, end time.Time, userID int) ([]models.ScheduledWorkout, error)
	UpcomingOccurrences(ctx context.Context, from, to time.Time, userID int) ([]storage.Occurrence, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
