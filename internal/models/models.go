// Package models holds the row types shared between storage, the HTTP API,
// and the MCP data source.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/interval"
)

// WorkoutTemplate is a named workout plan: an ordered list of set groups plus
// an optional interval block used as a conditioning finisher.
type WorkoutTemplate struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int              `json:"user_id"`
	Name      string           `json:"name"`
	Notes     string           `json:"notes,omitempty"`
	Interval  *interval.Config `json:"interval,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SetGroup is one block of strength sets within a template: an exercise with
// a set scheme. Position orders groups within the template.
type SetGroup struct {
	ID         uuid.UUID `json:"id"`
	TemplateID uuid.UUID `json:"template_id"`
	UserID     int       `json:"user_id"`
	Position   int       `json:"position"`
	Exercise   string    `json:"exercise"`
	Equipment  string    `json:"equipment,omitempty"`
	Sets       int       `json:"sets"`
	TargetReps int       `json:"target_reps"`
	WeightKg   *float64  `json:"weight_kg,omitempty"`
	TargetRIR  *float64  `json:"target_rir,omitempty"`
	IsWarmup   bool      `json:"is_warmup"`
	IsAMRAP    bool      `json:"is_amrap"`
}

// IntervalSessionRow is a finished (completed or stopped) interval run ready
// for the interval_sessions table.
type IntervalSessionRow struct {
	ID          uuid.UUID  `json:"id"`
	UserID      int        `json:"user_id"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
	Rounds      int        `json:"rounds"`
	WorkSeconds int        `json:"work_seconds"`
	RestSeconds int        `json:"rest_seconds"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     time.Time  `json:"ended_at"`
	Completed   bool       `json:"completed"`
	StopReason  string     `json:"stop_reason"` // "completed", "stopped", "evicted"
	Source      string     `json:"source"`      // "live", "cli"
}

// IntervalRoundRow is one recorded work round within a session.
type IntervalRoundRow struct {
	SessionID   uuid.UUID `json:"session_id"`
	RoundNumber int       `json:"round_number"` // 1-indexed, matches recording order
	WorkSeconds int       `json:"work_seconds"`
}

// PhaseEventRow is one phase transition captured during a session.
type PhaseEventRow struct {
	SessionID uuid.UUID `json:"session_id"`
	At        time.Time `json:"at"`
	FromPhase string    `json:"from_phase"`
	ToPhase   string    `json:"to_phase"`
}

// Recurrence values for scheduled workouts.
const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

// ScheduledWorkout is a calendar entry tying a template to a date.
type ScheduledWorkout struct {
	ID          uuid.UUID  `json:"id"`
	UserID      int        `json:"user_id"`
	TemplateID  uuid.UUID  `json:"template_id"`
	ScheduledOn time.Time  `json:"scheduled_on"`
	Recurrence  string     `json:"recurrence"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
