// Package session runs live interval sessions server-side. Each run owns a
// goroutine ticking its controller once per second; handlers interact with
// runs through the Manager registry. Finished runs are persisted and removed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/interval"
	"github.com/claude/gymflow/internal/models"
)

// ErrNotFound is returned when a run ID is not in the registry.
var ErrNotFound = fmt.Errorf("session: run not found")

// ErrTooManyRuns is returned when starting a run would exceed the per-server cap.
var ErrTooManyRuns = fmt.Errorf("session: too many active runs")

// Store is the slice of the storage layer the manager needs to persist
// finished runs.
type Store interface {
	InsertIntervalSession(ctx context.Context, row models.IntervalSessionRow, rounds []models.IntervalRoundRow, events []models.PhaseEventRow) error
}

// Options tune the manager. Zero values fall back to defaults.
type Options struct {
	MaxActiveRuns int           // cap on concurrent live runs (default 64)
	IdleTTL       time.Duration // paused runs idle past this are evicted (default 2h)
	TickInterval  time.Duration // overridable in tests (default 1s)
}

// Manager is the registry of live runs. Runs outlive the HTTP requests that
// start them; their goroutines are bound to the manager's lifetime instead.
type Manager struct {
	store  Store
	log    *slog.Logger
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[uuid.UUID]*Run
}

// NewManager creates a Manager persisting finished runs to store.
func NewManager(store Store, log *slog.Logger, opts Options) *Manager {
	if opts.MaxActiveRuns <= 0 {
		opts.MaxActiveRuns = 64
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Hour
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:  store,
		log:    log,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[uuid.UUID]*Run),
	}
}

// Close shuts the manager down. Every in-flight run is stopped and persisted.
func (m *Manager) Close() {
	m.cancel()
}

// Start creates a run and spawns its ticker goroutine.
func (m *Manager) Start(userID int, cfg interval.Config, templateID *uuid.UUID) (*Run, error) {
	ctrl, err := interval.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	run := &Run{
		ID:         uuid.New(),
		UserID:     userID,
		TemplateID: templateID,
		StartedAt:  time.Now().UTC(),
		ctrl:       ctrl,
		lastActive: time.Now(),
		done:       make(chan struct{}),
	}
	ctrl.OnPhaseChange = run.recordEvent

	m.mu.Lock()
	if len(m.runs) >= m.opts.MaxActiveRuns {
		m.mu.Unlock()
		return nil, ErrTooManyRuns
	}
	m.runs[run.ID] = run
	m.mu.Unlock()

	go m.drive(run)

	m.log.Info("interval run started",
		"run_id", run.ID, "user_id", userID,
		"rounds", cfg.Rounds, "work_sec", cfg.WorkSeconds, "rest_sec", cfg.RestSeconds)
	return run, nil
}

// Get returns the live run with the given ID, scoped to the user.
func (m *Manager) Get(id uuid.UUID, userID int) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.UserID != userID {
		return nil, ErrNotFound
	}
	return run, nil
}

// Active returns snapshots of all live runs for a user.
func (m *Manager) Active(userID int) []Snapshot {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		if r.UserID == userID {
			runs = append(runs, r)
		}
	}
	m.mu.Unlock()

	out := make([]Snapshot, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Snapshot())
	}
	return out
}

// Skip forces the run's current phase to end. When the skip finishes the
// last round the run is persisted immediately rather than waiting on a tick.
func (m *Manager) Skip(ctx context.Context, id uuid.UUID, userID int) (Snapshot, error) {
	run, err := m.Get(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if run.Skip() {
		run.signalDone()
		m.finish(ctx, run, run.durations(), "completed")
	}
	return run.Snapshot(), nil
}

// Stop ends a run early, persists it, and returns the recorded round
// durations.
func (m *Manager) Stop(ctx context.Context, id uuid.UUID, userID int) ([]int, error) {
	run, err := m.Get(id, userID)
	if err != nil {
		return nil, err
	}
	durations := run.stop()
	run.signalDone()
	m.finish(ctx, run, durations, "stopped")
	return durations, nil
}

// Discard ends a run without persisting anything — the API's delete verb,
// matching a user backing out of a timer they never meant to start.
func (m *Manager) Discard(id uuid.UUID, userID int) error {
	run, err := m.Get(id, userID)
	if err != nil {
		return err
	}
	run.stop()
	run.signalDone()
	m.remove(run.ID)
	m.log.Info("interval run discarded", "run_id", run.ID, "user_id", userID)
	return nil
}

// drive ticks the run until it completes, is stopped, or the manager shuts
// down. This goroutine is the run's single scheduling source.
func (m *Manager) drive(run *Run) {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-run.done:
			return
		case <-m.ctx.Done():
			durations := run.stop()
			m.finish(context.Background(), run, durations, "stopped")
			return
		case now := <-ticker.C:
			if run.tick(now) {
				m.finish(context.Background(), run, run.durations(), "completed")
				return
			}
			if idle := run.idleSince(now); idle > m.opts.IdleTTL {
				durations := run.stop()
				m.log.Info("evicting idle run", "run_id", run.ID, "idle", idle.String())
				m.finish(context.Background(), run, durations, "evicted")
				return
			}
		}
	}
}

// finish persists a terminal run and removes it from the registry.
func (m *Manager) finish(ctx context.Context, run *Run, durations []int, reason string) {
	m.remove(run.ID)

	cfg := run.ctrl.Config()
	row := models.IntervalSessionRow{
		ID:          run.ID,
		UserID:      run.UserID,
		TemplateID:  run.TemplateID,
		Rounds:      cfg.Rounds,
		WorkSeconds: cfg.WorkSeconds,
		RestSeconds: cfg.RestSeconds,
		StartedAt:   run.StartedAt,
		EndedAt:     time.Now().UTC(),
		Completed:   reason == "completed",
		StopReason:  reason,
		Source:      "live",
	}
	rounds := make([]models.IntervalRoundRow, 0, len(durations))
	for i, d := range durations {
		rounds = append(rounds, models.IntervalRoundRow{
			SessionID:   run.ID,
			RoundNumber: i + 1,
			WorkSeconds: d,
		})
	}

	run.mu.Lock()
	events := run.events
	run.mu.Unlock()

	if err := m.store.InsertIntervalSession(ctx, row, rounds, events); err != nil {
		m.log.Error("persisting interval session", "run_id", run.ID, "error", err)
		return
	}
	m.log.Info("interval run finished",
		"run_id", run.ID, "reason", reason, "rounds_recorded", len(rounds))
}

func (m *Manager) remove(id uuid.UUID) {
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
}
