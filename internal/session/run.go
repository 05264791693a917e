package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/interval"
	"github.com/claude/gymflow/internal/models"
)

// Snapshot is the read-only view of a live run handed to API clients.
type Snapshot struct {
	ID          uuid.UUID       `json:"id"`
	Config      interval.Config `json:"config"`
	Phase       string          `json:"phase"`
	Round       int             `json:"round"`
	Remaining   int             `json:"seconds_remaining"`
	Paused      bool            `json:"paused"`
	WorkElapsed int             `json:"work_elapsed"`
	StartedAt   time.Time       `json:"started_at"`
}

// Run is one live interval session: a controller plus the ticker goroutine
// driving it. All controller access goes through mu; the controller itself
// is single-writer, so the lock restores that discipline across the ticker
// and HTTP handler goroutines.
type Run struct {
	ID         uuid.UUID
	UserID     int
	TemplateID *uuid.UUID
	StartedAt  time.Time

	mu         sync.Mutex
	ctrl       *interval.Controller
	events     []models.PhaseEventRow
	lastActive time.Time
	done       chan struct{}
	closeOnce  sync.Once
	finished   bool
}

// signalDone closes the done channel exactly once, no matter how many of
// stop/discard race to end the run.
func (r *Run) signalDone() {
	r.closeOnce.Do(func() { close(r.done) })
}

// durations returns a copy of the recorded round durations.
func (r *Run) durations() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctrl.RoundDurations()
}

// Snapshot returns the current observable state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:          r.ID,
		Config:      r.ctrl.Config(),
		Phase:       r.ctrl.Phase().String(),
		Round:       r.ctrl.Round(),
		Remaining:   r.ctrl.Remaining(),
		Paused:      r.ctrl.Paused(),
		WorkElapsed: r.ctrl.WorkElapsed(),
		StartedAt:   r.StartedAt,
	}
}

// tick advances the controller by one second. Returns true when the run has
// just reached its terminal state.
func (r *Run) tick(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	if !r.ctrl.Paused() {
		r.lastActive = now
	}
	r.ctrl.Tick()
	if r.ctrl.Done() {
		r.finished = true
		return true
	}
	return false
}

// TogglePause flips the run's paused state.
func (r *Run) TogglePause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctrl.TogglePause()
	r.lastActive = time.Now()
}

// Skip forces the current phase to end. Returns true when the skip completed
// the run.
func (r *Run) Skip() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.lastActive = time.Now()
	r.ctrl.Skip()
	if r.ctrl.Done() {
		r.finished = true
		return true
	}
	return false
}

// stop terminates the run and returns the recorded round durations. Safe to
// call more than once; later calls return the same result.
func (r *Run) stop() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	durations := r.ctrl.Stop()
	r.finished = true
	return durations
}

// idleSince reports how long the run has gone without activity while paused.
// Active (ticking) runs are never idle.
func (r *Run) idleSince(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ctrl.Paused() {
		return 0
	}
	return now.Sub(r.lastActive)
}

func (r *Run) recordEvent(from, to interval.Phase) {
	// Called from the controller callback while mu is already held by the
	// mutating operation, so no extra locking here.
	r.events = append(r.events, models.PhaseEventRow{
		SessionID: r.ID,
		At:        time.Now().UTC(),
		FromPhase: from.String(),
		ToPhase:   to.String(),
	})
}
