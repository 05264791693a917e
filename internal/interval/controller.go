// Package interval implements the round-based work/rest countdown that drives
// a conditioning block: N rounds of work, rest between rounds, no rest after
// the last one. The controller is a pure state machine — it holds no timer of
// its own and advances only when the owner calls Tick once per elapsed second.
package interval

import "fmt"

// Phase is the current stage of an interval run.
type Phase int

const (
	Work Phase = iota
	Rest
	Complete
)

// String returns the lowercase phase name used in API responses and logs.
func (p Phase) String() string {
	switch p {
	case Work:
		return "work"
	case Rest:
		return "rest"
	case Complete:
		return "complete"
	}
	return "unknown"
}

// Config describes one interval block. Immutable once a controller is started.
type Config struct {
	Rounds      int `json:"rounds" yaml:"rounds"`
	WorkSeconds int `json:"work_seconds" yaml:"work_seconds"`
	RestSeconds int `json:"rest_seconds" yaml:"rest_seconds"`
}

// Validate checks the config bounds.
func (c Config) Validate() error {
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be > 0, got %d", c.Rounds)
	}
	if c.WorkSeconds <= 0 {
		return fmt.Errorf("work_seconds must be > 0, got %d", c.WorkSeconds)
	}
	if c.RestSeconds < 0 {
		return fmt.Errorf("rest_seconds must be >= 0, got %d", c.RestSeconds)
	}
	return nil
}

// Controller owns the run state for one interval block. It is not safe for
// concurrent use; callers serialize Tick/Skip/Stop themselves (the session
// runner wraps it in a mutex, the CLI drives it from a single goroutine).
type Controller struct {
	cfg Config

	round       int // 1-indexed
	phase       Phase
	remaining   int
	paused      bool
	workElapsed int   // seconds of work in the current round
	durations   []int // recorded work seconds, one entry per finished round

	// OnPhaseChange, when set, is called after every phase transition with
	// the old and new phase. The callback runs on the ticking goroutine and
	// must not call back into the controller.
	OnPhaseChange func(from, to Phase)
}

// New creates a controller at the start of round 1's work phase.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:       cfg,
		round:     1,
		phase:     Work,
		remaining: cfg.WorkSeconds,
		durations: make([]int, 0, cfg.Rounds),
	}, nil
}

// Config returns the immutable run configuration.
func (c *Controller) Config() Config { return c.cfg }

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// Round returns the current 1-indexed round number.
func (c *Controller) Round() int { return c.round }

// Remaining returns the seconds left in the current phase.
func (c *Controller) Remaining() int { return c.remaining }

// Paused reports whether the countdown is frozen.
func (c *Controller) Paused() bool { return c.paused }

// WorkElapsed returns the seconds of work performed in the current round so far.
func (c *Controller) WorkElapsed() int { return c.workElapsed }

// RoundDurations returns a copy of the recorded per-round work seconds.
func (c *Controller) RoundDurations() []int {
	out := make([]int, len(c.durations))
	copy(out, c.durations)
	return out
}

// Tick advances the countdown by one second. It is a no-op while paused or
// after completion, so a ticker that fires late or after the run ends does
// no harm.
func (c *Controller) Tick() {
	if c.paused || c.phase == Complete {
		return
	}
	if c.phase == Work {
		c.workElapsed++
	}
	c.remaining--
	if c.remaining <= 0 {
		c.advance()
	}
}

// TogglePause flips the paused flag. Counters freeze exactly: a paused
// controller ignores Tick until resumed.
func (c *Controller) TogglePause() {
	if c.phase == Complete {
		return
	}
	c.paused = !c.paused
}

// Skip ends the current phase immediately. A work phase skipped mid-round
// records the partial duration; a work phase skipped with zero elapsed
// seconds records nothing (a round that never started is not a round).
func (c *Controller) Skip() {
	if c.phase == Complete {
		return
	}
	c.remaining = 0
	c.advance()
}

// Stop ends the run early and returns the recorded round durations. Partial
// work in the current round is credited; time spent resting is not.
func (c *Controller) Stop() []int {
	if c.phase == Work && c.workElapsed > 0 {
		c.durations = append(c.durations, c.workElapsed)
		c.workElapsed = 0
	}
	prev := c.phase
	c.phase = Complete
	c.notify(prev, Complete)
	return c.RoundDurations()
}

// Done reports whether the run has reached its terminal state.
func (c *Controller) Done() bool { return c.phase == Complete }

// advance performs one phase transition. Work → Rest (or Complete after the
// last round), Rest → next round's Work. Resetting workElapsed here, inside
// the same transition that records it, is what makes back-to-back Skip calls
// record each round at most once.
func (c *Controller) advance() {
	switch c.phase {
	case Work:
		if c.workElapsed > 0 {
			c.durations = append(c.durations, c.workElapsed)
		}
		c.workElapsed = 0
		if c.round < c.cfg.Rounds {
			c.phase = Rest
			c.remaining = c.cfg.RestSeconds
			c.notify(Work, Rest)
			// Zero-length rest configs fall straight through to the
			// next round's work phase.
			if c.remaining <= 0 {
				c.advance()
			}
		} else {
			c.phase = Complete
			c.notify(Work, Complete)
		}
	case Rest:
		c.round++
		c.phase = Work
		c.remaining = c.cfg.WorkSeconds
		c.notify(Rest, Work)
	case Complete:
		// Terminal. Repeated advance calls are harmless.
	}
}

func (c *Controller) notify(from, to Phase) {
	if c.OnPhaseChange != nil && from != to {
		c.OnPhaseChange(from, to)
	}
}
