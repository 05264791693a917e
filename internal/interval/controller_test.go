package interval

import (
	"reflect"
	"testing"
)

func mustNew(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	return c
}

func tickN(c *Controller, n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

// TestConfigValidate verifies the bounds on rounds, work, and rest seconds.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15}, false},
		{"zero rest ok", Config{Rounds: 1, WorkSeconds: 10, RestSeconds: 0}, false},
		{"zero rounds", Config{Rounds: 0, WorkSeconds: 30, RestSeconds: 15}, true},
		{"negative rounds", Config{Rounds: -1, WorkSeconds: 30, RestSeconds: 15}, true},
		{"zero work", Config{Rounds: 3, WorkSeconds: 0, RestSeconds: 15}, true},
		{"negative rest", Config{Rounds: 3, WorkSeconds: 30, RestSeconds: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestFullRunPhaseSequence verifies that repeated ticks walk through exactly
// rounds work phases and rounds-1 rest phases before completing.
func TestFullRunPhaseSequence(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 4, RestSeconds: 2})

	var transitions [][2]Phase
	c.OnPhaseChange = func(from, to Phase) {
		transitions = append(transitions, [2]Phase{from, to})
	}

	// 3 rounds of 4s work + 2 rests of 2s = 16 ticks to completion.
	tickN(c, 16)

	if c.Phase() != Complete {
		t.Fatalf("phase = %v, want Complete", c.Phase())
	}
	want := [][2]Phase{
		{Work, Rest}, {Rest, Work},
		{Work, Rest}, {Rest, Work},
		{Work, Complete},
	}
	if !reflect.DeepEqual(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{4, 4, 4}) {
		t.Errorf("round durations = %v, want [4 4 4]", got)
	}
}

// TestScenarioThreeRounds runs the 3×30s/15s scenario: after 30 ticks the run
// is resting in round 1 with the first duration recorded, and after 15 more
// it is working round 2.
func TestScenarioThreeRounds(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15})

	tickN(c, 30)
	if c.Phase() != Rest {
		t.Errorf("phase after 30 ticks = %v, want Rest", c.Phase())
	}
	if c.Round() != 1 {
		t.Errorf("round = %d, want 1", c.Round())
	}
	if c.Remaining() != 15 {
		t.Errorf("remaining = %d, want 15", c.Remaining())
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{30}) {
		t.Errorf("round durations = %v, want [30]", got)
	}

	tickN(c, 15)
	if c.Phase() != Work {
		t.Errorf("phase after rest = %v, want Work", c.Phase())
	}
	if c.Round() != 2 {
		t.Errorf("round = %d, want 2", c.Round())
	}
	if c.Remaining() != 30 {
		t.Errorf("remaining = %d, want 30", c.Remaining())
	}
}

// TestScenarioSingleRound verifies that a one-round run completes straight
// from work with no rest phase entered.
func TestScenarioSingleRound(t *testing.T) {
	c := mustNew(t, Config{Rounds: 1, WorkSeconds: 10, RestSeconds: 10})

	sawRest := false
	c.OnPhaseChange = func(from, to Phase) {
		if to == Rest {
			sawRest = true
		}
	}

	tickN(c, 10)
	if c.Phase() != Complete {
		t.Errorf("phase = %v, want Complete", c.Phase())
	}
	if sawRest {
		t.Error("entered Rest on the final round")
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{10}) {
		t.Errorf("round durations = %v, want [10]", got)
	}
}

// TestPauseFreezesState verifies that ticks during a pause change nothing and
// the countdown resumes exactly where it left off.
func TestPauseFreezesState(t *testing.T) {
	c := mustNew(t, Config{Rounds: 2, WorkSeconds: 30, RestSeconds: 10})

	tickN(c, 7)
	c.TogglePause()
	remaining, elapsed := c.Remaining(), c.WorkElapsed()

	tickN(c, 100)
	if c.Remaining() != remaining {
		t.Errorf("remaining changed while paused: %d -> %d", remaining, c.Remaining())
	}
	if c.WorkElapsed() != elapsed {
		t.Errorf("work elapsed changed while paused: %d -> %d", elapsed, c.WorkElapsed())
	}
	if !c.Paused() {
		t.Error("controller not paused")
	}

	c.TogglePause()
	c.Tick()
	if c.Remaining() != remaining-1 {
		t.Errorf("remaining after resume+tick = %d, want %d", c.Remaining(), remaining-1)
	}
}

// TestSkipRecordsPartialOnce verifies that skipping mid-work records the
// partial round duration exactly one time.
func TestSkipRecordsPartialOnce(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15})

	tickN(c, 5)
	c.Skip()

	if c.Phase() != Rest {
		t.Errorf("phase = %v, want Rest", c.Phase())
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("round durations = %v, want [5]", got)
	}
}

// TestDoubleSkipNoDuplicate verifies that two skips with no intervening tick
// record the first round once and drop the zero-length second round.
func TestDoubleSkipNoDuplicate(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15})

	tickN(c, 5)
	c.Skip() // -> Rest, durations [5]
	c.Skip() // -> Work round 2, no work performed yet

	if c.Phase() != Work {
		t.Errorf("phase = %v, want Work", c.Phase())
	}
	if c.Round() != 2 {
		t.Errorf("round = %d, want 2", c.Round())
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("round durations = %v, want [5]", got)
	}

	// Skipping the fresh work phase immediately records nothing for it.
	c.Skip()
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("round durations after zero-work skip = %v, want [5]", got)
	}
}

// TestSkipThroughToComplete verifies that skipping every phase ends the run.
func TestSkipThroughToComplete(t *testing.T) {
	c := mustNew(t, Config{Rounds: 2, WorkSeconds: 30, RestSeconds: 15})

	for i := 0; i < 10; i++ {
		c.Skip()
	}
	if c.Phase() != Complete {
		t.Errorf("phase = %v, want Complete", c.Phase())
	}
	if got := c.RoundDurations(); len(got) != 0 {
		t.Errorf("round durations = %v, want empty (no work performed)", got)
	}
}

// TestStopMidWorkCreditsPartial verifies that stopping during work appends
// the elapsed seconds as a partial round.
func TestStopMidWorkCreditsPartial(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15})

	tickN(c, 30) // round 1 done, resting
	tickN(c, 15) // round 2 work
	tickN(c, 12)

	got := c.Stop()
	if !reflect.DeepEqual(got, []int{30, 12}) {
		t.Errorf("Stop() = %v, want [30 12]", got)
	}
	if c.Phase() != Complete {
		t.Errorf("phase = %v, want Complete", c.Phase())
	}
}

// TestStopMidRestNoCredit verifies that stopping during rest adds nothing:
// the result is identical to the durations before the stop.
func TestStopMidRestNoCredit(t *testing.T) {
	c := mustNew(t, Config{Rounds: 3, WorkSeconds: 30, RestSeconds: 15})

	tickN(c, 30)
	tickN(c, 7) // partway through rest
	before := c.RoundDurations()

	got := c.Stop()
	if !reflect.DeepEqual(got, before) {
		t.Errorf("Stop() during rest = %v, want %v", got, before)
	}
}

// TestCompleteIsTerminal verifies that every operation on a completed
// controller is a no-op rather than an error.
func TestCompleteIsTerminal(t *testing.T) {
	c := mustNew(t, Config{Rounds: 1, WorkSeconds: 2, RestSeconds: 0})
	tickN(c, 2)
	if c.Phase() != Complete {
		t.Fatalf("phase = %v, want Complete", c.Phase())
	}

	fired := false
	c.OnPhaseChange = func(from, to Phase) { fired = true }

	c.Tick()
	c.Skip()
	c.TogglePause()
	got := c.Stop()

	if c.Paused() {
		t.Error("TogglePause() took effect after completion")
	}
	if !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Stop() after complete = %v, want [2]", got)
	}
	if fired {
		t.Error("phase change callback fired in terminal state")
	}
}

// TestZeroRestSkipsRestPhase verifies that a zero-second rest config moves
// straight from one round's work into the next.
func TestZeroRestSkipsRestPhase(t *testing.T) {
	c := mustNew(t, Config{Rounds: 2, WorkSeconds: 3, RestSeconds: 0})

	tickN(c, 3)
	if c.Phase() != Work {
		t.Errorf("phase = %v, want Work (round 2)", c.Phase())
	}
	if c.Round() != 2 {
		t.Errorf("round = %d, want 2", c.Round())
	}

	tickN(c, 3)
	if c.Phase() != Complete {
		t.Errorf("phase = %v, want Complete", c.Phase())
	}
	if got := c.RoundDurations(); !reflect.DeepEqual(got, []int{3, 3}) {
		t.Errorf("round durations = %v, want [3 3]", got)
	}
}

// TestDurationsBounded verifies the result contract: at most rounds entries,
// each positive and no larger than the configured work duration.
func TestDurationsBounded(t *testing.T) {
	cfg := Config{Rounds: 4, WorkSeconds: 6, RestSeconds: 2}
	c := mustNew(t, cfg)

	// Mix of natural timeouts and skips.
	tickN(c, 6) // round 1 full
	tickN(c, 2) // rest
	tickN(c, 3)
	c.Skip() // round 2 partial (3s)
	tickN(c, 2)
	c.Skip() // round 3 skipped with zero work, omitted from the result

	for !c.Done() {
		c.Tick()
	}

	got := c.RoundDurations()
	if len(got) > cfg.Rounds {
		t.Fatalf("len(durations) = %d, want <= %d", len(got), cfg.Rounds)
	}
	for i, d := range got {
		if d <= 0 || d > cfg.WorkSeconds {
			t.Errorf("durations[%d] = %d, want in (0, %d]", i, d, cfg.WorkSeconds)
		}
	}
}

// TestPhaseString covers the API string form of each phase.
func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Work, "work"},
		{Rest, "rest"},
		{Complete, "complete"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
