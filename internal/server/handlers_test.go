package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/claude/gymflow/internal/config"
	"github.com/claude/gymflow/internal/models"
	"github.com/claude/gymflow/internal/session"
)

// memStore is an in-memory session.Store so handler tests run without Postgres.
type memStore struct {
	mu       sync.Mutex
	sessions []models.IntervalSessionRow
}

func (m *memStore) InsertIntervalSession(ctx context.Context, row models.IntervalSessionRow, rounds []models.IntervalRoundRow, events []models.PhaseEventRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, row)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// testServer builds a Server backed by an in-memory store. The tick interval
// is long enough that runs do not advance on their own during a test.
func testServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := &memStore{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := session.NewManager(store, log, session.Options{TickInterval: time.Hour})
	t.Cleanup(mgr.Close)
	defaults := config.TimerDefaults{Rounds: 5, WorkSeconds: 60, RestSeconds: 30}
	return New(nil, mgr, "test-key", defaults, log), store
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	return snap
}

// TestHandleMe verifies the identity endpoint falls back to the dev user
// when no identity middleware ran.
func TestHandleMe(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/me", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
}

// TestStartRunExplicitConfig verifies POST /timer starts a run with the
// requested parameters.
func TestStartRunExplicitConfig(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 3, "work_seconds": 30, "rest_seconds": 15,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	snap := decodeSnapshot(t, rec)
	if snap.Config.Rounds != 3 || snap.Config.WorkSeconds != 30 || snap.Config.RestSeconds != 15 {
		t.Errorf("config = %+v, want 3x30/15", snap.Config)
	}
	if snap.Phase != "work" {
		t.Errorf("phase = %q, want work", snap.Phase)
	}
	if snap.Remaining != 30 {
		t.Errorf("remaining = %d, want 30", snap.Remaining)
	}
}

// TestStartRunAppliesDefaults verifies that a bare POST /timer falls back
// to the server's configured defaults.
func TestStartRunAppliesDefaults(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	snap := decodeSnapshot(t, rec)
	if snap.Config.Rounds != 5 || snap.Config.WorkSeconds != 60 || snap.Config.RestSeconds != 30 {
		t.Errorf("config = %+v, want defaults 5x60/30", snap.Config)
	}
}

// TestStartRunInvalidConfig verifies that negative parameters are rejected.
func TestStartRunInvalidConfig(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": -1, "work_seconds": 30,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestActiveRunsListsStarted verifies GET /timer returns the started runs.
func TestActiveRunsListsStarted(t *testing.T) {
	srv, _ := testServer(t)

	doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{"rounds": 2, "work_seconds": 10})
	doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{"rounds": 1, "work_seconds": 20})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/timer", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var runs []session.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("active runs = %d, want 2", len(runs))
	}
}

// TestPauseRun verifies POST /timer/{id}/pause toggles pause and returns
// the updated snapshot.
func TestPauseRun(t *testing.T) {
	srv, _ := testServer(t)

	started := decodeSnapshot(t, doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 2, "work_seconds": 10,
	}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer/"+started.ID.String()+"/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if snap := decodeSnapshot(t, rec); !snap.Paused {
		t.Error("expected run to be paused after pause request")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/timer/"+started.ID.String()+"/pause", nil)
	if snap := decodeSnapshot(t, rec); snap.Paused {
		t.Error("expected run to resume after second pause request")
	}
}

// TestStopRunPersists verifies POST /timer/{id}/stop ends the run and
// writes it to the store.
func TestStopRunPersists(t *testing.T) {
	srv, store := testServer(t)

	started := decodeSnapshot(t, doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 2, "work_seconds": 10,
	}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer/"+started.ID.String()+"/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.count() != 1 {
		t.Errorf("persisted sessions = %d, want 1", store.count())
	}

	// The run is gone afterwards.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/timer/"+started.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("snapshot after stop: status = %d, want 404", rec.Code)
	}
}

// TestDiscardRunDoesNotPersist verifies DELETE /timer/{id} drops the run
// without writing anything.
func TestDiscardRunDoesNotPersist(t *testing.T) {
	srv, store := testServer(t)

	started := decodeSnapshot(t, doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 2, "work_seconds": 10,
	}))

	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/timer/"+started.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if store.count() != 0 {
		t.Errorf("persisted sessions = %d, want 0", store.count())
	}
}

// TestSkipRun verifies POST /timer/{id}/skip advances the run to the next phase.
func TestSkipRun(t *testing.T) {
	srv, _ := testServer(t)

	started := decodeSnapshot(t, doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 2, "work_seconds": 10, "rest_seconds": 5,
	}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer/"+started.ID.String()+"/skip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if snap.Phase != "rest" {
		t.Errorf("phase after skip = %q, want rest", snap.Phase)
	}
	if snap.Remaining != 5 {
		t.Errorf("remaining = %d, want 5", snap.Remaining)
	}
}

// TestSkipToCompletePersists verifies that skipping through the final round
// ends and persists the run, same as a natural finish.
func TestSkipToCompletePersists(t *testing.T) {
	srv, store := testServer(t)

	started := decodeSnapshot(t, doJSON(t, srv, http.MethodPost, "/api/v1/timer", map[string]int{
		"rounds": 1, "work_seconds": 10,
	}))

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/timer/"+started.ID.String()+"/skip", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if snap := decodeSnapshot(t, rec); snap.Phase != "complete" {
		t.Errorf("phase = %q, want complete", snap.Phase)
	}
	if store.count() != 1 {
		t.Errorf("persisted sessions = %d, want 1", store.count())
	}
}

// TestRunInvalidID verifies a malformed run ID yields 400.
func TestRunInvalidID(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/timer/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestRunUnknownID verifies a well-formed but unknown run ID yields 404.
func TestRunUnknownID(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/timer/6a6f1f64-0000-4000-8000-000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestIngestRequiresAPIKey verifies the CLI sync endpoint rejects requests
// without the shared key.
func TestIngestRequiresAPIKey(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/ingest/runs", []any{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestParseTimeRange verifies the shared query-parameter time range parsing.
func TestParseTimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2026-03-01&end=2026-03-10", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatalf("parseTimeRange: %v", err)
	}
	if got := start.Format("2006-01-02"); got != "2026-03-01" {
		t.Errorf("start = %s, want 2026-03-01", got)
	}
	// Date-only end is inclusive: extended to the end of the day.
	if got := end.Format("2006-01-02"); got != "2026-03-11" {
		t.Errorf("end = %s, want 2026-03-11", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/?start=bogus", nil)
	if _, _, err := parseTimeRange(req); err == nil {
		t.Error("expected error for malformed start")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	start, end, err = parseTimeRange(req)
	if err != nil {
		t.Fatalf("parseTimeRange default: %v", err)
	}
	if d := end.Sub(start); d < 6*24*time.Hour || d > 8*24*time.Hour {
		t.Errorf("default range = %v, want about 7 days", d)
	}
}
