package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
)

func (s *Server) handleQuerySessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sessions, err := s.db.QueryIntervalSessions(r.Context(), start, end, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}
	detail, err := s.db.GetIntervalSession(r.Context(), id, uid)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleTrainingSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	agg := r.URL.Query().Get("agg")
	bucket := "1 week" // default
	switch agg {
	case "daily":
		bucket = "1 day"
	case "monthly":
		bucket = "1 month"
	case "weekly", "":
		bucket = "1 week"
	}

	summary, err := s.db.GetTrainingSummary(r.Context(), start, end, bucket, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ingestRun is one CLI-recorded interval run sent by gymflow-timer -sync.
type ingestRun struct {
	ID          uuid.UUID `json:"id"`
	Rounds      int       `json:"rounds"`
	WorkSeconds int       `json:"work_seconds"`
	RestSeconds int       `json:"rest_seconds"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Completed   bool      `json:"completed"`
	Durations   []int     `json:"round_durations"`
}

// IngestResult reports what an ingest request did.
type IngestResult struct {
	RunsReceived int    `json:"runs_received"`
	RunsInserted int    `json:"runs_inserted"`
	Message      string `json:"message,omitempty"`
}

func (s *Server) handleIngestRuns(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var runs []ingestRun
	if err := json.NewDecoder(r.Body).Decode(&runs); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	result := IngestResult{RunsReceived: len(runs)}
	for _, run := range runs {
		stopReason := "stopped"
		if run.Completed {
			stopReason = "completed"
		}
		row := models.IntervalSessionRow{
			ID:          run.ID,
			UserID:      uid,
			Rounds:      run.Rounds,
			WorkSeconds: run.WorkSeconds,
			RestSeconds: run.RestSeconds,
			StartedAt:   run.StartedAt,
			EndedAt:     run.EndedAt,
			Completed:   run.Completed,
			StopReason:  stopReason,
			Source:      "cli",
		}
		rounds := make([]models.IntervalRoundRow, 0, len(run.Durations))
		for i, d := range run.Durations {
			rounds = append(rounds, models.IntervalRoundRow{
				SessionID:   run.ID,
				RoundNumber: i + 1,
				WorkSeconds: d,
			})
		}
		if err := s.db.InsertIntervalSession(r.Context(), row, rounds, nil); err != nil {
			s.log.Error("ingesting run", "run_id", run.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		result.RunsInserted++
	}

	writeJSON(w, http.StatusOK, result)
}
