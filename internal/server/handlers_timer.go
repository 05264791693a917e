package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/interval"
	"github.com/claude/gymflow/internal/session"
)

type startRunRequest struct {
	Rounds      int        `json:"rounds"`
	WorkSeconds int        `json:"work_seconds"`
	RestSeconds int        `json:"rest_seconds"`
	TemplateID  *uuid.UUID `json:"template_id"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	// Zero fields fall back to the server's configured defaults, so a bare
	// POST starts a sensible timer.
	cfg := interval.Config{
		Rounds:      req.Rounds,
		WorkSeconds: req.WorkSeconds,
		RestSeconds: req.RestSeconds,
	}
	if cfg.Rounds == 0 {
		cfg.Rounds = s.defaults.Rounds
	}
	if cfg.WorkSeconds == 0 {
		cfg.WorkSeconds = s.defaults.WorkSeconds
	}
	if cfg.RestSeconds == 0 && req.RestSeconds == 0 {
		cfg.RestSeconds = s.defaults.RestSeconds
	}
	if err := cfg.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	run, err := s.sessions.Start(uid, cfg, req.TemplateID)
	if err != nil {
		if errors.Is(err, session.ErrTooManyRuns) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, run.Snapshot())
}

func (s *Server) handleActiveRuns(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Active(uid))
}

// runFromRequest resolves the {id} path parameter to a live run. A nil
// result means the response has already been written.
func (s *Server) runFromRequest(w http.ResponseWriter, r *http.Request) *session.Run {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
		return nil
	}
	run, err := s.sessions.Get(id, uid)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return nil
	}
	return run
}

func (s *Server) handleRunSnapshot(w http.ResponseWriter, r *http.Request) {
	run := s.runFromRequest(w, r)
	if run == nil {
		return
	}
	writeJSON(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handlePauseRun(w http.ResponseWriter, r *http.Request) {
	run := s.runFromRequest(w, r)
	if run == nil {
		return
	}
	run.TogglePause()
	writeJSON(w, http.StatusOK, run.Snapshot())
}

func (s *Server) handleSkipRun(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
		return
	}
	snap, err := s.sessions.Skip(r.Context(), id, uid)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStopRun(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
		return
	}
	durations, err := s.sessions.Stop(r.Context(), id, uid)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":              id,
		"round_durations": durations,
	})
}

func (s *Server) handleDiscardRun(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run ID"})
		return
	}
	if err := s.sessions.Discard(id, uid); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
