package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/models"
)

type scheduleRequest struct {
	TemplateID  uuid.UUID `json:"template_id"`
	ScheduledOn time.Time `json:"scheduled_on"`
	Recurrence  string    `json:"recurrence"`
	Notes       string    `json:"notes"`
}

func validRecurrence(r string) bool {
	switch r {
	case models.RecurrenceNone, models.RecurrenceDaily, models.RecurrenceWeekly:
		return true
	}
	return false
}

func (s *Server) handleQuerySchedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	entries, err := s.db.QuerySchedule(r.Context(), start, end, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	// Default window: the next 14 days.
	from := time.Now()
	to := from.AddDate(0, 0, 14)
	if v := r.URL.Query().Get("days"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 && days <= 365 {
			to = from.AddDate(0, 0, days)
		}
	}

	occurrences, err := s.db.UpcomingOccurrences(r.Context(), from, to, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, occurrences)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.TemplateID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "template_id is required"})
		return
	}
	if req.ScheduledOn.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scheduled_on is required"})
		return
	}
	if req.Recurrence == "" {
		req.Recurrence = models.RecurrenceNone
	}
	if !validRecurrence(req.Recurrence) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence must be none, daily, or weekly"})
		return
	}

	// The template must exist and belong to the caller.
	if _, err := s.db.GetTemplate(r.Context(), req.TemplateID, uid); err != nil {
		writeStorageError(w, err)
		return
	}

	entry := models.ScheduledWorkout{
		ID:          uuid.New(),
		UserID:      uid,
		TemplateID:  req.TemplateID,
		ScheduledOn: req.ScheduledOn,
		Recurrence:  req.Recurrence,
		Notes:       req.Notes,
	}
	if err := s.db.InsertScheduledWorkout(r.Context(), entry); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid schedule ID"})
		return
	}
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Recurrence == "" {
		req.Recurrence = models.RecurrenceNone
	}
	if !validRecurrence(req.Recurrence) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recurrence must be none, daily, or weekly"})
		return
	}

	entry := models.ScheduledWorkout{
		ID:          id,
		UserID:      uid,
		ScheduledOn: req.ScheduledOn,
		Recurrence:  req.Recurrence,
		Notes:       req.Notes,
	}
	if err := s.db.UpdateScheduledWorkout(r.Context(), entry); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid schedule ID"})
		return
	}
	if err := s.db.DeleteScheduledWorkout(r.Context(), id, uid); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSchedule(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid schedule ID"})
		return
	}
	if err := s.db.CompleteScheduledWorkout(r.Context(), id, uid, time.Now().UTC()); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
