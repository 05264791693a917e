package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/gymflow/internal/interval"
	"github.com/claude/gymflow/internal/models"
	"github.com/claude/gymflow/internal/storage"
)

type templateRequest struct {
	Name     string           `json:"name"`
	Notes    string           `json:"notes"`
	Interval *interval.Config `json:"interval"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	templates, err := s.db.ListTemplates(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Interval != nil {
		if err := req.Interval.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	t := models.WorkoutTemplate{
		ID:       uuid.New(),
		UserID:   uid,
		Name:     req.Name,
		Notes:    req.Notes,
		Interval: req.Interval,
	}
	if err := s.db.InsertTemplate(r.Context(), t); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}

	t, err := s.db.GetTemplate(r.Context(), id, uid)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	groups, err := s.db.ListSetGroups(r.Context(), id, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"template":   t,
		"set_groups": groups,
	})
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Interval != nil {
		if err := req.Interval.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	t := models.WorkoutTemplate{ID: id, UserID: uid, Name: req.Name, Notes: req.Notes, Interval: req.Interval}
	if err := s.db.UpdateTemplate(r.Context(), t); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	if err := s.db.DeleteTemplate(r.Context(), id, uid); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setGroupRequest struct {
	Exercise   string   `json:"exercise"`
	Equipment  string   `json:"equipment"`
	Sets       int      `json:"sets"`
	TargetReps int      `json:"target_reps"`
	WeightKg   *float64 `json:"weight_kg"`
	TargetRIR  *float64 `json:"target_rir"`
	IsWarmup   bool     `json:"is_warmup"`
	IsAMRAP    bool     `json:"is_amrap"`
}

func (req setGroupRequest) validate() string {
	if req.Exercise == "" {
		return "exercise is required"
	}
	if req.Sets <= 0 {
		return "sets must be > 0"
	}
	if req.TargetReps <= 0 && !req.IsAMRAP {
		return "target_reps must be > 0 unless the group is AMRAP"
	}
	return ""
}

func (s *Server) handleCreateSetGroup(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	templateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	var req setGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	// The template must exist and belong to the caller.
	if _, err := s.db.GetTemplate(r.Context(), templateID, uid); err != nil {
		writeStorageError(w, err)
		return
	}

	g := models.SetGroup{
		ID:         uuid.New(),
		TemplateID: templateID,
		UserID:     uid,
		Exercise:   req.Exercise,
		Equipment:  req.Equipment,
		Sets:       req.Sets,
		TargetReps: req.TargetReps,
		WeightKg:   req.WeightKg,
		TargetRIR:  req.TargetRIR,
		IsWarmup:   req.IsWarmup,
		IsAMRAP:    req.IsAMRAP,
	}
	position, err := s.db.InsertSetGroup(r.Context(), g)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	g.Position = position
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUpdateSetGroup(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set group ID"})
		return
	}
	var req setGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	g := models.SetGroup{
		ID:         id,
		UserID:     uid,
		Exercise:   req.Exercise,
		Equipment:  req.Equipment,
		Sets:       req.Sets,
		TargetReps: req.TargetReps,
		WeightKg:   req.WeightKg,
		TargetRIR:  req.TargetRIR,
		IsWarmup:   req.IsWarmup,
		IsAMRAP:    req.IsAMRAP,
	}
	if err := s.db.UpdateSetGroup(r.Context(), g); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteSetGroup(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set group ID"})
		return
	}
	if err := s.db.DeleteSetGroup(r.Context(), id, uid); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderSetGroups(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	templateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid template ID"})
		return
	}
	var req struct {
		Order []uuid.UUID `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.Order) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order is required"})
		return
	}

	if err := s.db.ReorderSetGroups(r.Context(), templateID, uid, req.Order); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	groups, err := s.db.ListSetGroups(r.Context(), templateID, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// writeStorageError maps storage.ErrNotFound to 404, everything else to 500.
func writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
