// Package server exposes the REST API: workout template and set group CRUD,
// live interval timer control, session history, and scheduling.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"

	"github.com/claude/gymflow/internal/config"
	"github.com/claude/gymflow/internal/session"
	"github.com/claude/gymflow/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	sessions *session.Manager
	log      *slog.Logger
	apiKey   string
	defaults config.TimerDefaults
	ts       *local.Client
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, sessions *session.Manager, apiKey string, defaults config.TimerDefaults, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		log:      log,
		apiKey:   apiKey,
		defaults: defaults,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// CLI sync endpoint (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/runs", s.handleIngestRuns)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		// Templates and set groups
		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Put("/templates/{id}", s.handleUpdateTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)
		r.Post("/templates/{id}/setgroups", s.handleCreateSetGroup)
		r.Post("/templates/{id}/setgroups/reorder", s.handleReorderSetGroups)
		r.Put("/setgroups/{id}", s.handleUpdateSetGroup)
		r.Delete("/setgroups/{id}", s.handleDeleteSetGroup)

		// Live timer
		r.Get("/timer", s.handleActiveRuns)
		r.Post("/timer", s.handleStartRun)
		r.Get("/timer/{id}", s.handleRunSnapshot)
		r.Post("/timer/{id}/pause", s.handlePauseRun)
		r.Post("/timer/{id}/skip", s.handleSkipRun)
		r.Post("/timer/{id}/stop", s.handleStopRun)
		r.Delete("/timer/{id}", s.handleDiscardRun)

		// History and summaries
		r.Get("/sessions", s.handleQuerySessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/summary", s.handleTrainingSummary)

		// Schedule
		r.Get("/schedule", s.handleQuerySchedule)
		r.Post("/schedule", s.handleCreateSchedule)
		r.Get("/schedule/upcoming", s.handleUpcoming)
		r.Put("/schedule/{id}", s.handleUpdateSchedule)
		r.Delete("/schedule/{id}", s.handleDeleteSchedule)
		r.Post("/schedule/{id}/complete", s.handleCompleteSchedule)
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
