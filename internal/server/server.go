// Package server exposes the report contract over HTTP as plain JSON.
// It serves persisted runs and can trigger a fresh aggregation; it does
// no rendering of its own.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xaenox/thread-analytics/internal/models"
	"github.com/xaenox/thread-analytics/internal/storage"
	"go.uber.org/zap"
)

// ReportRunner produces a fresh report on demand.
type ReportRunner interface {
	Run(ctx context.Context) (*models.Report, error)
}

// RunnerFunc adapts a function to the ReportRunner interface.
type RunnerFunc func(ctx context.Context) (*models.Report, error)

func (f RunnerFunc) Run(ctx context.Context) (*models.Report, error) { return f(ctx) }

type Server struct {
	store  storage.ReportStore
	runner ReportRunner
	logger *zap.Logger
}

func New(store storage.ReportStore, runner ReportRunner, logger *zap.Logger) *Server {
	return &Server{
		store:  store,
		runner: runner,
		logger: logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/latest", s.handleLatest)
		r.Get("/{id}", s.handleGetReport)
		r.Post("/run", s.handleRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.serverError(w, "failed to list report runs", err)
		return
	}
	if runs == nil {
		runs = []storage.RunInfo{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.LatestReport(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "no reports generated yet")
		return
	}
	if err != nil {
		s.serverError(w, "failed to load latest report", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.store.GetReport(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.serverError(w, "failed to load report", err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "report runner not configured")
		return
	}

	report, err := s.runner.Run(r.Context())
	if err != nil {
		s.serverError(w, "aggregation run failed", err)
		return
	}

	id, err := s.store.SaveReport(r.Context(), report)
	if err != nil {
		s.serverError(w, "failed to persist report", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"summary": report.Summary,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) serverError(w http.ResponseWriter, message string, err error) {
	s.logger.Error(message, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, message)
}
