package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/repositories"
)

// RunsResponse lists persisted evaluation runs.
type RunsResponse struct {
	Runs []*models.EvaluationReport `json:"runs"`
}

// RunsHandler exposes persisted evaluation runs.
type RunsHandler struct {
	repo   repositories.EvaluationRunRepository
	logger *zap.Logger
}

func NewRunsHandler(repo repositories.EvaluationRunRepository, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{repo: repo, logger: logger}
}

// RegisterRoutes registers the runs routes on the given mux.
func (h *RunsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", h.List)
	mux.HandleFunc("GET /api/runs/{rid}", h.Get)
}

// List handles GET /api/runs?strategy=&limit=. Newest runs come first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := ParseLimit(w, r, h.logger)
	if !ok {
		return
	}

	var runs []*models.EvaluationReport
	var err error
	if strategy := r.URL.Query().Get("strategy"); strategy != "" {
		runs, err = h.repo.ListByStrategy(r.Context(), strategy, limit)
	} else {
		runs, err = h.repo.ListRecent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("Failed to list evaluation runs", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list evaluation runs")
		return
	}

	if err := WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs}); err != nil {
		h.logger.Error("Failed to encode runs response", zap.Error(err))
	}
}

// Get handles GET /api/runs/{rid} and includes the per-example scores.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseRunID(w, r, h.logger)
	if !ok {
		return
	}

	run, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Evaluation run not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get evaluation run", zap.String("run_id", id.String()), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "get_failed", "Failed to get evaluation run")
		return
	}

	if err := WriteJSON(w, http.StatusOK, run); err != nil {
		h.logger.Error("Failed to encode run response", zap.Error(err))
	}
}

func (h *RunsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
