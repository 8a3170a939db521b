package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cpp-engine/internal/repository"
)

// RunsHandler serves the run-history endpoints. History stores metadata only
// — submitted source never touches the database.
type RunsHandler struct {
	store  repository.RunRepository
	logger *slog.Logger
}

func NewRunsHandler(store repository.RunRepository, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// HandleList is GET /api/runs?limit=&offset= — newest first.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var opts repository.ListOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	runs, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("listing runs failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// HandleGetByID is GET /api/runs/{id}.
func (h *RunsHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
