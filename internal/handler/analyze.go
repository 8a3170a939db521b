package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/cpp-engine/internal/analysis"
	"github.com/sakif/cpp-engine/internal/apperror"
)

// AnalyzeHandler serves POST /api/analyze — static heuristics only, the code
// is never compiled or run.
type AnalyzeHandler struct {
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

func NewAnalyzeHandler(analyzer *analysis.Analyzer, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, logger: logger}
}

type analyzeRequest struct {
	Code string `json:"code"`
}

func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxCodeBytes*2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.Code == "" {
		writeError(w, apperror.ValidationFailed("code", "code cannot be empty"))
		return
	}
	if len(req.Code) > maxCodeBytes {
		writeError(w, apperror.ValidationFailed("code", "code exceeds the maximum size"))
		return
	}

	report := h.analyzer.Analyze(req.Code)
	h.logger.Info("analysis finished",
		slog.Int("issues", len(report.Issues)),
		slog.Duration("duration", report.Duration),
	)
	writeJSON(w, http.StatusOK, report)
}
