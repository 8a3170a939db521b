package handler

import (
	"net/http"

	"github.com/sakif/cpp-engine/internal/middleware"
)

// MetricsHandler reports process uptime and the number of requests served.
type MetricsHandler struct {
	metrics *middleware.Metrics
}

func NewMetricsHandler(m *middleware.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: m}
}

// HandleMetrics is GET /api/metrics.
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{
		"uptime_seconds": int64(h.metrics.Uptime().Seconds()),
		"requests_total": h.metrics.Requests(),
	})
}
