package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cpp-engine/internal/handler"
	"github.com/sakif/cpp-engine/internal/middleware"
)

func TestHandleMetrics(t *testing.T) {
	m := middleware.NewMetrics()
	counted := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 3; i++ {
		counted.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	rr := httptest.NewRecorder()
	handler.NewMetricsHandler(m).HandleMetrics(rr, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp["requests_total"])
	assert.GreaterOrEqual(t, resp["uptime_seconds"], int64(0))
}
