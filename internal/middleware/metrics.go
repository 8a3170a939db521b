package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics counts requests for the operational metrics endpoint. One
// instance lives for the process lifetime.
type Metrics struct {
	started  time.Time
	requests atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

// Handler counts every request that reaches the router.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

func (m *Metrics) Requests() int64 {
	return m.requests.Load()
}
