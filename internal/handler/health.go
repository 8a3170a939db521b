package handler

import (
	"net/http"
)

// HealthHandler serves GET /health. The probe is live — it stats the
// compiler paths on every call, so a toolchain that disappears at runtime
// flips the status.
type HealthHandler struct {
	engine Engine
}

func NewHealthHandler(eng Engine) *HealthHandler {
	return &HealthHandler{engine: eng}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.engine.Health(r.Context())
	status := "ok"
	code := http.StatusOK
	if !health.CompilerOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"compiler_ok": health.CompilerOK,
		"compiler":    health.Compiler,
		"clang_ok":    health.ClangOK,
		"sandbox_ok":  health.SandboxOK,
	})
}
