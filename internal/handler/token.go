package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/auth"
)

// TokenHandler exchanges the configured API key for a short-lived bearer
// token at POST /api/token. Only mounted when an API key hash is configured.
type TokenHandler struct {
	tokens     *auth.TokenService
	apiKeyHash string
	logger     *slog.Logger
}

func NewTokenHandler(tokens *auth.TokenService, apiKeyHash string, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, apiKeyHash: apiKeyHash, logger: logger}
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}

func (h *TokenHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.APIKey == "" {
		writeError(w, apperror.ValidationFailed("api_key", "api_key cannot be empty"))
		return
	}

	if err := auth.VerifyAPIKey(h.apiKeyHash, req.APIKey); err != nil {
		h.logger.Warn("API key rejected")
		writeError(w, apperror.Forbidden("invalid API key"))
		return
	}

	token, err := h.tokens.Generate("api")
	if err != nil {
		h.logger.Error("token generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresIn: int64(auth.TokenTTL.Seconds()),
	})
}
