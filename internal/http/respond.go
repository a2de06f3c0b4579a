package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts synchronizer and session errors to HTTP
// status codes. The breaker check comes first because a rejected call is
// also a remote failure.
func handleServiceError(w http.ResponseWriter, err error) {
	var remote *service.RemoteError

	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusUnauthorized, "invalid_session", "session expired or unknown")
	case errors.Is(err, gateway.ErrBreakerOpen):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.As(err, &remote):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "remote store rejected the operation",
			Code:    "remote_failure",
			Details: remote.Op,
		})
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
