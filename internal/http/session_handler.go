package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
)

type SessionService interface {
	Current() domain.Identity
	SignIn(ctx context.Context, token string) (domain.Identity, error)
	SignOut(ctx context.Context) error
}

type FailureLister interface {
	List() []service.Failure
}

type SessionHandler struct {
	sessions SessionService
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionService, timeout time.Duration, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		sessions: sessions,
		timeout:  timeout,
		logger:   logger,
	}
}

type SignInRequestDTO struct {
	Token string `json:"token"`
}

type SessionDTO struct {
	UserID        string `json:"user_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

func toSessionDTO(id domain.Identity) SessionDTO {
	return SessionDTO{UserID: id.UserID, Authenticated: !id.IsAnonymous()}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

// SignIn switches the identity. Both mirrors are re-synced by the identity
// subscription before the response is written.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignInRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_token", "token is required")
		return
	}

	id, err := h.sessions.SignIn(ctx, req.Token)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSessionDTO(id))
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.sessions.SignOut(ctx); err != nil {
		// the local sign-out already happened
		h.logger.WarnContext(ctx, "session delete failed", "error", err, "request_id", getRequestID(r.Context()))
	}
	respondJSON(w, http.StatusOK, toSessionDTO(h.sessions.Current()))
}

type failureDTO struct {
	Op        string    `json:"op"`
	ProductID string    `json:"product_id,omitempty"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

func toFailureDTOs(fs []service.Failure) []failureDTO {
	out := make([]failureDTO, 0, len(fs))
	for _, f := range fs {
		dto := failureDTO{Op: f.Op, ProductID: f.ProductID, At: f.At}
		if f.Err != nil {
			dto.Error = f.Err.Error()
		}
		out = append(out, dto)
	}
	return out
}
