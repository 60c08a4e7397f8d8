// internal/api/auth_handlers.go

package api

import (
	"log/slog"
	"net/http"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

// SignUp регистрирует пользователя и отправляет код подтверждения на email.
// Повторный вызов с той же парой username/email высылает новый код.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP SignUp request received", slog.String("path", r.URL.Path))

	var req domain.SignUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.SignUp(ctx, req.Username, req.Email)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, domain.SignUpResponse{Username: user.Username, Email: user.Email})
}

// ObtainToken обменивает код подтверждения на access токен.
func (h *Handler) ObtainToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP ObtainToken request received", slog.String("path", r.URL.Path))

	var req domain.TokenRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.accounts.ExchangeToken(ctx, req.Username, req.ConfirmationCode)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, domain.TokenResponse{Token: token})
}
