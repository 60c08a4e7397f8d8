// internal/api/respond.go

package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/MaxRadzey/api-yamdb/internal/account"
	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/mail"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// errorResponse тело ответа с ошибкой
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// --- Вспомогательные функции ---
func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, errorResponse{Error: message})
}

func (h *Handler) respondFields(w http.ResponseWriter, r *http.Request, fields map[string][]string) {
	h.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "Validation failed", Fields: fields})
}

// decodeAndValidate читает JSON тело в dst и проверяет теги validate.
// При ошибке ответ уже отправлен и возвращается false.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	ctx := r.Context()
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, r, http.StatusBadRequest, "Request body is empty")
			return false
		}
		h.logger.WarnContext(ctx, "Failed to decode request body", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	if err := h.validator.StructCtx(ctx, dst); err != nil {
		h.logger.WarnContext(ctx, "Request validation failed", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			h.respondFields(w, r, fieldErrors(vErrs))
		} else {
			h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		}
		return false
	}
	return true
}

// respondServiceError переводит ошибки нижних слоев в HTTP статус.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.respondFields(w, r, map[string][]string{vErr.Field: {vErr.Message}})
	case errors.Is(err, policy.ErrUnauthenticated):
		h.respondError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, policy.ErrForbidden):
		h.respondError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrInvalidToken):
		h.respondError(w, r, http.StatusUnauthorized, "Invalid or expired token")

	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrTitleNotFound),
		errors.Is(err, store.ErrReviewNotFound),
		errors.Is(err, store.ErrCommentNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrGenreNotFound):
		h.respondError(w, r, http.StatusNotFound, err.Error())

	case errors.Is(err, store.ErrDuplicateReview):
		h.respondFields(w, r, map[string][]string{"non_field_errors": {err.Error()}})
	case errors.Is(err, store.ErrEmailTaken):
		h.respondFields(w, r, map[string][]string{"email": {"email is already registered"}})
	case errors.Is(err, store.ErrUsernameTaken), errors.Is(err, store.ErrUserAlreadyExists):
		h.respondFields(w, r, map[string][]string{"username": {"username is already taken"}})
	case errors.Is(err, store.ErrSlugTaken):
		h.respondFields(w, r, map[string][]string{"slug": {err.Error()}})
	case errors.Is(err, store.ErrNameTaken):
		h.respondFields(w, r, map[string][]string{"name": {err.Error()}})

	case errors.Is(err, mail.ErrMailUnavailable):
		h.respondError(w, r, http.StatusServiceUnavailable, "Confirmation code cannot be delivered right now, try again later")
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled service error",
			slog.String("error", err.Error()), slog.String("path", r.URL.Path), slog.String("request_id", requestIDFrom(r.Context())))
		h.respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
