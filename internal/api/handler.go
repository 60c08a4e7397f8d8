// internal/api/handler.go

// Package api HTTP интерфейс YaMDb: маршруты /api/v1, обработчики и middleware.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/MaxRadzey/api-yamdb/internal/account"
	"github.com/MaxRadzey/api-yamdb/internal/review"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// Pinger проверяет доступность базы для /healthz
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options настройки HTTP слоя
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	CORSOrigins     []string
	SignupRateLimit int
	RateLimitWindow time.Duration
}

// Handler обработчики всех ресурсов API
type Handler struct {
	users     store.UserStore
	catalog   store.CatalogStore
	reviews   *review.Engine
	accounts  *account.Service
	db        Pinger
	logger    *slog.Logger
	validator *validator.Validate
	opts      Options
}

// NewHandler создает Handler. Нулевые размеры страницы заменяются значениями по умолчанию.
func NewHandler(users store.UserStore, catalog store.CatalogStore, reviews *review.Engine, accounts *account.Service,
	db Pinger, l *slog.Logger, v *validator.Validate, opts Options) *Handler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &Handler{
		users:     users,
		catalog:   catalog,
		reviews:   reviews,
		accounts:  accounts,
		db:        db,
		logger:    l,
		validator: v,
		opts:      opts,
	}
}

// pathID читает числовой параметр маршрута. Нечисловые значения дают 404.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, r, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

// Healthz проверяет соединение с базой.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(ctx, "Health check failed", slog.String("error", err.Error()))
		h.respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusNotFound, "Not found")
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed")
}
