// internal/api/middleware.go

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/metrics"
)

// ContextKey используется для ключей в контексте запроса.
type ContextKey string

const (
	// UserKey ключ для текущего пользователя (*domain.User) в контексте.
	UserKey ContextKey = "user"
	// RequestIDKey ключ для идентификатора запроса в контексте.
	RequestIDKey ContextKey = "requestID"
)

const requestIDHeader = "X-Request-ID"

// currentUser возвращает пользователя из контекста или nil для анонимного запроса.
func currentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserKey).(*domain.User)
	return user
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// statusRecorder запоминает код ответа для логов и метрик.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// RequestIDMiddleware берет X-Request-ID клиента или генерирует новый UUID.
func (h *Handler) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware пишет одну строку лога на запрос.
func (h *Handler) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "HTTP request handled",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

// MetricsMiddleware считает запросы по шаблону маршрута, а не по фактическому пути.
func (h *Handler) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

// AuthMiddleware определяет пользователя по заголовку Authorization: Bearer <token>.
// Запрос без заголовка проходит анонимно, неверный токен отклоняется с 401.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Ожидаем токен в формате "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			h.logger.WarnContext(r.Context(), "Invalid Authorization header format")
			h.respondError(w, r, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		user, err := h.accounts.Authenticate(r.Context(), parts[1])
		if err != nil {
			h.logger.WarnContext(r.Context(), "Authentication failed", slog.String("error", err.Error()))
			h.respondServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		h.logger.DebugContext(ctx, "Token validated successfully", slog.Int64("userID", user.ID), slog.String("role", string(user.Role)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
