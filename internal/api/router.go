// internal/api/router.go

package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	titlePath   = "/titles/{titleId:[0-9]+}/"
	reviewPath  = titlePath + "reviews/{reviewId:[0-9]+}/"
	commentPath = reviewPath + "comments/{commentId:[0-9]+}/"
)

// NewHTTPRouter создает и настраивает HTTP маршрутизатор YaMDb.
// Методы, не зарегистрированные для пути (в том числе PUT везде), получают 405.
func NewHTTPRouter(h *Handler) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(h.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	// Базовый префикс для всех эндпоинтов API
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.MetricsMiddleware, h.AuthMiddleware)

	// Регистрация и токены, с ограничением частоты по IP
	authRouter := api.PathPrefix("/auth").Subrouter()
	if h.opts.SignupRateLimit > 0 && h.opts.RateLimitWindow > 0 {
		authRouter.Use(httprate.Limit(h.opts.SignupRateLimit, h.opts.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				h.respondError(w, r, http.StatusTooManyRequests, "Too many requests, try again later")
			}),
		))
	}
	authRouter.HandleFunc("/signup/", h.SignUp).Methods(http.MethodPost)
	authRouter.HandleFunc("/token/", h.ObtainToken).Methods(http.MethodPost)

	// Пользователи: /users/me/ регистрируется раньше /users/{username}/
	api.HandleFunc("/users/", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/me/", h.GetMe).Methods(http.MethodGet)
	api.HandleFunc("/users/me/", h.UpdateMe).Methods(http.MethodPatch)
	api.HandleFunc("/users/me/", h.methodNotAllowed)
	api.HandleFunc("/users/{username}/", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}/", h.UpdateUser).Methods(http.MethodPatch)
	api.HandleFunc("/users/{username}/", h.DeleteUser).Methods(http.MethodDelete)

	// Категории и жанры: у детального пути есть только DELETE
	api.HandleFunc("/categories/", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories/", h.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{slug}/", h.DeleteCategory).Methods(http.MethodDelete)
	api.HandleFunc("/genres/", h.ListGenres).Methods(http.MethodGet)
	api.HandleFunc("/genres/", h.CreateGenre).Methods(http.MethodPost)
	api.HandleFunc("/genres/{slug}/", h.DeleteGenre).Methods(http.MethodDelete)

	// Произведения
	api.HandleFunc("/titles/", h.ListTitles).Methods(http.MethodGet)
	api.HandleFunc("/titles/", h.CreateTitle).Methods(http.MethodPost)
	api.HandleFunc(titlePath, h.GetTitle).Methods(http.MethodGet)
	api.HandleFunc(titlePath, h.UpdateTitle).Methods(http.MethodPatch)
	api.HandleFunc(titlePath, h.DeleteTitle).Methods(http.MethodDelete)

	// Отзывы
	api.HandleFunc(titlePath+"reviews/", h.ListReviews).Methods(http.MethodGet)
	api.HandleFunc(titlePath+"reviews/", h.CreateReview).Methods(http.MethodPost)
	api.HandleFunc(reviewPath, h.GetReview).Methods(http.MethodGet)
	api.HandleFunc(reviewPath, h.UpdateReview).Methods(http.MethodPatch)
	api.HandleFunc(reviewPath, h.DeleteReview).Methods(http.MethodDelete)

	// Комментарии
	api.HandleFunc(reviewPath+"comments/", h.ListComments).Methods(http.MethodGet)
	api.HandleFunc(reviewPath+"comments/", h.CreateComment).Methods(http.MethodPost)
	api.HandleFunc(commentPath, h.GetComment).Methods(http.MethodGet)
	api.HandleFunc(commentPath, h.UpdateComment).Methods(http.MethodPatch)
	api.HandleFunc(commentPath, h.DeleteComment).Methods(http.MethodDelete)

	var handler http.Handler = router
	handler = h.LoggingMiddleware(handler)
	handler = h.RequestIDMiddleware(handler)
	if len(h.opts.CORSOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins:   h.opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		})(handler)
	}
	return handler
}
