// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yamdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "yamdb_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Отзывы и рейтинг
	ReviewMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_reviews_mutations_total",
			Help: "Total number of committed review mutations",
		},
		[]string{"op"}, // create, update, delete
	)

	RatingRecomputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yamdb_rating_recomputations_total",
			Help: "Total number of title rating recomputations",
		},
	)

	// Почта
	MailSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_mail_send_total",
			Help: "Confirmation code deliveries by result",
		},
		[]string{"result"}, // sent, failed, rejected
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yamdb_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest записывает один обработанный HTTP запрос.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest увеличивает или уменьшает счетчик активных запросов.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordReviewMutation фиксирует изменение отзыва и пересчет рейтинга.
func RecordReviewMutation(op string) {
	ReviewMutations.WithLabelValues(op).Inc()
	RatingRecomputations.Inc()
}

// RecordMailSend фиксирует результат отправки кода.
func RecordMailSend(result string) {
	MailSendTotal.WithLabelValues(result).Inc()
}
