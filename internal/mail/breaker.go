// internal/mail/breaker.go

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/MaxRadzey/api-yamdb/internal/metrics"
)

// ErrMailUnavailable почтовый сервер недоступен, circuit breaker разомкнут
var ErrMailUnavailable = errors.New("mail delivery temporarily unavailable")

// BreakerSender оборачивает Sender в circuit breaker, чтобы лежащий SMTP
// не подвешивал каждую регистрацию на время таймаута.
type BreakerSender struct {
	next   Sender
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

// NewBreakerSender создает BreakerSender.
// Цепь размыкается после 5 подряд неудачных отправок и пробует снова через timeout.
func NewBreakerSender(next Sender, timeout time.Duration, logger *slog.Logger) *BreakerSender {
	const name = "smtp"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerSender{next: next, cb: cb, logger: logger}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Send(ctx, msg)
	})
	switch {
	case err == nil:
		metrics.RecordMailSend("sent")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordMailSend("rejected")
		s.logger.WarnContext(ctx, "Mail delivery rejected by circuit breaker", slog.String("to", msg.To))
		return fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	default:
		metrics.RecordMailSend("failed")
		return err
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
