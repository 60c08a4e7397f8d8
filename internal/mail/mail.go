// internal/mail/mail.go

// Package mail доставляет коды подтверждения пользователям.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Message письмо с кодом подтверждения
type Message struct {
	To       string
	Username string
	Code     string
}

// Subject тема письма
func (m Message) Subject() string {
	return "YaMDb: код подтверждения"
}

// Body текст письма
func (m Message) Body() string {
	return fmt.Sprintf("Здравствуйте, %s!\r\n\r\nВаш код подтверждения: %s\r\n\r\nОтправьте его вместе с username на /api/v1/auth/token/, чтобы получить токен.\r\n",
		m.Username, m.Code)
}

// Sender отправляет код подтверждения.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender пишет письмо в лог вместо отправки (режим разработки).
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender создает LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "Confirmation code issued (log mail mode)",
		slog.String("to", msg.To),
		slog.String("username", msg.Username),
		slog.String("code", msg.Code))
	return nil
}

func buildMessage(from string, msg Message) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject() + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body())
	return b.String()
}
