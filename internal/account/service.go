// internal/account/service.go

// Package account реализует регистрацию по коду подтверждения и выдачу токенов.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/mail"
	"github.com/MaxRadzey/api-yamdb/internal/store"
	"github.com/MaxRadzey/api-yamdb/pkg/auth"
)

// ReservedUsername занят под /users/me/ и не может быть зарегистрирован
const ReservedUsername = "me"

// ErrInvalidToken токен не прошел проверку или его владелец удален
var ErrInvalidToken = errors.New("invalid or expired token")

// Service выдает коды подтверждения и обменивает их на access токены.
type Service struct {
	users  store.UserStore
	sender mail.Sender
	tokens auth.TokenManager
	logger *slog.Logger
}

// NewService создает Service.
func NewService(users store.UserStore, sender mail.Sender, tokens auth.TokenManager, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		sender: sender,
		tokens: tokens,
		logger: logger,
	}
}

// SignUp регистрирует пользователя (или находит уже зарегистрированного с той же парой
// username/email) и отправляет ему новый код подтверждения.
func (s *Service) SignUp(ctx context.Context, username, email string) (*domain.User, error) {
	if strings.EqualFold(username, ReservedUsername) {
		return nil, domain.NewValidationError("username", fmt.Sprintf("username %q is reserved", ReservedUsername))
	}

	user, err := s.resolveSignUp(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code, err := auth.NewConfirmationCode()
	if err != nil {
		return nil, err
	}
	hashed, err := auth.HashCode(code)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, hashed); err != nil {
		return nil, err
	}

	msg := mail.Message{To: user.Email, Username: user.Username, Code: code}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send confirmation code",
			slog.String("username", user.Username), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to send confirmation code: %w", err)
	}

	s.logger.InfoContext(ctx, "Confirmation code issued", slog.Int64("userID", user.ID), slog.String("username", user.Username))
	return user, nil
}

// resolveSignUp сверяет пару username/email с существующими учетными записями.
func (s *Service) resolveSignUp(ctx context.Context, username, email string) (*domain.User, error) {
	byName, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}
	byEmail, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		return byName, nil
	case byEmail != nil:
		s.logger.WarnContext(ctx, "Signup rejected: email bound to another username", slog.String("username", username))
		return nil, domain.NewValidationError("email", "email is already registered to another username")
	case byName != nil:
		s.logger.WarnContext(ctx, "Signup rejected: username bound to another email", slog.String("username", username))
		return nil, domain.NewValidationError("username", "username is already registered with another email")
	}

	user := &domain.User{Username: username, Email: email, Role: domain.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			return nil, domain.NewValidationError("email", "email is already registered to another username")
		case errors.Is(err, store.ErrUserAlreadyExists):
			return nil, domain.NewValidationError("username", "username is already registered with another email")
		}
		return nil, err
	}
	return user, nil
}

// ExchangeToken проверяет код подтверждения и выдает access токен.
// Код одноразовый: после успешного обмена он сбрасывается.
func (s *Service) ExchangeToken(ctx context.Context, username, code string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if !auth.CheckCode(code, user.ConfirmationCode) {
		s.logger.WarnContext(ctx, "Invalid confirmation code", slog.String("username", username))
		return "", domain.NewValidationError("confirmation_code", "invalid confirmation code")
	}

	token, err := s.tokens.Generate(user.ID, string(user.Role))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to generate token", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, ""); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "Access token issued", slog.Int64("userID", user.ID))
	return token, nil
}

// Authenticate возвращает владельца токена. Пользователь читается из базы на каждый
// запрос, поэтому смена роли действует сразу.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}
