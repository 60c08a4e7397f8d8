// internal/policy/policy.go

// Package policy содержит единственное правило доступа к отзывам, комментариям
// и административным ресурсам.
package policy

import (
	"errors"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// Action действие над ресурсом
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

// Authorize решает, может ли requester выполнить action над ресурсом автора authorID.
// requester == nil означает анонимный запрос.
//
//   - чтение разрешено всем;
//   - создание требует аутентификации;
//   - изменение и удаление разрешены автору, модератору, администратору и суперпользователю.
func Authorize(requester *domain.User, authorID int64, action Action) error {
	if action == ActionRead {
		return nil
	}
	if requester == nil {
		return ErrUnauthenticated
	}
	if action == ActionCreate {
		return nil
	}
	if requester.ID == authorID || requester.IsModerator() {
		return nil
	}
	return ErrForbidden
}

// RequireAuthenticated пропускает любого аутентифицированного пользователя.
func RequireAuthenticated(requester *domain.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}
	return nil
}

// RequireAdmin пропускает только администраторов (role=admin, is_superuser, is_staff).
func RequireAdmin(requester *domain.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}
	if !requester.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
