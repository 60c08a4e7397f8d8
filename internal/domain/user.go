// internal/domain/user.go
package domain

import (
	"time"
)

// Role определяет уровень доступа пользователя
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// User представляет учетную запись пользователя
type User struct {
	ID               int64     `json:"-" db:"id"`
	Username         string    `json:"username" db:"username"`
	Email            string    `json:"email" db:"email"`
	FirstName        string    `json:"first_name" db:"first_name"`
	LastName         string    `json:"last_name" db:"last_name"`
	Bio              string    `json:"bio" db:"bio"`
	Role             Role      `json:"role" db:"role"`
	IsSuperuser      bool      `json:"-" db:"is_superuser"`
	IsStaff          bool      `json:"-" db:"is_staff"`
	ConfirmationCode string    `json:"-" db:"confirmation_code"` // bcrypt хеш, не сам код
	CreatedAt        time.Time `json:"-" db:"created_at"`
}

// IsAdmin возвращает true для администратора, суперпользователя или staff.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.IsSuperuser || u.IsStaff)
}

// IsModerator возвращает true для модератора и всех, у кого есть права администратора.
func (u *User) IsModerator() bool {
	return u != nil && (u.Role == RoleModerator || u.IsAdmin())
}

// SignUpRequest для регистрации и повторной отправки кода (HTTP)
type SignUpRequest struct {
	Username string `json:"username" validate:"required,max=150,username,notme"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

// SignUpResponse возвращается при успешной регистрации
type SignUpResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest для обмена кода подтверждения на токен (HTTP)
type TokenRequest struct {
	Username         string `json:"username" validate:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// TokenResponse ответ с access токеном
type TokenResponse struct {
	Token string `json:"token"`
}

// CreateUserRequest для создания пользователя администратором (HTTP)
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,max=150,username,notme"`
	Email     string `json:"email" validate:"required,max=254,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Bio       string `json:"bio"`
	Role      Role   `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// UpdateUserRequest для частичного обновления пользователя (HTTP)
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,max=150,username,notme"`
	Email     *string `json:"email,omitempty" validate:"omitempty,max=254,email"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
	Bio       *string `json:"bio,omitempty"`
	Role      *Role   `json:"role,omitempty" validate:"omitempty,oneof=user moderator admin"`
}

// Apply переносит переданные поля в пользователя. Возвращает true, если что-то изменилось.
func (r UpdateUserRequest) Apply(u *User) bool {
	changed := false
	if r.Username != nil {
		u.Username = *r.Username
		changed = true
	}
	if r.Email != nil {
		u.Email = *r.Email
		changed = true
	}
	if r.FirstName != nil {
		u.FirstName = *r.FirstName
		changed = true
	}
	if r.LastName != nil {
		u.LastName = *r.LastName
		changed = true
	}
	if r.Bio != nil {
		u.Bio = *r.Bio
		changed = true
	}
	if r.Role != nil {
		u.Role = *r.Role
		changed = true
	}
	return changed
}
