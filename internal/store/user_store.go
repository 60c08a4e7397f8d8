// internal/store/user_store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

const userColumns = `id, username, email, first_name, last_name, bio, role, is_superuser, is_staff, confirmation_code, created_at`

// SQLUserStore реализует UserStore поверх sqlx (PostgreSQL или SQLite).
type SQLUserStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLUserStore создает новый экземпляр SQLUserStore.
// db *sqlx.DB должен быть уже подключен.
func NewSQLUserStore(db *sqlx.DB, logger *slog.Logger) (*SQLUserStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for SQLUserStore")
	}
	return &SQLUserStore{db: db, logger: logger}, nil
}

// Create создает нового пользователя. ID заполняется базой.
func (s *SQLUserStore) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, bio, role, is_superuser, is_staff, confirmation_code, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = time.Now().UTC()

	s.logger.DebugContext(ctx, "Executing Create user query", slog.String("username", user.Username), slog.String("email", user.Email))
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(query),
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio, user.Role,
		user.IsSuperuser, user.IsStaff, user.ConfirmationCode, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if taken := userConflict(err); taken != nil {
			s.logger.WarnContext(ctx, "User already exists (unique constraint violation in DB)",
				slog.String("username", user.Username), slog.String("email", user.Email), slog.String("error", err.Error()))
			return taken
		}
		s.logger.ErrorContext(ctx, "Failed to create user in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User created successfully in DB", slog.Int64("userID", user.ID), slog.String("username", user.Username))
	return nil
}

// GetByID находит пользователя по ID.
func (s *SQLUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getOne(ctx, "id", id)
}

// GetByUsername находит пользователя по username.
func (s *SQLUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, "username", username)
}

// GetByEmail находит пользователя по email.
func (s *SQLUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email", email)
}

func (s *SQLUserStore) getOne(ctx context.Context, column string, value any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	var user domain.User

	s.logger.DebugContext(ctx, "Executing get user query", slog.String("by", column))
	if err := s.db.GetContext(ctx, &user, s.db.Rebind(query), value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get user from DB", slog.String("by", column), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}

// List возвращает страницу пользователей, search ищет по подстроке username.
func (s *SQLUserStore) List(ctx context.Context, search string, page Page) ([]*domain.User, int, error) {
	where, args := "", []any{}
	if search != "" {
		where = ` WHERE LOWER(username) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(search))
	}

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, s.db.Rebind(`SELECT COUNT(*) FROM users`+where), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count users in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	users := []*domain.User{}
	if totalCount == 0 {
		return users, 0, nil
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.Limit, page.Offset)
	if err := s.db.SelectContext(ctx, &users, s.db.Rebind(query), args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list users from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, totalCount, nil
}

// Update сохраняет профиль пользователя целиком. Код подтверждения не трогает.
func (s *SQLUserStore) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?, role = ? WHERE id = ?`

	s.logger.DebugContext(ctx, "Executing Update user query", slog.Int64("userID", user.ID))
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio, user.Role, user.ID)
	if err != nil {
		if taken := userConflict(err); taken != nil {
			s.logger.WarnContext(ctx, "User update violates uniqueness", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
			return taken
		}
		s.logger.ErrorContext(ctx, "Failed to update user in DB", slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "User updated successfully in DB", slog.Int64("userID", user.ID))
	return nil
}

// SetConfirmationCode сохраняет хеш кода подтверждения. Пустая строка сбрасывает код.
func (s *SQLUserStore) SetConfirmationCode(ctx context.Context, userID int64, codeHash string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET confirmation_code = ? WHERE id = ?`), codeHash, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store confirmation code", slog.Int64("userID", userID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to set confirmation code: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// userConflict сопоставляет нарушение уникальности с конкретной ошибкой.
func userConflict(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "email"):
		return ErrEmailTaken
	case strings.Contains(constraint, "username"):
		return ErrUsernameTaken
	}
	return ErrUserAlreadyExists
}

// likeEscaper экранирует служебные символы LIKE, поиск идет по подстроке буквально
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
}
