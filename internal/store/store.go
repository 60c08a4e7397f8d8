// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

// Кастомные ошибки
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUsernameTaken     = fmt.Errorf("%w: username is already taken", ErrUserAlreadyExists)
	ErrEmailTaken        = fmt.Errorf("%w: email is already registered", ErrUserAlreadyExists)

	ErrCategoryNotFound = errors.New("category not found")
	ErrGenreNotFound    = errors.New("genre not found")
	ErrSlugTaken        = errors.New("slug is already taken")
	ErrNameTaken        = errors.New("name is already taken")
	ErrTitleNotFound    = errors.New("title not found")

	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("user has already reviewed this title")
	ErrCommentNotFound = errors.New("comment not found")
)

// Page параметры limit/offset пагинации
type Page struct {
	Limit  int
	Offset int
}

// UserStore определяет интерфейс для операций с учетными записями.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, search string, page Page) ([]*domain.User, int, error)
	Update(ctx context.Context, user *domain.User) error
	SetConfirmationCode(ctx context.Context, userID int64, codeHash string) error
}

// CatalogStore определяет интерфейс для категорий, жанров и произведений.
type CatalogStore interface {
	CreateCategory(ctx context.Context, category *domain.Category) error
	ListCategories(ctx context.Context, search string, page Page) ([]*domain.Category, int, error)
	DeleteCategory(ctx context.Context, slug string) error

	CreateGenre(ctx context.Context, genre *domain.Genre) error
	ListGenres(ctx context.Context, search string, page Page) ([]*domain.Genre, int, error)
	DeleteGenre(ctx context.Context, slug string) error

	CreateTitle(ctx context.Context, req domain.CreateTitleRequest) (*domain.Title, error)
	GetTitle(ctx context.Context, id int64) (*domain.Title, error)
	ListTitles(ctx context.Context, filter domain.TitleFilter, page Page) ([]*domain.Title, int, error)
	UpdateTitle(ctx context.Context, id int64, req domain.UpdateTitleRequest) (*domain.Title, error)
	DeleteTitle(ctx context.Context, id int64) error
	TitleExists(ctx context.Context, id int64) (bool, error)
}

// ReviewStore определяет интерфейс для отзывов и комментариев.
// Все изменения отзывов выполняются через WithTx, чтобы пересчет рейтинга
// происходил в той же транзакции.
type ReviewStore interface {
	GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error)
	ListReviews(ctx context.Context, titleID int64, page Page) ([]*domain.Review, int, error)
	WithTx(ctx context.Context, fn func(tx ReviewTx) error) error

	GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error)
	ListComments(ctx context.Context, reviewID int64, page Page) ([]*domain.Comment, int, error)
	CreateComment(ctx context.Context, comment *domain.Comment) error
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, commentID int64) error
}

// ReviewTx операции над отзывами внутри одной транзакции.
type ReviewTx interface {
	// LockTitle блокирует строку произведения до конца транзакции.
	LockTitle(ctx context.Context, titleID int64) error
	GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error)
	InsertReview(ctx context.Context, review *domain.Review) error
	UpdateReview(ctx context.Context, review *domain.Review) error
	DeleteReview(ctx context.Context, reviewID int64) error
	TitleScores(ctx context.Context, titleID int64) ([]int, error)
	SetTitleRating(ctx context.Context, titleID int64, rating *int) error
	// DeleteUser удаляет пользователя (отзывы и комментарии уходят каскадом)
	// и возвращает произведения, рейтинг которых нужно пересчитать.
	DeleteUser(ctx context.Context, username string) ([]int64, error)
}
