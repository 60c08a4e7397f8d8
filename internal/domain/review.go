// internal/domain/review.go
package domain

import (
	"time"
)

const (
	MinScore = 1
	MaxScore = 10
)

// Review отзыв пользователя на произведение.
// На пару (автор, произведение) допускается не более одного отзыва.
type Review struct {
	ID        int64     `json:"id" db:"id"`
	TitleID   int64     `json:"-" db:"title_id"`
	AuthorID  int64     `json:"-" db:"author_id"`
	Author    string    `json:"author" db:"author"` // username автора
	Text      string    `json:"text" db:"text"`
	Score     int       `json:"score" db:"score"`
	CreatedAt time.Time `json:"pub_date" db:"pub_date"`
}

// Comment комментарий к отзыву
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	ReviewID  int64     `json:"-" db:"review_id"`
	AuthorID  int64     `json:"-" db:"author_id"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"pub_date" db:"pub_date"`
}

// CreateReviewRequest тело запроса на создание отзыва
type CreateReviewRequest struct {
	Text  string `json:"text" validate:"required"`
	Score *int   `json:"score" validate:"required"`
}

// UpdateReviewRequest частичное обновление отзыва
type UpdateReviewRequest struct {
	Text  *string `json:"text,omitempty" validate:"omitempty,min=1"`
	Score *int    `json:"score,omitempty"`
}

// CreateCommentRequest тело запроса на создание комментария
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// UpdateCommentRequest частичное обновление комментария
type UpdateCommentRequest struct {
	Text *string `json:"text,omitempty" validate:"omitempty,min=1"`
}

// ValidateScore проверяет, что оценка лежит в диапазоне [MinScore, MaxScore].
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return &ValidationError{Field: "score", Message: "score must be between 1 and 10"}
	}
	return nil
}
