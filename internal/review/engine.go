// internal/review/engine.go
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/metrics"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// TitleChecker проверяет существование произведения
type TitleChecker interface {
	TitleExists(ctx context.Context, id int64) (bool, error)
}

// Engine управляет отзывами и комментариями. Любое изменение набора отзывов
// пересчитывает рейтинг произведения в той же транзакции.
type Engine struct {
	reviews store.ReviewStore
	titles  TitleChecker
	logger  *slog.Logger
}

// NewEngine создает Engine.
func NewEngine(reviews store.ReviewStore, titles TitleChecker, logger *slog.Logger) *Engine {
	return &Engine{
		reviews: reviews,
		titles:  titles,
		logger:  logger,
	}
}

// CreateReview создает отзыв пользователя на произведение.
// Повторный отзыв того же автора отклоняется уникальным индексом (store.ErrDuplicateReview).
func (e *Engine) CreateReview(ctx context.Context, user *domain.User, titleID int64, text string, score int) (*domain.Review, error) {
	if err := policy.Authorize(user, 0, policy.ActionCreate); err != nil {
		return nil, err
	}
	if err := validateText(text); err != nil {
		return nil, err
	}
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}

	review := &domain.Review{
		TitleID:  titleID,
		AuthorID: user.ID,
		Author:   user.Username,
		Text:     text,
		Score:    score,
	}
	err := e.reviews.WithTx(ctx, func(tx store.ReviewTx) error {
		if err := tx.LockTitle(ctx, titleID); err != nil {
			return err
		}
		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}
		return e.recomputeRating(ctx, tx, titleID)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to create review",
			slog.Int64("titleID", titleID), slog.Int64("userID", user.ID), slog.String("error", err.Error()))
		return nil, err
	}
	metrics.RecordReviewMutation("create")
	e.logger.InfoContext(ctx, "Review created successfully", slog.Int64("reviewID", review.ID), slog.Int64("titleID", titleID))
	return review, nil
}

// UpdateReview частично обновляет отзыв. Рейтинг пересчитывается, если изменилась оценка.
func (e *Engine) UpdateReview(ctx context.Context, user *domain.User, titleID, reviewID int64, patch domain.UpdateReviewRequest) (*domain.Review, error) {
	if err := policy.RequireAuthenticated(user); err != nil {
		return nil, err
	}

	var updated *domain.Review
	err := e.reviews.WithTx(ctx, func(tx store.ReviewTx) error {
		if err := tx.LockTitle(ctx, titleID); err != nil {
			return err
		}
		current, err := tx.GetReview(ctx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(user, current.AuthorID, policy.ActionUpdate); err != nil {
			return err
		}

		scoreChanged := false
		if patch.Text != nil {
			if err := validateText(*patch.Text); err != nil {
				return err
			}
			current.Text = *patch.Text
		}
		if patch.Score != nil {
			if err := domain.ValidateScore(*patch.Score); err != nil {
				return err
			}
			scoreChanged = *patch.Score != current.Score
			current.Score = *patch.Score
		}
		if err := tx.UpdateReview(ctx, current); err != nil {
			return err
		}
		updated = current
		if scoreChanged {
			return e.recomputeRating(ctx, tx, titleID)
		}
		return nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to update review", slog.Int64("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, err
	}
	metrics.RecordReviewMutation("update")
	e.logger.InfoContext(ctx, "Review updated successfully", slog.Int64("reviewID", reviewID), slog.Int64("titleID", titleID))
	return updated, nil
}

// DeleteReview удаляет отзыв и пересчитывает рейтинг (null, если отзывов не осталось).
func (e *Engine) DeleteReview(ctx context.Context, user *domain.User, titleID, reviewID int64) error {
	if err := policy.RequireAuthenticated(user); err != nil {
		return err
	}

	err := e.reviews.WithTx(ctx, func(tx store.ReviewTx) error {
		if err := tx.LockTitle(ctx, titleID); err != nil {
			return err
		}
		current, err := tx.GetReview(ctx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := policy.Authorize(user, current.AuthorID, policy.ActionDelete); err != nil {
			return err
		}
		if err := tx.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return e.recomputeRating(ctx, tx, titleID)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to delete review", slog.Int64("reviewID", reviewID), slog.String("error", err.Error()))
		return err
	}
	metrics.RecordReviewMutation("delete")
	e.logger.InfoContext(ctx, "Review deleted successfully", slog.Int64("reviewID", reviewID), slog.Int64("titleID", titleID))
	return nil
}

// DeleteUser удаляет учетную запись вместе с ее отзывами и комментариями
// и пересчитывает рейтинг каждого произведения, на которое она писала отзывы.
func (e *Engine) DeleteUser(ctx context.Context, requester *domain.User, username string) error {
	if err := policy.RequireAdmin(requester); err != nil {
		return err
	}

	var titleIDs []int64
	err := e.reviews.WithTx(ctx, func(tx store.ReviewTx) error {
		var err error
		if titleIDs, err = tx.DeleteUser(ctx, username); err != nil {
			return err
		}
		for _, id := range titleIDs {
			if err := e.recomputeRating(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to delete user", slog.String("username", username), slog.String("error", err.Error()))
		return err
	}
	e.logger.InfoContext(ctx, "User deleted with reviews", slog.String("username", username), slog.Int("titles_recomputed", len(titleIDs)))
	return nil
}

// ListReviews возвращает страницу отзывов произведения.
func (e *Engine) ListReviews(ctx context.Context, titleID int64, page store.Page) ([]*domain.Review, int, error) {
	if err := e.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return e.reviews.ListReviews(ctx, titleID, page)
}

// GetReview возвращает отзыв, только если он принадлежит произведению.
func (e *Engine) GetReview(ctx context.Context, titleID, reviewID int64) (*domain.Review, error) {
	return e.reviews.GetReview(ctx, titleID, reviewID)
}

func (e *Engine) recomputeRating(ctx context.Context, tx store.ReviewTx, titleID int64) error {
	scores, err := tx.TitleScores(ctx, titleID)
	if err != nil {
		return err
	}
	rating := AggregateRating(scores)
	if err := tx.SetTitleRating(ctx, titleID, rating); err != nil {
		return err
	}
	if rating != nil {
		e.logger.DebugContext(ctx, "Title rating recomputed", slog.Int64("titleID", titleID), slog.Int("rating", *rating), slog.Int("reviews", len(scores)))
	} else {
		e.logger.DebugContext(ctx, "Title rating cleared", slog.Int64("titleID", titleID))
	}
	return nil
}

func (e *Engine) requireTitle(ctx context.Context, titleID int64) error {
	exists, err := e.titles.TitleExists(ctx, titleID)
	if err != nil {
		return fmt.Errorf("failed to check title: %w", err)
	}
	if !exists {
		return store.ErrTitleNotFound
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.NewValidationError("text", "this field may not be blank")
	}
	return nil
}
