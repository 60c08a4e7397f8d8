// internal/review/comments.go
package review

import (
	"context"
	"log/slog"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// CreateComment добавляет комментарий к отзыву. Количество комментариев
// одного пользователя не ограничено, рейтинг не затрагивается.
func (e *Engine) CreateComment(ctx context.Context, user *domain.User, titleID, reviewID int64, text string) (*domain.Comment, error) {
	if err := policy.Authorize(user, 0, policy.ActionCreate); err != nil {
		return nil, err
	}
	if err := validateText(text); err != nil {
		return nil, err
	}
	if _, err := e.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ReviewID: reviewID,
		AuthorID: user.ID,
		Author:   user.Username,
		Text:     text,
	}
	if err := e.reviews.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "Comment created successfully", slog.Int64("commentID", comment.ID), slog.Int64("reviewID", reviewID))
	return comment, nil
}

// UpdateComment меняет текст комментария.
func (e *Engine) UpdateComment(ctx context.Context, user *domain.User, titleID, reviewID, commentID int64, patch domain.UpdateCommentRequest) (*domain.Comment, error) {
	if err := policy.RequireAuthenticated(user); err != nil {
		return nil, err
	}
	comment, err := e.reviews.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(user, comment.AuthorID, policy.ActionUpdate); err != nil {
		return nil, err
	}
	if patch.Text != nil {
		if err := validateText(*patch.Text); err != nil {
			return nil, err
		}
		comment.Text = *patch.Text
	}
	if err := e.reviews.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "Comment updated successfully", slog.Int64("commentID", commentID))
	return comment, nil
}

// DeleteComment удаляет комментарий.
func (e *Engine) DeleteComment(ctx context.Context, user *domain.User, titleID, reviewID, commentID int64) error {
	if err := policy.RequireAuthenticated(user); err != nil {
		return err
	}
	comment, err := e.reviews.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := policy.Authorize(user, comment.AuthorID, policy.ActionDelete); err != nil {
		return err
	}
	if err := e.reviews.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "Comment deleted successfully", slog.Int64("commentID", commentID))
	return nil
}

// ListComments возвращает страницу комментариев к отзыву.
func (e *Engine) ListComments(ctx context.Context, titleID, reviewID int64, page store.Page) ([]*domain.Comment, int, error) {
	if _, err := e.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return e.reviews.ListComments(ctx, reviewID, page)
}

// GetComment возвращает комментарий по полной цепочке идентификаторов.
func (e *Engine) GetComment(ctx context.Context, titleID, reviewID, commentID int64) (*domain.Comment, error) {
	return e.reviews.GetComment(ctx, titleID, reviewID, commentID)
}
