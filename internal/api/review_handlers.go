// internal/api/review_handlers.go

package api

import (
	"log/slog"
	"net/http"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
)

// --- Отзывы ---

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	page := h.pageFromRequest(r)
	reviews, count, err := h.reviews.ListReviews(r.Context(), titleID, page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, reviews))
}

func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	reviewID, ok := h.pathID(w, r, "reviewId")
	if !ok {
		return
	}
	rev, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rev)
}

// CreateReview анонимный запрос получает 401 до разбора тела.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	var req domain.CreateReviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	rev, err := h.reviews.CreateReview(ctx, user, titleID, req.Text, *req.Score)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "HTTP review created", slog.Int64("reviewID", rev.ID), slog.String("request_id", requestIDFrom(ctx)))
	h.respondJSON(w, r, http.StatusCreated, rev)
}

func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	reviewID, ok := h.pathID(w, r, "reviewId")
	if !ok {
		return
	}
	var req domain.UpdateReviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	rev, err := h.reviews.UpdateReview(ctx, user, titleID, reviewID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rev)
}

func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	reviewID, ok := h.pathID(w, r, "reviewId")
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(ctx, currentUser(ctx), titleID, reviewID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// --- Комментарии ---

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	reviewID, ok := h.pathID(w, r, "reviewId")
	if !ok {
		return
	}
	page := h.pageFromRequest(r)
	comments, count, err := h.reviews.ListComments(r.Context(), titleID, reviewID, page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, comments))
}

func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, ok := h.commentPath(w, r)
	if !ok {
		return
	}
	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, comment)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	titleID, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	reviewID, ok := h.pathID(w, r, "reviewId")
	if !ok {
		return
	}
	var req domain.CreateCommentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.reviews.CreateComment(ctx, user, titleID, reviewID, req.Text)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, comment)
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	titleID, reviewID, commentID, ok := h.commentPath(w, r)
	if !ok {
		return
	}
	var req domain.UpdateCommentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.reviews.UpdateComment(ctx, user, titleID, reviewID, commentID, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleID, reviewID, commentID, ok := h.commentPath(w, r)
	if !ok {
		return
	}
	if err := h.reviews.DeleteComment(ctx, currentUser(ctx), titleID, reviewID, commentID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

func (h *Handler) commentPath(w http.ResponseWriter, r *http.Request) (titleID, reviewID, commentID int64, ok bool) {
	if titleID, ok = h.pathID(w, r, "titleId"); !ok {
		return
	}
	if reviewID, ok = h.pathID(w, r, "reviewId"); !ok {
		return
	}
	commentID, ok = h.pathID(w, r, "commentId")
	return
}
