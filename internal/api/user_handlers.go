// internal/api/user_handlers.go

package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
	"github.com/MaxRadzey/api-yamdb/internal/policy"
)

// requireAdmin отвечает 401/403, если текущий пользователь не администратор.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if err := policy.RequireAdmin(currentUser(r.Context())); err != nil {
		h.respondServiceError(w, r, err)
		return false
	}
	return true
}

// ListUsers список пользователей для администратора, ?search= по username.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	page := h.pageFromRequest(r)
	users, count, err := h.users.List(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, users))
}

// CreateUser создает пользователя от имени администратора. Код подтверждения не отправляется:
// пользователь получает его через /auth/signup/.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	var req domain.CreateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user := &domain.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      req.Role,
	}
	if err := h.users.Create(ctx, user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "User created by admin", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	h.respondJSON(w, r, http.StatusCreated, user)
}

// GetUser профиль пользователя по username.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	user, err := h.users.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// UpdateUser частичное обновление пользователя администратором, включая роль.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	user, err := h.users.GetByUsername(ctx, mux.Vars(r)["username"])
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req domain.UpdateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	h.applyUserPatch(w, r, user, req)
}

// DeleteUser удаляет пользователя вместе с его отзывами и комментариями,
// рейтинги затронутых произведений пересчитываются.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	username := mux.Vars(r)["username"]
	if err := h.reviews.DeleteUser(ctx, currentUser(ctx), username); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "User deleted by admin", slog.String("username", username))
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// GetMe профиль текущего пользователя.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// UpdateMe обновляет профиль текущего пользователя. Поле role игнорируется.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if err := policy.RequireAuthenticated(user); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	var req domain.UpdateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.Role = nil
	updated := *user
	h.applyUserPatch(w, r, &updated, req)
}

func (h *Handler) applyUserPatch(w http.ResponseWriter, r *http.Request, user *domain.User, req domain.UpdateUserRequest) {
	ctx := r.Context()
	if req.Apply(user) {
		if err := h.users.Update(ctx, user); err != nil {
			h.respondServiceError(w, r, err)
			return
		}
		h.logger.InfoContext(ctx, "User profile updated", slog.Int64("userID", user.ID))
	}
	h.respondJSON(w, r, http.StatusOK, user)
}
