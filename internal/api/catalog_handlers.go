// internal/api/catalog_handlers.go

package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MaxRadzey/api-yamdb/internal/domain"
)

// --- Категории и жанры ---
// Только создание, список и удаление по slug. Изменения и детального просмотра нет.

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page := h.pageFromRequest(r)
	items, count, err := h.catalog.ListCategories(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, items))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	h.createCatalogItem(w, r, "category", func(ctx context.Context, req domain.CatalogItemRequest) (interface{}, error) {
		c := &domain.Category{Name: req.Name, Slug: req.Slug}
		return c, h.catalog.CreateCategory(ctx, c)
	})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	h.deleteCatalogItem(w, r, "category", h.catalog.DeleteCategory)
}

func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	page := h.pageFromRequest(r)
	items, count, err := h.catalog.ListGenres(r.Context(), r.URL.Query().Get("search"), page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, items))
}

func (h *Handler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	h.createCatalogItem(w, r, "genre", func(ctx context.Context, req domain.CatalogItemRequest) (interface{}, error) {
		g := &domain.Genre{Name: req.Name, Slug: req.Slug}
		return g, h.catalog.CreateGenre(ctx, g)
	})
}

func (h *Handler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	h.deleteCatalogItem(w, r, "genre", h.catalog.DeleteGenre)
}

func (h *Handler) createCatalogItem(w http.ResponseWriter, r *http.Request, kind string,
	create func(ctx context.Context, req domain.CatalogItemRequest) (interface{}, error)) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	var req domain.CatalogItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	item, err := create(ctx, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "Catalog item created", slog.String("kind", kind), slog.String("slug", req.Slug))
	h.respondJSON(w, r, http.StatusCreated, item)
}

func (h *Handler) deleteCatalogItem(w http.ResponseWriter, r *http.Request, kind string, remove func(ctx context.Context, slug string) error) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	slug := mux.Vars(r)["slug"]
	if err := remove(ctx, slug); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "Catalog item deleted", slog.String("kind", kind), slog.String("slug", slug))
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// --- Произведения ---

// ListTitles список произведений с фильтрами ?name= ?year= ?genre= ?category=.
func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TitleFilter{
		Name:     q.Get("name"),
		Genre:    q.Get("genre"),
		Category: q.Get("category"),
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			h.respondFields(w, r, map[string][]string{"year": {"Enter a whole number."}})
			return
		}
		filter.Year = &year
	}

	page := h.pageFromRequest(r)
	titles, count, err := h.catalog.ListTitles(r.Context(), filter, page)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, newPageResponse(r, page, count, titles))
}

func (h *Handler) GetTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	title, err := h.catalog.GetTitle(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, title)
}

// CreateTitle создает произведение. Поле rating во входных данных игнорируется.
func (h *Handler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	var req domain.CreateTitleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	title, err := h.catalog.CreateTitle(ctx, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, title)
}

func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	var req domain.UpdateTitleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Genre != nil {
		for _, slug := range *req.Genre {
			if !slugPattern.MatchString(slug) {
				h.respondFields(w, r, map[string][]string{"genre": {"Enter a valid slug consisting of letters, numbers, underscores or hyphens."}})
				return
			}
		}
	}
	title, err := h.catalog.UpdateTitle(ctx, id, req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, title)
}

func (h *Handler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireAdmin(w, r) {
		return
	}
	id, ok := h.pathID(w, r, "titleId")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTitle(ctx, id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}
