// internal/api/pagination.go

package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/MaxRadzey/api-yamdb/internal/store"
)

// PageResponse страница списка в формате limit/offset
type PageResponse struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// pageFromRequest читает ?limit= и ?offset=. Некорректные значения заменяются значениями по умолчанию.
func (h *Handler) pageFromRequest(r *http.Request) store.Page {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = h.opts.DefaultPageSize
	}
	if limit > h.opts.MaxPageSize {
		limit = h.opts.MaxPageSize
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return store.Page{Limit: limit, Offset: offset}
}

// newPageResponse собирает ответ со ссылками на соседние страницы.
func newPageResponse(r *http.Request, page store.Page, count int, results interface{}) PageResponse {
	resp := PageResponse{Count: count, Results: results}
	if page.Offset+page.Limit < count {
		next := pageURL(r, page.Limit, page.Offset+page.Limit)
		resp.Next = &next
	}
	if page.Offset > 0 {
		prev := page.Offset - page.Limit
		if prev < 0 {
			prev = 0
		}
		link := pageURL(r, page.Limit, prev)
		resp.Previous = &link
	}
	return resp
}

func pageURL(r *http.Request, limit, offset int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
