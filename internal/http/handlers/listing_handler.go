// Paginated listings backing the operator dashboard tables.
//
//   - GET /posts?page=&page_size=
//   - GET /replies?page=&page_size=
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xbot/internal/domain"
	"github.com/tbourn/go-xbot/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Lister exposes the paginated read queries consumed by the listing
// endpoints.
type Lister interface {
	ListPosts(ctx context.Context, page, pageSize int) ([]domain.Post, int64, error)
	ListReplies(ctx context.Context, page, pageSize int) ([]domain.Reply, int64, error)
}

// PageResponse is the envelope for paginated collections.
type PageResponse struct {
	Items    any   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// pageParams normalizes page/page_size query values.
func pageParams(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ListPosts handles GET /posts.
func (h *Handlers) ListPosts(c *gin.Context) {
	page, pageSize := pageParams(c)
	items, total, err := h.lister.ListPosts(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list posts")
		return
	}
	ok(c, http.StatusOK, PageResponse{Items: items, Page: page, PageSize: pageSize, Total: total})
}

// ListReplies handles GET /replies.
func (h *Handlers) ListReplies(c *gin.Context) {
	page, pageSize := pageParams(c)
	items, total, err := h.lister.ListReplies(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list replies")
		return
	}
	ok(c, http.StatusOK, PageResponse{Items: items, Page: page, PageSize: pageSize, Total: total})
}
