package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/response"
)

// PageHandler manages protected content pages.
type PageHandler struct {
	pages *services.PageService
}

func NewPageHandler(pages *services.PageService) *PageHandler {
	return &PageHandler{pages: pages}
}

// POST /api/admin/pages
func (h *PageHandler) Create(c *gin.Context) {
	var req services.CreatePageInput
	if !bindAndValidate(c, &req) {
		return
	}

	page, err := h.pages.Create(requestContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, page)
}

// GET /api/admin/pages
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.pages.List(requestContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pages)
}

// Show renders a content page. The access gate runs before this handler and
// either aborted the request or left the resolved page (and, for token
// access, the validated grant) in the request context.
//
// GET /pages/:slug
func (h *PageHandler) Show(c *gin.Context) {
	page, ok := middleware.PageFromContext(c)
	if !ok {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	grant, _ := middleware.GrantFromContext(c)

	response.Success(c, http.StatusOK, gin.H{
		"slug":  page.Slug,
		"title": page.Title,
		"body":  h.pages.Render(page, grant),
	})
}
