package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/response"
)

// grantView is a grant decorated with its page and a ready-to-use access link.
type grantView struct {
	Token     string    `json:"token"`
	OrderID   string    `json:"order_id"`
	ProductID string    `json:"product_id"`
	PageID    string    `json:"page_id"`
	PageSlug  string    `json:"page_slug,omitempty"`
	PageTitle string    `json:"page_title,omitempty"`
	AccessURL string    `json:"access_url,omitempty"`
	Purchaser string    `json:"purchaser"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// GrantHandler exposes grant listings to administrators and purchasers.
type GrantHandler struct {
	store   *services.GrantStore
	pages   *services.PageService
	baseURL string
}

func NewGrantHandler(store *services.GrantStore, pages *services.PageService, baseURL string) *GrantHandler {
	return &GrantHandler{store: store, pages: pages, baseURL: baseURL}
}

// GET /api/admin/grants
func (h *GrantHandler) ListAll(c *gin.Context) {
	grants, err := h.store.ListAll(requestContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.decorate(requestContext(c), grants))
}

// GET /api/grants
func (h *GrantHandler) ListMine(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	grants, err := h.store.ListByPurchaser(requestContext(c), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.decorate(requestContext(c), grants))
}

// decorate resolves page metadata per grant. A grant whose page has vanished
// is still listed, just without slug and link.
func (h *GrantHandler) decorate(ctx context.Context, grants []models.Grant) []grantView {
	views := make([]grantView, 0, len(grants))
	for _, grant := range grants {
		view := grantView{
			Token:     grant.Token,
			OrderID:   grant.OrderID,
			ProductID: grant.ProductID,
			PageID:    grant.PageID,
			Purchaser: grant.PurchaserName(),
			Email:     grant.Email,
			CreatedAt: grant.CreatedAt,
		}
		if page, err := h.pages.GetByID(ctx, grant.PageID); err == nil {
			view.PageSlug = page.Slug
			view.PageTitle = page.Title
			view.AccessURL = services.AccessURL(h.baseURL, page.Slug, grant.Token)
		}
		views = append(views, view)
	}
	return views
}
