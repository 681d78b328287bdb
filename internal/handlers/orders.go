package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/response"
)

// OrderHandler exposes recorded orders and their issued access.
type OrderHandler struct {
	orders *services.OrderService
	grants *GrantHandler
	store  *services.GrantStore
}

func NewOrderHandler(orders *services.OrderService, store *services.GrantStore, grants *GrantHandler) *OrderHandler {
	return &OrderHandler{orders: orders, store: store, grants: grants}
}

// GET /api/admin/orders/:ref
func (h *OrderHandler) Show(c *gin.Context) {
	order, err := h.orders.GetByRef(requestContext(c), c.Param("ref"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, order)
}

// GET /api/admin/orders/:ref/access
func (h *OrderHandler) ShowAccess(c *gin.Context) {
	ctx := requestContext(c)

	order, err := h.orders.GetByRef(ctx, c.Param("ref"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	grants, err := h.store.ListByOrder(ctx, order.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"order_ref": order.Ref,
		"grants":    h.grants.decorate(ctx, grants),
	})
}
