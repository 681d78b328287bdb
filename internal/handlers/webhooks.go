package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/logger"
	"github.com/pagepass/pagepass/pkg/response"
)

// WebhookSecretHeader carries the shared secret the commerce platform signs
// its callbacks with.
const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives commerce platform callbacks: recorded orders and
// the two purchase lifecycle events that trigger grant issuance.
type WebhookHandler struct {
	orders *services.OrderService
	issuer *services.IssuerService
	secret string
	log    *zap.Logger
}

func NewWebhookHandler(orders *services.OrderService, issuer *services.IssuerService, secret string) *WebhookHandler {
	return &WebhookHandler{
		orders: orders,
		issuer: issuer,
		secret: secret,
		log:    logger.WithModule("webhooks"),
	}
}

// Authorize verifies the shared webhook secret before any callback runs.
func (h *WebhookHandler) Authorize(c *gin.Context) {
	presented := c.GetHeader(WebhookSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(h.secret)) != 1 {
		response.Error(c, errors.ErrUnauthorized)
		c.Abort()
		return
	}
	c.Next()
}

// POST /api/webhooks/orders
func (h *WebhookHandler) RecordOrder(c *gin.Context) {
	var req services.RecordOrderInput
	if !bindAndValidate(c, &req) {
		return
	}

	order, err := h.orders.Record(requestContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, order)
}

type lifecycleEvent struct {
	OrderRef string `json:"order_ref" validate:"required"`
}

// POST /api/webhooks/payment-completed
func (h *WebhookHandler) PaymentCompleted(c *gin.Context) {
	h.issueFor(c, "payment_completed")
}

// POST /api/webhooks/order-completed
func (h *WebhookHandler) OrderCompleted(c *gin.Context) {
	h.issueFor(c, "order_completed")
}

// issueFor funnels both lifecycle events into the issuer. Re-delivery and the
// second event of a pair are no-ops: existing grants are returned as-is.
func (h *WebhookHandler) issueFor(c *gin.Context, event string) {
	var req lifecycleEvent
	if !bindAndValidate(c, &req) {
		return
	}

	grants, err := h.issuer.IssueForOrder(requestContext(c), req.OrderRef)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.log.Info("lifecycle event processed",
		zap.String("event", event),
		zap.String("order_ref", req.OrderRef),
		zap.Int("grants", len(grants)),
	)

	response.Success(c, http.StatusOK, gin.H{
		"order_ref": req.OrderRef,
		"grants":    len(grants),
	})
}
