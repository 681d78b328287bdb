package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/services"
)

// registerWebhookRoutes mounts the commerce platform callback surface. Every
// route is guarded by the shared webhook secret.
func registerWebhookRoutes(r *gin.Engine, orders *services.OrderService, issuer *services.IssuerService, secret string) {
	webhookHandler := handlers.NewWebhookHandler(orders, issuer, secret)

	hooks := r.Group("/api/webhooks", webhookHandler.Authorize)
	{
		hooks.POST("/orders", webhookHandler.RecordOrder)
		hooks.POST("/payment-completed", webhookHandler.PaymentCompleted)
		hooks.POST("/order-completed", webhookHandler.OrderCompleted)
	}
}
