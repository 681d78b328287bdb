package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/app"
	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The notifier may be nil when outbound email is disabled.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, notifier services.Notifier) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	pages, err := services.NewPageService(db)
	if err != nil {
		return nil, err
	}
	catalog, err := services.NewCatalogService(db)
	if err != nil {
		return nil, err
	}
	orders, err := services.NewOrderService(db, catalog)
	if err != nil {
		return nil, err
	}
	store, err := services.NewGrantStore(db)
	if err != nil {
		return nil, err
	}
	issuer, err := services.NewIssuerService(orders, catalog, store, notifier)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	registerContentRoutes(r, jwt, pages, store)
	registerAuthRoutes(r, db, jwt)
	registerGrantRoutes(r, jwt, store, pages, cfg.Server.BaseURL)
	registerAdminRoutes(r, jwt, pages, catalog, orders, store, cfg.Server.BaseURL)
	registerWebhookRoutes(r, orders, issuer, cfg.Webhooks.Secret)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
