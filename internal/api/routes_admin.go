package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/services"
)

// registerAdminRoutes mounts the administrative surface: page and catalog
// management plus the global grant and order listings.
func registerAdminRoutes(
	r *gin.Engine,
	jwt *iauth.JWTService,
	pages *services.PageService,
	catalog *services.CatalogService,
	orders *services.OrderService,
	store *services.GrantStore,
	baseURL string,
) {
	pageHandler := handlers.NewPageHandler(pages)
	catalogHandler := handlers.NewCatalogHandler(catalog)
	grantHandler := handlers.NewGrantHandler(store, pages, baseURL)
	orderHandler := handlers.NewOrderHandler(orders, store, grantHandler)

	admin := r.Group("/api/admin", middleware.Auth(jwt), middleware.RequireAdmin())
	{
		admin.POST("/pages", pageHandler.Create)
		admin.GET("/pages", pageHandler.List)

		admin.POST("/products", catalogHandler.Create)
		admin.GET("/products", catalogHandler.List)
		admin.GET("/products/misconfigured", catalogHandler.ListMisconfigured)
		admin.PATCH("/products/:sku", catalogHandler.Update)

		admin.GET("/grants", grantHandler.ListAll)

		admin.GET("/orders/:ref", orderHandler.Show)
		admin.GET("/orders/:ref/access", orderHandler.ShowAccess)
	}
}
