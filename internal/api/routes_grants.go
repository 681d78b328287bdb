package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/services"
)

// registerGrantRoutes mounts the purchaser's own-grant listing.
func registerGrantRoutes(r *gin.Engine, jwt *iauth.JWTService, store *services.GrantStore, pages *services.PageService, baseURL string) {
	grantHandler := handlers.NewGrantHandler(store, pages, baseURL)

	r.GET("/api/grants", middleware.Auth(jwt), grantHandler.ListMine)
}
