package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/services"
)

// registerContentRoutes mounts the purchaser-facing page surface. Auth is
// optional here: anonymous token holders are the common case, and the access
// gate makes the decision per page.
func registerContentRoutes(r *gin.Engine, jwt *iauth.JWTService, pages *services.PageService, store *services.GrantStore) {
	pageHandler := handlers.NewPageHandler(pages)

	r.GET("/pages/:slug",
		middleware.OptionalAuth(jwt),
		middleware.AccessGate(pages, store),
		pageHandler.Show,
	)
}
