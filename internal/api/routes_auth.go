package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/handlers"
	"github.com/pagepass/pagepass/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, db *gorm.DB, jwt *iauth.JWTService) {
	authHandler := handlers.NewAuthHandler(db, jwt)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.Auth(jwt), authHandler.Me)
	}
}
