package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/crypto"
	"github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/response"
)

// AuthHandler manages authentication flows (login/me).
type AuthHandler struct {
	db  *gorm.DB
	jwt *iauth.JWTService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var user models.User
	if err := h.db.WithContext(requestContext(c)).Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Normalise auth errors to 401
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	if !crypto.VerifyPassword(user.Password, req.Password) {
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"is_admin":   user.IsAdmin,
		},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).Where("id = ?", userID).First(&user).Error; err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, user)
}
