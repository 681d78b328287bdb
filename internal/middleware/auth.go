package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/pkg/errors"
	"github.com/pagepass/pagepass/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxUserIDKey  = "userID"
	CtxIsAdminKey = "isAdmin"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwt)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth resolves identity when a bearer token is supplied but lets
// anonymous requests pass. Content-page fetches use it: the access gate
// decides, and an authenticated administrator may bypass a missing page token.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, jwt); ok {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose identity lacks the administrator
// capability. Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsAdminKey) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwt *iauth.JWTService) (*iauth.Claims, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return nil, false
	}

	claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setIdentity(c *gin.Context, claims *iauth.Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxIsAdminKey, claims.IsAdmin)
}
