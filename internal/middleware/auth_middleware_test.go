package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/pagepass/pagepass/internal/auth"
)

func newTestJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: "user-123",
		Email:  "user@example.com",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	r := gin.New()
	r.GET("/open", OptionalAuth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetString(CtxUserIDKey),
			"is_admin": c.GetBool(CtxIsAdminKey),
		})
	})

	// Anonymous requests pass with no identity set.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "", payload["user_id"])
	require.Equal(t, false, payload["is_admin"])

	// A valid bearer token resolves identity.
	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:  "admin-9",
		IsAdmin: true,
	})
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "admin-9", payload["user_id"])
	require.Equal(t, true, payload["is_admin"])
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT(t)

	r := gin.New()
	r.GET("/admin", Auth(jwtSvc), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	userToken, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)
	adminToken, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "admin-1", IsAdmin: true})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
