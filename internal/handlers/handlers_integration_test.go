package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/database/testutil"
	"github.com/pagepass/pagepass/internal/middleware"
	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/crypto"
)

const testWebhookSecret = "hook-secret"

type handlerFixture struct {
	db      *gorm.DB
	pages   *services.PageService
	catalog *services.CatalogService
	orders  *services.OrderService
	store   *services.GrantStore
	jwt     *iauth.JWTService
	r       *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)

	pages, err := services.NewPageService(db)
	require.NoError(t, err)
	catalog, err := services.NewCatalogService(db)
	require.NoError(t, err)
	orders, err := services.NewOrderService(db, catalog)
	require.NoError(t, err)
	store, err := services.NewGrantStore(db)
	require.NoError(t, err)
	issuer, err := services.NewIssuerService(orders, catalog, store, nil, services.WithSynchronousDispatch())
	require.NoError(t, err)
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "handler-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	authHandler := NewAuthHandler(db, jwtSvc)
	pageHandler := NewPageHandler(pages)
	catalogHandler := NewCatalogHandler(catalog)
	grantHandler := NewGrantHandler(store, pages, "https://shop.example.com")
	orderHandler := NewOrderHandler(orders, store, grantHandler)
	webhookHandler := NewWebhookHandler(orders, issuer, testWebhookSecret)

	r := gin.New()
	r.GET("/pages/:slug", middleware.OptionalAuth(jwtSvc), middleware.AccessGate(pages, store), pageHandler.Show)

	api := r.Group("/api")
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", middleware.Auth(jwtSvc), authHandler.Me)
	api.GET("/grants", middleware.Auth(jwtSvc), grantHandler.ListMine)

	admin := api.Group("/admin", middleware.Auth(jwtSvc), middleware.RequireAdmin())
	admin.POST("/pages", pageHandler.Create)
	admin.GET("/pages", pageHandler.List)
	admin.POST("/products", catalogHandler.Create)
	admin.PATCH("/products/:sku", catalogHandler.Update)
	admin.GET("/products", catalogHandler.List)
	admin.GET("/products/misconfigured", catalogHandler.ListMisconfigured)
	admin.GET("/grants", grantHandler.ListAll)
	admin.GET("/orders/:ref", orderHandler.Show)
	admin.GET("/orders/:ref/access", orderHandler.ShowAccess)

	hooks := api.Group("/webhooks", webhookHandler.Authorize)
	hooks.POST("/orders", webhookHandler.RecordOrder)
	hooks.POST("/payment-completed", webhookHandler.PaymentCompleted)
	hooks.POST("/order-completed", webhookHandler.OrderCompleted)

	return &handlerFixture{
		db:      db,
		pages:   pages,
		catalog: catalog,
		orders:  orders,
		store:   store,
		jwt:     jwtSvc,
		r:       r,
	}
}

func (f *handlerFixture) mustCreateUser(t *testing.T, email, password string, admin bool) *models.User {
	t.Helper()
	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: "Ada",
		LastName:  "Lovelace",
		IsAdmin:   admin,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *handlerFixture) tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	require.NoError(t, err)
	return token
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func adminHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func hookHeaders() map[string]string {
	return map[string]string{WebhookSecretHeader: testWebhookSecret}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestLoginAndMe(t *testing.T) {
	f := newHandlerFixture(t)
	f.mustCreateUser(t, "admin@example.com", "s3cret-pass", true)

	w := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "Admin@Example.com",
		"password": "s3cret-pass",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	token, _ := data["access_token"].(string)
	require.NotEmpty(t, token)

	w = f.do(t, http.MethodGet, "/api/auth/me", nil, adminHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "admin@example.com")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newHandlerFixture(t)
	f.mustCreateUser(t, "admin@example.com", "s3cret-pass", true)

	w := f.do(t, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminSurfaceRequiresAdmin(t *testing.T) {
	f := newHandlerFixture(t)
	user := f.mustCreateUser(t, "user@example.com", "s3cret-pass", false)

	w := f.do(t, http.MethodGet, "/api/admin/pages", nil, adminHeaders(f.tokenFor(t, user)))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/admin/pages", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPurchaseToAccessFlow(t *testing.T) {
	f := newHandlerFixture(t)
	admin := f.mustCreateUser(t, "admin@example.com", "s3cret-pass", true)
	adminToken := f.tokenFor(t, admin)

	// Admin registers the page and binds an access-controlled product to it.
	w := f.do(t, http.MethodPost, "/api/admin/pages", gin.H{
		"slug":  "audio-book",
		"title": "Audio Book",
		"body":  "Enjoy, {{full_name}}",
	}, adminHeaders(adminToken))
	require.Equal(t, http.StatusCreated, w.Code)
	pageID, _ := decodeData(t, w)["id"].(string)
	require.NotEmpty(t, pageID)

	w = f.do(t, http.MethodPost, "/api/admin/products", gin.H{
		"sku":               "BOOK-1",
		"name":              "Audio Book",
		"access_controlled": true,
		"page_id":           pageID,
	}, adminHeaders(adminToken))
	require.Equal(t, http.StatusCreated, w.Code)

	// The commerce platform records the purchase, then both lifecycle
	// events fire.
	w = f.do(t, http.MethodPost, "/api/webhooks/orders", gin.H{
		"ref":        "wc-2001",
		"first_name": "Grace",
		"last_name":  "Hopper",
		"email":      "grace@example.com",
		"items":      []gin.H{{"sku": "BOOK-1", "quantity": 1}},
	}, hookHeaders())
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodPost, "/api/webhooks/payment-completed", gin.H{"order_ref": "wc-2001"}, hookHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/webhooks/order-completed", gin.H{"order_ref": "wc-2001"}, hookHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	// Exactly one grant despite two lifecycle events.
	grants, err := f.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, grants, 1)
	token := grants[0].Token

	// The access link admin surface exposes the grant with its URL.
	w = f.do(t, http.MethodGet, "/api/admin/orders/wc-2001/access", nil, adminHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "/pages/audio-book?token="+token)

	// The token unlocks the page with the purchaser's name rendered in.
	w = f.do(t, http.MethodGet, "/pages/audio-book?token="+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Enjoy, Grace Hopper")

	// Without the token the page stays locked.
	w = f.do(t, http.MethodGet, "/pages/audio-book", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookRequiresSecret(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.do(t, http.MethodPost, "/api/webhooks/payment-completed", gin.H{"order_ref": "wc-1"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/webhooks/payment-completed", gin.H{"order_ref": "wc-1"}, map[string]string{
		WebhookSecretHeader: "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListMineReturnsOwnGrantsOnly(t *testing.T) {
	f := newHandlerFixture(t)
	buyer := f.mustCreateUser(t, "buyer@example.com", "s3cret-pass", false)

	page, err := f.pages.Create(context.Background(), services.CreatePageInput{Slug: "mine", Title: "Mine"})
	require.NoError(t, err)

	mine := &models.Grant{
		Token:           "mine-token-aaaaaaaaaaaaaaaaaaaaaaaa",
		OrderID:         "order-1",
		ProductID:       "product-1",
		PageID:          page.ID,
		PurchaserUserID: &buyer.ID,
		Email:           buyer.Email,
	}
	other := &models.Grant{
		Token:     "other-token-aaaaaaaaaaaaaaaaaaaaaaa",
		OrderID:   "order-2",
		ProductID: "product-2",
		PageID:    page.ID,
		Email:     "someone@example.com",
	}
	require.NoError(t, f.store.Put(context.Background(), mine))
	require.NoError(t, f.store.Put(context.Background(), other))

	w := f.do(t, http.MethodGet, "/api/grants", nil, adminHeaders(f.tokenFor(t, buyer)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), mine.Token)
	require.NotContains(t, w.Body.String(), other.Token)
}

func TestMisconfiguredProductListing(t *testing.T) {
	f := newHandlerFixture(t)
	admin := f.mustCreateUser(t, "admin@example.com", "s3cret-pass", true)
	adminToken := f.tokenFor(t, admin)

	w := f.do(t, http.MethodPost, "/api/admin/products", gin.H{
		"sku":               "LOOSE-1",
		"name":              "Unbound",
		"access_controlled": true,
	}, adminHeaders(adminToken))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/admin/products/misconfigured", nil, adminHeaders(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "LOOSE-1")
}
