package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/response"
)

// CatalogHandler manages product registrations and their page bindings.
type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// POST /api/admin/products
func (h *CatalogHandler) Create(c *gin.Context) {
	var req services.CreateProductInput
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.catalog.Create(requestContext(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, product)
}

// PATCH /api/admin/products/:sku
func (h *CatalogHandler) Update(c *gin.Context) {
	var req services.UpdateProductInput
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.catalog.Update(requestContext(c), c.Param("sku"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, product)
}

// GET /api/admin/products
func (h *CatalogHandler) List(c *gin.Context) {
	products, err := h.catalog.List(requestContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, products)
}

// GET /api/admin/products/misconfigured
func (h *CatalogHandler) ListMisconfigured(c *gin.Context) {
	products, err := h.catalog.ListMisconfigured(requestContext(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, products)
}
