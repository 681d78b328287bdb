package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/database/testutil"
	"github.com/pagepass/pagepass/internal/models"
)

type fixture struct {
	db      *gorm.DB
	pages   *PageService
	catalog *CatalogService
	orders  *OrderService
	store   *GrantStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	pages, err := NewPageService(db)
	require.NoError(t, err)
	catalog, err := NewCatalogService(db)
	require.NoError(t, err)
	orders, err := NewOrderService(db, catalog)
	require.NoError(t, err)
	store, err := NewGrantStore(db)
	require.NoError(t, err)

	return &fixture{db: db, pages: pages, catalog: catalog, orders: orders, store: store}
}

func (f *fixture) mustCreatePage(t *testing.T, slug string) *models.Page {
	t.Helper()
	page, err := f.pages.Create(context.Background(), CreatePageInput{
		Slug:  slug,
		Title: "Page " + slug,
		Body:  "Welcome {{full_name}}",
	})
	require.NoError(t, err)
	return page
}

func (f *fixture) mustCreateProduct(t *testing.T, sku string, controlled bool, pageID *string) *models.Product {
	t.Helper()
	product, err := f.catalog.Create(context.Background(), CreateProductInput{
		SKU:              sku,
		Name:             "Product " + sku,
		AccessControlled: controlled,
		PageID:           pageID,
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) mustRecordOrder(t *testing.T, ref string, skus ...string) *models.Order {
	t.Helper()

	items := make([]OrderItemInput, 0, len(skus))
	for _, sku := range skus {
		items = append(items, OrderItemInput{SKU: sku, Quantity: 1})
	}

	order, err := f.orders.Record(context.Background(), RecordOrderInput{
		Ref:       ref,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Items:     items,
	})
	require.NoError(t, err)
	return order
}

func strPtr(s string) *string { return &s }
