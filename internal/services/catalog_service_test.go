package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogCreateAndGetBySKU(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-one")
	product, err := f.catalog.Create(ctx, CreateProductInput{
		SKU:              "BOOK-1",
		Name:             "Book One",
		AccessControlled: true,
		PageID:           &page.ID,
	})
	require.NoError(t, err)

	found, err := f.catalog.GetBySKU(ctx, "BOOK-1")
	require.NoError(t, err)
	require.Equal(t, product.ID, found.ID)
	require.True(t, found.AccessControlled)
	require.Equal(t, page.ID, *found.PageID)
}

func TestCatalogCreateRejectsUnknownPage(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.Create(context.Background(), CreateProductInput{
		SKU:              "BOOK-2",
		Name:             "Book Two",
		AccessControlled: true,
		PageID:           strPtr("no-such-page"),
	})
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestCatalogCreateRejectsDuplicateSKU(t *testing.T) {
	f := newFixture(t)
	f.mustCreateProduct(t, "BOOK-3", false, nil)

	_, err := f.catalog.Create(context.Background(), CreateProductInput{SKU: "BOOK-3", Name: "Again"})
	require.ErrorIs(t, err, ErrProductExists)
}

func TestCatalogUpdateTogglesAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-four")
	f.mustCreateProduct(t, "BOOK-4", false, nil)

	controlled := true
	updated, err := f.catalog.Update(ctx, "BOOK-4", UpdateProductInput{
		AccessControlled: &controlled,
		PageID:           &page.ID,
	})
	require.NoError(t, err)
	require.True(t, updated.AccessControlled)
	require.Equal(t, page.ID, *updated.PageID)

	// Clearing the binding leaves the product misconfigured.
	empty := ""
	updated, err = f.catalog.Update(ctx, "BOOK-4", UpdateProductInput{PageID: &empty})
	require.NoError(t, err)
	require.Nil(t, updated.PageID)

	misconfigured, err := f.catalog.ListMisconfigured(ctx)
	require.NoError(t, err)
	require.Len(t, misconfigured, 1)
	require.Equal(t, "BOOK-4", misconfigured[0].SKU)
}

func TestCatalogGetBySKUNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.GetBySKU(context.Background(), "MISSING")
	require.ErrorIs(t, err, ErrProductNotFound)
}
