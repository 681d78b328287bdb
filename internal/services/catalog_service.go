package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/validator"
)

var (
	// ErrProductNotFound indicates the catalog has no such product.
	ErrProductNotFound = errors.New("catalog service: product not found")
	// ErrProductExists indicates a SKU collision on create.
	ErrProductExists = errors.New("catalog service: sku already in use")
)

// CreateProductInput defines attributes for registering a catalog entry.
type CreateProductInput struct {
	SKU              string  `json:"sku" validate:"required,max=128"`
	Name             string  `json:"name" validate:"required,max=255"`
	AccessControlled bool    `json:"access_controlled"`
	PageID           *string `json:"page_id"`
}

// UpdateProductInput carries optional catalog mutations.
type UpdateProductInput struct {
	Name             *string `json:"name"`
	AccessControlled *bool   `json:"access_controlled"`
	PageID           *string `json:"page_id"`
}

// CatalogService owns the product -> {access-controlled, bound page} mapping.
// The issuance path reads this mapping and trusts it; it never mutates it.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) (*CatalogService, error) {
	if db == nil {
		return nil, errors.New("catalog service: db is required")
	}
	return &CatalogService{db: db}, nil
}

// Create registers a product. A bound page must exist when supplied.
func (s *CatalogService) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)
	input.SKU = strings.TrimSpace(input.SKU)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	if input.PageID != nil {
		if err := s.ensurePageExists(ctx, *input.PageID); err != nil {
			return nil, err
		}
	}

	product := models.Product{
		SKU:              input.SKU,
		Name:             strings.TrimSpace(input.Name),
		AccessControlled: input.AccessControlled,
		PageID:           input.PageID,
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrProductExists
		}
		return nil, fmt.Errorf("catalog service: create product: %w", err)
	}
	return &product, nil
}

// Update applies partial changes to a catalog entry, addressed by SKU.
func (s *CatalogService) Update(ctx context.Context, sku string, input UpdateProductInput) (*models.Product, error) {
	ctx = ensureContext(ctx)

	product, err := s.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}

	if input.PageID != nil && *input.PageID != "" {
		if err := s.ensurePageExists(ctx, *input.PageID); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.AccessControlled != nil {
		updates["access_controlled"] = *input.AccessControlled
	}
	if input.PageID != nil {
		if *input.PageID == "" {
			updates["page_id"] = nil
		} else {
			updates["page_id"] = *input.PageID
		}
	}

	if len(updates) == 0 {
		return product, nil
	}

	if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("catalog service: update product: %w", err)
	}
	return s.GetBySKU(ctx, sku)
}

// GetBySKU resolves a catalog entry by its external SKU.
func (s *CatalogService) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	ctx = ensureContext(ctx)
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrProductNotFound
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog service: get by sku: %w", err)
	}
	return &product, nil
}

// GetByID resolves a catalog entry by primary key.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	ctx = ensureContext(ctx)

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog service: get by id: %w", err)
	}
	return &product, nil
}

// List returns the catalog ordered by creation time, newest first.
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	ctx = ensureContext(ctx)

	var products []models.Product
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list products: %w", err)
	}
	return products, nil
}

// ListMisconfigured returns access-controlled products with no bound page.
// These can never produce grants; the maintenance auditor reports them.
func (s *CatalogService) ListMisconfigured(ctx context.Context) ([]models.Product, error) {
	ctx = ensureContext(ctx)

	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("access_controlled = ? AND page_id IS NULL", true).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog service: list misconfigured: %w", err)
	}
	return products, nil
}

func (s *CatalogService) ensurePageExists(ctx context.Context, pageID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", pageID).Count(&count).Error; err != nil {
		return fmt.Errorf("catalog service: check page: %w", err)
	}
	if count == 0 {
		return ErrPageNotFound
	}
	return nil
}
