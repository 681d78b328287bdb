package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/validator"
)

// ErrOrderNotFound indicates no order matches the reference.
var ErrOrderNotFound = errors.New("order service: not found")

// OrderItemInput is one purchased line item as reported by the commerce platform.
type OrderItemInput struct {
	SKU      string         `json:"sku" validate:"required"`
	Quantity int            `json:"quantity" validate:"omitempty,min=1"`
	Metadata map[string]any `json:"metadata"`
}

// RecordOrderInput captures a completed purchase, including the purchaser
// snapshot that later lands on grants. UserID is empty for guest checkouts.
type RecordOrderInput struct {
	Ref       string           `json:"ref" validate:"required,max=128"`
	UserID    string           `json:"user_id"`
	FirstName string           `json:"first_name" validate:"max=100"`
	LastName  string           `json:"last_name" validate:"max=100"`
	Email     string           `json:"email" validate:"required,email"`
	Items     []OrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// OrderService records purchases reported by the commerce collaborator.
type OrderService struct {
	db      *gorm.DB
	catalog *CatalogService
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, catalog *CatalogService) (*OrderService, error) {
	if db == nil {
		return nil, errors.New("order service: db is required")
	}
	if catalog == nil {
		return nil, errors.New("order service: catalog is required")
	}
	return &OrderService{db: db, catalog: catalog}, nil
}

// Record persists an order with its line items. Re-posting an existing
// reference is a no-op returning the stored order, so the commerce platform
// may retry safely.
func (s *OrderService) Record(ctx context.Context, input RecordOrderInput) (*models.Order, error) {
	ctx = ensureContext(ctx)
	input.Ref = strings.TrimSpace(input.Ref)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	if existing, err := s.GetByRef(ctx, input.Ref); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	order := models.Order{
		Ref:       input.Ref,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     input.Email,
	}
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		order.UserID = &userID
	}

	for _, item := range input.Items {
		product, err := s.catalog.GetBySKU(ctx, item.SKU)
		if err != nil {
			return nil, fmt.Errorf("order service: unknown sku %q: %w", item.SKU, err)
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		orderItem := models.OrderItem{
			ProductID: product.ID,
			Quantity:  quantity,
		}
		if len(item.Metadata) > 0 {
			raw, err := json.Marshal(item.Metadata)
			if err != nil {
				return nil, fmt.Errorf("order service: encode item metadata: %w", err)
			}
			orderItem.Metadata = datatypes.JSON(raw)
		}
		order.Items = append(order.Items, orderItem)
	}

	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent retry for the same reference.
			return s.GetByRef(ctx, input.Ref)
		}
		return nil, fmt.Errorf("order service: create order: %w", err)
	}
	return &order, nil
}

// GetByRef loads an order and its items by external reference.
func (s *OrderService) GetByRef(ctx context.Context, ref string) (*models.Order, error) {
	ctx = ensureContext(ctx)
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").Where("ref = ?", ref).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("order service: get by ref: %w", err)
	}
	return &order, nil
}
