package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/models"
)

var (
	// ErrDuplicateToken signals that the token column's unique index rejected
	// the insert. The issuer regenerates and retries on this error.
	ErrDuplicateToken = errors.New("grant store: duplicate token")

	// ErrDuplicateGrant signals that a grant already exists for the
	// (order, product) pair. Duplicate lifecycle events land here.
	ErrDuplicateGrant = errors.New("grant store: grant already exists for order item")

	// ErrGrantNotFound indicates no grant matches the lookup.
	ErrGrantNotFound = errors.New("grant store: not found")
)

// GrantStore is the durable source of truth for authorization decisions.
// Uniqueness of tokens and of (order, product) pairs is enforced by the
// database, so concurrent inserts resolve atomically: exactly one writer
// succeeds and the rest observe a duplicate error.
type GrantStore struct {
	db *gorm.DB
}

// NewGrantStore constructs a GrantStore over the supplied database handle.
func NewGrantStore(db *gorm.DB) (*GrantStore, error) {
	if db == nil {
		return nil, errors.New("grant store: db is required")
	}
	return &GrantStore{db: db}, nil
}

// Put persists a new grant. Grants are immutable: there is no update path.
func (s *GrantStore) Put(ctx context.Context, grant *models.Grant) error {
	ctx = ensureContext(ctx)
	if grant == nil {
		return errors.New("grant store: grant is required")
	}
	if strings.TrimSpace(grant.Token) == "" {
		return errors.New("grant store: token is required")
	}

	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return classifyDuplicate(err)
		}
		return fmt.Errorf("grant store: create grant: %w", err)
	}
	return nil
}

// GetByToken resolves a grant by its exact token. No partial matching.
func (s *GrantStore) GetByToken(ctx context.Context, token string) (*models.Grant, error) {
	ctx = ensureContext(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrGrantNotFound
	}

	var grant models.Grant
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("grant store: get by token: %w", err)
	}
	return &grant, nil
}

// GetByOrderProduct returns the grant issued for an (order, product) pair, if any.
func (s *GrantStore) GetByOrderProduct(ctx context.Context, orderID, productID string) (*models.Grant, error) {
	ctx = ensureContext(ctx)

	var grant models.Grant
	if err := s.db.WithContext(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("grant store: get by order item: %w", err)
	}
	return &grant, nil
}

// ListByPurchaser returns a purchaser's grants, newest first.
func (s *GrantStore) ListByPurchaser(ctx context.Context, userID string) ([]models.Grant, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("grant store: user id is required")
	}

	var grants []models.Grant
	if err := s.db.WithContext(ctx).
		Where("purchaser_user_id = ?", userID).
		Order("created_at DESC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("grant store: list by purchaser: %w", err)
	}
	return grants, nil
}

// ListByOrder returns all grants issued for an order, newest first.
func (s *GrantStore) ListByOrder(ctx context.Context, orderID string) ([]models.Grant, error) {
	ctx = ensureContext(ctx)

	var grants []models.Grant
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("grant store: list by order: %w", err)
	}
	return grants, nil
}

// ListAll returns every grant, newest first. Feeds the administrative listing.
func (s *GrantStore) ListAll(ctx context.Context) ([]models.Grant, error) {
	ctx = ensureContext(ctx)

	var grants []models.Grant
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("grant store: list all: %w", err)
	}
	return grants, nil
}

// CountByPage reports how many grants reference a page. A page with zero
// grants is treated as public by the access gate.
func (s *GrantStore) CountByPage(ctx context.Context, pageID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Grant{}).
		Where("page_id = ?", pageID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("grant store: count by page: %w", err)
	}
	return count, nil
}

// classifyDuplicate maps a unique violation onto the index that rejected it.
// Index names and column lists both surface in driver messages.
func classifyDuplicate(err error) error {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "token") {
		return ErrDuplicateToken
	}
	if strings.Contains(lower, "order") {
		return ErrDuplicateGrant
	}
	return ErrDuplicateToken
}
