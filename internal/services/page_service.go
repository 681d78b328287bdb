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

var (
	// ErrPageNotFound indicates the requested page does not exist.
	ErrPageNotFound = errors.New("page service: not found")
	// ErrPageExists indicates a slug collision on create.
	ErrPageExists = errors.New("page service: slug already in use")
)

// CreatePageInput defines attributes required to register a protected page.
type CreatePageInput struct {
	Slug       string         `json:"slug" validate:"required,max=255"`
	Title      string         `json:"title" validate:"required,max=255"`
	Body       string         `json:"body"`
	Attributes map[string]any `json:"attributes"`
}

// PageService manages protected content pages and their rendering.
type PageService struct {
	db *gorm.DB
}

// NewPageService constructs a PageService.
func NewPageService(db *gorm.DB) (*PageService, error) {
	if db == nil {
		return nil, errors.New("page service: db is required")
	}
	return &PageService{db: db}, nil
}

// Create registers a new page.
func (s *PageService) Create(ctx context.Context, input CreatePageInput) (*models.Page, error) {
	ctx = ensureContext(ctx)
	input.Slug = normaliseSlug(input.Slug)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, err
	}

	page := models.Page{
		Slug:  input.Slug,
		Title: strings.TrimSpace(input.Title),
		Body:  input.Body,
	}

	if len(input.Attributes) > 0 {
		raw, err := json.Marshal(input.Attributes)
		if err != nil {
			return nil, fmt.Errorf("page service: encode attributes: %w", err)
		}
		page.Attributes = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&page).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPageExists
		}
		return nil, fmt.Errorf("page service: create page: %w", err)
	}
	return &page, nil
}

// GetBySlug resolves a page by its URL slug.
func (s *PageService) GetBySlug(ctx context.Context, slug string) (*models.Page, error) {
	ctx = ensureContext(ctx)
	slug = normaliseSlug(slug)
	if slug == "" {
		return nil, ErrPageNotFound
	}

	var page models.Page
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("page service: get by slug: %w", err)
	}
	return &page, nil
}

// GetByID resolves a page by primary key.
func (s *PageService) GetByID(ctx context.Context, id string) (*models.Page, error) {
	ctx = ensureContext(ctx)

	var page models.Page
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("page service: get by id: %w", err)
	}
	return &page, nil
}

// List returns all pages ordered by creation time, newest first.
func (s *PageService) List(ctx context.Context) ([]models.Page, error) {
	ctx = ensureContext(ctx)

	var pages []models.Page
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("page service: list pages: %w", err)
	}
	return pages, nil
}

// Render expands personalization placeholders in the page body using the
// purchaser snapshot carried by the validated grant. The grant is
// request-scoped; rendering never stores it. A nil grant (public passthrough)
// blanks the placeholders.
func (s *PageService) Render(page *models.Page, grant *models.Grant) string {
	if page == nil {
		return ""
	}

	var first, last, full string
	if grant != nil {
		first = grant.FirstName
		last = grant.LastName
		full = grant.PurchaserName()
	}

	replacer := strings.NewReplacer(
		"{{first_name}}", first,
		"{{last_name}}", last,
		"{{full_name}}", full,
	)
	return replacer.Replace(page.Body)
}

func normaliseSlug(slug string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(slug)), "/")
}
