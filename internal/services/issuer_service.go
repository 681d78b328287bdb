package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/logger"
	"github.com/pagepass/pagepass/pkg/metrics"
	"github.com/pagepass/pagepass/pkg/token"
)

const defaultMaxPutAttempts = 5

// ErrPersistenceExhausted signals that every token regeneration attempt for a
// line item collided. Logged per item; never rolls back the purchase.
var ErrPersistenceExhausted = errors.New("issuer: token persistence attempts exhausted")

// TokenSource produces opaque access tokens. Swappable for collision tests.
type TokenSource func() (string, error)

// IssuerOption customises the IssuerService.
type IssuerOption func(*IssuerService)

// WithTokenSource replaces the default crypto/rand token source.
func WithTokenSource(source TokenSource) IssuerOption {
	return func(s *IssuerService) {
		if source != nil {
			s.tokens = source
		}
	}
}

// WithMaxPutAttempts bounds the regenerate-and-retry loop on token collisions.
func WithMaxPutAttempts(attempts int) IssuerOption {
	return func(s *IssuerService) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithSynchronousDispatch makes notification sends block IssueForOrder.
// Production keeps the default detached dispatch; tests use this for
// determinism.
func WithSynchronousDispatch() IssuerOption {
	return func(s *IssuerService) {
		s.syncDispatch = true
	}
}

// IssuerService orchestrates grant creation for completed purchases. Both
// commerce lifecycle webhooks (payment completed, order completed) funnel into
// IssueForOrder; the (order, product) unique index makes the second event a
// no-op.
type IssuerService struct {
	orders       *OrderService
	catalog      *CatalogService
	store        *GrantStore
	notifier     Notifier
	tokens       TokenSource
	maxAttempts  int
	syncDispatch bool
	log          *zap.Logger
}

// NewIssuerService constructs an IssuerService.
func NewIssuerService(orders *OrderService, catalog *CatalogService, store *GrantStore, notifier Notifier, opts ...IssuerOption) (*IssuerService, error) {
	if orders == nil {
		return nil, errors.New("issuer: order service is required")
	}
	if catalog == nil {
		return nil, errors.New("issuer: catalog service is required")
	}
	if store == nil {
		return nil, errors.New("issuer: grant store is required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}

	service := &IssuerService{
		orders:      orders,
		catalog:     catalog,
		store:       store,
		notifier:    notifier,
		tokens:      token.Generate,
		maxAttempts: defaultMaxPutAttempts,
		log:         logger.WithModule("issuer"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// IssueForOrder creates one grant per access-controlled line item of the
// referenced order. Item failures are isolated: a failing item is logged and
// skipped, never aborting its siblings. The returned slice contains both
// freshly issued grants and pre-existing ones found idempotently.
func (s *IssuerService) IssueForOrder(ctx context.Context, orderRef string) ([]models.Grant, error) {
	ctx = ensureContext(ctx)

	order, err := s.orders.GetByRef(ctx, orderRef)
	if err != nil {
		return nil, err
	}

	var grants []models.Grant
	for _, item := range order.Items {
		grant, err := s.issueForItem(ctx, order, item)
		if err != nil {
			s.log.Error("grant issuance failed for line item",
				zap.String("order_ref", order.Ref),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			metrics.GrantsIssued.WithLabelValues("failed").Inc()
			continue
		}
		if grant != nil {
			grants = append(grants, *grant)
		}
	}

	return grants, nil
}

// issueForItem returns (nil, nil) when the item does not qualify for a grant.
func (s *IssuerService) issueForItem(ctx context.Context, order *models.Order, item models.OrderItem) (*models.Grant, error) {
	product, err := s.catalog.GetByID(ctx, item.ProductID)
	if err != nil {
		// A catalog lookup failure must not block a settled sale; treat the
		// product as not access-controlled and flag the anomaly.
		s.log.Warn("catalog lookup failed; treating product as not access-controlled",
			zap.String("order_ref", order.Ref),
			zap.String("product_id", item.ProductID),
			zap.Error(err),
		)
		metrics.GrantsIssued.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	if !product.AccessControlled {
		return nil, nil
	}

	if product.PageID == nil || *product.PageID == "" {
		// Configuration error, not fatal: the purchase already completed.
		s.log.Error("access-controlled product has no bound page",
			zap.String("order_ref", order.Ref),
			zap.String("sku", product.SKU),
		)
		metrics.GrantsIssued.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	if existing, err := s.store.GetByOrderProduct(ctx, order.ID, product.ID); err == nil {
		metrics.GrantsIssued.WithLabelValues("duplicate").Inc()
		return existing, nil
	} else if !errors.Is(err, ErrGrantNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		value, err := s.tokens()
		if err != nil {
			return nil, fmt.Errorf("issuer: generate token: %w", err)
		}

		grant := &models.Grant{
			Token:           value,
			OrderID:         order.ID,
			ProductID:       product.ID,
			PageID:          *product.PageID,
			PurchaserUserID: order.UserID,
			FirstName:       order.FirstName,
			LastName:        order.LastName,
			Email:           order.Email,
		}

		err = s.store.Put(ctx, grant)
		switch {
		case err == nil:
			metrics.GrantsIssued.WithLabelValues("issued").Inc()
			s.dispatch(ctx, grant)
			return grant, nil

		case errors.Is(err, ErrDuplicateToken):
			metrics.TokenCollisions.Inc()
			continue

		case errors.Is(err, ErrDuplicateGrant):
			// A concurrent lifecycle event for the same order item won the
			// race; adopt its grant.
			metrics.GrantsIssued.WithLabelValues("duplicate").Inc()
			return s.store.GetByOrderProduct(ctx, order.ID, product.ID)

		default:
			return nil, err
		}
	}

	return nil, ErrPersistenceExhausted
}

// dispatch hands the grant to the notifier after the durable commit. Failure
// is logged and isolated; it never propagates to the issuance caller.
func (s *IssuerService) dispatch(ctx context.Context, grant *models.Grant) {
	send := func(ctx context.Context) {
		if err := s.notifier.Send(ctx, grant); err != nil {
			metrics.NotificationSends.WithLabelValues("failed").Inc()
			s.log.Warn("access notification dispatch failed",
				zap.String("order_id", grant.OrderID),
				zap.String("page_id", grant.PageID),
				zap.Error(err),
			)
			return
		}
		metrics.NotificationSends.WithLabelValues("sent").Inc()
	}

	if s.syncDispatch {
		send(ctx)
		return
	}
	go send(context.WithoutCancel(ctx))
}
