package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/logger"
	"github.com/pagepass/pagepass/pkg/metrics"
)

const defaultAuditSpec = "@every 1h"

// Auditor periodically scans the catalog for access-controlled products with
// no bound page. Such products complete checkout but can never yield a grant,
// so the misconfiguration only surfaces as missing customer access. The
// auditor turns it into logs and a gauge instead.
type Auditor struct {
	catalog  *services.CatalogService
	cron     *cron.Cron
	schedule string
	log      *zap.Logger
}

// Option customises the Auditor.
type Option func(*Auditor)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(a *Auditor) {
		if c != nil {
			a.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the catalog scan.
func WithSchedule(spec string) Option {
	return func(a *Auditor) {
		if spec != "" {
			a.schedule = spec
		}
	}
}

// NewAuditor constructs an Auditor with sensible defaults.
func NewAuditor(catalog *services.CatalogService, opts ...Option) *Auditor {
	auditor := &Auditor{
		catalog:  catalog,
		schedule: defaultAuditSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(auditor)
	}

	if auditor.cron == nil {
		auditor.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return auditor
}

// Start registers the scan with the cron scheduler and launches it.
func (a *Auditor) Start() error {
	if a.catalog == nil {
		return nil
	}

	if _, err := a.cron.AddFunc(a.schedule, func() {
		if err := a.RunOnce(context.Background()); err != nil {
			a.log.Warn("catalog audit failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	a.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (a *Auditor) Stop() context.Context {
	if a.cron == nil {
		return context.Background()
	}
	return a.cron.Stop()
}

// RunOnce executes a single catalog scan. Also used at startup so operators
// see misconfigurations without waiting a full schedule interval.
func (a *Auditor) RunOnce(ctx context.Context) error {
	if a.catalog == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	products, err := a.catalog.ListMisconfigured(ctx)
	if err != nil {
		return err
	}

	metrics.MisconfiguredProducts.Set(float64(len(products)))

	for _, product := range products {
		a.log.Warn("access-controlled product has no bound page",
			zap.String("sku", product.SKU),
			zap.String("product_id", product.ID),
		)
	}

	return nil
}
