package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pagepass/pagepass/internal/api"
	"github.com/pagepass/pagepass/internal/app"
	"github.com/pagepass/pagepass/internal/app/maintenance"
	iauth "github.com/pagepass/pagepass/internal/auth"
	"github.com/pagepass/pagepass/internal/database"
	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/internal/services"
	"github.com/pagepass/pagepass/pkg/crypto"
	"github.com/pagepass/pagepass/pkg/logger"
	"github.com/pagepass/pagepass/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Auditor *maintenance.Auditor
	Router  *gin.Engine

	log *zap.Logger
}

// bootstrapRuntime initialises the database, services, background jobs, and
// the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{log: log}
	success := false

	defer func() {
		if !success {
			_ = stack.Shutdown(context.Background())
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}
	stack.DB = db

	if err := seedBootstrapAdmin(ctx, db, cfg.Auth.Bootstrap, log); err != nil {
		return nil, err
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	notifier, err := buildNotifier(db, cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := services.NewCatalogService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise catalog service: %w", err)
	}

	if cfg.Maintenance.CatalogAudit.Enabled {
		stack.Auditor = maintenance.NewAuditor(catalog,
			maintenance.WithSchedule(cfg.Maintenance.CatalogAudit.Schedule),
		)
		if err := stack.Auditor.Start(); err != nil {
			return nil, fmt.Errorf("start catalog auditor: %w", err)
		}
		// Surface existing misconfigurations immediately rather than after
		// the first schedule interval.
		if err := stack.Auditor.RunOnce(ctx); err != nil {
			log.Warn("startup catalog audit failed", zap.Error(err))
		}
	}

	router, err := api.NewRouter(db, jwtService, cfg, notifier)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}
	stack.Router = router

	success = true
	return stack, nil
}

// Shutdown stops background jobs and closes the database, aggregating errors.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	var errs error

	if s.Auditor != nil {
		select {
		case <-s.Auditor.Stop().Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, ctx.Err())
		}
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err != nil {
			errs = multierr.Append(errs, err)
		} else if err := sqlDB.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.StoreConfig()
	dbCfg.Driver = strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if dbCfg.Driver == "" {
		dbCfg.Driver = "sqlite"
	}

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", dbCfg.Driver),
	)
	return db, nil
}

// seedBootstrapAdmin creates the first administrator account when no users
// exist. A non-empty user table means an operator already runs the instance,
// so the bootstrap credentials are ignored.
func seedBootstrapAdmin(ctx context.Context, db *gorm.DB, bootstrap app.BootstrapAdmin, log *zap.Logger) error {
	email := strings.TrimSpace(strings.ToLower(bootstrap.Email))
	if email == "" || bootstrap.Password == "" {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(bootstrap.Password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	admin := &models.User{
		Email:    email,
		Password: hashed,
		IsAdmin:  true,
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}

	log.Info("bootstrap administrator created", zap.String("email", email))
	return nil
}

// buildNotifier wires the SMTP-backed access notifier, or nil when outbound
// email is disabled.
func buildNotifier(db *gorm.DB, cfg *app.Config) (services.Notifier, error) {
	if !cfg.Email.SMTP.Enabled {
		return nil, nil
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}

	pages, err := services.NewPageService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise page service: %w", err)
	}

	notifier, err := services.NewMailNotifier(mailer, pages, cfg.Server.BaseURL, cfg.Server.SiteName)
	if err != nil {
		return nil, fmt.Errorf("initialise mail notifier: %w", err)
	}
	return notifier, nil
}
