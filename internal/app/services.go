package app

import (
	"github.com/devsantiago69/Citaly-sub002/internal/auth"
	"github.com/devsantiago69/Citaly-sub002/internal/config"
	"github.com/devsantiago69/Citaly-sub002/internal/presence"
	"github.com/devsantiago69/Citaly-sub002/internal/repo"
	"github.com/devsantiago69/Citaly-sub002/internal/webhook"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Services holds all application services. Everything is constructed here
// and injected: no package-level singletons.
type Services struct {
	Config         config.Config
	Log            zerolog.Logger
	DB             *gorm.DB
	AuthService    *auth.Service
	Registry       *presence.Registry
	Dispatcher     *webhook.Dispatcher
	WebhookLogRepo *repo.WebhookLogRepository
}

// NewServices creates a new services container. db may be nil; the
// delivery audit log is then simply not wired.
func NewServices(cfg config.Config, db *gorm.DB, log zerolog.Logger) *Services {
	authService := auth.NewService(cfg.JWTSecret)
	registry := presence.NewRegistry(log)

	var logRepo *repo.WebhookLogRepository
	var recorder webhook.Recorder
	if db != nil && cfg.WebhookAuditEnabled {
		logRepo = repo.NewWebhookLogRepository(db)
		recorder = logRepo
	}

	dispatcher := webhook.NewDispatcher(webhook.Config{
		TargetURL:     cfg.WebhookTargetURL,
		Enabled:       cfg.WebhookEnabled,
		RetryAttempts: cfg.WebhookRetryAttempts,
		RetryDelay:    cfg.WebhookRetryDelay(),
		Source:        cfg.WebhookSource,
		Environment:   cfg.Env,
		Version:       cfg.ServiceVersion,
	}, recorder, log)

	return &Services{
		Config:         cfg,
		Log:            log,
		DB:             db,
		AuthService:    authService,
		Registry:       registry,
		Dispatcher:     dispatcher,
		WebhookLogRepo: logRepo,
	}
}
