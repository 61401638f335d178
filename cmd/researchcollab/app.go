package main

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/config"
	"github.com/Rath300/research-collab/db"
	"github.com/Rath300/research-collab/pkg/database"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/kafka"
	"github.com/Rath300/research-collab/pkg/literature"
	"github.com/Rath300/research-collab/pkg/logging"
	"github.com/Rath300/research-collab/pkg/middleware"
	appredis "github.com/Rath300/research-collab/pkg/redis"
	"github.com/Rath300/research-collab/pkg/storage"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// app holds what every command needs before it builds its own components.
type app struct {
	cfg    *config.Config
	logger ectologger.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// startTracing installs the tracer and returns its shutdown.
func (a *app) startTracing(ctx context.Context) func() {
	shutdown, err := tracing.Setup(ctx, a.cfg.AppName, a.cfg.OTLPConfig())
	if err != nil {
		a.logger.WithError(err).Warn("Tracing disabled")
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.WithError(err).Warn("Failed to flush traces")
		}
	}
}

func (a *app) connectDB(ctx context.Context) (database.DB, error) {
	return database.Connect(ctx, a.cfg.DatabaseConfig(), a.logger)
}

// migrate applies the embedded migrations for the store's driver unless a
// migration folder on disk is configured.
func (a *app) migrate(store database.DB) error {
	migrationCfg := a.cfg.MigrationConfig()
	migrationCfg.Source = db.Migrations
	migrationCfg.SourceDir = db.PostgresDir
	if a.cfg.Database.Driver == "sqlite" {
		migrationCfg.SourceDir = db.SQLiteDir
	}
	return database.NewMigrationService(a.logger, migrationCfg).MigrateDB(store)
}

func (a *app) connectRedis(ctx context.Context) (*appredis.Client, error) {
	if !a.cfg.Redis.Enabled {
		return nil, apperrors.NewConfigurationError("redis", "REDIS_ENABLED")
	}
	return appredis.NewClient(ctx, appredis.Config{
		Host:     a.cfg.Redis.Host,
		Port:     a.cfg.Redis.Port,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}, a.logger)
}

// notificationProducer is nil when Kafka is disabled.
func (a *app) notificationProducer() *kafka.Producer {
	if !a.cfg.Kafka.Enabled {
		return nil
	}
	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.Kafka.Brokers,
		Topic:        a.cfg.Kafka.NotificationTopic,
		BatchTimeout: millis(a.cfg.Kafka.BatchTimeoutMs),
		RequiredAcks: a.cfg.Kafka.RequiredAcks,
	}, a.logger)
}

// objectStore is nil when storage is disabled or not fully configured.
func (a *app) objectStore(ctx context.Context) *storage.Store {
	if !a.cfg.Storage.Enabled {
		return nil
	}
	s := a.cfg.Storage
	store, err := storage.New(ctx, storage.Config{
		Endpoint:          s.Endpoint,
		Region:            s.Region,
		AccessKeyID:       s.AccessKeyID,
		SecretAccessKey:   s.SecretAccessKey,
		PublicBaseURL:     s.PublicBaseURL,
		MaxUploadBytes:    int64(s.MaxUploadBytes),
		AvatarBucket:      s.AvatarBucket,
		ProjectFileBucket: s.ProjectFileBucket,
	}, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("Uploads disabled")
		return nil
	}
	return store
}

func (a *app) searcher() *literature.Searcher {
	s := a.cfg.Search
	return literature.New(literature.Config{
		Client: literature.ClientConfig{
			Timeout:       s.Timeout,
			RatePerSecond: s.RatePerSecond,
			UserAgent:     fmt.Sprintf("%s/%s", a.cfg.AppName, a.cfg.Version),
		},
		ContactEmail:          s.ContactEmail,
		CoreAPIKey:            s.CoreAPIKey,
		SemanticScholarAPIKey: s.SemanticScholarAPIKey,
	}, a.logger)
}

// authMiddleware verifies bearer tokens, or trusts identity headers when
// authentication is disabled.
func (a *app) authMiddleware(ctx context.Context) (echo.MiddlewareFunc, error) {
	auth := a.cfg.Auth
	if !auth.Enabled {
		a.logger.Warn("Authentication disabled, trusting identity headers")
		return middleware.HeaderIdentity(auth.DefaultTenantID), nil
	}

	var verifier middleware.TokenVerifier
	switch auth.Mode {
	case "jwt":
		if auth.JWTSecret == "" {
			return nil, apperrors.NewConfigurationError("auth", "AUTH_JWT_SECRET")
		}
		verifier = middleware.NewJWTVerifier(auth.JWTSecret)
	case "oidc":
		if auth.IssuerURL == "" {
			return nil, apperrors.NewConfigurationError("auth", "AUTH_ISSUER_URL")
		}
		var err error
		verifier, err = middleware.NewOIDCVerifier(ctx, auth.IssuerURL, auth.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to discover issuer %s: %w", auth.IssuerURL, err)
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", auth.Mode)
	}
	return middleware.Authentication(a.logger, verifier, auth.DefaultTenantID), nil
}
