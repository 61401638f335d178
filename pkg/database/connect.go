package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
)

// Config describes how to reach the store.
type Config struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// DSN overrides the discrete settings when set.
	DSN string
}

// Validate reports every setting required to open a connection that is absent.
func (c Config) Validate() error {
	if c.DSN != "" {
		return nil
	}
	if c.Driver == "sqlite" {
		return apperrors.NewConfigurationError("database", "DB_DSN")
	}

	var missing []string
	if c.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.User == "" {
		missing = append(missing, "DB_USER_NAME")
	}
	if c.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigurationError("database", missing...)
	}
	return nil
}

func (c Config) dataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%s", c.Host, c.Port),
		Path:   c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens and pings the store described by cfg. A missing setting is a
// ConfigurationError and nothing is dialled.
func Connect(ctx context.Context, cfg Config, logger ectologger.Logger) (DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sqlx.Open(driver, cfg.dataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logger.WithFields(map[string]any{
		"driver": driver,
		"host":   cfg.Host,
		"name":   cfg.Name,
	}).Info("Connected to database")

	return NewDatabaseInstance(db, logger), nil
}

// OpenSQLite opens an embedded SQLite database. A single connection is kept so
// that ":memory:" databases survive across statements.
func OpenSQLite(dsn string, logger ectologger.Logger) (DB, error) {
	if !strings.Contains(dsn, "_time_format") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return NewDatabaseInstance(db, logger), nil
}
