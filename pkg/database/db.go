package database

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

// Querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

type DB interface {
	Querier
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Close() error
	DriverName() string
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
	// Flavor is the SQL dialect statements must be built with.
	Flavor() sqlbuilder.Flavor
	// Raw exposes the underlying handle for health checks and migrations.
	Raw() *sqlx.DB
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
	flavor sqlbuilder.Flavor
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
		flavor: FlavorForDriver(db.DriverName()),
	}
}

func (db *DatabaseInstance) Flavor() sqlbuilder.Flavor {
	return db.flavor
}

func (db *DatabaseInstance) Raw() *sqlx.DB {
	return db.DB
}

func (db *DatabaseInstance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, db.logger, db, opts)
}

// FlavorForDriver maps a database/sql driver name to its builder flavor.
func FlavorForDriver(driverName string) sqlbuilder.Flavor {
	switch driverName {
	case "sqlite", "sqlite3":
		return sqlbuilder.SQLite
	default:
		return sqlbuilder.PostgreSQL
	}
}

// QuerierFromContext returns the open transaction carried by ctx, or db itself.
func QuerierFromContext(ctx context.Context, db DB) Querier {
	if tx, ok := ctx.Value(txKey).(Tx); ok && tx != nil && tx.IsOpen() {
		return tx
	}
	return db
}
