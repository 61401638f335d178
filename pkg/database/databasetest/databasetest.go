// Package databasetest opens migrated in-memory stores for tests.
package databasetest

import (
	"testing"

	"github.com/Gobusters/ectologger"

	"github.com/Rath300/research-collab/db"
	"github.com/Rath300/research-collab/pkg/database"
)

// NopLogger discards everything.
func NopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

// New returns an in-memory SQLite store with every migration applied. It is
// closed when the test completes.
func New(t *testing.T) database.DB {
	t.Helper()

	logger := NopLogger()
	store, err := database.OpenSQLite(":memory:", logger)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Source:    db.Migrations,
		SourceDir: db.SQLiteDir,
	})
	if err := migrations.MigrateDB(store); err != nil {
		_ = store.Close()
		t.Fatalf("migrating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return store
}
