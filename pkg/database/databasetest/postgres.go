package databasetest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Rath300/research-collab/db"
	"github.com/Rath300/research-collab/pkg/database"
)

const (
	postgresImage    = "postgres:15-alpine"
	postgresUser     = "collab"
	postgresPassword = "collab"
	postgresDB       = "research_collab"
)

// Postgres starts a PostgreSQL container, applies every migration and returns
// a store on it. The container is removed when the test completes. Skipped
// with -short.
func Postgres(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresUser,
				"POSTGRES_PASSWORD": postgresPassword,
				"POSTGRES_DB":       postgresDB,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("terminating postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolving postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("resolving postgres port: %v", err)
	}

	logger := NopLogger()
	store, err := database.Connect(ctx, database.Config{
		Driver:   "postgres",
		Host:     host,
		Port:     port.Port(),
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		SSLMode:  "disable",
	}, logger)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("closing postgres store: %v", err)
		}
	})

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Source:    db.Migrations,
		SourceDir: db.PostgresDir,
	})
	if err := migrations.MigrateDB(store); err != nil {
		t.Fatalf("migrating postgres: %v", err)
	}

	return store
}
