// Package db embeds the schema migrations for each supported store.
package db

import "embed"

// Migrations holds pg/ for postgres and sqlite/ for the embedded store.
//
//go:embed pg/*.sql sqlite/*.sql
var Migrations embed.FS

const (
	PostgresDir = "pg"
	SQLiteDir   = "sqlite"
)
