//go:build integration

// Package testdb starts a throwaway PostgreSQL container with the feed
// schema applied, for repository integration tests.
//
// Run with: go test -tags=integration ./internal/...
package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// migrationPath returns the absolute path of the schema migration.
func migrationPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "000001_create_creator_tables.up.sql")
}

// Start launches PostgreSQL, applies the schema and returns an open handle.
// The container is terminated when the test finishes.
func Start(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("creatorfeed"),
		postgres.WithUsername("creatorfeed"),
		postgres.WithPassword("creatorfeed"),
		postgres.WithInitScripts(migrationPath()),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	return db
}
