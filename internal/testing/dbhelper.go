// Package testing holds helpers shared by integration tests that need a
// real PostgreSQL server.
package testing

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/internal/db"
	"github.com/vvka-141/pgscrape/internal/db/manager"
	"github.com/vvka-141/pgscrape/internal/testinfra"
)

// TestConnEnv overrides the container with an existing server.
const TestConnEnv = "PGSCRAPE_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartSimplePostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns a maintenance-database connection string:
// PGSCRAPE_TEST_CONN if set, else a shared testcontainer, else the test is skipped.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnv); connString != "" {
		return connString
	}
	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnv, err)
	}
	return connString
}

func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase skips in -short mode and otherwise returns a connection string.
func RequireDatabase(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// UniqueDBName returns a fresh database name with the given prefix.
func UniqueDBName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateTestDB creates a fresh database and drops it when the test ends.
// It returns the database name.
func CreateTestDB(t *testing.T, connString, prefix string) string {
	t.Helper()
	ctx := context.Background()
	name := UniqueDBName(prefix)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer pool.Close()

	if err := manager.New().Create(ctx, db.NewPoolAdapter(pool), name); err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	t.Cleanup(func() { CleanupTestDB(t, connString, name) })
	return name
}

// CleanupTestDB drops dbName, logging instead of failing.
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	if err := manager.ResetDatabase(ctx, manager.New(), db.NewPoolAdapter(pool), dbName); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}

// GetTestPool opens a pool on dbName using the server from connString.
// The pool is closed when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), db.BuildConnectionString(db.WithDatabase(cfg, dbName)))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
