package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

const (
	queryDatabaseExists       = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	queryTerminateConnections = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`

	// duplicate_database, raised when a concurrent run created the database first.
	pgCodeDuplicateDatabase = "42P04"
)

// Manager implements pgscrape.DatabaseManager. It is stateless.
type Manager struct{}

var _ pgscrape.DatabaseManager = (*Manager)(nil)

func New() *Manager {
	return &Manager{}
}

func (m *Manager) Exists(ctx context.Context, conn pgscrape.DBConnection, dbName string) (bool, error) {
	var exists bool
	if err := conn.QueryRow(ctx, queryDatabaseExists, dbName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create runs CREATE DATABASE on a dedicated connection, since it cannot run
// inside a transaction block.
func (m *Manager) Create(ctx context.Context, conn pgscrape.DBConnection, dbName string) error {
	return execDedicated(ctx, conn, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize(), "create", dbName)
}

func (m *Manager) Drop(ctx context.Context, conn pgscrape.DBConnection, dbName string) error {
	return execDedicated(ctx, conn, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize(), "drop", dbName)
}

func (m *Manager) TerminateConnections(ctx context.Context, conn pgscrape.DBConnection, dbName string) error {
	if _, err := conn.Exec(ctx, queryTerminateConnections, dbName); err != nil {
		return fmt.Errorf("failed to terminate connections to database %q: %w", dbName, err)
	}
	return nil
}

func execDedicated(ctx context.Context, conn pgscrape.DBConnection, sql, verb, dbName string) error {
	pooled, err := conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer pooled.Release()

	if _, err := pooled.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to %s database %q: %w", verb, dbName, err)
	}
	return nil
}

// EnsureDatabase creates dbName when it is missing and reports whether it did.
// Losing a creation race to another process counts as success.
func EnsureDatabase(ctx context.Context, mgr pgscrape.DatabaseManager, conn pgscrape.DBConnection, dbName string) (bool, error) {
	exists, err := mgr.Exists(ctx, conn, dbName)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := mgr.Create(ctx, conn, dbName); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCodeDuplicateDatabase {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResetDatabase terminates other sessions on dbName and drops it.
func ResetDatabase(ctx context.Context, mgr pgscrape.DatabaseManager, conn pgscrape.DBConnection, dbName string) error {
	if err := mgr.TerminateConnections(ctx, conn, dbName); err != nil {
		return err
	}
	return mgr.Drop(ctx, conn, dbName)
}
