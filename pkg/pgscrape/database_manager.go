package pgscrape

import "context"

// DatabaseManager defines database lifecycle operations run against the
// maintenance database.
type DatabaseManager interface {
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)
	Create(ctx context.Context, conn DBConnection, dbName string) error
	Drop(ctx context.Context, conn DBConnection, dbName string) error

	// TerminateConnections terminates all other sessions on the database,
	// so that it can be dropped.
	TerminateConnections(ctx context.Context, conn DBConnection, dbName string) error
}
