package pgscrape

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes database connection pools.
// Implementations handle the different authentication methods
// (standard credentials, cloud IAM tokens, Cloud SQL dialer).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// ConnectorFactory builds a Connector for a resolved connection config.
type ConnectorFactory func(*ConnectionConfig) (Connector, error)
