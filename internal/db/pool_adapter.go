package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// PoolAdapter exposes *pgxpool.Pool as pgscrape.DBConnection.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

var _ pgscrape.DBConnection = (*PoolAdapter)(nil)

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	if pool == nil {
		panic("pool cannot be nil")
	}
	return &PoolAdapter{pool: pool}
}

func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgscrape.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *PoolAdapter) Acquire(ctx context.Context) (pgscrape.PooledConnection, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
