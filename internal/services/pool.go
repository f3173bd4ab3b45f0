package services

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// poolHandle owns a pool and the connector that opened it. Some connectors
// (Cloud SQL) hold a dialer that must be closed after the pool.
type poolHandle struct {
	pool      *pgxpool.Pool
	connector pgscrape.Connector
}

func (h *poolHandle) Close() {
	h.pool.Close()
	closeConnector(h.connector)
}
