package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// GoogleCloudSQLConnector connects through the Cloud SQL Go Connector with
// IAM database authentication. It implements io.Closer; Close must be called
// after the pool is closed to release the dialer.
type GoogleCloudSQLConnector struct {
	config *pgscrape.ConnectionConfig
	dialer *cloudsqlconn.Dialer
}

func NewGoogleCloudSQLConnector(config *pgscrape.ConnectionConfig) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{config: config}
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w: %w", pgscrape.ErrConnectionFailed, err)
	}

	instance := c.config.GoogleInstance
	dsn := fmt.Sprintf("user=%s dbname=%s sslmode=disable application_name=%s",
		c.config.Username, c.config.Database, pgscrape.DefaultAppName)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, instance)
	}
	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("cloud sql instance %s: %w: %w", instance, pgscrape.ErrConnectionFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, fmt.Errorf("cloud sql instance %s: %w: %w", instance, pgscrape.ErrConnectionFailed, err)
	}

	c.dialer = dialer
	return pool, nil
}

func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		err := c.dialer.Close()
		c.dialer = nil
		return err
	}
	return nil
}
