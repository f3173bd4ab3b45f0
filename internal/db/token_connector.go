package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/internal/retry"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// tokenExpiryWarning is how close to expiry a fresh token must be before we warn.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector connects to cloud-managed PostgreSQL (AWS RDS, Azure)
// using a token from a TokenProvider as the password. A new token is fetched
// on every attempt.
type TokenBasedConnector struct {
	config       *pgscrape.ConnectionConfig
	provider     TokenProvider
	providerName string
	executor     *retry.Executor
	logger       pgscrape.Logger
}

func NewTokenBasedConnector(config *pgscrape.ConnectionConfig, provider TokenProvider, providerName string, opts ...Option) *TokenBasedConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	if provider == nil {
		panic("provider cannot be nil")
	}
	o := buildOptions(opts)
	return &TokenBasedConnector{
		config:       config,
		provider:     provider,
		providerName: providerName,
		executor:     o.executor(),
		logger:       o.logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.provider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, pgscrape.ErrConnectionFailed, err)
		}
		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning && c.logger != nil {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		p, err := openPool(ctx, &withToken)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}
