package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgscrape/internal/retry"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// A scrape job runs its statements sequentially, so a small pool is enough.
const (
	DefaultMaxConns        = 2
	DefaultMinConns        = 0
	DefaultMaxConnIdleTime = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
}

// Option customizes connectors built by NewConnector.
type Option func(*options)

type options struct {
	retries int
	logger  pgscrape.Logger
}

// WithRetries sets the number of extra attempts on transient connection errors.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithLogger receives retry and token-expiry notices.
func WithLogger(l pgscrape.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{retries: pgscrape.DefaultRetryMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) executor() *retry.Executor {
	strategy := retry.NewExponentialBackoff(o.retries,
		retry.WithInitialDelay(pgscrape.DefaultRetryInitialDelay),
		retry.WithMaxDelay(pgscrape.DefaultRetryMaxDelay),
	)
	executor := retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy)
	if o.logger != nil {
		logger := o.logger
		executor = executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Info("connection attempt %d failed, retrying in %v: %v", attempt+1, delay.Round(time.Millisecond), err)
		})
	}
	return executor
}

// StandardConnector connects with username/password credentials.
type StandardConnector struct {
	config   *pgscrape.ConnectionConfig
	executor *retry.Executor
}

func NewStandardConnector(config *pgscrape.ConnectionConfig, opts ...Option) *StandardConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	return &StandardConnector{config: config, executor: buildOptions(opts).executor()}
}

func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		p, err := openPool(ctx, c.config)
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

// openPool parses cfg, opens a pool and pings it.
func openPool(ctx context.Context, cfg *pgscrape.ConnectionConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", err, pgscrape.ErrInvalidConfig)
	}
	configurePool(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, cfg)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, cfg)
	}
	return pool, nil
}

// NewConnector picks the connector for config.AuthMethod.
func NewConnector(config *pgscrape.ConnectionConfig, opts ...Option) (pgscrape.Connector, error) {
	switch config.AuthMethod {
	case pgscrape.AuthMethodStandard:
		return NewStandardConnector(config, opts...), nil
	case pgscrape.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(fmt.Sprintf("%s:%d", config.Host, config.Port), config.AWSRegion, config.Username)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "AWS IAM", opts...), nil
	case pgscrape.AuthMethodGoogleIAM:
		if config.GoogleInstance == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", pgscrape.ErrInvalidConfig)
		}
		if config.Username == "" {
			return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", pgscrape.ErrInvalidConfig)
		}
		return NewGoogleCloudSQLConnector(config), nil
	case pgscrape.AuthMethodAzureEntraID:
		provider, err := newAzureTokenProvider(config)
		if err != nil {
			return nil, err
		}
		return NewTokenBasedConnector(config, provider, "Azure", opts...), nil
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, pgscrape.ErrUnsupportedAuthMethod)
	}
}

// ConnectorFactory adapts NewConnector with fixed options to pgscrape.ConnectorFactory.
func ConnectorFactory(opts ...Option) pgscrape.ConnectorFactory {
	return func(cfg *pgscrape.ConnectionConfig) (pgscrape.Connector, error) {
		return NewConnector(cfg, opts...)
	}
}

// wrapConnectionError adds a hint for common failures and marks the error
// with ErrConnectionFailed.
func wrapConnectionError(err error, cfg *pgscrape.ConnectionConfig) error {
	msg := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var hint string
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused"):
		hint = fmt.Sprintf("connection refused to %s (is PostgreSQL running? check: pg_isready -h %s -p %d)", addr, cfg.Host, cfg.Port)
	case strings.Contains(msg, "no such host"):
		hint = fmt.Sprintf("cannot resolve host %q (check DB_HOST / -h)", cfg.Host)
	case strings.Contains(msg, "password authentication failed"):
		hint = fmt.Sprintf("password authentication failed for user %q (check DB_PASSWORD or ~/.pgpass)", cfg.Username)
	case strings.Contains(msg, "does not exist"):
		hint = fmt.Sprintf("database %q does not exist (create it with: pgscrape db ensure)", cfg.Database)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		hint = fmt.Sprintf("connection timed out to %s", addr)
	default:
		hint = fmt.Sprintf("failed to connect to %s/%s", addr, cfg.Database)
	}
	return fmt.Errorf("%s: %w: %w", hint, pgscrape.ErrConnectionFailed, err)
}
