package db

import (
	"context"
	"time"
)

// TokenProvider acquires a short-lived token that is used as the database password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs; it must not include secrets.
	String() string
}
