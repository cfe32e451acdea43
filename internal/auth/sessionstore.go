package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/redis/go-redis/v9"
)

// SessionStore tracks which issued tokens are still valid. A session exists
// until it is revoked or its TTL runs out.
type SessionStore interface {
	Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
	Close() error
}

func NewSessionStore(ctx context.Context, config core.Sessions) (SessionStore, error) {
	switch config.Type {
	case "memory":
		slog.Info("using in-memory session store")
		return NewMemorySessionStore(), nil
	case "redis":
		store, err := NewRedisSessionStore(ctx, &redis.Options{
			Addr:     config.Address,
			Password: config.Password,
			DB:       config.DB,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using redis session store", "address", config.Address, "db", config.DB)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", config.Type)
	}
}
