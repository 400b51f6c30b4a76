// Package session tracks which tenant scope a session's cached identity
// resolution belongs to. When a request resolves to a different tenant
// than the one a session was last seen on, the cached resolution is
// dropped so identity lookups hit the correct tenant's data store.
package session

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const scopeTTL = 24 * time.Hour

type Store struct {
	client *redis.Client
	log    *zap.Logger
}

func NewStore(client *redis.Client, log *zap.Logger) *Store {
	return &Store{
		client: client,
		log:    log.Named("session.store"),
	}
}

// EnsureScope binds the session to the given tenant scope, invalidating
// any cached identity resolution made under a different scope.
// Failures are logged and swallowed; a missed
// invalidation only costs one stale lookup, never a wrong write.
func (s *Store) EnsureScope(ctx context.Context, sessionKey, scope string) {
	if s == nil || s.client == nil || sessionKey == "" {
		return
	}

	scopeKey := fmt.Sprintf("session:scope:%s", sessionKey)
	current, err := s.client.Get(ctx, scopeKey).Result()
	if err != nil && err != redis.Nil {
		s.log.Warn("session scope lookup failed", zap.Error(err))
		return
	}
	if err == nil && current == scope {
		return
	}

	if err := s.Invalidate(ctx, sessionKey); err != nil {
		s.log.Warn("session invalidation failed", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, scopeKey, scope, scopeTTL).Err(); err != nil {
		s.log.Warn("session scope update failed", zap.Error(err))
	}
}

// Invalidate drops the cached identity resolution for a session.
func (s *Store) Invalidate(ctx context.Context, sessionKey string) error {
	if s == nil || s.client == nil || sessionKey == "" {
		return nil
	}
	return s.client.Del(ctx,
		fmt.Sprintf("session:identity:%s", sessionKey),
	).Err()
}

var Module = fx.Module("session",
	fx.Provide(NewStore),
)
