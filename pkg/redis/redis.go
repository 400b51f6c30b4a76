// Package redis provides the shared redis client used for advisory
// locks and cached-identity invalidation.
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"github.com/workstack/hrsuite/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func New(cfg config.Config, log *zap.Logger) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		// Lock and invalidation callers degrade gracefully without redis.
		log.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return client
}

func registerHooks(lc fx.Lifecycle, client *goredis.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}

var Module = fx.Module("redis",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
