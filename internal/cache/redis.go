package cache

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/storeline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no address is configured. Consumers treat
// a nil client as "feature disabled".
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("redis not configured, rate limiting and token revocation disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}
