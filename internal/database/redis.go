package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collab-service/internal/config"
)

// InitRedis connects to Redis. Returns nil when Redis is unreachable: the
// service then runs single-instance (no cross-replica event fan-out), which
// is fine for local development.
func InitRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, running without event bridge",
			zap.String("addr", client.Options().Addr),
			zap.Error(err))
		return nil
	}

	return client
}
