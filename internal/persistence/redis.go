package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/config"
)

// Redis holds the client used for rate limiting, token revocation and the dashboard cache.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis builds the client. An unreachable server is logged rather than fatal; callers
// that depend on Redis fail open or report through the readiness probe.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client, prefix: cfg.KeyPrefix}
}

// Key prefixes a key namespace with the configured service prefix,
// e.g. Key("dashboard:") gives "datifyy:dashboard:".
func (r *Redis) Key(namespace string) string {
	if r == nil {
		return namespace
	}
	return r.prefix + namespace
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping backs the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
