package registry

import (
	"context"
	"fmt"
	"time"

	"tujane/internal/config"
	"tujane/internal/matching-service/core/ports"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "tujane:ride-code:"

// Redis shares reserved ride codes between matcher instances.
type Redis struct {
	client *redis.Client
}

var _ ports.ICodeRegistry = (*Redis)(nil)

func NewRedis(cfg *config.Redisconfig) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// Reserve claims code until ttl elapses. It reports false when another
// ride already holds it.
func (r *Redis) Reserve(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, codeKeyPrefix+code, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", code, err)
	}
	return ok, nil
}

func (r *Redis) IsAlive(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
