package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:jti:"

// Redis is a redis-backed revocation list shared between server instances.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a redis-backed revocation list.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Revoke stores the token id with a TTL matching the remaining token lifetime.
// The key existence is the marker; redis expires it on its own.
func (r *Redis) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// Revoked reports whether the token id is on the list.
func (r *Redis) Revoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
