// Package tokenstore records spent single-use tokens in Redis.
package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"todo_backend/internal/feature/auth/usecase"
)

// minTTL keeps a marker alive briefly even for a token at the edge of expiry.
const minTTL = time.Second

// ResetRedis implements usecase.ResetTokenStore using Redis SETNX.
// Keys expire together with the token they mark, so nothing needs cleaning up.
type ResetRedis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ usecase.ResetTokenStore = (*ResetRedis)(nil)

// NewResetRedis creates a new ResetRedis instance. An empty prefix means "reset".
func NewResetRedis(client *redis.Client, prefix string) *ResetRedis {
	if prefix == "" {
		prefix = "reset"
	}
	return &ResetRedis{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// key returns the Redis key for a token id.
func (r *ResetRedis) key(jti string) string {
	return fmt.Sprintf("%s:%s", r.prefix, jti)
}

// Redeem marks jti as spent until expiresAt.
// It returns usecase.ErrResetTokenUsed when the marker already exists.
func (r *ResetRedis) Redeem(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl < minTTL {
		ttl = minTTL
	}

	ok, err := r.client.SetNX(ctx, r.key(jti), r.now().Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("redeem reset token: %w", err)
	}
	if !ok {
		return usecase.ErrResetTokenUsed
	}
	return nil
}

// Release removes the marker for jti so the token can be used again.
func (r *ResetRedis) Release(ctx context.Context, jti string) error {
	if err := r.client.Del(ctx, r.key(jti)).Err(); err != nil {
		return fmt.Errorf("release reset token: %w", err)
	}
	return nil
}
