// Package di provides dependency injection factories for creating application components.
package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authadapters "todo_backend/internal/feature/auth/adapters"
	"todo_backend/internal/feature/auth/usecase"
	"todo_backend/internal/platform/tokenstore"
)

// resetKeyPrefix namespaces redeemed reset token markers in Redis.
const resetKeyPrefix = "reset"

// NewResetTokenStore creates a ResetTokenStore implementation.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to the redeemed_tokens table.
func NewResetTokenStore(rdb *redis.Client, gdb *gorm.DB) usecase.ResetTokenStore {
	if rdb != nil {
		return tokenstore.NewResetRedis(rdb, resetKeyPrefix)
	}
	return authadapters.NewResetTokenPostgres(gdb)
}
