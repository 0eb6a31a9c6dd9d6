package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todo_backend/internal/feature/auth/usecase"
	"todo_backend/internal/platform/db"
)

// resetTokenPostgres はResetTokenStoreのGORM実装です。Redis未設定時に使われます。
type resetTokenPostgres struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.ResetTokenStore = (*resetTokenPostgres)(nil)

// NewResetTokenPostgres は redeemed_tokens テーブルを使うストアを生成します。
func NewResetTokenPostgres(gdb *gorm.DB) *resetTokenPostgres {
	return &resetTokenPostgres{db: gdb, now: time.Now}
}

// Redeem は jti を使用済みとして記録します。
// 既に記録済みなら usecase.ErrResetTokenUsed を返します。
func (r *resetTokenPostgres) Redeem(ctx context.Context, jti string, expiresAt time.Time) error {
	row := &RedeemedTokenModel{
		JTI:        jti,
		ExpiresAt:  expiresAt,
		RedeemedAt: r.now(),
	}
	if err := db.Conn(ctx, r.db).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return usecase.ErrResetTokenUsed
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	return nil
}

// Release は jti の記録を削除します。
// 通常はトランザクションのロールバックで消えているため、ここでは何も起きません。
func (r *resetTokenPostgres) Release(ctx context.Context, jti string) error {
	if err := db.Conn(ctx, r.db).Where("jti = ?", jti).Delete(&RedeemedTokenModel{}).Error; err != nil {
		return fmt.Errorf("release reset token: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose token can no longer verify anyway.
func (r *resetTokenPostgres) DeleteExpired(ctx context.Context) (int64, error) {
	res := db.Conn(ctx, r.db).Where("expires_at < ?", r.now()).Delete(&RedeemedTokenModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
