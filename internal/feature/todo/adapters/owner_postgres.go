package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo_backend/internal/feature/todo/domain/entity"
	"todo_backend/internal/feature/todo/usecase"
	"todo_backend/internal/platform/db"
)

// ownerRow は users テーブルのうち所有者表示に使う列だけを読みます。
type ownerRow struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// ownerPostgres はOwnerRepositoryのGORM実装です。
// users テーブルは auth フィーチャーが所有し、ここでは読み取りのみ行います。
type ownerPostgres struct {
	db *gorm.DB
}

var _ usecase.OwnerRepository = (*ownerPostgres)(nil)

func NewOwnerPostgres(gdb *gorm.DB) *ownerPostgres {
	return &ownerPostgres{db: gdb}
}

// FindByID は存在しない場合、usecase.ErrUserNotFoundを返します。
func (r *ownerPostgres) FindByID(ctx context.Context, id uuid.UUID) (*entity.Owner, error) {
	var row ownerRow
	err := db.Conn(ctx, r.db).
		Table("users").
		Select("id", "first_name", "last_name", "email").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}
	return &entity.Owner{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
	}, nil
}
