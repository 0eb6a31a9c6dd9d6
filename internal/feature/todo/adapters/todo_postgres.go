// Package adapters はtodoフィーチャーのリポジトリ実装を提供します。
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

// todoPostgres はTodoRepositoryのGORM実装です。
type todoPostgres struct {
	db *gorm.DB
}

var _ usecase.TodoRepository = (*todoPostgres)(nil)

// NewTodoPostgres は指定されたgorm.DB接続でtodoPostgresを生成します。
func NewTodoPostgres(gdb *gorm.DB) *todoPostgres {
	return &todoPostgres{db: gdb}
}

func (r *todoPostgres) Create(ctx context.Context, t *entity.Todo) error {
	if err := db.Conn(ctx, r.db).Create(t).Error; err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

// FindByID はIDでTodoを取得します。存在しない場合、usecase.ErrTodoNotFoundを返します。
func (r *todoPostgres) FindByID(ctx context.Context, id uuid.UUID) (*entity.Todo, error) {
	var t entity.Todo
	if err := db.Conn(ctx, r.db).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrTodoNotFound
		}
		return nil, fmt.Errorf("find todo: %w", err)
	}
	return &t, nil
}

func (r *todoPostgres) ListAll(ctx context.Context) ([]entity.Todo, error) {
	todos := []entity.Todo{}
	if err := db.Conn(ctx, r.db).Order("created_at, id").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

func (r *todoPostgres) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Todo, error) {
	todos := []entity.Todo{}
	if err := db.Conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at, id").Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos by user: %w", err)
	}
	return todos, nil
}

// Update は title, description, is_done, updated_at を書き戻します。
// description が nil の場合は NULL になります。
func (r *todoPostgres) Update(ctx context.Context, t *entity.Todo) error {
	res := db.Conn(ctx, r.db).Model(&entity.Todo{}).Where("id = ?", t.ID).Updates(map[string]any{
		"title":       t.Title,
		"description": t.Description,
		"is_done":     t.IsDone,
		"updated_at":  t.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update todo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrTodoNotFound
	}
	return nil
}

// Delete はTodoを物理削除します。存在しない場合、usecase.ErrTodoNotFoundを返します。
func (r *todoPostgres) Delete(ctx context.Context, id uuid.UUID) error {
	res := db.Conn(ctx, r.db).Where("id = ?", id).Delete(&entity.Todo{})
	if res.Error != nil {
		return fmt.Errorf("delete todo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return usecase.ErrTodoNotFound
	}
	return nil
}
