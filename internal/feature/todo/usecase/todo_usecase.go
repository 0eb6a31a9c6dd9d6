// Package usecase はtodoフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"todo_backend/internal/feature/todo/domain/entity"
	"todo_backend/internal/shared/optional"
)

// TodoRepository はTodoエンティティの永続化層を抽象化します。
// インターフェースはコンシューマー（usecase）が定義します。
type TodoRepository interface {
	// Create は新しいTodoを保存します。IDは未設定なら採番されます。
	Create(ctx context.Context, todo *entity.Todo) error
	// FindByID は該当がなければErrTodoNotFoundを返します。
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Todo, error)
	// ListAll は所有者を問わず全件を返します。
	ListAll(ctx context.Context) ([]entity.Todo, error)
	// ListByUser は指定ユーザーのTodoを返します。
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Todo, error)
	// Update は変更可能な列と更新日時を書き戻します。該当がなければErrTodoNotFoundを返します。
	Update(ctx context.Context, todo *entity.Todo) error
	// Delete は物理削除します。該当がなければErrTodoNotFoundを返します。
	Delete(ctx context.Context, id uuid.UUID) error
}

// OwnerRepository はTodoの所有者となるユーザーを参照します。
type OwnerRepository interface {
	// FindByID は該当がなければErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Owner, error)
}

// UnitOfWork は1リクエスト分の処理を1トランザクションで実行します。
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateInput はTodo作成の入力です。UserIDは検証前の文字列のまま受け取ります。
type CreateInput struct {
	Title       string
	Description *string
	UserID      string
}

// CreateResult は作成されたTodoと所有者です。
type CreateResult struct {
	Todo  *entity.Todo
	Owner *entity.Owner
}

// Patch は部分更新の内容です。未指定の項目は変更しません。
type Patch struct {
	Title       optional.Value[string]
	Description optional.Value[string]
	IsDone      optional.Value[bool]
}

// todoUsecase はTodoのCRUDを実装します。
type todoUsecase struct {
	uow    UnitOfWork
	todos  TodoRepository
	owners OwnerRepository
	now    func() time.Time
}

// NewTodoUsecase はtodoUsecaseの新しいインスタンスを生成します。
func NewTodoUsecase(uow UnitOfWork, todos TodoRepository, owners OwnerRepository) *todoUsecase {
	return &todoUsecase{
		uow:    uow,
		todos:  todos,
		owners: owners,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create は所有者の存在を確認してからTodoを保存します。
func (u *todoUsecase) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if in.Description != nil {
		if err := validateDescription(*in.Description); err != nil {
			return nil, err
		}
	}

	var res *CreateResult
	err = u.uow.Within(ctx, func(ctx context.Context) error {
		owner, err := u.owners.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		now := u.now()
		todo := &entity.Todo{
			Title:       in.Title,
			Description: in.Description,
			IsDone:      false,
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
			Status:      entity.StatusActive,
		}
		if err := u.todos.Create(ctx, todo); err != nil {
			return err
		}
		res = &CreateResult{Todo: todo, Owner: owner}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListAll は全ユーザーのTodoを返します。ページングはしません。
func (u *todoUsecase) ListAll(ctx context.Context) ([]entity.Todo, error) {
	return u.todos.ListAll(ctx)
}

// ListByUser はユーザーの存在を確認してからそのTodoを返します。
func (u *todoUsecase) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Todo, error) {
	var todos []entity.Todo
	err := u.uow.Within(ctx, func(ctx context.Context) error {
		if _, err := u.owners.FindByID(ctx, userID); err != nil {
			return err
		}
		var err error
		todos, err = u.todos.ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// Update は指定された項目だけを書き換え、更新日時は常に進めます。
// title と is_done は NOT NULL 列のため null を拒否し、description の null は値を消去します。
func (u *todoUsecase) Update(ctx context.Context, id uuid.UUID, p Patch) (*entity.Todo, error) {
	if err := validatePatch(p); err != nil {
		return nil, err
	}

	var updated *entity.Todo
	err := u.uow.Within(ctx, func(ctx context.Context) error {
		todo, err := u.todos.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if v, ok := p.Title.Get(); ok {
			todo.Title = v
		}
		if p.Description.IsNull() {
			todo.Description = nil
		} else if v, ok := p.Description.Get(); ok {
			todo.Description = &v
		}
		if v, ok := p.IsDone.Get(); ok {
			todo.IsDone = v
		}
		todo.UpdatedAt = u.now()

		if err := u.todos.Update(ctx, todo); err != nil {
			return err
		}
		updated = todo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete はTodoを物理削除します。
func (u *todoUsecase) Delete(ctx context.Context, id uuid.UUID) error {
	return u.uow.Within(ctx, func(ctx context.Context) error {
		return u.todos.Delete(ctx, id)
	})
}

func validatePatch(p Patch) error {
	if p.Title.IsNull() {
		return fmt.Errorf("%w: title must not be null", ErrInvalidField)
	}
	if p.IsDone.IsNull() {
		return fmt.Errorf("%w: is_done must not be null", ErrInvalidField)
	}
	if v, ok := p.Title.Get(); ok {
		if err := validateTitle(v); err != nil {
			return err
		}
	}
	if v, ok := p.Description.Get(); ok {
		if err := validateDescription(v); err != nil {
			return err
		}
	}
	return nil
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidField)
	}
	if utf8.RuneCountInString(title) > entity.MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidField, entity.MaxTitleLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > entity.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidField, entity.MaxDescriptionLength)
	}
	return nil
}
