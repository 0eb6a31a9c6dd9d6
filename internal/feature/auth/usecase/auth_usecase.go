// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"todo_backend/internal/feature/auth/domain/entity"
	jwtmw "todo_backend/internal/platform/jwt"
	"todo_backend/internal/platform/password"
)

const (
	// LoginTokenTTL はログインで発行するアクセストークンの有効期間です。
	LoginTokenTTL = 30 * time.Minute
	// ResetTokenTTL はパスワード再設定トークンの有効期間です。
	ResetTokenTTL = 15 * time.Minute
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// UpdatePassword はパスワードハッシュと更新日時を書き換えます。
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error
}

// ResetTokenStore は使用済みの再設定トークンIDを記録します。
type ResetTokenStore interface {
	// Redeem は jti を使用済みにします。既に使用済みならErrResetTokenUsedを返します。
	Redeem(ctx context.Context, jti string, expiresAt time.Time) error

	// Release は Redeem の記録を取り消します。記録が無ければ何もしません。
	Release(ctx context.Context, jti string) error
}

// ResetNotifier は発行した再設定トークンを利用者へ届けます（メール送信など）。
type ResetNotifier interface {
	NotifyReset(ctx context.Context, user *entity.User, token string) error
}

// PasswordHasher はパスワードのハッシュ化と照合を行います。
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
	// VerifyDummy はユーザー不在時にも照合コストを払うためのものです。
	VerifyDummy(plain string) bool
}

// TokenManager はJWTの発行と検証を行います。
type TokenManager interface {
	IssueToken(subject, email string, ttl time.Duration) (string, error)
	VerifyToken(token string) (*jwtmw.Claims, error)
}

// UnitOfWork は1リクエスト分の処理を1トランザクションで実行します。
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegisterInput は新規登録の入力です。
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	uow      UnitOfWork
	users    UserRepository
	resets   ResetTokenStore
	notifier ResetNotifier
	hasher   PasswordHasher
	tokens   TokenManager
	now      func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(
	uow UnitOfWork,
	users UserRepository,
	resets ResetTokenStore,
	notifier ResetNotifier,
	hasher PasswordHasher,
	tokens TokenManager,
) *authUsecase {
	return &authUsecase{
		uow:      uow,
		users:    users,
		resets:   resets,
		notifier: notifier,
		hasher:   hasher,
		tokens:   tokens,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録します。
// メールアドレスが登録済みの場合、ErrEmailAlreadyExistsを返します。
func (u *authUsecase) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	hashed, err := u.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var created *entity.User
	err = u.uow.Within(ctx, func(ctx context.Context) error {
		// 既存チェック。すり抜けた同時登録はリポジトリ側で重複として返る
		if _, err := u.users.FindByEmail(ctx, in.Email); err == nil {
			return ErrEmailAlreadyExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		now := u.now()
		user := &entity.User{
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Password:  hashed,
			CreatedAt: now,
			UpdatedAt: now,
			Status:    entity.StatusActive,
		}
		if err := u.users.Create(ctx, user); err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login はユーザーを認証し、成功時にアクセストークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, plain string) (string, error) {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			u.hasher.VerifyDummy(plain)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !u.hasher.Verify(plain, user.Password) {
		return "", ErrInvalidCredentials
	}

	token, err := u.tokens.IssueToken(user.ID.String(), user.Email, LoginTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// ForgotPassword は再設定トークンを発行してnotifierへ渡します。
// ユーザーが存在しない場合、ErrUserNotFoundを返します。
func (u *authUsecase) ForgotPassword(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := u.tokens.IssueToken(user.ID.String(), user.Email, ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := u.notifier.NotifyReset(ctx, user, token); err != nil {
		return fmt.Errorf("failed to deliver reset token: %w", err)
	}
	return nil
}

// ResetPassword は再設定トークンを検証し、新しいパスワードを保存します。
// トークンは一度しか使えません。
func (u *authUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := u.tokens.VerifyToken(token)
	if err != nil {
		slog.Debug("reset token rejected", "error", err)
		return ErrInvalidResetToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidResetToken
	}

	hashed, err := u.hashPassword(newPassword)
	if err != nil {
		return err
	}

	redeemed := false
	err = u.uow.Within(ctx, func(ctx context.Context) error {
		if err := u.users.UpdatePassword(ctx, userID, hashed, u.now()); err != nil {
			return err
		}
		// 更新と同じ作業単位で使用済みにし、二重使用なら更新ごと取り消す
		if err := u.resets.Redeem(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	if err != nil && redeemed {
		// Redis の記録はトランザクション外なので、コミット失敗時は自分で戻す
		if rerr := u.resets.Release(context.WithoutCancel(ctx), claims.ID); rerr != nil {
			slog.Error("failed to release reset token", "error", rerr)
		}
	}
	return err
}

// Me はトークンの主体（ユーザーID文字列）に対応するユーザーを返します。
func (u *authUsecase) Me(ctx context.Context, subject string) (*entity.User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u.users.FindByID(ctx, id)
}

func (u *authUsecase) hashPassword(plain string) (string, error) {
	hashed, err := u.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return "", ErrInvalidPassword
		}
		return "", err
	}
	return hashed, nil
}
