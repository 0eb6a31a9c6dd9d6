package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"todo_backend/internal/feature/auth/domain/entity"
	jwtmw "todo_backend/internal/platform/jwt"
	"todo_backend/internal/platform/password"
)

// mockUserRepository is a mock implementation of UserRepository.
type mockUserRepository struct {
	CreateFunc         func(ctx context.Context, user *entity.User) error
	FindByEmailFunc    func(ctx context.Context, email string) (*entity.User, error)
	FindByIDFunc       func(ctx context.Context, id uuid.UUID) (*entity.User, error)
	UpdatePasswordFunc func(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, hash, updatedAt)
	}
	return nil
}

// mockResetTokenStore keeps redeemed ids in memory.
type mockResetTokenStore struct {
	redeemed map[string]bool
	released []string
	err      error
}

func (m *mockResetTokenStore) Redeem(_ context.Context, jti string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	if m.redeemed == nil {
		m.redeemed = map[string]bool{}
	}
	if m.redeemed[jti] {
		return ErrResetTokenUsed
	}
	m.redeemed[jti] = true
	return nil
}

func (m *mockResetTokenStore) Release(_ context.Context, jti string) error {
	m.released = append(m.released, jti)
	delete(m.redeemed, jti)
	return nil
}

// mockNotifier captures the last delivered token.
type mockNotifier struct {
	NotifyFunc func(ctx context.Context, user *entity.User, token string) error
	token      string
}

func (m *mockNotifier) NotifyReset(ctx context.Context, user *entity.User, token string) error {
	m.token = token
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, user, token)
	}
	return nil
}

// mockTokenManager lets a test fail issuance or verification.
type mockTokenManager struct {
	IssueTokenFunc  func(subject, email string, ttl time.Duration) (string, error)
	VerifyTokenFunc func(token string) (*jwtmw.Claims, error)
}

func (m *mockTokenManager) IssueToken(subject, email string, ttl time.Duration) (string, error) {
	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(subject, email, ttl)
	}
	return "mock-jwt-token", nil
}

func (m *mockTokenManager) VerifyToken(token string) (*jwtmw.Claims, error) {
	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(token)
	}
	return nil, jwtmw.ErrInvalidToken
}

// passthroughUOW runs fn directly; rollback is exercised by the adapter tests.
type passthroughUOW struct{}

func (passthroughUOW) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// commitFailingUOW runs fn and then fails as if the commit was refused.
type commitFailingUOW struct{ err error }

func (u commitFailingUOW) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return u.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users    *mockUserRepository
	resets   *mockResetTokenStore
	notifier *mockNotifier
	tokens   TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m, err := jwtmw.NewManager("test-secret", "HS256")
	require.NoError(t, err)
	return &fixture{
		users:    &mockUserRepository{},
		resets:   &mockResetTokenStore{},
		notifier: &mockNotifier{},
		tokens:   m,
	}
}

func (f *fixture) usecase() *authUsecase {
	uc := NewAuthUsecase(passthroughUOW{}, f.users, f.resets, f.notifier, password.NewHasher(bcrypt.MinCost), f.tokens)
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func hashFor(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthUsecase_Register(t *testing.T) {
	t.Parallel()

	t.Run("successful registration", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		var stored *entity.User
		f.users.CreateFunc = func(_ context.Context, user *entity.User) error {
			stored = user
			return nil
		}

		user, err := f.usecase().Register(context.Background(), RegisterInput{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "password123",
		})

		require.NoError(t, err)
		require.Same(t, stored, user)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, entity.StatusActive, user.Status)
		assert.Equal(t, fixedNow, user.CreatedAt)
		assert.Equal(t, fixedNow, user.UpdatedAt)
		assert.NotEqual(t, "password123", user.Password, "password is not hashed")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	})

	t.Run("email already registered", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FindByEmailFunc = func(_ context.Context, email string) (*entity.User, error) {
			return &entity.User{Email: email}, nil
		}
		f.users.CreateFunc = func(context.Context, *entity.User) error {
			t.Error("Create must not be called for a duplicate email")
			return nil
		}

		_, err := f.usecase().Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "x"})

		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("duplicate key race maps to conflict", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.CreateFunc = func(context.Context, *entity.User) error { return ErrEmailAlreadyExists }

		_, err := f.usecase().Register(context.Background(), RegisterInput{Email: "race@example.com", Password: "x"})

		assert.ErrorIs(t, err, ErrEmailAlreadyExists)
	})

	t.Run("repository failure is propagated", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		dbErr := errors.New("database error")
		f.users.FindByEmailFunc = func(context.Context, string) (*entity.User, error) { return nil, dbErr }

		_, err := f.usecase().Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "x"})

		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("password too long", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.usecase().Register(context.Background(), RegisterInput{Email: "a@example.com", Password: strings.Repeat("p", 73)})

		assert.ErrorIs(t, err, ErrInvalidPassword)
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	t.Parallel()

	testUser := &entity.User{ID: uuid.New(), Email: "test@example.com"}
	testUser.Password = hashFor(t, "password123")

	findTestUser := func(_ context.Context, email string) (*entity.User, error) {
		if email == testUser.Email {
			return testUser, nil
		}
		return nil, ErrUserNotFound
	}

	t.Run("successful login issues a verifiable token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FindByEmailFunc = findTestUser

		token, err := f.usecase().Login(context.Background(), "test@example.com", "password123")
		require.NoError(t, err)

		claims, err := f.tokens.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, testUser.ID.String(), claims.Subject)
		assert.Equal(t, testUser.Email, claims.Email)
		assert.WithinDuration(t, claims.IssuedAt.Add(LoginTokenTTL), claims.ExpiresAt.Time, time.Second)
	})

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "test@example.com", "wrong"},
		{"unknown user", "nobody@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.users.FindByEmailFunc = findTestUser

			token, err := f.usecase().Login(context.Background(), tt.email, tt.password)

			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Empty(t, token)
		})
	}

	t.Run("token generation failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FindByEmailFunc = findTestUser
		signErr := errors.New("sign failed")
		f.tokens = &mockTokenManager{IssueTokenFunc: func(string, string, time.Duration) (string, error) {
			return "", signErr
		}}

		_, err := f.usecase().Login(context.Background(), "test@example.com", "password123")

		assert.ErrorIs(t, err, signErr)
	})
}

func TestAuthUsecase_ForgotPassword(t *testing.T) {
	t.Parallel()

	user := &entity.User{ID: uuid.New(), Email: "reset@example.com"}

	t.Run("issues a reset token to the notifier", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FindByEmailFunc = func(context.Context, string) (*entity.User, error) { return user, nil }

		require.NoError(t, f.usecase().ForgotPassword(context.Background(), user.Email))

		require.NotEmpty(t, f.notifier.token)
		claims, err := f.tokens.VerifyToken(f.notifier.token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.Subject)
		assert.WithinDuration(t, claims.IssuedAt.Add(ResetTokenTTL), claims.ExpiresAt.Time, time.Second)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.usecase().ForgotPassword(context.Background(), "nobody@example.com")

		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, f.notifier.token)
	})

	t.Run("notifier failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FindByEmailFunc = func(context.Context, string) (*entity.User, error) { return user, nil }
		mailErr := errors.New("smtp down")
		f.notifier.NotifyFunc = func(context.Context, *entity.User, string) error { return mailErr }

		assert.ErrorIs(t, f.usecase().ForgotPassword(context.Background(), user.Email), mailErr)
	})
}

func TestAuthUsecase_ResetPassword(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	issue := func(t *testing.T, f *fixture, subject string) string {
		t.Helper()
		token, err := f.tokens.IssueToken(subject, "", ResetTokenTTL)
		require.NoError(t, err)
		return token
	}

	t.Run("updates the password once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		var gotHash string
		var gotAt time.Time
		f.users.UpdatePasswordFunc = func(_ context.Context, id uuid.UUID, hash string, at time.Time) error {
			assert.Equal(t, userID, id)
			gotHash, gotAt = hash, at
			return nil
		}
		uc := f.usecase()
		token := issue(t, f, userID.String())

		require.NoError(t, uc.ResetPassword(context.Background(), token, "new-password"))
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("new-password")))
		assert.Equal(t, fixedNow, gotAt)

		err := uc.ResetPassword(context.Background(), token, "another")
		assert.ErrorIs(t, err, ErrResetTokenUsed)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.usecase().ResetPassword(context.Background(), "garbage", "new-password")

		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("subject is not a user id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.usecase().ResetPassword(context.Background(), issue(t, f, "someone@example.com"), "new-password")

		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("user vanished", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.UpdatePasswordFunc = func(context.Context, uuid.UUID, string, time.Time) error { return ErrUserNotFound }

		err := f.usecase().ResetPassword(context.Background(), issue(t, f, userID.String()), "new-password")

		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, f.resets.redeemed, "token must not be spent when the update fails")
		assert.Empty(t, f.resets.released)
	})

	t.Run("failed commit releases the token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		commitErr := errors.New("commit refused")
		uc := NewAuthUsecase(commitFailingUOW{err: commitErr}, f.users, f.resets, f.notifier, password.NewHasher(bcrypt.MinCost), f.tokens)
		token := issue(t, f, userID.String())

		err := uc.ResetPassword(context.Background(), token, "new-password")

		assert.ErrorIs(t, err, commitErr)
		assert.Len(t, f.resets.released, 1)
		assert.Empty(t, f.resets.redeemed, "token must be usable again")

		// 再試行は成功する
		require.NoError(t, f.usecase().ResetPassword(context.Background(), token, "new-password"))
	})

	t.Run("reused token is not released", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		uc := f.usecase()
		token := issue(t, f, userID.String())
		require.NoError(t, uc.ResetPassword(context.Background(), token, "new-password"))

		err := uc.ResetPassword(context.Background(), token, "another")

		assert.ErrorIs(t, err, ErrResetTokenUsed)
		assert.Empty(t, f.resets.released)
		assert.Len(t, f.resets.redeemed, 1)
	})
}

func TestAuthUsecase_Me(t *testing.T) {
	t.Parallel()

	user := &entity.User{ID: uuid.New(), Email: "me@example.com"}

	f := newFixture(t)
	f.users.FindByIDFunc = func(_ context.Context, id uuid.UUID) (*entity.User, error) {
		if id == user.ID {
			return user, nil
		}
		return nil, ErrUserNotFound
	}
	uc := f.usecase()

	got, err := uc.Me(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Same(t, user, got)

	_, err = uc.Me(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = uc.Me(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
