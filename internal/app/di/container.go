package di

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authadapters "todo_backend/internal/feature/auth/adapters"
	authentity "todo_backend/internal/feature/auth/domain/entity"
	authhandler "todo_backend/internal/feature/auth/transport/handler"
	authusecase "todo_backend/internal/feature/auth/usecase"
	todoadapters "todo_backend/internal/feature/todo/adapters"
	todoentity "todo_backend/internal/feature/todo/domain/entity"
	todohandler "todo_backend/internal/feature/todo/transport/handler"
	todousecase "todo_backend/internal/feature/todo/usecase"
	"todo_backend/internal/platform/config"
	"todo_backend/internal/platform/db"
	jwtmw "todo_backend/internal/platform/jwt"
	"todo_backend/internal/platform/password"
)

// Container holds the fully wired HTTP handlers and the shared token manager.
type Container struct {
	AuthHandler *authhandler.AuthHandler
	TodoHandler *todohandler.TodoHandler
	Tokens      *jwtmw.Manager
}

// Models returns every persisted model in migration order.
func Models() []any {
	return []any{
		&authentity.User{},
		&todoentity.Todo{},
		&authadapters.RedeemedTokenModel{},
	}
}

// NewContainer wires repositories, usecases and handlers around one *gorm.DB.
// rdb may be nil, in which case redeemed reset tokens are kept in the database.
func NewContainer(cfg config.Config, gdb *gorm.DB, rdb *redis.Client) (*Container, error) {
	tokens, err := jwtmw.NewManager(cfg.JWT.Secret, cfg.JWT.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}
	gateway := db.NewGateway(gdb)

	// Repository
	userRepo := authadapters.NewUserPostgres(gdb)
	todoRepo := todoadapters.NewTodoPostgres(gdb)
	ownerRepo := todoadapters.NewOwnerPostgres(gdb)
	resetStore := NewResetTokenStore(rdb, gdb)

	// Usecase
	authUC := authusecase.NewAuthUsecase(
		gateway,
		userRepo,
		resetStore,
		authusecase.LogNotifier{},
		password.NewHasher(cfg.Bcrypt.Cost),
		tokens,
	)
	todoUC := todousecase.NewTodoUsecase(gateway, todoRepo, ownerRepo)

	// Handler
	return &Container{
		AuthHandler: authhandler.NewAuthHandler(authUC),
		TodoHandler: todohandler.NewTodoHandler(todoUC),
		Tokens:      tokens,
	}, nil
}
