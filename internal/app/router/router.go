package router

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "todo_backend/internal/feature/auth/transport/handler"
	todohandler "todo_backend/internal/feature/todo/transport/handler"
	"todo_backend/internal/platform/http/handler"
	"todo_backend/internal/platform/http/middleware"
	jwtmw "todo_backend/internal/platform/jwt"
	"todo_backend/internal/platform/metrics"
)

// APIPrefix is the mount point of every application route.
const APIPrefix = "/api/v1/app"

// Deps groups what the router needs beyond the feature handlers.
type Deps struct {
	Verifier jwtmw.Verifier
	Store    handler.Pinger
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewRouter(authHandler *authhandler.AuthHandler, todos *todohandler.TodoHandler, deps Deps) *gin.Engine {
	r := gin.New()
	// パニックもリクエストログとメトリクスに500として残るよう、復帰は最も内側に置く
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, recoverPanic))

	// 運用エンドポイント（プレフィックス外）
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	health := handler.Health(deps.Store)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	api := r.Group(APIPrefix)

	// 認証不要
	auth := api.Group("/auth")
	{
		// 新規ユーザー登録
		auth.POST("/users", authHandler.Register)
		// ログイン（JWT 発行）
		auth.POST("/token", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	me := auth.Group("/users/me")
	me.Use(jwtmw.AuthRequired(deps.Verifier))
	{
		me.GET("", authHandler.Me)
	}

	lists := api.Group("/todolists")
	{
		lists.POST("", todos.Create)
		lists.GET("", todos.ListAll)
		lists.GET("/:user_id", todos.ListByUser)
		lists.PUT("/:todo_id", todos.Update)
		lists.DELETE("/:todo_id", todos.Delete)
	}

	return r
}

func recoverPanic(c *gin.Context, recovered any) {
	middleware.FromContext(c.Request.Context()).Error("panic recovered", "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
