// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"todo_backend/internal/api"
	"todo_backend/internal/feature/auth/domain/entity"
	"todo_backend/internal/feature/auth/usecase"
	"todo_backend/internal/platform/http/middleware"
	jwtmw "todo_backend/internal/platform/jwt"
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Register は新規ユーザーを登録し、保存されたユーザーを返します。
	Register(ctx context.Context, in usecase.RegisterInput) (*entity.User, error)
	// Login はユーザーを認証し、成功時にアクセストークンを返します。
	Login(ctx context.Context, email, password string) (string, error)
	// ForgotPassword は再設定トークンを発行します。
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword は再設定トークンで新しいパスワードを設定します。
	ResetPassword(ctx context.Context, token, newPassword string) error
	// Me はトークンの主体に対応するユーザーを返します。
	Me(ctx context.Context, subject string) (*entity.User, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register はユーザー登録APIエンドポイントを処理します。
// - バリデーションエラー時は400を返却
// - メール重複時は409を返却
// - 成功時は201を返却
func (h *AuthHandler) Register(c *gin.Context) {
	var req api.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("register validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), usecase.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     string(req.Mail),
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmailAlreadyExists):
			slog.Warn("register conflict", "remote_addr", c.ClientIP())
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "User with this email already exists"})
		case errors.Is(err, usecase.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			internalError(c, "register failed", err)
		}
		return
	}

	slog.Info("user registered", "user_id", user.ID.String(), "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, api.CreateUserResponse{
		Message:  "User created successfully",
		UserID:   user.ID.String(),
		UserData: toUserData(user),
	})
}

// Login はOAuth2パスワードグラント形式のログインを処理します。
// フォームとJSONのどちらでも受け付け、usernameにはメールアドレスを指定します。
func (h *AuthHandler) Login(c *gin.Context) {
	var form api.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			// ユーザー列挙攻撃を防止するため、未登録と不一致を区別しない
			slog.Warn("login failed", "remote_addr", c.ClientIP())
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid credentials"})
			return
		}
		internalError(c, "login failed", err)
		return
	}

	c.JSON(http.StatusOK, api.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// ForgotPassword はパスワード再設定の要求を受け付けます。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req api.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Mail); err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "User not found"})
			return
		}
		internalError(c, "forgot password failed", err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Password reset link sent to your email"})
}

// ResetPassword は再設定トークンを使ってパスワードを更新します。
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req api.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidResetToken), errors.Is(err, usecase.ErrResetTokenUsed):
			slog.Warn("reset password rejected", "error", err, "remote_addr", c.ClientIP())
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid token"})
		case errors.Is(err, usecase.ErrUserNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "User not found"})
		case errors.Is(err, usecase.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			internalError(c, "reset password failed", err)
		}
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Password reset successfully"})
}

// Me は認証済みユーザー自身の情報を返します。AuthRequired の後段で使います。
func (h *AuthHandler) Me(c *gin.Context) {
	subject, ok := jwtmw.UserID(c)
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.auth.Me(c.Request.Context(), subject)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "User not found"})
			return
		}
		internalError(c, "me failed", err)
		return
	}

	c.JSON(http.StatusOK, toUserData(user))
}

func toUserData(u *entity.User) api.UserData {
	return api.UserData{
		ID:        openapi_types.UUID(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Mail:      u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Status:    u.Status,
	}
}

func internalError(c *gin.Context, msg string, err error) {
	middleware.FromContext(c.Request.Context()).Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
}
