// Package api defines the request and response bodies of the HTTP API.
// Field names follow the public wire format; binding tags are evaluated by Gin.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"todo_backend/internal/shared/optional"
)

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateUserRequest is the body of POST /auth/users.
type CreateUserRequest struct {
	FirstName string              `json:"first_name" binding:"required"`
	LastName  string              `json:"last_name" binding:"required"`
	Mail      openapi_types.Email `json:"mail" binding:"required"`
	Password  string              `json:"password" binding:"required"`
}

// UserData is the public projection of a user. The password hash is never part of it.
type UserData struct {
	ID        openapi_types.UUID `json:"id"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Mail      string             `json:"mail"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Status    int                `json:"status"`
}

// CreateUserResponse is returned by POST /auth/users.
type CreateUserResponse struct {
	Message  string   `json:"message"`
	UserID   string   `json:"user_id"`
	UserData UserData `json:"user_data"`
}

// LoginForm is the OAuth2 password-grant style body of POST /auth/token.
// The username is the user's email address.
type LoginForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Mail string `json:"mail" binding:"required"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// CreateTodoRequest is the body of POST /todolists.
// UserID is kept as a string so that a malformed identifier is reported as 400 by the usecase.
type CreateTodoRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	UserID      string  `json:"user_id" binding:"required"`
}

// UpdateTodoRequest is the body of PUT /todolists/{todo_id}.
// Absent keys are left untouched; see optional.Value.
type UpdateTodoRequest struct {
	Title       optional.Value[string] `json:"title"`
	Description optional.Value[string] `json:"description"`
	IsDone      optional.Value[bool]   `json:"is_done"`
}

// TodoResponse is the public projection of a todo item.
type TodoResponse struct {
	ID          openapi_types.UUID `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	IsDone      bool               `json:"is_done"`
	UserID      openapi_types.UUID `json:"user_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// UserInfo is the owner summary echoed back on todo creation.
type UserInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// CreateTodoEcho echoes the submitted request enriched with the owner.
type CreateTodoEcho struct {
	SentTitle       string   `json:"sent_title"`
	SentDescription *string  `json:"sent_description"`
	SentUserID      string   `json:"sent_user_id"`
	UserInfo        UserInfo `json:"user_info"`
}

// CreateTodoResponse is returned by POST /todolists.
type CreateTodoResponse struct {
	Message     string         `json:"message"`
	TodoData    TodoResponse   `json:"todo_data"`
	RequestData CreateTodoEcho `json:"request_data"`
}
