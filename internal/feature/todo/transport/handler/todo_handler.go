// Package handler はtodoフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"todo_backend/internal/api"
	"todo_backend/internal/feature/todo/domain/entity"
	"todo_backend/internal/feature/todo/usecase"
	"todo_backend/internal/platform/http/middleware"
)

// TodoUsecase はTodo操作のユースケースを定義します。
type TodoUsecase interface {
	Create(ctx context.Context, in usecase.CreateInput) (*usecase.CreateResult, error)
	ListAll(ctx context.Context) ([]entity.Todo, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.Todo, error)
	Update(ctx context.Context, id uuid.UUID, p usecase.Patch) (*entity.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TodoHandler はTodo操作のHTTPリクエストを処理します。
type TodoHandler struct {
	todos TodoUsecase
}

// NewTodoHandler はTodoHandlerの新しいインスタンスを生成します。
func NewTodoHandler(todos TodoUsecase) *TodoHandler {
	return &TodoHandler{todos: todos}
}

// Create はTodo作成APIエンドポイントを処理します。
// 送信内容と所有者情報をrequest_dataとしてそのまま返します。
func (h *TodoHandler) Create(c *gin.Context) {
	var req api.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("create todo validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	res, err := h.todos.Create(c.Request.Context(), usecase.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		UserID:      req.UserID,
	})
	if err != nil {
		writeError(c, "create todo failed", err)
		return
	}

	slog.Info("todo created", "todo_id", res.Todo.ID.String(), "user_id", res.Owner.ID.String())
	c.JSON(http.StatusCreated, api.CreateTodoResponse{
		Message:  "Todo created successfully",
		TodoData: toTodoResponse(res.Todo),
		RequestData: api.CreateTodoEcho{
			SentTitle:       req.Title,
			SentDescription: req.Description,
			SentUserID:      req.UserID,
			UserInfo: api.UserInfo{
				FirstName: res.Owner.FirstName,
				LastName:  res.Owner.LastName,
				Email:     res.Owner.Email,
			},
		},
	})
}

// ListAll は全ユーザーのTodoを返します。
func (h *TodoHandler) ListAll(c *gin.Context) {
	todos, err := h.todos.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, "list todos failed", err)
		return
	}
	c.JSON(http.StatusOK, toTodoResponses(todos))
}

// ListByUser はパスで指定されたユーザーのTodoを返します。
func (h *TodoHandler) ListByUser(c *gin.Context) {
	userID, err := api.BindUUIDPath(c, "user_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid user_id format"})
		return
	}

	todos, err := h.todos.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "list user todos failed", err)
		return
	}
	c.JSON(http.StatusOK, toTodoResponses(todos))
}

// Update はTodoを部分更新します。
func (h *TodoHandler) Update(c *gin.Context) {
	id, err := api.BindUUIDPath(c, "todo_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid todo_id format"})
		return
	}

	var req api.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("update todo validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	todo, err := h.todos.Update(c.Request.Context(), id, usecase.Patch{
		Title:       req.Title,
		Description: req.Description,
		IsDone:      req.IsDone,
	})
	if err != nil {
		writeError(c, "update todo failed", err)
		return
	}
	c.JSON(http.StatusOK, toTodoResponse(todo))
}

// Delete はTodoを削除し、204を返します。
func (h *TodoHandler) Delete(c *gin.Context) {
	id, err := api.BindUUIDPath(c, "todo_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid todo_id format"})
		return
	}

	if err := h.todos.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "delete todo failed", err)
		return
	}

	slog.Info("todo deleted", "todo_id", id.String())
	c.Status(http.StatusNoContent)
}

// writeError はユースケースのエラーをHTTPステータスに変換します。
func writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, usecase.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Todo not found"})
	case errors.Is(err, usecase.ErrUserNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "User not found"})
	case errors.Is(err, usecase.ErrInvalidUserID):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid user_id format"})
	case errors.Is(err, usecase.ErrInvalidField):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		middleware.FromContext(c.Request.Context()).Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal server error"})
	}
}

func toTodoResponse(t *entity.Todo) api.TodoResponse {
	return api.TodoResponse{
		ID:          openapi_types.UUID(t.ID),
		Title:       t.Title,
		Description: t.Description,
		IsDone:      t.IsDone,
		UserID:      openapi_types.UUID(t.UserID),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// toTodoResponses は空でも[]を返すようにnilスライスを避けます。
func toTodoResponses(todos []entity.Todo) []api.TodoResponse {
	out := make([]api.TodoResponse, 0, len(todos))
	for i := range todos {
		out = append(out, toTodoResponse(&todos[i]))
	}
	return out
}
