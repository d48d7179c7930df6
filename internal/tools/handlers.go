package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hitoshi/taskman/internal/metrics"
	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// TaskService はツールハンドラーが必要とするタスク操作のインターフェース。
type TaskService interface {
	List(ctx context.Context, userID string) ([]*model.Task, error)
	CreateOne(ctx context.Context, userID string, create model.TaskCreate) (*model.Task, error)
	CreateMany(ctx context.Context, userID string, creates []model.TaskCreate) ([]*model.Task, error)
	UpdateOne(ctx context.Context, userID string, update model.TaskUpdate) (*model.Task, error)
	UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error)
	DeleteOne(ctx context.Context, userID, todoID string) error
	DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error)
}

// ToolHandler はMCPツールのハンドラー群。
// ユーザーIDは認証ミドルウェアが注入したコンテキストから取得するため、
// ツールの引数にユーザーを指定する手段はない。
type ToolHandler struct {
	tasks   TaskService
	metrics metrics.MetricsCollector
}

// NewToolHandler はToolHandlerを生成する。
func NewToolHandler(tasks TaskService, collector metrics.MetricsCollector) *ToolHandler {
	return &ToolHandler{tasks: tasks, metrics: collector}
}

// GetTodos は認証済みユーザーの全タスクを返す。
func (h *ToolHandler) GetTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, "get_todos", func(userID string) (any, error) {
		return h.tasks.List(ctx, userID)
	})
}

// AddTodo はタスクを1件作成する。
func (h *ToolHandler) AddTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(model.NewValidationError("title", "タイトルは必須です").Error()), nil
	}

	create := model.TaskCreate{
		Title:    title,
		DueDate:  request.GetString("due_date", ""),
		Priority: model.Priority(request.GetString("priority", "")),
	}

	return h.run(ctx, "add_todo", func(userID string) (any, error) {
		task, err := h.tasks.CreateOne(ctx, userID, create)
		if err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("create", 1)
		return task, nil
	})
}

// addTodosArgs はadd_todosツールの引数。
type addTodosArgs struct {
	TodoItems []model.TaskCreate `json:"todo_items"`
}

// AddTodos は複数のタスクをまとめて作成する。
func (h *ToolHandler) AddTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addTodosArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(model.NewValidationError("todo_items", err.Error()).Error()), nil
	}

	return h.run(ctx, "add_todos", func(userID string) (any, error) {
		tasks, err := h.tasks.CreateMany(ctx, userID, args.TodoItems)
		if err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("create", len(tasks))
		return tasks, nil
	})
}

// UpdateTodo はタスクを1件更新する。
// 省略したフィールドと明示的に指定したフィールドを区別するため、
// 引数マップのキーの有無でポインタを組み立てる。
func (h *ToolHandler) UpdateTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todoID, err := request.RequireString("todo_id")
	if err != nil {
		return mcp.NewToolResultError(model.NewValidationError("todo_id", "todo_idは必須です").Error()), nil
	}

	update := model.TaskUpdate{TodoID: todoID}
	args := request.GetArguments()

	if _, ok := args["title"]; ok {
		title := request.GetString("title", "")
		update.Title = &title
	}
	if _, ok := args["completed"]; ok {
		completed := request.GetBool("completed", false)
		update.Completed = &completed
	}
	if _, ok := args["due_date"]; ok {
		dueDate := request.GetString("due_date", "")
		update.DueDate = &dueDate
	}
	if _, ok := args["priority"]; ok {
		priority := model.Priority(request.GetString("priority", ""))
		update.Priority = &priority
	}

	return h.run(ctx, "update_todo", func(userID string) (any, error) {
		task, err := h.tasks.UpdateOne(ctx, userID, update)
		if err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("update", 1)
		return task, nil
	})
}

// updateTodosArgs はupdate_todosツールの引数。
type updateTodosArgs struct {
	Updates []model.TaskUpdate `json:"updates"`
}

// UpdateTodos は複数のタスクをまとめて更新する。
func (h *ToolHandler) UpdateTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args updateTodosArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(model.NewValidationError("updates", err.Error()).Error()), nil
	}

	return h.run(ctx, "update_todos", func(userID string) (any, error) {
		tasks, err := h.tasks.UpdateMany(ctx, userID, args.Updates)
		if err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("update", len(tasks))
		return tasks, nil
	})
}

// DeleteTodo はタスクを1件削除する。
func (h *ToolHandler) DeleteTodo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todoID, err := request.RequireString("todo_id")
	if err != nil {
		return mcp.NewToolResultError(model.NewValidationError("todo_id", "todo_idは必須です").Error()), nil
	}

	return h.run(ctx, "delete_todo", func(userID string) (any, error) {
		if err := h.tasks.DeleteOne(ctx, userID, todoID); err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("delete", 1)
		return map[string]string{"message": fmt.Sprintf("タスクを削除しました: %s", todoID)}, nil
	})
}

// deleteTodosArgs はdelete_todosツールの引数。
type deleteTodosArgs struct {
	TodoIDs []string `json:"todo_ids"`
}

// DeleteTodos は複数のタスクをまとめて削除する。
func (h *ToolHandler) DeleteTodos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args deleteTodosArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(model.NewValidationError("todo_ids", err.Error()).Error()), nil
	}

	return h.run(ctx, "delete_todos", func(userID string) (any, error) {
		result, err := h.tasks.DeleteMany(ctx, userID, args.TodoIDs)
		if err != nil {
			return nil, err
		}
		h.metrics.RecordTaskMutations("delete", result.DeletedCount)
		return result, nil
	})
}

// run はユーザーIDの取得、実行、結果のJSON化、メトリクス記録の共通処理。
// ドメインエラーはツール結果のエラーとして返し、プロトコルエラーにはしない。
func (h *ToolHandler) run(ctx context.Context, tool string, fn func(userID string) (any, error)) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer func() {
		h.metrics.RecordToolLatency(tool, time.Since(start))
	}()

	userID, err := middleware.UserIDFromContext(ctx)
	if err != nil {
		h.metrics.RecordToolCall(tool, "unauthorized")
		return mcp.NewToolResultError(model.NewUnauthorizedError().Error()), nil
	}

	result, err := fn(userID)
	if err != nil {
		h.metrics.RecordToolCall(tool, "error")
		slog.Warn("tool call failed",
			slog.String("tool", tool),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return mcp.NewToolResultError(toolErrorMessage(err)), nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		h.metrics.RecordToolCall(tool, "error")
		return mcp.NewToolResultError(fmt.Sprintf("結果のエンコードに失敗しました: %v", err)), nil
	}

	h.metrics.RecordToolCall(tool, "success")
	return mcp.NewToolResultText(string(body)), nil
}

// toolErrorMessage はエラーからツール結果用のメッセージを取り出す。
// APIErrorの場合はコードと対処方法を含んだ形式で返す。
func toolErrorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s %s", apiErr.Error(), apiErr.Action)
	}
	return err.Error()
}
