// Package tools はタスク操作のMCPツール群を提供する。
package tools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hitoshi/taskman/internal/middleware"
)

const (
	serverName    = "taskman"
	serverVersion = "1.0.0"
)

// Server はMCPサーバーとツールハンドラーを束ねる。
type Server struct {
	mcpServer *server.MCPServer
	handler   *ToolHandler
}

// NewServer はツール群を登録したMCPサーバーを生成する。
func NewServer(handler *ToolHandler) *Server {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer: mcpServer,
		handler:   handler,
	}
	s.registerTools()

	return s
}

// registerTools は全ツールをMCPサーバーに登録する。
func (s *Server) registerTools() {
	s.mcpServer.AddTool(getTodosTool(), s.handler.GetTodos)
	s.mcpServer.AddTool(addTodoTool(), s.handler.AddTodo)
	s.mcpServer.AddTool(addTodosTool(), s.handler.AddTodos)
	s.mcpServer.AddTool(updateTodoTool(), s.handler.UpdateTodo)
	s.mcpServer.AddTool(updateTodosTool(), s.handler.UpdateTodos)
	s.mcpServer.AddTool(deleteTodoTool(), s.handler.DeleteTodo)
	s.mcpServer.AddTool(deleteTodosTool(), s.handler.DeleteTodos)
}

// HTTPHandler はstreamable HTTPトランスポートのハンドラーを返す。
// 認証ミドルウェアがリクエストコンテキストに注入したユーザーIDを
// ツールハンドラーのコンテキストへ引き継ぐ。
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
				return middleware.ContextWithUserID(ctx, userID)
			}
			return ctx
		}),
		server.WithStateLess(true),
	)
}

// getTodosTool は全タスク取得ツールのスキーマを定義する。
func getTodosTool() mcp.Tool {
	return mcp.NewTool(
		"get_todos",
		mcp.WithDescription("認証済みユーザーの全タスクを取得する"),
	)
}

// addTodoTool はタスク1件作成ツールのスキーマを定義する。
func addTodoTool() mcp.Tool {
	return mcp.NewTool(
		"add_todo",
		mcp.WithDescription("タスクを1件作成する"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("タスクのタイトル"),
		),
		mcp.WithString("due_date",
			mcp.Description("期限（YYYY-MM-DD または YYYY-MM-DD HH:MM）"),
		),
		mcp.WithString("priority",
			mcp.Description("優先度（low/medium/high、デフォルトはmedium）"),
			mcp.Enum("low", "medium", "high"),
		),
	)
}

// addTodosTool はタスク一括作成ツールのスキーマを定義する。
func addTodosTool() mcp.Tool {
	return mcp.NewTool(
		"add_todos",
		mcp.WithDescription("複数のタスクをまとめて作成する。1件でも不正な項目があれば一件も作成されない"),
		mcp.WithArray("todo_items",
			mcp.Required(),
			mcp.Description("作成するタスクのリスト。各項目はtitle（必須）、due_date、priorityを持つ"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": "string"},
					"due_date": map[string]any{"type": "string"},
					"priority": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				},
				"required": []string{"title"},
			}),
		),
	)
}

// updateTodoTool はタスク1件更新ツールのスキーマを定義する。
func updateTodoTool() mcp.Tool {
	return mcp.NewTool(
		"update_todo",
		mcp.WithDescription("タスクを1件更新する。指定したフィールドのみ変更される"),
		mcp.WithString("todo_id",
			mcp.Required(),
			mcp.Description("更新するタスクのID"),
		),
		mcp.WithString("title",
			mcp.Description("新しいタイトル"),
		),
		mcp.WithBoolean("completed",
			mcp.Description("完了状態"),
		),
		mcp.WithString("due_date",
			mcp.Description("新しい期限"),
		),
		mcp.WithString("priority",
			mcp.Description("新しい優先度（low/medium/high）"),
			mcp.Enum("low", "medium", "high"),
		),
	)
}

// updateTodosTool はタスク一括更新ツールのスキーマを定義する。
func updateTodosTool() mcp.Tool {
	return mcp.NewTool(
		"update_todos",
		mcp.WithDescription("複数のタスクをまとめて更新する。存在しないIDが1つでもあれば一件も更新されない"),
		mcp.WithArray("updates",
			mcp.Required(),
			mcp.Description("更新内容のリスト。各項目はtodo_id（必須）と変更するフィールドを持つ"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"todo_id":   map[string]any{"type": "string"},
					"title":     map[string]any{"type": "string"},
					"completed": map[string]any{"type": "boolean"},
					"due_date":  map[string]any{"type": "string"},
					"priority":  map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
				},
				"required": []string{"todo_id"},
			}),
		),
	)
}

// deleteTodoTool はタスク1件削除ツールのスキーマを定義する。
func deleteTodoTool() mcp.Tool {
	return mcp.NewTool(
		"delete_todo",
		mcp.WithDescription("タスクを1件削除する"),
		mcp.WithString("todo_id",
			mcp.Required(),
			mcp.Description("削除するタスクのID"),
		),
	)
}

// deleteTodosTool はタスク一括削除ツールのスキーマを定義する。
func deleteTodosTool() mcp.Tool {
	return mcp.NewTool(
		"delete_todos",
		mcp.WithDescription("複数のタスクをまとめて削除する。存在しないIDは結果に報告され、残りは削除される"),
		mcp.WithArray("todo_ids",
			mcp.Required(),
			mcp.Description("削除するタスクIDのリスト"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}
