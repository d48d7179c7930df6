package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// Pinger はストアの疎通確認インターフェース。
// インメモリバックエンドの場合はnilを渡す。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	AccessRecorder    middleware.AccessRecorder
	AuthMetrics       middleware.AuthMetrics
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// OAuthブリッジ
	OAuthHandler *OAuthHandler

	// MCPトランスポート
	MCPHandler http.Handler

	// ヘルスチェック
	Pinger Pinger

	// メトリクス公開
	MetricsHandler http.Handler

	// アクセスログ
	Logger *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RecoveryMiddleware → LoggingMiddleware
//	（保護ルートはさらに BearerAuthMiddleware → RateLimitMiddleware）
//
// OAuthブリッジのルートは認証不要でミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	// --- 認証不要のルート ---

	// OAuthブリッジ
	r.Post("/register", deps.OAuthHandler.Register)
	r.Get("/authorize", deps.OAuthHandler.Authorize)
	r.Post("/token", deps.OAuthHandler.Token)
	r.Get("/.well-known/oauth-authorization-server", deps.OAuthHandler.Metadata)

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.Pinger))

	// メトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier, deps.AccessRecorder, deps.AuthMetrics))
		r.Use(deps.RateLimiter.Middleware())

		r.Mount("/mcp", deps.MCPHandler)
	})

	return r
}

// newHealthHandler はヘルスチェックのハンドラーを返す。
// Pingerが指定されている場合はストアの疎通まで確認する。
func newHealthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			if err := pinger.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteErrorResponse(w, http.StatusServiceUnavailable,
					model.NewStoreUnavailableError("health check failed"))
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
