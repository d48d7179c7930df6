// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はセッショントークンの検証インターフェース。
// auth.TokenServiceの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// AccessRecorder はツール呼び出しに伴うアクセス記録のインターフェース。
type AccessRecorder interface {
	RecordAccess(ctx context.Context, subjectID string) error
}

// AuthMetrics は認証結果のメトリクス記録インターフェース。
type AuthMetrics interface {
	RecordAuthRejection(reason string)
	RecordAccountingFailure()
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証する
// ミドルウェアを返す。検証に成功した場合はユーザーIDをリクエストコンテキスト
// に注入し、アクセス回数をベストエフォートで記録する。記録の失敗で
// リクエストを拒否することはない。
// トークンの欠落・不正・検証失敗はすべて同一の401レスポンスになる。
func NewBearerAuthMiddleware(verifier TokenVerifier, recorder AccessRecorder, metrics AuthMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				metrics.RecordAuthRejection("missing_token")
				writeUnauthorized(w)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				metrics.RecordAuthRejection("invalid_token")
				writeUnauthorized(w)
				return
			}

			// アクセス記録はベストエフォート。失敗してもツール呼び出しは通す。
			if err := recorder.RecordAccess(r.Context(), userID); err != nil {
				metrics.RecordAccountingFailure()
				slog.Warn("failed to record access",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// writeUnauthorized は401レスポンスを書き込む。
// ボディは固定で、拒否理由の詳細はクライアントに漏らさない。
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
