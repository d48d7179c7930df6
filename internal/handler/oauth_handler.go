// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/taskman/internal/auth"
	"github.com/hitoshi/taskman/internal/metrics"
)

// AuthServiceInterface はOAuthハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BuildAuthorizeURL(query url.Values) string
	ExchangeCode(ctx context.Context, form url.Values) (*auth.SessionResult, error)
}

// OAuthHandlerConfig はOAuthハンドラーの設定。
type OAuthHandlerConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// OAuthHandler はOAuthブリッジのHTTPハンドラー。
// MCPクライアントに対してOAuth認可サーバーの皮をかぶり、実際の認証は
// Googleへ中継する。クライアントに返すトークンは自前のセッショントークン。
type OAuthHandler struct {
	service AuthServiceInterface
	config  OAuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewOAuthHandler はOAuthHandlerを生成する。
func NewOAuthHandler(service AuthServiceInterface, config OAuthHandlerConfig, collector metrics.MetricsCollector) *OAuthHandler {
	return &OAuthHandler{
		service: service,
		config:  config,
		metrics: collector,
	}
}

// Register は動的クライアント登録に応答する。
// POST /register
// 実際にクライアントを登録することはなく、事前設定済みのクレデンシャルを
// 返してクライアントのredirect_urisをそのままエコーする。
func (h *OAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RedirectURIs []string `json:"redirect_uris"`
	}
	// ボディのパース失敗はredirect_urisが空なだけで登録自体は成功扱い
	_ = json.NewDecoder(r.Body).Decode(&body)

	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":                  h.config.ClientID,
		"client_secret":              h.config.ClientSecret,
		"redirect_uris":              body.RedirectURIs,
		"token_endpoint_auth_method": "client_secret_post",
	})
}

// Authorize はプロバイダーの認可エンドポイントへリダイレクトする。
// GET /authorize
// クライアントのクエリパラメータ（redirect_uri、state、code_challenge等）は
// そのまま引き継ぎ、client_idとscopeをサーバー側の値で上書きする。
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	authorizeURL := h.service.BuildAuthorizeURL(r.URL.Query())
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Token は認可コードをセッショントークンに交換する。
// POST /token
// フォームをプロバイダーへ転送し、成功時は自前のセッショントークンを返す。
// プロバイダーが交換を拒否した場合はそのステータスコードを引き継ぐ。
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.metrics.RecordTokenExchange("internal_error")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "invalid request body",
		})
		return
	}

	result, err := h.service.ExchangeCode(r.Context(), r.PostForm)
	if err != nil {
		var exchangeErr *auth.ProviderExchangeError
		if errors.As(err, &exchangeErr) {
			h.metrics.RecordTokenExchange("provider_error")
			slog.Warn("provider rejected token exchange",
				slog.Int("status", exchangeErr.StatusCode),
			)
			writeJSON(w, exchangeErr.StatusCode, map[string]any{
				"error":   "Token request failed",
				"status":  exchangeErr.StatusCode,
				"details": exchangeErr.Body,
			})
			return
		}

		h.metrics.RecordTokenExchange("internal_error")
		slog.Error("token exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Token request failed",
		})
		return
	}

	h.metrics.RecordTokenExchange("success")

	// クライアント実装によってはkeep-aliveな接続上のレスポンスを
	// 待ち続けるものがあるため、明示的に接続を閉じる。
	w.Header().Set("Connection", "close")
	writeJSON(w, http.StatusOK, result)
}

// Metadata はOAuth認可サーバーメタデータを返す。
// GET /.well-known/oauth-authorization-server
func (h *OAuthHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	base := h.config.BaseURL
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                base,
		"authorization_endpoint":                base + "/authorize",
		"token_endpoint":                        base + "/token",
		"registration_endpoint":                 base + "/register",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":      []string{"S256"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_post"},
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
