// Package auth はOAuthプロバイダーへの中継とセッショントークンの
// 発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// ProviderIdentity はOAuthプロバイダーから取得したユーザー情報を表す。
type ProviderIdentity struct {
	SubjectID string
	Email     string
	Name      string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// BuildAuthorizeURL はクライアントのクエリを元に認可URLを生成する。
	BuildAuthorizeURL(query url.Values) string
	// Exchange はトークンリクエストをプロバイダーへ転送し、ユーザー情報を取得する。
	Exchange(ctx context.Context, form url.Values) (*ProviderIdentity, error)
}

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(subjectID string) (string, error)
}

// SessionResult はトークン交換の結果。クライアントに返すのは
// プロバイダーのトークンではなく、このサーバーが発行した
// セッショントークンである。
type SessionResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service は認可コード交換からセッション発行までの一連の流れを提供する。
type Service struct {
	oauth    OAuthProvider
	tokens   TokenIssuer
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, tokens TokenIssuer, userRepo repository.UserRepository) *Service {
	return &Service{
		oauth:    oauth,
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// BuildAuthorizeURL はプロバイダーの認可URLを生成する。
func (s *Service) BuildAuthorizeURL(query url.Values) string {
	return s.oauth.BuildAuthorizeURL(query)
}

// ExchangeCode はトークンリクエストをプロバイダーへ転送し、成功した場合
// のみユーザーディレクトリを更新してセッショントークンを発行する。
// プロバイダー交換が失敗した場合、ディレクトリへの書き込みは一切
// 発生しない。
func (s *Service) ExchangeCode(ctx context.Context, form url.Values) (*SessionResult, error) {
	identity, err := s.oauth.Exchange(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	user, err := s.userRepo.GetOrCreate(ctx, identity.SubjectID, identity.Email, identity.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	logUserUpsert(user)

	sessionToken, err := s.tokens.Issue(identity.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &SessionResult{
		AccessToken: sessionToken,
		TokenType:   "Bearer",
	}, nil
}

// logUserUpsert は初回登録か再訪かを区別してログに残す。
func logUserUpsert(user *model.User) {
	if user.AccessCount == 0 {
		slog.Info("new user registered",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
		)
		return
	}
	slog.Info("existing user logged in",
		slog.String("user_id", user.ID),
		slog.Int64("access_count", user.AccessCount),
	)
}
