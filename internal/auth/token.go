package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken は提示されたセッショントークンが検証に
// 失敗したことを表す。失敗理由の詳細は呼び出し側に漏らさない。
var ErrInvalidSessionToken = errors.New("invalid session token")

// sessionClaims はセッショントークンのクレーム。user_idのみを持ち、
// 有効期限クレームは発行しない。
type sessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService はHMAC-SHA256で署名したセッショントークンの発行と
// 検証を行う。トークンはこのサーバー自身が発行したものだけを受理し、
// プロバイダー発行のトークンとは互換性がない。
type TokenService struct {
	signingSecret []byte
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(signingSecret string) *TokenService {
	return &TokenService{signingSecret: []byte(signingSecret)}
}

// Issue は指定のsubject IDに紐づくセッショントークンを発行する。
// クレームはuser_idのみで有効期限を持たない。トークンの失効は
// 署名シークレットの差し替えによってのみ行う。
func (s *TokenService) Issue(subjectID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{UserID: subjectID})
	signed, err := token.SignedString(s.signingSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Verify はセッショントークンを検証し、埋め込まれたsubject IDを返す。
// 署名アルゴリズムはHS256のみ許可する（alg confusion対策）。
// 署名の正当性とuser_idクレームの存在が受理の条件のすべてで、
// 発行時刻による失効判定は行わない。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", ErrInvalidSessionToken
	}

	if claims.UserID == "" {
		return "", ErrInvalidSessionToken
	}

	return claims.UserID, nil
}
