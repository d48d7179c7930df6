package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// StoreBackend はタスク/ユーザーストアのバックエンド種別を表す。
type StoreBackend string

const (
	// StoreBackendPostgres はPostgreSQLバックエンドを示す。
	StoreBackendPostgres StoreBackend = "postgres"
	// StoreBackendMemory はインメモリバックエンドを示す。
	// 起動時に明示的に選択する。プロセス再起動でデータは消える。
	StoreBackendMemory StoreBackend = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend StoreBackend
	DatabaseURL  string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleAuthURL      string
	GoogleTokenURL     string

	// Session
	// SessionSigningSecretはセッショントークンのHMAC署名鍵。
	// 未設定時はGoogleClientSecretを流用する（移行元の挙動）。
	// システム内で最も機密性の高い設定値として扱うこと。
	SessionSigningSecret string

	// Provider
	ProviderTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// DATABASE_URLはSTORE_BACKEND=postgresの場合のみ必須。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	// ストアバックエンドの決定。
	// 明示指定がなければDATABASE_URLの有無でpostgres/memoryを選択する。
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "":
		if cfg.DatabaseURL != "" {
			cfg.StoreBackend = StoreBackendPostgres
		} else {
			cfg.StoreBackend = StoreBackendMemory
		}
	case string(StoreBackendPostgres):
		cfg.StoreBackend = StoreBackendPostgres
	case string(StoreBackendMemory):
		cfg.StoreBackend = StoreBackendMemory
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND: %q", backend)
	}

	if cfg.StoreBackend == StoreBackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionSigningSecret = getEnvString("SESSION_SIGNING_SECRET", cfg.GoogleClientSecret)
	cfg.GoogleAuthURL = getEnvString("GOOGLE_AUTH_URL", "")
	cfg.GoogleTokenURL = getEnvString("GOOGLE_TOKEN_URL", "")
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
