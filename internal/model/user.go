// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDはIdP（Google）が発行するsubject識別子をそのまま主キーとして使用し、再生成しない。
// AccessCountは認証済みツール呼び出しごとに単調増加するカウンタで、減少しない。
type User struct {
	ID          string
	Email       string
	Name        string
	CreatedAt   time.Time
	LastAccess  time.Time
	AccessCount int64
}
