package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// エラーコードと原因カテゴリ、呼び出し側向けの対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // 呼び出し側向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeTaskNotFound     = "TASK_NOT_FOUND"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// NewValidationError はバッチ入力の検証エラーを生成する。
// fieldには不正だったフィールド名を指定する。バッチ全体が拒否される。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力項目 %s が不正です: %s", field, reason),
		Category: "validation",
		Action:   "リクエスト項目を修正してから再度お試しください。バッチは一件も適用されていません。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 他ユーザーのタスクIDを指定した場合も同じエラーになる（ユーザースコープ外は常に未検出扱い）。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewStoreUnavailableError はストア接続不可エラーを生成する。
// 空の結果への暗黙のフォールバックはデータ消失を隠蔽するため行わない。
func NewStoreUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  fmt.Sprintf("ストアにアクセスできません: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
// 検証内部の詳細は漏洩させないため、メッセージは固定とする。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "有効なセッショントークンを添えて再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}
