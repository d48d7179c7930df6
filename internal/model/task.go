package model

import "time"

// Priority はタスクの優先度を表す。
type Priority string

const (
	// PriorityLow は低優先度を示す。
	PriorityLow Priority = "low"
	// PriorityMedium は中優先度を示す。未指定時のデフォルト値。
	PriorityMedium Priority = "medium"
	// PriorityHigh は高優先度を示す。
	PriorityHigh Priority = "high"
)

// Valid はPriorityが定義済みの値かどうかを返す。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task はユーザーごとのタスクコレクションの1項目を表す。
// IDはシステム生成で、所有ユーザーのコレクション内でのみ一意。
// ユーザーをまたいだアドレッシングは行わない。
// DueDateは "YYYY-MM-DD" または "YYYY-MM-DD HH:MM" 形式の文字列で、
// 存在チェック以上の検証は行わない。
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	DueDate   string    `json:"due_date,omitempty"`
	Priority  Priority  `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskCreate はタスク作成リクエストの1項目を表す。
// Titleは必須。DueDateとPriorityは省略可能で、Priority省略時はmediumになる。
type TaskCreate struct {
	Title    string   `json:"title"`
	DueDate  string   `json:"due_date,omitempty"`
	Priority Priority `json:"priority,omitempty"`
}

// TaskUpdate はタスク更新リクエストの1項目を表す。
// TodoIDは必須。nilでないフィールドのみ更新され、UpdatedAtは常に更新される。
type TaskUpdate struct {
	TodoID    string    `json:"todo_id"`
	Title     *string   `json:"title,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	DueDate   *string   `json:"due_date,omitempty"`
	Priority  *Priority `json:"priority,omitempty"`
}

// DeleteResult はバッチ削除の結果を表す。
// 削除はIDごとのベストエフォートで、存在しないIDはNotFoundIDsに報告される。
// DeletedCountは常にlen(DeletedIDs)と一致する。
type DeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
	NotFoundIDs  []string `json:"not_found_ids"`
}
