// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// GetOrCreate はsubject IDでユーザーを取得または作成する。
	// レコードが存在しない場合はaccess_count=0で作成して返す。
	// 存在する場合はaccess_countをアトミックに+1し、last_accessを現在時刻に
	// 更新した上で、インクリメント適用後のレコードを返す。
	// 作成と更新は同一ユーザーからの並行呼び出しに対してアトミックであること。
	GetOrCreate(ctx context.Context, subjectID, email, name string) (*model.User, error)

	// IncrementAccessCount はaccess_countをアトミックに+1し、last_accessを更新する。
	// read-modify-writeではなくストアレベルのアトミック演算で実装すること。
	IncrementAccessCount(ctx context.Context, subjectID string) error

	// FindByID は指定subject IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, subjectID string) (*model.User, error)
}

// TaskRepository はユーザーごとのタスクコレクションの永続化インターフェース。
// すべての操作は1ユーザーのサブコレクションにスコープされ、ユーザーを
// またいだアクセスは行わない。
type TaskRepository interface {
	// ListByUser は指定ユーザーの全タスクを返す。0件の場合は空スライスを返す。
	// ストアに到達できない場合はStoreUnavailableエラーを返す
	// （空結果への暗黙のフォールバックはしない）。
	ListByUser(ctx context.Context, userID string) ([]*model.Task, error)

	// CreateMany は検証・採番済みのタスク群を単一のアトミックバッチで作成する。
	// 部分適用は許さない（all-or-nothing）。
	CreateMany(ctx context.Context, userID string, tasks []*model.Task) error

	// UpdateMany はバッチ更新を適用する。nilでないフィールドのみ変更し、
	// updated_atは常に更新する。存在しないIDが1つでもあれば該当IDを名指しした
	// NotFoundエラーを返し、バッチ全体を適用しない。
	UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error)

	// DeleteMany はバッチ削除を適用する。更新と異なりIDごとのベストエフォートで、
	// 存在しないIDはNotFoundIDsに報告し、存在するIDはまとめてアトミックに削除する。
	DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error)
}

// storeUnavailable はストア層のエラーをStoreUnavailableエラーとしてラップする。
func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, model.NewStoreUnavailableError(err.Error()))
}

// dedupe は順序を保ったままIDスライスの重複を除去する。
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
