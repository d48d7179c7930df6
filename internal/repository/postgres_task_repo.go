package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// バッチ書き込みはトランザクションで囲み、観測者から部分適用が
// 見えないようにする。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// ListByUser は指定ユーザーの全タスクを作成日時順で返す。
func (r *PostgresTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, completed, due_date, priority, created_at, updated_at
		 FROM tasks WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, storeUnavailable("failed to list tasks", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task := &model.Task{}
		if err := rows.Scan(
			&task.ID, &task.UserID, &task.Title, &task.Completed,
			&task.DueDate, &task.Priority, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, storeUnavailable("failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("failed to iterate tasks", err)
	}

	return tasks, nil
}

// CreateMany はタスク群を単一トランザクションで作成する。
func (r *PostgresTaskRepo) CreateMany(ctx context.Context, userID string, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeUnavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	for _, task := range tasks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, user_id, title, completed, due_date, priority, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			task.ID, userID, task.Title, task.Completed,
			task.DueDate, task.Priority, task.CreatedAt, task.UpdatedAt,
		)
		if err != nil {
			return storeUnavailable("failed to insert task", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeUnavailable("failed to commit create batch", err)
	}

	return nil
}

// UpdateMany はバッチ更新を単一トランザクションで適用する。
// 存在しないIDが1つでもあればロールバックし、該当IDを名指しした
// NotFoundエラーを返す。nilでないフィールドのみ変更する。
func (r *PostgresTaskRepo) UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeUnavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := time.Now()
	updated := make([]*model.Task, 0, len(updates))

	for _, u := range updates {
		var priority *string
		if u.Priority != nil {
			p := string(*u.Priority)
			priority = &p
		}

		task := &model.Task{}
		err := tx.QueryRowContext(ctx,
			`UPDATE tasks SET
			   title      = COALESCE($3, title),
			   completed  = COALESCE($4, completed),
			   due_date   = COALESCE($5, due_date),
			   priority   = COALESCE($6, priority),
			   updated_at = $7
			 WHERE user_id = $1 AND id = $2
			 RETURNING id, user_id, title, completed, due_date, priority, created_at, updated_at`,
			userID, u.TodoID, u.Title, u.Completed, u.DueDate, priority, now,
		).Scan(
			&task.ID, &task.UserID, &task.Title, &task.Completed,
			&task.DueDate, &task.Priority, &task.CreatedAt, &task.UpdatedAt,
		)

		if err == sql.ErrNoRows {
			return nil, model.NewTaskNotFoundError(u.TodoID)
		}
		if err != nil {
			return nil, storeUnavailable("failed to update task", err)
		}

		updated = append(updated, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeUnavailable("failed to commit update batch", err)
	}

	return updated, nil
}

// DeleteMany はバッチ削除を適用する。存在するIDは単一のDELETE文で
// まとめて削除し、存在しないIDはNotFoundIDsに報告する。
func (r *PostgresTaskRepo) DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error) {
	ids = dedupe(ids)

	result := &model.DeleteResult{
		DeletedIDs:  []string{},
		NotFoundIDs: []string{},
	}
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM tasks WHERE user_id = $1 AND id = ANY($2) RETURNING id`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return nil, storeUnavailable("failed to delete tasks", err)
	}
	defer rows.Close()

	deleted := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeUnavailable("failed to scan deleted task id", err)
		}
		deleted[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, storeUnavailable("failed to iterate deleted task ids", err)
	}

	for _, id := range ids {
		if _, ok := deleted[id]; ok {
			result.DeletedIDs = append(result.DeletedIDs, id)
		} else {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
		}
	}
	result.DeletedCount = len(result.DeletedIDs)

	return result, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
