package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// MemoryTaskRepo はインメモリのタスクリポジトリ。
// ユーザーID → タスクID → タスクの2段マップで保持し、バッチ操作は
// ミューテックス保護下でまとめて適用するため部分適用は観測されない。
type MemoryTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]map[string]*model.Task
}

// NewMemoryTaskRepo はMemoryTaskRepoを生成する。
func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[string]map[string]*model.Task)}
}

// ListByUser は指定ユーザーの全タスクを作成日時順で返す。0件の場合は空スライスを返す。
func (r *MemoryTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := []*model.Task{}
	for _, task := range r.tasks[userID] {
		copied := *task
		tasks = append(tasks, &copied)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}

// CreateMany はタスク群をまとめて作成する。
func (r *MemoryTaskRepo) CreateMany(ctx context.Context, userID string, tasks []*model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userTasks, ok := r.tasks[userID]
	if !ok {
		userTasks = make(map[string]*model.Task)
		r.tasks[userID] = userTasks
	}

	for _, task := range tasks {
		copied := *task
		userTasks[task.ID] = &copied
	}

	return nil
}

// UpdateMany はバッチ更新を適用する。全IDの存在を確認してから適用するため、
// 存在しないIDがあれば一件も更新されない。
func (r *MemoryTaskRepo) UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userTasks := r.tasks[userID]

	// 適用前に全IDの存在を確認する（all-or-nothing）
	for _, u := range updates {
		if _, ok := userTasks[u.TodoID]; !ok {
			return nil, model.NewTaskNotFoundError(u.TodoID)
		}
	}

	now := time.Now()
	updated := make([]*model.Task, 0, len(updates))

	for _, u := range updates {
		task := userTasks[u.TodoID]
		if u.Title != nil {
			task.Title = *u.Title
		}
		if u.Completed != nil {
			task.Completed = *u.Completed
		}
		if u.DueDate != nil {
			task.DueDate = *u.DueDate
		}
		if u.Priority != nil {
			task.Priority = *u.Priority
		}
		task.UpdatedAt = now

		copied := *task
		updated = append(updated, &copied)
	}

	return updated, nil
}

// DeleteMany はバッチ削除を適用する。存在するIDはまとめて削除し、
// 存在しないIDはNotFoundIDsに報告する。
func (r *MemoryTaskRepo) DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids = dedupe(ids)
	userTasks := r.tasks[userID]

	result := &model.DeleteResult{
		DeletedIDs:  []string{},
		NotFoundIDs: []string{},
	}

	for _, id := range ids {
		if _, ok := userTasks[id]; ok {
			delete(userTasks, id)
			result.DeletedIDs = append(result.DeletedIDs, id)
		} else {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
		}
	}
	result.DeletedCount = len(result.DeletedIDs)

	return result, nil
}

// compile-time interface check
var _ TaskRepository = (*MemoryTaskRepo)(nil)
