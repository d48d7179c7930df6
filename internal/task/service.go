// Package task はタスクコレクションのドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Service はタスクコレクションのサービス層。
// すべての操作は呼び出しユーザーのコレクションにスコープされる。
// バッチ書き込みはリポジトリに渡す前に全項目を検証し、1項目でも
// 不正があればバッチ全体を拒否する。
type Service struct {
	taskRepo repository.TaskRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(taskRepo repository.TaskRepository) *Service {
	return &Service{taskRepo: taskRepo}
}

// List は指定ユーザーの全タスクを返す。0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// CreateOne はタスクを1件作成する。
func (s *Service) CreateOne(ctx context.Context, userID string, create model.TaskCreate) (*model.Task, error) {
	tasks, err := s.CreateMany(ctx, userID, []model.TaskCreate{create})
	if err != nil {
		return nil, err
	}
	return tasks[0], nil
}

// CreateMany はタスク群をまとめて作成する。書き込み前に全項目を検証し、
// 1項目でも不正があれば一件も作成しない。IDとタイムスタンプはここで採番する。
func (s *Service) CreateMany(ctx context.Context, userID string, creates []model.TaskCreate) ([]*model.Task, error) {
	if len(creates) == 0 {
		return nil, model.NewValidationError("todo_items", "作成する項目がありません")
	}

	now := time.Now()
	tasks := make([]*model.Task, 0, len(creates))

	for i, c := range creates {
		if c.Title == "" {
			return nil, model.NewValidationError(
				fmt.Sprintf("todo_items[%d].title", i), "タイトルは必須です")
		}

		priority := c.Priority
		if priority == "" {
			priority = model.PriorityMedium
		}
		if !priority.Valid() {
			return nil, model.NewValidationError(
				fmt.Sprintf("todo_items[%d].priority", i),
				fmt.Sprintf("優先度は low/medium/high のいずれかを指定してください: %s", priority))
		}

		tasks = append(tasks, &model.Task{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     c.Title,
			Completed: false,
			DueDate:   c.DueDate,
			Priority:  priority,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.taskRepo.CreateMany(ctx, userID, tasks); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return tasks, nil
}

// UpdateOne はタスクを1件更新する。
func (s *Service) UpdateOne(ctx context.Context, userID string, update model.TaskUpdate) (*model.Task, error) {
	tasks, err := s.UpdateMany(ctx, userID, []model.TaskUpdate{update})
	if err != nil {
		return nil, err
	}
	return tasks[0], nil
}

// UpdateMany はバッチ更新を適用する。全項目を検証してから適用し、
// 存在しないIDが1つでもあればバッチ全体を適用しない。
func (s *Service) UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error) {
	if len(updates) == 0 {
		return nil, model.NewValidationError("updates", "更新する項目がありません")
	}

	for i, u := range updates {
		if u.TodoID == "" {
			return nil, model.NewValidationError(
				fmt.Sprintf("updates[%d].todo_id", i), "todo_idは必須です")
		}
		if u.Priority != nil && !u.Priority.Valid() {
			return nil, model.NewValidationError(
				fmt.Sprintf("updates[%d].priority", i),
				fmt.Sprintf("優先度は low/medium/high のいずれかを指定してください: %s", *u.Priority))
		}
	}

	tasks, err := s.taskRepo.UpdateMany(ctx, userID, updates)
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return tasks, nil
}

// DeleteOne はタスクを1件削除する。指定IDが存在しない場合はエラーを返す。
func (s *Service) DeleteOne(ctx context.Context, userID, todoID string) error {
	if todoID == "" {
		return model.NewValidationError("todo_id", "todo_idは必須です")
	}

	result, err := s.DeleteMany(ctx, userID, []string{todoID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return model.NewTaskNotFoundError(todoID)
	}
	return nil
}

// DeleteMany はバッチ削除を適用する。更新と異なりIDごとのベストエフォートで、
// 存在しないIDは結果のNotFoundIDsに報告する。
func (s *Service) DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error) {
	if len(ids) == 0 {
		return nil, model.NewValidationError("todo_ids", "削除する項目がありません")
	}
	for i, id := range ids {
		if id == "" {
			return nil, model.NewValidationError(
				fmt.Sprintf("todo_ids[%d]", i), "todo_idは必須です")
		}
	}

	result, err := s.taskRepo.DeleteMany(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	return result, nil
}
