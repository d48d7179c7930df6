package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/taskman/internal/model"
)

// --- モック定義 ---

type mockTaskRepo struct {
	listByUserFn func(ctx context.Context, userID string) ([]*model.Task, error)
	createManyFn func(ctx context.Context, userID string, tasks []*model.Task) error
	updateManyFn func(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error)
	deleteManyFn func(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error)

	createManyCalls int
	updateManyCalls int
}

func (m *mockTaskRepo) ListByUser(ctx context.Context, userID string) ([]*model.Task, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskRepo) CreateMany(ctx context.Context, userID string, tasks []*model.Task) error {
	m.createManyCalls++
	if m.createManyFn != nil {
		return m.createManyFn(ctx, userID, tasks)
	}
	return nil
}

func (m *mockTaskRepo) UpdateMany(ctx context.Context, userID string, updates []model.TaskUpdate) ([]*model.Task, error) {
	m.updateManyCalls++
	if m.updateManyFn != nil {
		return m.updateManyFn(ctx, userID, updates)
	}
	return []*model.Task{}, nil
}

func (m *mockTaskRepo) DeleteMany(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error) {
	if m.deleteManyFn != nil {
		return m.deleteManyFn(ctx, userID, ids)
	}
	return &model.DeleteResult{DeletedIDs: []string{}, NotFoundIDs: []string{}}, nil
}

func validationCode(t *testing.T, err error) *model.APIError {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	return apiErr
}

// --- テスト ---

func TestService_CreateMany_AssignsIDAndDefaults(t *testing.T) {
	var captured []*model.Task
	repo := &mockTaskRepo{
		createManyFn: func(ctx context.Context, userID string, tasks []*model.Task) error {
			captured = tasks
			return nil
		},
	}
	svc := NewService(repo)

	tasks, err := svc.CreateMany(context.Background(), "user-1", []model.TaskCreate{
		{Title: "牛乳を買う"},
		{Title: "報告書を書く", Priority: model.PriorityHigh, DueDate: "2026-09-01"},
	})
	if err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if len(captured) != 2 {
		t.Fatalf("repository should receive 2 tasks, got %d", len(captured))
	}

	// IDはシステム採番で一意であること
	if tasks[0].ID == "" || tasks[1].ID == "" {
		t.Error("IDs should be assigned")
	}
	if tasks[0].ID == tasks[1].ID {
		t.Error("IDs should be unique")
	}

	// 優先度未指定時はmediumになること
	if tasks[0].Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want %q", tasks[0].Priority, model.PriorityMedium)
	}
	if tasks[1].Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want %q", tasks[1].Priority, model.PriorityHigh)
	}

	if tasks[0].Completed {
		t.Error("new tasks should not be completed")
	}
	if tasks[0].CreatedAt.IsZero() || tasks[0].UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestService_CreateMany_MissingTitleRejectsWholeBatch(t *testing.T) {
	repo := &mockTaskRepo{}
	svc := NewService(repo)

	_, err := svc.CreateMany(context.Background(), "user-1", []model.TaskCreate{
		{Title: "有効なタスク"},
		{Title: ""},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := validationCode(t, err)
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}

	// 検証失敗時はリポジトリに到達しないこと
	if repo.createManyCalls != 0 {
		t.Errorf("CreateMany calls = %d, want 0", repo.createManyCalls)
	}
}

func TestService_CreateMany_InvalidPriority(t *testing.T) {
	repo := &mockTaskRepo{}
	svc := NewService(repo)

	_, err := svc.CreateMany(context.Background(), "user-1", []model.TaskCreate{
		{Title: "タスク", Priority: "urgent"},
	})
	if err == nil {
		t.Fatal("expected validation error for invalid priority")
	}
	if repo.createManyCalls != 0 {
		t.Errorf("CreateMany calls = %d, want 0", repo.createManyCalls)
	}
}

func TestService_CreateMany_EmptyBatch(t *testing.T) {
	svc := NewService(&mockTaskRepo{})

	_, err := svc.CreateMany(context.Background(), "user-1", nil)
	if err == nil {
		t.Fatal("expected validation error for empty batch")
	}
}

func TestService_UpdateMany_MissingTodoID(t *testing.T) {
	repo := &mockTaskRepo{}
	svc := NewService(repo)

	title := "新しいタイトル"
	_, err := svc.UpdateMany(context.Background(), "user-1", []model.TaskUpdate{
		{TodoID: "", Title: &title},
	})
	if err == nil {
		t.Fatal("expected validation error for missing todo_id")
	}
	if repo.updateManyCalls != 0 {
		t.Errorf("UpdateMany calls = %d, want 0", repo.updateManyCalls)
	}
}

func TestService_UpdateMany_InvalidPriority(t *testing.T) {
	repo := &mockTaskRepo{}
	svc := NewService(repo)

	bad := model.Priority("urgent")
	_, err := svc.UpdateMany(context.Background(), "user-1", []model.TaskUpdate{
		{TodoID: "id-1", Priority: &bad},
	})
	if err == nil {
		t.Fatal("expected validation error for invalid priority")
	}
	if repo.updateManyCalls != 0 {
		t.Errorf("UpdateMany calls = %d, want 0", repo.updateManyCalls)
	}
}

func TestService_DeleteOne_NotFound(t *testing.T) {
	repo := &mockTaskRepo{
		deleteManyFn: func(ctx context.Context, userID string, ids []string) (*model.DeleteResult, error) {
			return &model.DeleteResult{
				DeletedCount: 0,
				DeletedIDs:   []string{},
				NotFoundIDs:  ids,
			}, nil
		},
	}
	svc := NewService(repo)

	err := svc.DeleteOne(context.Background(), "user-1", "no-such-id")
	if err == nil {
		t.Fatal("expected error for unknown ID")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("expected TASK_NOT_FOUND, got %v", err)
	}
}

func TestService_DeleteMany_EmptyID(t *testing.T) {
	svc := NewService(&mockTaskRepo{})

	_, err := svc.DeleteMany(context.Background(), "user-1", []string{"id-1", ""})
	if err == nil {
		t.Fatal("expected validation error for empty ID")
	}
}

func TestService_List_PropagatesStoreError(t *testing.T) {
	repo := &mockTaskRepo{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.Task, error) {
			return nil, model.NewStoreUnavailableError("connection refused")
		},
	}
	svc := NewService(repo)

	// ストア障害は空結果に化けず、エラーとして伝播すること
	_, err := svc.List(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
