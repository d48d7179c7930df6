package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

func newTask(id, userID, title string) *model.Task {
	now := time.Now()
	return &model.Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Priority:  model.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestMemoryTaskRepo_ListByUser_Empty(t *testing.T) {
	repo := NewMemoryTaskRepo()

	tasks, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if tasks == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(tasks) != 0 {
		t.Errorf("len(tasks) = %d, want 0", len(tasks))
	}
}

func TestMemoryTaskRepo_CreateManyAndList(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	t1 := newTask("id-1", "user-1", "最初のタスク")
	t2 := newTask("id-2", "user-1", "次のタスク")
	t2.CreatedAt = t1.CreatedAt.Add(time.Second)

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{t1, t2}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	tasks, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	// 作成日時順で返ること
	if tasks[0].ID != "id-1" || tasks[1].ID != "id-2" {
		t.Errorf("unexpected order: %s, %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestMemoryTaskRepo_ListByUser_UserScoped(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{newTask("id-1", "user-1", "ユーザー1のタスク")}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	tasks, err := repo.ListByUser(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("user-2 should not see user-1 tasks, got %d", len(tasks))
	}
}

func TestMemoryTaskRepo_UpdateMany_PartialFields(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	task := newTask("id-1", "user-1", "元のタイトル")
	task.DueDate = "2026-01-01"
	if err := repo.CreateMany(ctx, "user-1", []*model.Task{task}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	updated, err := repo.UpdateMany(ctx, "user-1", []model.TaskUpdate{
		{TodoID: "id-1", Completed: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("UpdateMany() error = %v", err)
	}
	if len(updated) != 1 {
		t.Fatalf("len(updated) = %d, want 1", len(updated))
	}

	// 指定したフィールドのみ変更され、他は維持されること
	if !updated[0].Completed {
		t.Error("completed should be true")
	}
	if updated[0].Title != "元のタイトル" {
		t.Errorf("title = %q, should be unchanged", updated[0].Title)
	}
	if updated[0].DueDate != "2026-01-01" {
		t.Errorf("dueDate = %q, should be unchanged", updated[0].DueDate)
	}
	if !updated[0].UpdatedAt.After(task.UpdatedAt) && !updated[0].UpdatedAt.Equal(task.UpdatedAt) {
		t.Error("updatedAt should be refreshed")
	}
}

func TestMemoryTaskRepo_UpdateMany_AllOrNothing(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{newTask("id-1", "user-1", "存在するタスク")}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	_, err := repo.UpdateMany(ctx, "user-1", []model.TaskUpdate{
		{TodoID: "id-1", Title: strPtr("更新された")},
		{TodoID: "no-such-id", Title: strPtr("これは失敗する")},
	})
	if err == nil {
		t.Fatal("expected error for unknown ID in batch")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "no-such-id") {
		t.Errorf("error should name the missing ID, got %q", apiErr.Message)
	}

	// バッチは一件も適用されていないこと
	tasks, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if tasks[0].Title != "存在するタスク" {
		t.Errorf("title = %q, batch should not be applied", tasks[0].Title)
	}
}

func TestMemoryTaskRepo_UpdateMany_CrossUserIsNotFound(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{newTask("id-1", "user-1", "ユーザー1のタスク")}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	// 他ユーザーのタスクIDはスコープ外なので未検出扱いになること
	_, err := repo.UpdateMany(ctx, "user-2", []model.TaskUpdate{
		{TodoID: "id-1", Title: strPtr("乗っ取り")},
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTaskNotFound {
		t.Fatalf("expected TASK_NOT_FOUND for cross-user access, got %v", err)
	}
}

func TestMemoryTaskRepo_DeleteMany_PartialTolerant(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{
		newTask("id-1", "user-1", "タスク1"),
		newTask("id-2", "user-1", "タスク2"),
	}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	result, err := repo.DeleteMany(ctx, "user-1", []string{"id-1", "no-such-id", "id-2"})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}

	// 更新と異なり、存在しないIDがあってもバッチは失敗しないこと
	if result.DeletedCount != 2 {
		t.Errorf("deletedCount = %d, want 2", result.DeletedCount)
	}
	if len(result.DeletedIDs) != 2 {
		t.Errorf("len(deletedIDs) = %d, want 2", len(result.DeletedIDs))
	}
	if len(result.NotFoundIDs) != 1 || result.NotFoundIDs[0] != "no-such-id" {
		t.Errorf("notFoundIDs = %v, want [no-such-id]", result.NotFoundIDs)
	}

	tasks, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("len(tasks) = %d, want 0 after delete", len(tasks))
	}
}

func TestMemoryTaskRepo_DeleteMany_DuplicateIDs(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{newTask("id-1", "user-1", "タスク1")}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	result, err := repo.DeleteMany(ctx, "user-1", []string{"id-1", "id-1"})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}

	// 重複IDは1件として扱われること
	if result.DeletedCount != 1 {
		t.Errorf("deletedCount = %d, want 1", result.DeletedCount)
	}
}

func TestMemoryTaskRepo_CopyOnReturn(t *testing.T) {
	repo := NewMemoryTaskRepo()
	ctx := context.Background()

	if err := repo.CreateMany(ctx, "user-1", []*model.Task{newTask("id-1", "user-1", "元のタイトル")}); err != nil {
		t.Fatalf("CreateMany() error = %v", err)
	}

	tasks, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}

	// 返却値を書き換えてもストア内部には影響しないこと
	tasks[0].Title = "書き換え"

	again, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if again[0].Title != "元のタイトル" {
		t.Errorf("title = %q, store should not be mutated through returned value", again[0].Title)
	}
}
