package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// MemoryUserRepo はインメモリのユーザーリポジトリ。
// 起動時に明示的に選択されるフォールバック実装で、プロセス再起動で
// データは消える。暗黙のグローバル状態ではなく、依存として注入される。
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

// NewMemoryUserRepo はMemoryUserRepoを生成する。
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*model.User)}
}

// GetOrCreate はsubject IDでユーザーを取得または作成する。
// ミューテックスで保護しているため、並行呼び出しでもインクリメントは失われない。
func (r *MemoryUserRepo) GetOrCreate(ctx context.Context, subjectID, email, name string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	user, ok := r.users[subjectID]
	if !ok {
		user = &model.User{
			ID:          subjectID,
			Email:       email,
			Name:        name,
			CreatedAt:   now,
			LastAccess:  now,
			AccessCount: 0,
		}
		r.users[subjectID] = user
	} else {
		user.AccessCount++
		user.LastAccess = now
	}

	copied := *user
	return &copied, nil
}

// IncrementAccessCount はaccess_countを+1し、last_accessを更新する。
func (r *MemoryUserRepo) IncrementAccessCount(ctx context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[subjectID]
	if !ok {
		return model.NewUserNotFoundError(subjectID)
	}

	user.AccessCount++
	user.LastAccess = time.Now()
	return nil
}

// FindByID は指定subject IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(ctx context.Context, subjectID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[subjectID]
	if !ok {
		return nil, nil
	}

	copied := *user
	return &copied, nil
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
