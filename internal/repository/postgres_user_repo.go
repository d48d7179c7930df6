package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// GetOrCreate はsubject IDでユーザーを取得または作成する。
// INSERT ... ON CONFLICT ... RETURNING の単一文で実行するため、
// 同一ユーザーからの並行呼び出しでもアトミック性が保たれる。
// 既存レコードのemail/nameは上書きしない（初回登録時の値を維持する）。
func (r *PostgresUserRepo) GetOrCreate(ctx context.Context, subjectID, email, name string) (*model.User, error) {
	now := time.Now()

	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, name, created_at, last_access, access_count)
		 VALUES ($1, $2, $3, $4, $4, 0)
		 ON CONFLICT (id) DO UPDATE
		 SET access_count = users.access_count + 1, last_access = $4
		 RETURNING id, email, name, created_at, last_access, access_count`,
		subjectID, email, name, now,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.LastAccess, &user.AccessCount)

	if err != nil {
		return nil, storeUnavailable("failed to get or create user", err)
	}

	return user, nil
}

// IncrementAccessCount はaccess_countをアトミックに+1し、last_accessを更新する。
// ストア側のインクリメントで実行するため、並行するツール呼び出し間で
// カウントが失われることはない。
func (r *PostgresUserRepo) IncrementAccessCount(ctx context.Context, subjectID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_count = access_count + 1, last_access = $2 WHERE id = $1`,
		subjectID, time.Now(),
	)
	if err != nil {
		return storeUnavailable("failed to increment access count", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError(subjectID)
	}

	return nil
}

// FindByID は指定subject IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, subjectID string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, last_access, access_count FROM users WHERE id = $1`,
		subjectID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.LastAccess, &user.AccessCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeUnavailable("failed to find user by ID", err)
	}

	return user, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
