// Package user はユーザーディレクトリのドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Service はユーザーディレクトリのサービス層。
// subject IDをキーとしたユーザーレコードの取得・作成とアクセス回数の
// 記録を提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetOrCreate はsubject IDでユーザーを取得または作成する。
// 初回はaccess_count=0で作成し、2回目以降はaccess_countを+1して返す。
func (s *Service) GetOrCreate(ctx context.Context, subjectID, email, name string) (*model.User, error) {
	user, err := s.userRepo.GetOrCreate(ctx, subjectID, email, name)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得・作成に失敗しました: %w", err)
	}

	if user.AccessCount == 0 {
		slog.Info("ユーザーを新規作成しました",
			slog.String("user_id", user.ID),
			slog.String("email", user.Email),
		)
	} else {
		slog.Debug("既存ユーザーのアクセスを記録しました",
			slog.String("user_id", user.ID),
			slog.Int64("access_count", user.AccessCount),
		)
	}

	return user, nil
}

// RecordAccess はツール呼び出しに伴うアクセスを記録する。
// access_countをアトミックに+1し、last_accessを更新する。
func (s *Service) RecordAccess(ctx context.Context, subjectID string) error {
	if err := s.userRepo.IncrementAccessCount(ctx, subjectID); err != nil {
		return fmt.Errorf("アクセス回数の記録に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定subject IDのユーザーを取得する。
func (s *Service) FindByID(ctx context.Context, subjectID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(subjectID)
	}
	return user, nil
}
