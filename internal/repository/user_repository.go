package repository

import (
	"context"
	"time"

	"github.com/wholesaleconnect/backend/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	// role が nil なら全件
	List(ctx context.Context, role *model.Role) ([]model.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}
