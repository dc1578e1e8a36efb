package repository

import (
	"context"

	"github.com/wholesaleconnect/backend/internal/domain/model"
)

// ProductCache は商品詳細の読み取りキャッシュ。
// ミスは (zero, false, nil) で返す。
type ProductCache interface {
	Get(ctx context.Context, productID int64) (model.Product, bool, error)
	Set(ctx context.Context, p model.Product) error
	Invalidate(ctx context.Context, productID int64) error
}
