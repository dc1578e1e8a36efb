package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wholesaleconnect/backend/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	SellerID   *int64
	Category   string
	Brand      string
	Q          string
	ActiveOnly bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 行ロック付きで取得（在庫更新用）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	// 同じ出品者で同名の商品があるか（excludeID は更新時の自分自身）
	ExistsByNameAndSeller(ctx context.Context, sellerID int64, name string, excludeID int64) (bool, error)
	// stock < threshold の公開商品
	ListLowStock(ctx context.Context, sellerID *int64, threshold int64) ([]model.Product, error)
}
