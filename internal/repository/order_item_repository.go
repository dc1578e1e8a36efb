package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wholesaleconnect/backend/internal/domain/model"
)

// 商品ごとの販売実績
type ProductSales struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type OrderItemRepository interface {
	// 注文の明細を丸ごと差し替える
	ReplaceForOrder(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error)
	// キャンセル・却下された注文は除外
	TopSellingProducts(ctx context.Context, sellerID *int64, limit int) ([]ProductSales, error)
}
