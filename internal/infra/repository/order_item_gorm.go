package repository

import (
	"context"

	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// 既存明細を削除してから入れ直す。呼び出し側のトランザクション内で使う
func (r *OrderItemGormRepository) ReplaceForOrder(ctx context.Context, orderID int64, items []model.OrderItem) ([]model.OrderItem, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []model.OrderItem{}, nil
	}

	out := make([]model.OrderItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].ID = 0
		out[i].OrderID = orderID
	}
	if err := db.Create(&out).Error; err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (r *OrderItemGormRepository) TopSellingProducts(ctx context.Context, sellerID *int64, limit int) ([]repo.ProductSales, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	q := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.product_id AS product_id, MAX(oi.product_name_snapshot) AS product_name, "+
			"SUM(oi.quantity) AS quantity_sold, SUM(oi.subtotal) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.order_status NOT IN ?", []model.OrderStatus{model.OrderStatusCancelled, model.OrderStatusRejected})

	if sellerID != nil {
		q = q.Where("o.seller_id = ?", *sellerID)
	}

	var rows []repo.ProductSales
	err := q.Group("oi.product_id").
		Order("quantity_sold desc").Order("oi.product_id asc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
