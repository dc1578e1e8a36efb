package repository

import (
	"context"
	"time"

	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id asc")
}

// 注文と明細を1回の Create で保存する（明細は has-many で一緒に入る）
func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

// SELECT ... FOR UPDATE。トランザクション内で呼ぶこと
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", preloadItems).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&o).Error

	if err != nil {
		err = translateError(err)
		if err == repo.ErrNotFound {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	if f.BuyerID != nil {
		q = q.Where("buyer_id = ?", *f.BuyerID)
	}
	if f.SellerID != nil {
		q = q.Where("seller_id = ?", *f.SellerID)
	}
	if f.Status != nil {
		q = q.Where("order_status = ?", *f.Status)
	}
	if f.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *f.PaymentStatus)
	}

	//期間絞り込み
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Preload("Items", preloadItems).
		Order("id desc").
		Limit(f.Limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) updateColumns(ctx context.Context, orderID int64, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(cols)

	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 金額列には触れない
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, o model.Order) error {
	return r.updateColumns(ctx, o.ID, map[string]interface{}{
		"order_status": o.OrderStatus,
		"approved_at":  o.ApprovedAt,
		"rejected_at":  o.RejectedAt,
		"shipped_at":   o.ShippedAt,
		"delivered_at": o.DeliveredAt,
		"cancelled_at": o.CancelledAt,
	})
}

func (r *OrderGormRepository) UpdatePayment(ctx context.Context, o model.Order) error {
	return r.updateColumns(ctx, o.ID, map[string]interface{}{
		"payment_status": o.PaymentStatus,
		"paid_at":        o.PaidAt,
	})
}

func (r *OrderGormRepository) UpdateTotals(ctx context.Context, o model.Order) error {
	return r.updateColumns(ctx, o.ID, map[string]interface{}{
		"total_amount": o.TotalAmount,
		"gst_amount":   o.GSTAmount,
		"grand_total":  o.GrandTotal,
	})
}

func (r *OrderGormRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("due_date < ? AND payment_status = ?", model.CalendarDate(today), model.PaymentStatusPending).
		Order("due_date asc").Order("id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderGormRepository) MarkOverdue(ctx context.Context, orderIDs []int64) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id IN ? AND payment_status = ?", orderIDs, model.PaymentStatusPending).
		Update("payment_status", model.PaymentStatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *OrderGormRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date <= ? AND payment_status = ?",
			model.CalendarDate(from), model.CalendarDate(to), model.PaymentStatusPending).
		Order("due_date asc").Order("id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderGormRepository) CountBySellerAndStatus(ctx context.Context, sellerID int64, status model.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("seller_id = ? AND order_status = ?", sellerID, status).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *OrderGormRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]model.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
