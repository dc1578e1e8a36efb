package repository

import (
	"context"
	"time"

	"github.com/wholesaleconnect/backend/internal/domain/model"
)

type OrderListFilter struct {
	Page          int
	Limit         int
	BuyerID       *int64
	SellerID      *int64
	Status        *model.OrderStatus
	PaymentStatus *model.PaymentStatus
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	// 注文と明細をまとめて保存し、採番された ID を order に書き戻す
	Create(ctx context.Context, order *model.Order) error
	// 明細付きで取得
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 行ロック付きで取得（ステータス更新用）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)

	// ステータスと各タイムスタンプだけを更新
	UpdateStatus(ctx context.Context, order model.Order) error
	UpdatePayment(ctx context.Context, order model.Order) error
	UpdateTotals(ctx context.Context, order model.Order) error

	// due_date < today かつ支払い PENDING
	ListOverdue(ctx context.Context, today time.Time) ([]model.Order, error)
	// PENDING のものだけ OVERDUE にする。更新件数を返す
	MarkOverdue(ctx context.Context, orderIDs []int64) (int64, error)
	// from <= due_date <= to かつ支払い PENDING
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)

	CountBySellerAndStatus(ctx context.Context, sellerID int64, status model.OrderStatus) (int64, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]model.Order, error)
}
