package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/metrics"
	repo "github.com/wholesaleconnect/backend/internal/repository"
	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	items   repo.OrderItemRepository
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	log *zap.Logger,
	m *metrics.Metrics,
) *OrderUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderUsecase{
		tx:      tx,
		orders:  orders,
		items:   items,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

type OrderItemInput struct {
	ProductID int64
	Quantity  int64
}

type CreateOrderInput struct {
	BuyerID        int64
	SellerID       int64
	Items          []OrderItemInput
	PaymentMethod  string
	CreditDays     *int
	IdempotencyKey string
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 監査ログに残す注文の要約
type orderSnapshot struct {
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	GrandTotal    string              `json:"grand_total"`
	Items         int                 `json:"items"`
}

func snapshotOf(o model.Order) string {
	return auditJSON(orderSnapshot{
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		GrandTotal:    o.GrandTotal.StringFixed(2),
		Items:         len(o.Items),
	})
}

func validateItemInputs(items []OrderItemInput) error {
	if len(items) == 0 {
		return NewHTTPError(http.StatusBadRequest, "items required")
	}
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 {
			return NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
		}
		if _, dup := seen[it.ProductID]; dup {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("duplicate product_id %d", it.ProductID))
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

// 商品を確認して価格・商品名をスナップショットした明細を作る
func buildOrderItems(ctx context.Context, products repo.ProductRepository, sellerID int64, in []OrderItemInput) ([]model.OrderItem, error) {
	ids := make([]int64, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.ProductID)
	}
	found, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	byID := make(map[int64]model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]model.OrderItem, 0, len(in))
	for _, it := range in {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d not found", it.ProductID))
		}
		if p.SellerID != sellerID {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d does not belong to seller %d", p.ID, sellerID))
		}
		if !p.IsActive {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d is not active", p.ID))
		}
		if !p.MeetsMOQ(it.Quantity) {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity for product %d is below moq %d", p.ID, p.MOQ))
		}
		// 在庫は確認のみ。引き当てはしない
		if !p.CanOrder(it.Quantity) {
			return nil, NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock for product %d", p.ID))
		}
		out = append(out, model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.Name,
			Quantity:            it.Quantity,
			Price:               p.SellingPrice,
		})
	}
	return out, nil
}

func requireRole(ctx context.Context, users repo.UserRepository, userID int64, role model.Role, label string) error {
	u, err := users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, label+" not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if u.Role != role {
		return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("user %d is not a %s", userID, strings.ToLower(string(role))))
	}
	if !u.IsActive {
		return NewHTTPError(http.StatusBadRequest, label+" is inactive")
	}
	return nil
}

// Create は注文を作成する。同じ冪等キーなら最初の注文を返し、created は false。
func (u *OrderUsecase) Create(ctx context.Context, actor Actor, in CreateOrderInput) (order model.Order, created bool, err error) {
	if in.BuyerID <= 0 {
		return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "invalid buyer_id")
	}
	if in.SellerID <= 0 {
		return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "invalid seller_id")
	}
	if in.BuyerID == in.SellerID {
		return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "buyer and seller must differ")
	}
	if !actor.IsAnonymous() && !actor.IsAdmin() && actor.UserID != in.BuyerID {
		return model.Order{}, false, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if err := validateItemInputs(in.Items); err != nil {
		return model.Order{}, false, err
	}

	method, perr := model.ParsePaymentMethod(in.PaymentMethod)
	if perr != nil {
		return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	creditDays := in.CreditDays
	if method == model.PaymentMethodCredit {
		if creditDays == nil || !model.IsCreditTerm(*creditDays) {
			return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "credit_days must be one of 7, 15, 30")
		}
	} else {
		creditDays = nil
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return model.Order{}, false, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, in.BuyerID, key)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if found {
				order = existing
				return nil
			}
		}

		if err := requireRole(ctx, r.Users(), in.BuyerID, model.RoleBuyer, "buyer"); err != nil {
			return err
		}
		if err := requireRole(ctx, r.Users(), in.SellerID, model.RoleSeller, "seller"); err != nil {
			return err
		}

		items, err := buildOrderItems(ctx, r.Products(), in.SellerID, in.Items)
		if err != nil {
			return err
		}

		o := model.NewOrder(in.BuyerID, in.SellerID, items, method, creditDays, u.now())
		if key != "" {
			o.IdempotencyKey = &key
		}

		if err := r.Orders().Create(ctx, o); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// 同じキーが同時に入った
				return NewHTTPError(http.StatusConflict, "idempotency conflict")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionCreateOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			AfterJSON:    snapshotOf(*o),
			CreatedAt:    u.now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order = *o
		created = true
		return nil
	})
	if err != nil {
		return model.Order{}, false, err
	}

	if created {
		u.metrics.OrderCreated(string(order.PaymentMethod))
		u.log.Info("order created",
			zap.Int64("order_id", order.ID),
			zap.Int64("buyer_id", order.BuyerID),
			zap.Int64("seller_id", order.SellerID),
			zap.String("payment_method", string(order.PaymentMethod)),
			zap.String("grand_total", order.GrandTotal.StringFixed(2)),
		)
	}
	return order, created, nil
}

func (u *OrderUsecase) Get(ctx context.Context, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, mapRepoError(err, "not found")
	}
	return o, nil
}

type ListOrdersInput struct {
	Page          int
	Limit         int
	BuyerID       *int64
	SellerID      *int64
	Status        string
	PaymentStatus string
	From          *time.Time
	To            *time.Time
}

func (u *OrderUsecase) List(ctx context.Context, in ListOrdersInput) (OrderListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	f := repo.OrderListFilter{
		Page:     page,
		Limit:    limit,
		BuyerID:  in.BuyerID,
		SellerID: in.SellerID,
		From:     in.From,
		To:       in.To,
	}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, err := model.ParseOrderStatus(strings.ToUpper(s))
		if err != nil {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = &st
	}
	if s := strings.TrimSpace(in.PaymentStatus); s != "" {
		ps := model.PaymentStatus(strings.ToUpper(s))
		if !ps.IsValid() {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
		}
		f.PaymentStatus = &ps
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

func (u *OrderUsecase) CountBySellerAndStatus(ctx context.Context, sellerID int64, status string) (int64, error) {
	if sellerID <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid seller id")
	}
	st, err := model.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if err != nil {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	n, err := u.orders.CountBySellerAndStatus(ctx, sellerID, st)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return n, nil
}

// 直近 days 日の注文（最大100件）
func (u *OrderUsecase) ListRecent(ctx context.Context, days int) ([]model.Order, error) {
	if days == 0 {
		days = 7
	}
	if days < 1 || days > 365 {
		return nil, NewHTTPError(http.StatusBadRequest, "days must be between 1 and 365")
	}
	since := u.now().AddDate(0, 0, -days)
	orders, err := u.orders.ListRecent(ctx, since, 100)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

func (u *OrderUsecase) ListOverdue(ctx context.Context) ([]model.Order, error) {
	orders, err := u.orders.ListOverdue(ctx, u.now())
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

// 今日から days 日以内に支払期日が来る未払い注文
func (u *OrderUsecase) ListDueSoon(ctx context.Context, days int) ([]model.Order, error) {
	if days == 0 {
		days = 7
	}
	if days < 1 || days > 90 {
		return nil, NewHTTPError(http.StatusBadRequest, "days must be between 1 and 90")
	}
	today := model.CalendarDate(u.now())
	orders, err := u.orders.ListDueBetween(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return orders, nil
}

func (u *OrderUsecase) TopProducts(ctx context.Context, sellerID *int64, limit int) ([]repo.ProductSales, error) {
	if limit == 0 {
		limit = 10
	}
	if limit < 1 || limit > 100 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	out, err := u.items.TopSellingProducts(ctx, sellerID, limit)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// 当事者（買い手・売り手）か管理者だけが注文を変更できる。匿名は認証なし運用のため通す。
func canModify(actor Actor, o model.Order) bool {
	if actor.IsAnonymous() || actor.IsAdmin() {
		return true
	}
	return actor.UserID == o.BuyerID || actor.UserID == o.SellerID
}

// UpdateStatus は行ロックした注文にライフサイクルの遷移を適用する。
// 不正な遷移は 409 で、注文は変更しない。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actor Actor, orderID int64, status string) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next, err := model.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out  model.Order
		from model.OrderStatus
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canModify(actor, o) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		from = o.OrderStatus
		before := snapshotOf(o)

		now := u.now()
		if err := model.ApplyStatusTransition(&o, next, now); err != nil {
			var te *model.TransitionError
			if errors.As(err, &te) {
				return NewHTTPError(http.StatusConflict, te.Error())
			}
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if err := r.Orders().UpdateStatus(ctx, o); err != nil {
			return mapRepoError(err, "not found")
		}

		// キャンセル・却下された注文の未払いは無効にする
		if (next == model.OrderStatusCancelled || next == model.OrderStatusRejected) &&
			(o.PaymentStatus == model.PaymentStatusPending || o.PaymentStatus == model.PaymentStatusOverdue) {
			o.PaymentStatus = model.PaymentStatusCancelled
			if err := r.Orders().UpdatePayment(ctx, o); err != nil {
				return mapRepoError(err, "not found")
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   before,
			AfterJSON:    snapshotOf(o),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = o
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusConflict && from != "" {
			u.metrics.StatusTransition(string(from), string(next), false)
		}
		return model.Order{}, err
	}

	u.metrics.StatusTransition(string(from), string(next), true)
	u.log.Info("order status changed",
		zap.Int64("order_id", out.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.Int64("actor_user_id", actor.UserID),
	)
	return out, nil
}

// UpdatePayment は支払いを PAID にする。PENDING か OVERDUE からのみ。
func (u *OrderUsecase) UpdatePayment(ctx context.Context, actor Actor, orderID int64, status string) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next := model.PaymentStatus(strings.ToUpper(strings.TrimSpace(status)))
	if next != model.PaymentStatusPaid {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "payment status must be PAID")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canModify(actor, o) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		switch o.PaymentStatus {
		case model.PaymentStatusPending, model.PaymentStatusOverdue:
		case model.PaymentStatusPaid:
			return NewHTTPError(http.StatusConflict, "order already paid")
		default:
			return NewHTTPError(http.StatusConflict, "payment is cancelled")
		}

		before := snapshotOf(o)
		now := u.now()
		o.PaymentStatus = model.PaymentStatusPaid
		o.PaidAt = &now
		if err := r.Orders().UpdatePayment(ctx, o); err != nil {
			return mapRepoError(err, "not found")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdatePaymentStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   before,
			AfterJSON:    snapshotOf(o),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.log.Info("order paid", zap.Int64("order_id", out.ID), zap.Int64("actor_user_id", actor.UserID))
	return out, nil
}

// UpdateItems は承認前の注文の明細を差し替え、合計を再計算する。
func (u *OrderUsecase) UpdateItems(ctx context.Context, actor Actor, orderID int64, items []OrderItemInput) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateItemInputs(items); err != nil {
		return model.Order{}, err
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canModify(actor, o) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		before := snapshotOf(o)

		newItems, err := buildOrderItems(ctx, r.Products(), o.SellerID, items)
		if err != nil {
			return err
		}
		if err := o.ReplaceItems(newItems); err != nil {
			if errors.Is(err, model.ErrOrderNotEditable) {
				return NewHTTPError(http.StatusConflict, err.Error())
			}
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		saved, err := r.OrderItems().ReplaceForOrder(ctx, o.ID, o.Items)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.Items = saved
		if err := r.Orders().UpdateTotals(ctx, o); err != nil {
			return mapRepoError(err, "not found")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderItems,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   before,
			AfterJSON:    snapshotOf(o),
			CreatedAt:    u.now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// SweepOverdue は支払期日を過ぎた未払い注文を OVERDUE にし、件数を返す。
func (u *OrderUsecase) SweepOverdue(ctx context.Context) (int64, error) {
	var marked int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.now()
		rows, err := r.Orders().ListOverdue(ctx, now)
		if err != nil {
			return err
		}
		// 取得後に支払われた行などを落とす
		due := make([]model.Order, 0, len(rows))
		for _, o := range rows {
			if o.IsOverdue(now) {
				due = append(due, o)
			}
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(due))
		for _, o := range due {
			ids = append(ids, o.ID)
		}
		marked, err = r.Orders().MarkOverdue(ctx, ids)
		if err != nil {
			return err
		}

		for _, o := range due {
			before := snapshotOf(o)
			o.PaymentStatus = model.PaymentStatusOverdue
			if err := r.AuditLogs().Create(ctx, model.AuditLog{
				Action:       model.AuditActionMarkOverdue,
				ResourceType: model.AuditResourceOrder,
				ResourceID:   o.ID,
				BeforeJSON:   before,
				AfterJSON:    snapshotOf(o),
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweep overdue orders: %w", err)
	}

	if marked > 0 {
		u.metrics.OrdersMarkedOverdue(int(marked))
		u.log.Info("orders marked overdue", zap.Int64("count", marked))
	}
	return marked, nil
}
