package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// gstRate is the flat goods-and-services tax applied to every order.
var gstRate = decimal.RequireFromString("0.18")

var ErrOrderNotEditable = errors.New("order items can only change while pending approval")

type Order struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID  int64 `gorm:"not null;index;uniqueIndex:idx_orders_buyer_idempotency" json:"buyer_id"`
	SellerID int64 `gorm:"not null;index" json:"seller_id"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	GSTAmount   decimal.Decimal `gorm:"column:gst_amount;type:numeric(12,2);not null" json:"gst_amount"`
	GrandTotal  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"grand_total"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	CreditDays    *int          `gorm:"column:credit_days" json:"credit_days,omitempty"`
	DueDate       *time.Time    `gorm:"type:date;index" json:"due_date,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`

	OrderStatus    OrderStatus `gorm:"type:varchar(20);not null;index" json:"order_status"`
	IdempotencyKey *string     `gorm:"type:varchar(255);uniqueIndex:idx_orders_buyer_idempotency" json:"-"`

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type OrderTotals struct {
	TotalAmount decimal.Decimal
	TaxAmount   decimal.Decimal
	GrandTotal  decimal.Decimal
}

// ComputeOrderTotals sums the item subtotals and applies GST rounded to two
// places. An empty list yields zero for every field.
func ComputeOrderTotals(items []OrderItem) OrderTotals {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	tax := total.Mul(gstRate).Round(2)
	return OrderTotals{
		TotalAmount: total,
		TaxAmount:   tax,
		GrandTotal:  total.Add(tax),
	}
}

// NewOrder builds a pending order with its totals and due date computed.
// creditDays is kept only for CREDIT orders.
func NewOrder(buyerID, sellerID int64, items []OrderItem, method PaymentMethod, creditDays *int, now time.Time) *Order {
	o := &Order{
		BuyerID:       buyerID,
		SellerID:      sellerID,
		Items:         make([]OrderItem, 0, len(items)),
		PaymentMethod: method,
		PaymentStatus: PaymentStatusPending,
		OrderStatus:   OrderStatusPendingApproval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range items {
		o.AddItem(it)
	}
	o.Recalculate()
	if method == PaymentMethodCredit && creditDays != nil {
		d := *creditDays
		o.CreditDays = &d
	}
	o.DueDate = ComputeDueDate(method, o.CreditDays, now)
	return o
}

// AddItem appends a copy of item and refreshes the totals.
func (o *Order) AddItem(item OrderItem) {
	item.ID = 0
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
	o.Recalculate()
}

// ReplaceItems swaps the whole item set. Only pending orders can be edited.
func (o *Order) ReplaceItems(items []OrderItem) error {
	if o.OrderStatus != OrderStatusPendingApproval {
		return ErrOrderNotEditable
	}
	o.Items = make([]OrderItem, 0, len(items))
	for _, it := range items {
		o.AddItem(it)
	}
	return nil
}

// Recalculate is the single place where derived amounts are refreshed: each
// item subtotal first, then the order totals.
func (o *Order) Recalculate() {
	for i := range o.Items {
		o.Items[i].Recalculate()
	}
	t := ComputeOrderTotals(o.Items)
	o.TotalAmount = t.TotalAmount
	o.GSTAmount = t.TaxAmount
	o.GrandTotal = t.GrandTotal
}

// IsOverdue reports whether the payment is still pending after the due date.
func (o *Order) IsOverdue(today time.Time) bool {
	if o.DueDate == nil || o.PaymentStatus != PaymentStatusPending {
		return false
	}
	return o.DueDate.Before(CalendarDate(today))
}
