package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem is one line of an order. Items are owned by their Order and are
// never shared between orders.
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	Price               decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// ComputeSubtotal returns unitPrice * quantity without rounding.
func ComputeSubtotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// Recalculate refreshes Subtotal from Quantity and Price.
func (i *OrderItem) Recalculate() {
	i.Subtotal = ComputeSubtotal(i.Quantity, i.Price)
}

// BeforeSave keeps Subtotal consistent on every insert and update.
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	i.Recalculate()
	return nil
}
