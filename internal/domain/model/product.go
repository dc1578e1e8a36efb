package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// 卸売商品。価格はすべて decimal で保持する。
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    int64  `gorm:"not null;index" json:"seller_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(100);not null;index" json:"category"`
	Brand       string `gorm:"type:varchar(100)" json:"brand"`

	// 希望小売価格
	MRP          decimal.Decimal `gorm:"column:mrp;type:numeric(12,2);not null" json:"mrp"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"selling_price"`

	Stock int64 `gorm:"not null;default:0" json:"stock"`
	// 最小注文数量
	MOQ int64 `gorm:"column:moq;not null;default:1" json:"moq"`

	ImageURLs []string `gorm:"column:image_urls;serializer:json;type:text" json:"image_urls"`
	IsActive  bool     `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// MeetsMOQ reports whether quantity reaches the minimum order quantity.
func (p *Product) MeetsMOQ(quantity int64) bool {
	return quantity >= p.MOQ
}

// CanOrder reports whether the current stock covers quantity.
func (p *Product) CanOrder(quantity int64) bool {
	return quantity > 0 && quantity <= p.Stock
}

// AdjustStock applies delta to Stock. Stock never goes negative.
func (p *Product) AdjustStock(delta int64) error {
	if p.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}
