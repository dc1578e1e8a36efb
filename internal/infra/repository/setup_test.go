package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	dbinfra "github.com/wholesaleconnect/backend/internal/infra/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB はテストごとに独立したインメモリ SQLite を返す。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// :memory: は接続ごとに別 DB になるので 1 本に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, dbinfra.Migrate(db))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedUser(t *testing.T, db *gorm.DB, email, phone string, role model.Role) model.User {
	t.Helper()
	u := model.User{
		Email:        email,
		PasswordHash: "x",
		Name:         "user " + email,
		Phone:        phone,
		Role:         role,
		BusinessName: "biz " + email,
		IsActive:     true,
	}
	require.NoError(t, NewUserGormRepository(db).Create(context.Background(), &u))
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID int64, name string, price string, stock int64) model.Product {
	t.Helper()
	p, err := NewProductGormRepository(db).Create(context.Background(), model.Product{
		SellerID:     sellerID,
		Name:         name,
		Description:  "desc of " + name,
		Category:     "grocery",
		Brand:        "acme",
		MRP:          d(price).Add(d("1")),
		SellingPrice: d(price),
		Stock:        stock,
		MOQ:          1,
		ImageURLs:    []string{"https://img.example.com/" + name + ".png"},
		IsActive:     true,
	})
	require.NoError(t, err)
	return p
}

func seedOrder(t *testing.T, db *gorm.DB, buyerID, sellerID int64, p model.Product, qty int64, method model.PaymentMethod, creditDays *int, now time.Time) *model.Order {
	t.Helper()
	o := model.NewOrder(buyerID, sellerID, []model.OrderItem{{
		ProductID:           p.ID,
		ProductNameSnapshot: p.Name,
		Quantity:            qty,
		Price:               p.SellingPrice,
	}}, method, creditDays, now)
	require.NoError(t, NewOrderGormRepository(db).Create(context.Background(), o))
	return o
}
