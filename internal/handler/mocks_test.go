package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/middleware"
	"github.com/wholesaleconnect/backend/internal/repository"
	"github.com/wholesaleconnect/backend/internal/usecase"
	"github.com/wholesaleconnect/backend/internal/validator"
)

// ---- services ----

type OrderServiceMock struct{ mock.Mock }

func (m *OrderServiceMock) Create(ctx context.Context, actor usecase.Actor, in usecase.CreateOrderInput) (model.Order, bool, error) {
	args := m.Called(ctx, actor, in)
	return args.Get(0).(model.Order), args.Bool(1), args.Error(2)
}
func (m *OrderServiceMock) Get(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(model.Order), args.Error(1)
}
func (m *OrderServiceMock) List(ctx context.Context, in usecase.ListOrdersInput) (usecase.OrderListOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.OrderListOutput), args.Error(1)
}
func (m *OrderServiceMock) CountBySellerAndStatus(ctx context.Context, sellerID int64, status string) (int64, error) {
	args := m.Called(ctx, sellerID, status)
	return args.Get(0).(int64), args.Error(1)
}
func (m *OrderServiceMock) ListRecent(ctx context.Context, days int) ([]model.Order, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]model.Order), args.Error(1)
}
func (m *OrderServiceMock) ListOverdue(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Order), args.Error(1)
}
func (m *OrderServiceMock) ListDueSoon(ctx context.Context, days int) ([]model.Order, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]model.Order), args.Error(1)
}
func (m *OrderServiceMock) TopProducts(ctx context.Context, sellerID *int64, limit int) ([]repository.ProductSales, error) {
	args := m.Called(ctx, sellerID, limit)
	return args.Get(0).([]repository.ProductSales), args.Error(1)
}
func (m *OrderServiceMock) UpdateStatus(ctx context.Context, actor usecase.Actor, orderID int64, status string) (model.Order, error) {
	args := m.Called(ctx, actor, orderID, status)
	return args.Get(0).(model.Order), args.Error(1)
}
func (m *OrderServiceMock) UpdatePayment(ctx context.Context, actor usecase.Actor, orderID int64, status string) (model.Order, error) {
	args := m.Called(ctx, actor, orderID, status)
	return args.Get(0).(model.Order), args.Error(1)
}
func (m *OrderServiceMock) UpdateItems(ctx context.Context, actor usecase.Actor, orderID int64, items []usecase.OrderItemInput) (model.Order, error) {
	args := m.Called(ctx, actor, orderID, items)
	return args.Get(0).(model.Order), args.Error(1)
}

type ProductServiceMock struct{ mock.Mock }

func (m *ProductServiceMock) List(ctx context.Context, in usecase.ListProductsInput) (usecase.ProductListOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.ProductListOutput), args.Error(1)
}
func (m *ProductServiceMock) Get(ctx context.Context, productID int64) (usecase.ProductDTO, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(usecase.ProductDTO), args.Error(1)
}
func (m *ProductServiceMock) ListLowStock(ctx context.Context, sellerID *int64, threshold int64) ([]usecase.ProductDTO, error) {
	args := m.Called(ctx, sellerID, threshold)
	return args.Get(0).([]usecase.ProductDTO), args.Error(1)
}
func (m *ProductServiceMock) Create(ctx context.Context, actor usecase.Actor, in usecase.ProductInput) (usecase.ProductDTO, error) {
	args := m.Called(ctx, actor, in)
	return args.Get(0).(usecase.ProductDTO), args.Error(1)
}
func (m *ProductServiceMock) Update(ctx context.Context, actor usecase.Actor, productID int64, in usecase.ProductInput) (usecase.ProductDTO, error) {
	args := m.Called(ctx, actor, productID, in)
	return args.Get(0).(usecase.ProductDTO), args.Error(1)
}
func (m *ProductServiceMock) Delete(ctx context.Context, actor usecase.Actor, productID int64) error {
	return m.Called(ctx, actor, productID).Error(0)
}
func (m *ProductServiceMock) SetStock(ctx context.Context, actor usecase.Actor, productID int64, newStock int64, reason string) (model.Product, error) {
	args := m.Called(ctx, actor, productID, newStock, reason)
	return args.Get(0).(model.Product), args.Error(1)
}
func (m *ProductServiceMock) AdjustStock(ctx context.Context, actor usecase.Actor, productID int64, delta int64, reason string) (model.Product, error) {
	args := m.Called(ctx, actor, productID, delta, reason)
	return args.Get(0).(model.Product), args.Error(1)
}
func (m *ProductServiceMock) ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	args := m.Called(ctx, productID, limit)
	return args.Get(0).([]model.InventoryAdjustment), args.Error(1)
}

type UserServiceMock struct{ mock.Mock }

func (m *UserServiceMock) Register(ctx context.Context, in usecase.RegisterInput) (model.User, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *UserServiceMock) Login(ctx context.Context, in usecase.LoginInput) (usecase.LoginOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(usecase.LoginOutput), args.Error(1)
}
func (m *UserServiceMock) Get(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *UserServiceMock) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *UserServiceMock) List(ctx context.Context, role string) ([]model.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]model.User), args.Error(1)
}

type AuditLogServiceMock struct{ mock.Mock }

func (m *AuditLogServiceMock) List(ctx context.Context, in usecase.ListAuditLogsInput) ([]model.AuditLog, error) {
	args := m.Called(ctx, in)
	return args.Get(0).([]model.AuditLog), args.Error(1)
}

// ---- helpers ----

const testSecret = "handler-secret"

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc)
}

// 本番と同じく /api 配下に登録し、書き込み系は任意認証にする
func newTestEcho(h routeRegistrar) *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	api := e.Group("/api")
	h.RegisterRoutes(api, middleware.AuthJWT(testSecret, false))
	return e
}

func doRequest(t *testing.T, e *echo.Echo, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var r ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), "body=%s", rec.Body.String())
	return r.Error
}

func int64Ptr(v int64) *int64 { return &v }

var anonymous = usecase.Actor{}
