package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/repository"
	"github.com/wholesaleconnect/backend/internal/usecase"
)

func bearer(t *testing.T, userID string, role model.Role) map[string]string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + raw}
}

func sampleOrder() model.Order {
	return model.Order{
		ID:            10,
		BuyerID:       1,
		SellerID:      2,
		GrandTotal:    decimal.RequireFromString("127.44"),
		PaymentMethod: model.PaymentMethodCash,
		PaymentStatus: model.PaymentStatusPending,
		OrderStatus:   model.OrderStatusPendingApproval,
	}
}

func createBody() map[string]interface{} {
	return map[string]interface{}{
		"buyer_id":       1,
		"seller_id":      2,
		"payment_method": "CASH",
		"items":          []map[string]interface{}{{"product_id": 7, "quantity": 12}},
	}
}

func TestOrderHandler_Create(t *testing.T) {
	svc := new(OrderServiceMock)
	want := usecase.CreateOrderInput{
		BuyerID:        1,
		SellerID:       2,
		Items:          []usecase.OrderItemInput{{ProductID: 7, Quantity: 12}},
		PaymentMethod:  "CASH",
		IdempotencyKey: "key-1",
	}
	svc.On("Create", mock.Anything, anonymous, want).Return(sampleOrder(), true, nil).Once()
	svc.On("Create", mock.Anything, anonymous, want).Return(sampleOrder(), false, nil).Once()
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodPost, "/api/orders", createBody(), map[string]string{"X-Idempotency-Key": " key-1 "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(10), got.ID)
	assert.True(t, got.GrandTotal.Equal(decimal.RequireFromString("127.44")))

	// 同じキーの再送は 200
	rec = doRequest(t, e, http.MethodPost, "/api/orders", createBody(), map[string]string{"X-Idempotency-Key": "key-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Create_BuyerFromToken(t *testing.T) {
	svc := new(OrderServiceMock)
	actor := usecase.Actor{UserID: 1, Role: model.RoleBuyer}
	svc.On("Create", mock.Anything, actor, mock.MatchedBy(func(in usecase.CreateOrderInput) bool {
		return in.BuyerID == 1 && in.SellerID == 2
	})).Return(sampleOrder(), true, nil)
	e := newTestEcho(NewOrderHandler(svc))

	body := createBody()
	delete(body, "buyer_id")
	rec := doRequest(t, e, http.MethodPost, "/api/orders", body, bearer(t, "1", model.RoleBuyer))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestOrderHandler_Create_CreditDaysIgnoredForCash(t *testing.T) {
	svc := new(OrderServiceMock)
	svc.On("Create", mock.Anything, anonymous, mock.MatchedBy(func(in usecase.CreateOrderInput) bool {
		return in.PaymentMethod == "CASH" && in.CreditDays != nil && *in.CreditDays == 10
	})).Return(sampleOrder(), true, nil)
	e := newTestEcho(NewOrderHandler(svc))

	body := createBody()
	body["credit_days"] = 10
	rec := doRequest(t, e, http.MethodPost, "/api/orders", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

// 掛け日数の 7/15/30 チェックは usecase 側
func TestOrderHandler_Create_CreditDaysRejectedByService(t *testing.T) {
	svc := new(OrderServiceMock)
	svc.On("Create", mock.Anything, anonymous, mock.Anything).
		Return(model.Order{}, false, usecase.NewHTTPError(http.StatusBadRequest, "credit_days must be one of 7, 15, 30"))
	e := newTestEcho(NewOrderHandler(svc))

	body := createBody()
	body["payment_method"] = "CREDIT"
	body["credit_days"] = 10
	rec := doRequest(t, e, http.MethodPost, "/api/orders", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "credit_days must be one of 7, 15, 30", decodeErr(t, rec))
}

func TestOrderHandler_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b map[string]interface{})
		want   string
	}{
		{"no items", func(b map[string]interface{}) { b["items"] = []interface{}{} }, "items: must contain at least 1 item(s)"},
		{"zero quantity", func(b map[string]interface{}) {
			b["items"] = []map[string]interface{}{{"product_id": 7, "quantity": 0}}
		}, "items[0].quantity: is required"},
		{"unknown method", func(b map[string]interface{}) { b["payment_method"] = "BARTER" }, "payment_method"},
		{"no seller", func(b map[string]interface{}) { delete(b, "seller_id") }, "seller_id: is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(OrderServiceMock)
			e := newTestEcho(NewOrderHandler(svc))

			body := createBody()
			tt.mutate(body)
			rec := doRequest(t, e, http.MethodPost, "/api/orders", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeErr(t, rec), tt.want)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderHandler_Create_BadJSON(t *testing.T) {
	e := newTestEcho(NewOrderHandler(new(OrderServiceMock)))
	rec := doRequest(t, e, http.MethodPost, "/api/orders", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeErr(t, rec))
}

func TestOrderHandler_InvalidTokenOnWrite(t *testing.T) {
	e := newTestEcho(NewOrderHandler(new(OrderServiceMock)))
	rec := doRequest(t, e, http.MethodPost, "/api/orders", createBody(), map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderHandler_List(t *testing.T) {
	svc := new(OrderServiceMock)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.On("List", mock.Anything, mock.MatchedBy(func(in usecase.ListOrdersInput) bool {
		return in.Page == 2 && in.Limit == 5 &&
			in.BuyerID != nil && *in.BuyerID == 3 && in.SellerID == nil &&
			in.Status == "pending_approval" && in.PaymentStatus == "" &&
			in.From != nil && in.From.Equal(from) && in.To == nil
	})).Return(usecase.OrderListOutput{Items: []model.Order{sampleOrder()}, Total: 6, Page: 2, Limit: 5}, nil)
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodGet, "/api/orders?buyer_id=3&status=pending_approval&page=2&limit=5&from=2024-01-01", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out usecase.OrderListOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(6), out.Total)
	assert.Len(t, out.Items, 1)
	svc.AssertExpectations(t)
}

func TestOrderHandler_List_BadQuery(t *testing.T) {
	e := newTestEcho(NewOrderHandler(new(OrderServiceMock)))

	for _, q := range []string{"page=x", "buyer_id=abc", "from=yesterday"} {
		rec := doRequest(t, e, http.MethodGet, "/api/orders?"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestOrderHandler_SellerRoutes(t *testing.T) {
	svc := new(OrderServiceMock)
	svc.On("List", mock.Anything, usecase.ListOrdersInput{SellerID: int64Ptr(2), Status: "SHIPPED"}).
		Return(usecase.OrderListOutput{Page: 1, Limit: 20}, nil)
	svc.On("CountBySellerAndStatus", mock.Anything, int64(2), "SHIPPED").Return(int64(4), nil)
	svc.On("List", mock.Anything, usecase.ListOrdersInput{BuyerID: int64Ptr(1)}).
		Return(usecase.OrderListOutput{Page: 1, Limit: 20}, nil)
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodGet, "/api/orders/seller/2/status/SHIPPED", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/api/orders/seller/2/status/SHIPPED/count", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":4}`, rec.Body.String())

	rec = doRequest(t, e, http.MethodGet, "/api/orders/buyer/1", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/api/orders/seller/zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid sellerId", decodeErr(t, rec))
	svc.AssertExpectations(t)
}

func TestOrderHandler_Reports(t *testing.T) {
	svc := new(OrderServiceMock)
	svc.On("ListRecent", mock.Anything, 3).Return([]model.Order{sampleOrder()}, nil)
	svc.On("ListOverdue", mock.Anything).Return([]model.Order{}, nil)
	svc.On("ListDueSoon", mock.Anything, 0).Return([]model.Order{}, nil)
	svc.On("TopProducts", mock.Anything, int64Ptr(2), 5).Return([]repository.ProductSales{
		{ProductID: 7, ProductName: "Basmati Rice 25kg", QuantitySold: 40, Revenue: decimal.RequireFromString("360")},
	}, nil)
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodGet, "/api/orders/recent?days=3", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, e, http.MethodGet, "/api/orders/overdue", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, e, http.MethodGet, "/api/orders/due-soon", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/api/orders/top-products?limit=5&seller_id=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sales []repository.ProductSales
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, int64(40), sales[0].QuantitySold)
	svc.AssertExpectations(t)
}

func TestOrderHandler_Detail(t *testing.T) {
	svc := new(OrderServiceMock)
	svc.On("Get", mock.Anything, int64(10)).Return(sampleOrder(), nil)
	svc.On("Get", mock.Anything, int64(11)).Return(model.Order{}, usecase.NewHTTPError(http.StatusNotFound, "order not found"))
	svc.On("Get", mock.Anything, int64(12)).Return(model.Order{}, errors.New("boom"))
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodGet, "/api/orders/10", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodGet, "/api/orders/11", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", decodeErr(t, rec))

	// 想定外のエラーは中身を出さない
	rec = doRequest(t, e, http.MethodGet, "/api/orders/12", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeErr(t, rec))

	rec = doRequest(t, e, http.MethodGet, "/api/orders/-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeErr(t, rec))
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	svc := new(OrderServiceMock)
	seller := usecase.Actor{UserID: 2, Role: model.RoleSeller}
	approved := sampleOrder()
	approved.OrderStatus = model.OrderStatusApproved
	svc.On("UpdateStatus", mock.Anything, seller, int64(10), "approved").Return(approved, nil)
	svc.On("UpdateStatus", mock.Anything, seller, int64(10), "DELIVERED").
		Return(model.Order{}, usecase.NewHTTPError(http.StatusConflict, "invalid status transition from PENDING_APPROVAL to DELIVERED"))
	e := newTestEcho(NewOrderHandler(svc))
	auth := bearer(t, "2", model.RoleSeller)

	rec := doRequest(t, e, http.MethodPut, "/api/orders/10/status", map[string]string{"status": "approved"}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.OrderStatusApproved, got.OrderStatus)

	rec = doRequest(t, e, http.MethodPut, "/api/orders/10/status", map[string]string{"status": "DELIVERED"}, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeErr(t, rec), "invalid status transition")

	rec = doRequest(t, e, http.MethodPut, "/api/orders/10/status", map[string]string{}, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status: is required", decodeErr(t, rec))
	svc.AssertExpectations(t)
}

func TestOrderHandler_UpdatePaymentAndItems(t *testing.T) {
	svc := new(OrderServiceMock)
	paid := sampleOrder()
	paid.PaymentStatus = model.PaymentStatusPaid
	svc.On("UpdatePayment", mock.Anything, anonymous, int64(10), "PAID").Return(paid, nil)
	svc.On("UpdateItems", mock.Anything, anonymous, int64(10), []usecase.OrderItemInput{{ProductID: 7, Quantity: 20}}).
		Return(sampleOrder(), nil)
	e := newTestEcho(NewOrderHandler(svc))

	rec := doRequest(t, e, http.MethodPut, "/api/orders/10/payment", map[string]string{"status": "PAID"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	items := map[string]interface{}{"items": []map[string]interface{}{{"product_id": 7, "quantity": 20}}}
	rec = doRequest(t, e, http.MethodPut, "/api/orders/10/items", items, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}
