package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/middleware"
	"github.com/wholesaleconnect/backend/internal/repository"
	"github.com/wholesaleconnect/backend/internal/usecase"
)

type OrderService interface {
	Create(ctx context.Context, actor usecase.Actor, in usecase.CreateOrderInput) (model.Order, bool, error)
	Get(ctx context.Context, orderID int64) (model.Order, error)
	List(ctx context.Context, in usecase.ListOrdersInput) (usecase.OrderListOutput, error)
	CountBySellerAndStatus(ctx context.Context, sellerID int64, status string) (int64, error)
	ListRecent(ctx context.Context, days int) ([]model.Order, error)
	ListOverdue(ctx context.Context) ([]model.Order, error)
	ListDueSoon(ctx context.Context, days int) ([]model.Order, error)
	TopProducts(ctx context.Context, sellerID *int64, limit int) ([]repository.ProductSales, error)
	UpdateStatus(ctx context.Context, actor usecase.Actor, orderID int64, status string) (model.Order, error)
	UpdatePayment(ctx context.Context, actor usecase.Actor, orderID int64, status string) (model.Order, error)
	UpdateItems(ctx context.Context, actor usecase.Actor, orderID int64, items []usecase.OrderItemInput) (model.Order, error)
}

// /api/orders
type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type OrderCreateRequest struct {
	BuyerID       int64              `json:"buyer_id" validate:"omitempty,gt=0"`
	SellerID      int64              `json:"seller_id" validate:"required,gt=0"`
	Items         []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string             `json:"payment_method" validate:"required,payment_method"`
	CreditDays    *int               `json:"credit_days"`
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderItemsRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func toItemInputs(items []OrderItemRequest) []usecase.OrderItemInput {
	out := make([]usecase.OrderItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, usecase.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func (h *OrderHandler) RegisterRoutes(api *echo.Group, write ...echo.MiddlewareFunc) {
	g := api.Group("/orders")

	g.GET("", h.list)
	g.GET("/recent", h.recent)
	g.GET("/overdue", h.overdue)
	g.GET("/due-soon", h.dueSoon)
	g.GET("/top-products", h.topProducts)
	g.GET("/buyer/:buyerId", h.listByBuyer)
	g.GET("/seller/:sellerId", h.listBySeller)
	g.GET("/seller/:sellerId/status/:status", h.listBySellerAndStatus)
	g.GET("/seller/:sellerId/status/:status/count", h.countBySellerAndStatus)
	g.GET("/:id", h.detail)

	g.POST("", h.create, write...)
	g.PUT("/:id/status", h.updateStatus, write...)
	g.PUT("/:id/payment", h.updatePayment, write...)
	g.PUT("/:id/items", h.updateItems, write...)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	actor := middleware.ActorFrom(c)
	buyerID := req.BuyerID
	if buyerID == 0 && actor.Role == model.RoleBuyer {
		buyerID = actor.UserID
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := strings.TrimSpace(c.Request().Header.Get("X-Idempotency-Key"))

	order, created, err := h.uc.Create(c.Request().Context(), actor, usecase.CreateOrderInput{
		BuyerID:        buyerID,
		SellerID:       req.SellerID,
		Items:          toItemInputs(req.Items),
		PaymentMethod:  req.PaymentMethod,
		CreditDays:     req.CreditDays,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	// 再送は既存の注文を 200 で返す
	if !created {
		return c.JSON(http.StatusOK, order)
	}
	return c.JSON(http.StatusCreated, order)
}

// YYYY-MM-DD と RFC3339 を受け付ける
func queryTime(c echo.Context, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
}

func pageFromQuery(c echo.Context) (usecase.ListOrdersInput, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return usecase.ListOrdersInput{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return usecase.ListOrdersInput{}, err
	}
	return usecase.ListOrdersInput{Page: page, Limit: limit}, nil
}

func (h *OrderHandler) runList(c echo.Context, in usecase.ListOrdersInput) error {
	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	in, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	if in.BuyerID, err = queryInt64Ptr(c, "buyer_id"); err != nil {
		return writeError(c, err)
	}
	if in.SellerID, err = queryInt64Ptr(c, "seller_id"); err != nil {
		return writeError(c, err)
	}
	if in.From, err = queryTime(c, "from"); err != nil {
		return writeError(c, err)
	}
	if in.To, err = queryTime(c, "to"); err != nil {
		return writeError(c, err)
	}
	in.Status = c.QueryParam("status")
	in.PaymentStatus = c.QueryParam("payment_status")
	return h.runList(c, in)
}

func (h *OrderHandler) listByBuyer(c echo.Context) error {
	buyerID, err := pathID(c, "buyerId")
	if err != nil {
		return writeError(c, err)
	}
	in, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.BuyerID = &buyerID
	return h.runList(c, in)
}

func (h *OrderHandler) listBySeller(c echo.Context) error {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		return writeError(c, err)
	}
	in, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.SellerID = &sellerID
	return h.runList(c, in)
}

func (h *OrderHandler) listBySellerAndStatus(c echo.Context) error {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		return writeError(c, err)
	}
	in, err := pageFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.SellerID = &sellerID
	in.Status = c.Param("status")
	return h.runList(c, in)
}

func (h *OrderHandler) countBySellerAndStatus(c echo.Context) error {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.uc.CountBySellerAndStatus(c.Request().Context(), sellerID, c.Param("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

func (h *OrderHandler) recent(c echo.Context) error {
	days, err := queryInt(c, "days")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListRecent(c.Request().Context(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) overdue(c echo.Context) error {
	out, err := h.uc.ListOverdue(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) dueSoon(c echo.Context) error {
	days, err := queryInt(c, "days")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListDueSoon(c.Request().Context(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) topProducts(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, err)
	}
	sellerID, err := queryInt64Ptr(c, "seller_id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.TopProducts(c.Request().Context(), sellerID, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req OrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.UpdateStatus(c.Request().Context(), middleware.ActorFrom(c), id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updatePayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req OrderStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.UpdatePayment(c.Request().Context(), middleware.ActorFrom(c), id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateItems(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req OrderItemsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.UpdateItems(c.Request().Context(), middleware.ActorFrom(c), id, toItemInputs(req.Items))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
