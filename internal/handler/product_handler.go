package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/middleware"
	"github.com/wholesaleconnect/backend/internal/usecase"
)

type ProductService interface {
	List(ctx context.Context, in usecase.ListProductsInput) (usecase.ProductListOutput, error)
	Get(ctx context.Context, productID int64) (usecase.ProductDTO, error)
	ListLowStock(ctx context.Context, sellerID *int64, threshold int64) ([]usecase.ProductDTO, error)
	Create(ctx context.Context, actor usecase.Actor, in usecase.ProductInput) (usecase.ProductDTO, error)
	Update(ctx context.Context, actor usecase.Actor, productID int64, in usecase.ProductInput) (usecase.ProductDTO, error)
	Delete(ctx context.Context, actor usecase.Actor, productID int64) error
	SetStock(ctx context.Context, actor usecase.Actor, productID int64, newStock int64, reason string) (model.Product, error)
	AdjustStock(ctx context.Context, actor usecase.Actor, productID int64, delta int64, reason string) (model.Product, error)
	ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error)
}

// /api/products
type ProductHandler struct {
	uc ProductService
}

// DI
func NewProductHandler(uc ProductService) *ProductHandler {
	return &ProductHandler{uc: uc}
}

type ProductRequest struct {
	SellerID     int64           `json:"seller_id" validate:"required,gt=0"`
	Name         string          `json:"name" validate:"required,max=255"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"required,max=100"`
	Brand        string          `json:"brand" validate:"max=100"`
	MRP          decimal.Decimal `json:"mrp" validate:"decimal_gte0"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"decimal_gte0"`
	Stock        int64           `json:"stock" validate:"gte=0"`
	MOQ          int64           `json:"moq" validate:"gte=0"`
	ImageURLs    []string        `json:"image_urls" validate:"omitempty,dive,url"`
	IsActive     *bool           `json:"is_active"`
}

func (r ProductRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		SellerID:     r.SellerID,
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Brand:        r.Brand,
		MRP:          r.MRP,
		SellingPrice: r.SellingPrice,
		Stock:        r.Stock,
		MOQ:          r.MOQ,
		ImageURLs:    r.ImageURLs,
		IsActive:     r.IsActive,
	}
}

type SetStockRequest struct {
	Stock  *int64 `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type AdjustStockRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=255"`
}

// 読み取りは公開、書き込みには write のミドルウェアを掛ける
func (h *ProductHandler) RegisterRoutes(api *echo.Group, write ...echo.MiddlewareFunc) {
	g := api.Group("/products")

	g.GET("", h.list)
	g.GET("/active", h.listActive)
	g.GET("/search", h.search)
	g.GET("/low-stock", h.lowStock)
	g.GET("/seller/:sellerId", h.listBySeller)
	g.GET("/category/:category", h.listByCategory)
	g.GET("/:id", h.detail)
	g.GET("/:id/stock/adjustments", h.adjustments)

	g.POST("", h.create, write...)
	g.PUT("/:id", h.update, write...)
	g.DELETE("/:id", h.delete, write...)
	g.PUT("/:id/stock", h.setStock, write...)
	g.POST("/:id/stock/adjust", h.adjustStock, write...)
}

// ページングと並び順は全一覧で共通
func listInputFromQuery(c echo.Context) (usecase.ListProductsInput, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	return usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		MinPrice: c.QueryParam("min_price"),
		MaxPrice: c.QueryParam("max_price"),
		Sort:     c.QueryParam("sort"),
	}, nil
}

func (h *ProductHandler) runList(c echo.Context, in usecase.ListProductsInput) error {
	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	if in.SellerID, err = queryInt64Ptr(c, "seller_id"); err != nil {
		return writeError(c, err)
	}
	if in.ActiveOnly, err = queryBool(c, "active"); err != nil {
		return writeError(c, err)
	}
	in.Category = c.QueryParam("category")
	in.Brand = c.QueryParam("brand")
	in.Q = c.QueryParam("q")
	return h.runList(c, in)
}

func (h *ProductHandler) listActive(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.ActiveOnly = true
	return h.runList(c, in)
}

func (h *ProductHandler) search(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.Q = c.QueryParam("keyword")
	if in.Q == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "keyword required"})
	}
	return h.runList(c, in)
}

func (h *ProductHandler) listBySeller(c echo.Context) error {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		return writeError(c, err)
	}
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.SellerID = &sellerID
	return h.runList(c, in)
}

func (h *ProductHandler) listByCategory(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	in.Category = c.Param("category")
	in.ActiveOnly = true
	return h.runList(c, in)
}

func (h *ProductHandler) lowStock(c echo.Context) error {
	threshold, err := queryInt(c, "threshold")
	if err != nil {
		return writeError(c, err)
	}
	sellerID, err := queryInt64Ptr(c, "seller_id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListLowStock(c.Request().Context(), sellerID, int64(threshold))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
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

func (h *ProductHandler) adjustments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListAdjustments(c.Request().Context(), id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Create(c.Request().Context(), middleware.ActorFrom(c), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProductHandler) update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req ProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Update(c.Request().Context(), middleware.ActorFrom(c), id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.Delete(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "product " + strconv.FormatInt(id, 10) + " deleted"})
}

func (h *ProductHandler) setStock(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req SetStockRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.SetStock(c.Request().Context(), middleware.ActorFrom(c), id, *req.Stock, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) adjustStock(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req AdjustStockRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.AdjustStock(c.Request().Context(), middleware.ActorFrom(c), id, req.Delta, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
