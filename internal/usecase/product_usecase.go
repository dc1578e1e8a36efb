package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	users    repo.UserRepository
	cache    repo.ProductCache
	log      *zap.Logger
	now      func() time.Time
}

// キャッシュ無し
type noProductCache struct{}

func (noProductCache) Get(context.Context, int64) (model.Product, bool, error) {
	return model.Product{}, false, nil
}
func (noProductCache) Set(context.Context, model.Product) error { return nil }
func (noProductCache) Invalidate(context.Context, int64) error { return nil }

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	users repo.UserRepository,
	productCache repo.ProductCache,
	log *zap.Logger,
) *ProductUsecase {
	if productCache == nil {
		productCache = noProductCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{
		tx:       tx,
		products: products,
		users:    users,
		cache:    productCache,
		log:      log,
		now:      time.Now,
	}
}

// 出品者情報付きの商品
type ProductDTO struct {
	model.Product
	SellerName         string `json:"seller_name"`
	SellerBusinessName string `json:"seller_business_name"`
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	SellerID   *int64
	Category   string
	Brand      string
	Q          string
	ActiveOnly bool
	MinPrice   string
	MaxPrice   string
	Sort       string
}

type ProductListOutput struct {
	Items []ProductDTO `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func parseOptionalPrice(v, field string) (*decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, NewHTTPError(http.StatusBadRequest, field+" must be a number >= 0")
	}
	return &d, nil
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	minPrice, err := parseOptionalPrice(in.MinPrice, "min_price")
	if err != nil {
		return ProductListOutput{}, err
	}
	maxPrice, err := parseOptionalPrice(in.MaxPrice, "max_price")
	if err != nil {
		return ProductListOutput{}, err
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.products.List(ctx, repo.ProductListQuery{
		Page:       page,
		Limit:      limit,
		SellerID:   in.SellerID,
		Category:   strings.TrimSpace(in.Category),
		Brand:      strings.TrimSpace(in.Brand),
		Q:          strings.TrimSpace(in.Q),
		ActiveOnly: in.ActiveOnly,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dtos, err := u.withSellers(ctx, items)
	if err != nil {
		return ProductListOutput{}, err
	}
	return ProductListOutput{Items: dtos, Total: total, Page: page, Limit: limit}, nil
}

// Get は商品詳細を返す。キャッシュにあればDBを読まない。
func (u *ProductUsecase) Get(ctx context.Context, productID int64) (ProductDTO, error) {
	if productID <= 0 {
		return ProductDTO{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, hit, err := u.cache.Get(ctx, productID)
	if err != nil {
		// キャッシュ障害はリクエストを失敗させない
		u.log.Warn("product cache get failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	if !hit {
		p, err = u.products.FindByID(ctx, productID)
		if err != nil {
			return ProductDTO{}, mapRepoError(err, "not found")
		}
		if err := u.cache.Set(ctx, p); err != nil {
			u.log.Warn("product cache set failed", zap.Int64("product_id", productID), zap.Error(err))
		}
	}

	dtos, err := u.withSellers(ctx, []model.Product{p})
	if err != nil {
		return ProductDTO{}, err
	}
	return dtos[0], nil
}

func (u *ProductUsecase) ListLowStock(ctx context.Context, sellerID *int64, threshold int64) ([]ProductDTO, error) {
	if threshold == 0 {
		threshold = 10
	}
	if threshold < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "threshold must be >= 0")
	}
	items, err := u.products.ListLowStock(ctx, sellerID, threshold)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.withSellers(ctx, items)
}

func (u *ProductUsecase) withSellers(ctx context.Context, items []model.Product) ([]ProductDTO, error) {
	ids := make([]int64, 0, len(items))
	seen := map[int64]struct{}{}
	for _, p := range items {
		if _, ok := seen[p.SellerID]; !ok {
			seen[p.SellerID] = struct{}{}
			ids = append(ids, p.SellerID)
		}
	}

	sellers := map[int64]model.User{}
	if len(ids) > 0 {
		users, err := u.users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, s := range users {
			sellers[s.ID] = s
		}
	}

	out := make([]ProductDTO, 0, len(items))
	for _, p := range items {
		s := sellers[p.SellerID]
		out = append(out, ProductDTO{Product: p, SellerName: s.Name, SellerBusinessName: s.BusinessName})
	}
	return out, nil
}

type ProductInput struct {
	SellerID     int64
	Name         string
	Description  string
	Category     string
	Brand        string
	MRP          decimal.Decimal
	SellingPrice decimal.Decimal
	Stock        int64
	MOQ          int64
	ImageURLs    []string
	IsActive     *bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return NewHTTPError(http.StatusBadRequest, "category required")
	}
	if in.MRP.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "mrp must be >= 0")
	}
	if in.SellingPrice.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "selling_price must be >= 0")
	}
	if in.Stock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	if in.MOQ < 0 {
		return NewHTTPError(http.StatusBadRequest, "moq must be >= 1")
	}
	return nil
}

// 出品者本人か管理者か
func canManageProduct(actor Actor, sellerID int64) bool {
	return actor.IsAnonymous() || actor.IsAdmin() || actor.UserID == sellerID
}

func (u *ProductUsecase) Create(ctx context.Context, actor Actor, in ProductInput) (ProductDTO, error) {
	if in.SellerID <= 0 {
		return ProductDTO{}, NewHTTPError(http.StatusBadRequest, "invalid seller_id")
	}
	if err := in.validate(); err != nil {
		return ProductDTO{}, err
	}
	if !canManageProduct(actor, in.SellerID) {
		return ProductDTO{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := requireRole(ctx, r.Users(), in.SellerID, model.RoleSeller, "seller"); err != nil {
			return err
		}
		name := strings.TrimSpace(in.Name)
		exists, err := r.Products().ExistsByNameAndSeller(ctx, in.SellerID, name, 0)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if exists {
			return NewHTTPError(http.StatusConflict, "product with this name already exists")
		}

		moq := in.MOQ
		if moq == 0 {
			moq = 1
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		created, err = r.Products().Create(ctx, model.Product{
			SellerID:     in.SellerID,
			Name:         name,
			Description:  in.Description,
			Category:     strings.TrimSpace(in.Category),
			Brand:        strings.TrimSpace(in.Brand),
			MRP:          in.MRP,
			SellingPrice: in.SellingPrice,
			Stock:        in.Stock,
			MOQ:          moq,
			ImageURLs:    in.ImageURLs,
			IsActive:     active,
		})
		if err != nil {
			return mapRepoError(err, "not found")
		}
		return nil
	})
	if err != nil {
		return ProductDTO{}, err
	}

	u.log.Info("product created", zap.Int64("product_id", created.ID), zap.Int64("seller_id", created.SellerID))
	dtos, err := u.withSellers(ctx, []model.Product{created})
	if err != nil {
		return ProductDTO{}, err
	}
	return dtos[0], nil
}

// Update は商品情報を更新する。在庫は SetStock / AdjustStock で変える。
func (u *ProductUsecase) Update(ctx context.Context, actor Actor, productID int64, in ProductInput) (ProductDTO, error) {
	if productID <= 0 {
		return ProductDTO{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return ProductDTO{}, err
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canManageProduct(actor, p.SellerID) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		name := strings.TrimSpace(in.Name)
		exists, err := r.Products().ExistsByNameAndSeller(ctx, p.SellerID, name, p.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if exists {
			return NewHTTPError(http.StatusConflict, "product with this name already exists")
		}

		p.Name = name
		p.Description = in.Description
		p.Category = strings.TrimSpace(in.Category)
		p.Brand = strings.TrimSpace(in.Brand)
		p.MRP = in.MRP
		p.SellingPrice = in.SellingPrice
		if in.MOQ > 0 {
			p.MOQ = in.MOQ
		}
		if in.ImageURLs != nil {
			p.ImageURLs = in.ImageURLs
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if err := r.Products().Update(ctx, p); err != nil {
			return mapRepoError(err, "not found")
		}
		updated = p
		return nil
	})
	if err != nil {
		return ProductDTO{}, err
	}

	u.invalidate(ctx, productID)
	dtos, err := u.withSellers(ctx, []model.Product{updated})
	if err != nil {
		return ProductDTO{}, err
	}
	return dtos[0], nil
}

func (u *ProductUsecase) Delete(ctx context.Context, actor Actor, productID int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canManageProduct(actor, p.SellerID) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		return mapRepoError(r.Products().SoftDelete(ctx, productID), "not found")
	})
	if err != nil {
		return err
	}

	u.invalidate(ctx, productID)
	u.log.Info("product deleted", zap.Int64("product_id", productID))
	return nil
}

// SetStock は在庫を newStock にし、差分を履歴に残す。
func (u *ProductUsecase) SetStock(ctx context.Context, actor Actor, productID int64, newStock int64, reason string) (model.Product, error) {
	if newStock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	return u.changeStock(ctx, actor, productID, reason, func(p *model.Product) error {
		return p.AdjustStock(newStock - p.Stock)
	})
}

// AdjustStock は在庫を delta だけ増減する。0未満になるなら 409。
func (u *ProductUsecase) AdjustStock(ctx context.Context, actor Actor, productID int64, delta int64, reason string) (model.Product, error) {
	if delta == 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "delta must not be 0")
	}
	return u.changeStock(ctx, actor, productID, reason, func(p *model.Product) error {
		return p.AdjustStock(delta)
	})
}

func (u *ProductUsecase) changeStock(ctx context.Context, actor Actor, productID int64, reason string, apply func(p *model.Product) error) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return mapRepoError(err, "not found")
		}
		if !canManageProduct(actor, p.SellerID) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		before := p.Stock
		if err := apply(&p); err != nil {
			if errors.Is(err, model.ErrInsufficientStock) {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock: have %d", before))
			}
			return NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		//在庫の現在値を更新
		if err := r.Inventory().SetStock(ctx, productID, p.Stock); err != nil {
			return mapRepoError(err, "not found")
		}

		//履歴を作成（差分）
		now := u.now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			ActorUserID: actor.UserID,
			Delta:       p.Stock - before,
			StockAfter:  p.Stock,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログを作成（在庫更新）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, before),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, p.Stock),
			CreatedAt:    now,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidate(ctx, productID)
	return out, nil
}

func (u *ProductUsecase) ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	if productID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if limit == 0 {
		limit = 50
	}
	if limit < 1 || limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out []model.InventoryAdjustment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			return mapRepoError(err, "not found")
		}
		adjs, err := r.Inventory().ListAdjustments(ctx, productID, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = adjs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, productID int64) {
	if err := u.cache.Invalidate(ctx, productID); err != nil {
		u.log.Warn("product cache invalidate failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}
