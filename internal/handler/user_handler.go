package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/usecase"
)

type UserService interface {
	Register(ctx context.Context, in usecase.RegisterInput) (model.User, error)
	Login(ctx context.Context, in usecase.LoginInput) (usecase.LoginOutput, error)
	Get(ctx context.Context, userID int64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, role string) ([]model.User, error)
}

// /api/auth と /api/users
type UserHandler struct {
	uc UserService
}

func NewUserHandler(uc UserService) *UserHandler {
	return &UserHandler{uc: uc}
}

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Name         string `json:"name" validate:"required,max=255"`
	Phone        string `json:"phone" validate:"required,max=20"`
	Role         string `json:"role" validate:"omitempty,oneof=BUYER SELLER buyer seller"`
	BusinessName string `json:"business_name" validate:"max=255"`
	GSTNumber    string `json:"gst_number" validate:"max=15"`
	Address      string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// 一覧系は guard で保護する
func (h *UserHandler) RegisterRoutes(api *echo.Group, guard ...echo.MiddlewareFunc) {
	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)

	users := api.Group("/users", guard...)
	users.GET("", h.list)
	users.GET("/role/:role", h.listByRole)
	users.GET("/email/:email", h.getByEmail)
	users.GET("/:id", h.detail)
}

func (h *UserHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	u, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		BusinessName: req.BusinessName,
		GSTNumber:    req.GSTNumber,
		Address:      req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.QueryParam("role"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) listByRole(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), c.Param("role"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *UserHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) getByEmail(c echo.Context) error {
	u, err := h.uc.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
