package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	"github.com/wholesaleconnect/backend/internal/logger"
	"github.com/wholesaleconnect/backend/internal/middleware"
	"go.uber.org/zap"
)

type HealthResponse struct {
	Status string `json:"status"`
}

func registerRoutes(e *echo.Echo, opts Options, h Handlers) {
	e.GET("/health", healthHandler(opts.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	// 更新系。auth.required のときはトークン必須
	write := []echo.MiddlewareFunc{middleware.AuthJWT(opts.Auth.JWTSecret, opts.Auth.Required)}
	if opts.Auth.Required {
		write = append(write, middleware.RequireUser())
	}
	// 監査ログは管理者のみ
	admin := write
	if opts.Auth.Required {
		admin = append(append([]echo.MiddlewareFunc{}, write...), middleware.RequireRole(model.RoleAdmin))
	}

	api := e.Group("/api")
	if h.Users != nil {
		h.Users.RegisterRoutes(api, write...)
	}
	if h.Products != nil {
		h.Products.RegisterRoutes(api, write...)
	}
	if h.Orders != nil {
		h.Orders.RegisterRoutes(api, write...)
	}
	if h.AuditLogs != nil {
		h.AuditLogs.RegisterRoutes(api, admin...)
	}
}

func healthHandler(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.FromEcho(c).Warn("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		}
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}
