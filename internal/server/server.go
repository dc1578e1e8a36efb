package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wholesaleconnect/backend/internal/config"
	"github.com/wholesaleconnect/backend/internal/handler"
	"github.com/wholesaleconnect/backend/internal/logger"
	"github.com/wholesaleconnect/backend/internal/metrics"
	"github.com/wholesaleconnect/backend/internal/validator"
	"go.uber.org/zap"
)

// Pinger は /health で叩く DB。*sql.DB が満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Users     *handler.UserHandler
	Products  *handler.ProductHandler
	Orders    *handler.OrderHandler
	AuditLogs *handler.AuditLogHandler
}

type Options struct {
	Auth     config.AuthConfig
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	DB       Pinger
}

// New は echo を組み立てる。起動は Start で行う。
func New(opts Options, h Handlers) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = errorHandler

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	if opts.Metrics != nil {
		e.Use(opts.Metrics.EchoMiddleware())
	}
	e.Use(logger.EchoMiddleware(opts.Logger))
	e.Use(echomw.Recover())

	registerRoutes(e, opts, h)
	return e
}

// echo 由来のエラー（404 や 405）も {"error": "..."} で返す
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, handler.ErrorResponse{Error: msg})
}

// Start は ctx が終わるまで待ち受け、終わったら graceful shutdown する。
func Start(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return e.Shutdown(shutdownCtx)
}
