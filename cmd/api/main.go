package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wholesaleconnect/backend/internal/config"
	"github.com/wholesaleconnect/backend/internal/handler"
	"github.com/wholesaleconnect/backend/internal/infra/cache"
	"github.com/wholesaleconnect/backend/internal/infra/db"
	infraRepo "github.com/wholesaleconnect/backend/internal/infra/repository"
	"github.com/wholesaleconnect/backend/internal/logger"
	"github.com/wholesaleconnect/backend/internal/metrics"
	"github.com/wholesaleconnect/backend/internal/repository"
	"github.com/wholesaleconnect/backend/internal/server"
	"github.com/wholesaleconnect/backend/internal/usecase"
	"github.com/wholesaleconnect/backend/internal/worker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// ロガーはまだ無い
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.Database, log, cfg.Log.Level)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(gormDB); err != nil {
			return err
		}
	}

	// Redis が無ければキャッシュ無しで動かす
	var productCache repository.ProductCache = cache.NoopProductCache{}
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis)
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unavailable, product cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			productCache = cache.NewRedisProductCache(rdb, cfg.Redis.TTL)
		}
		cancel()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//Usecase生成
	userUC := usecase.NewUserUsecase(userRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, log)
	productUC := usecase.NewProductUsecase(txm, productRepo, userRepo, productCache, log)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, log, m)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	e := server.New(server.Options{
		Auth:     cfg.Auth,
		Logger:   log,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		DB:       sqlDB,
	}, server.Handlers{
		Users:     handler.NewUserHandler(userUC),
		Products:  handler.NewProductHandler(productUC),
		Orders:    handler.NewOrderHandler(orderUC),
		AuditLogs: handler.NewAuditLogHandler(auditUC),
	})

	if cfg.Overdue.Enabled {
		sweeper := worker.NewOverdueSweeper(orderUC,
			worker.WithInterval(cfg.Overdue.Interval),
			worker.WithLogger(log),
		)
		go sweeper.Run(ctx)
	}

	addr := ":" + cfg.App.Port
	log.Info("starting api", zap.String("env", cfg.App.Env), zap.Bool("auth_required", cfg.Auth.Required))
	return server.Start(ctx, e, addr, log)
}
