package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper は延滞注文を OVERDUE にする処理。OrderUsecase が満たす。
type Sweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// OverdueSweeper は一定間隔で Sweeper を呼ぶバックグラウンドジョブ。
type OverdueSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

type Option func(*OverdueSweeper)

func WithInterval(d time.Duration) Option {
	return func(s *OverdueSweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// 1 回の掃除に掛けてよい時間
func WithTimeout(d time.Duration) Option {
	return func(s *OverdueSweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *OverdueSweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewOverdueSweeper(sweeper Sweeper, opts ...Option) *OverdueSweeper {
	s := &OverdueSweeper{
		sweeper:  sweeper,
		interval: time.Hour,
		timeout:  time.Minute,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("overdue_sweeper")
	return s
}

// Run は起動直後に 1 回、その後 interval ごとに掃除する。ctx が終わると戻る。
func (s *OverdueSweeper) Run(ctx context.Context) {
	s.logger.Info("overdue sweeper started", zap.Duration("interval", s.interval))
	defer s.logger.Info("overdue sweeper stopped")

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は 1 回だけ掃除する。失敗はログに残して次回に回す。
func (s *OverdueSweeper) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.sweeper.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Debug("overdue sweep finished", zap.Int64("marked", n))
	}
	return n
}
