package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/config"
	"github.com/vitaegraph/vitae/internal/core"
	"github.com/vitaegraph/vitae/internal/logger"
)

// Scheduler runs the periodic auto-commit job: pending commits that are
// confident and old enough get promoted without a human reviewer.
type Scheduler struct {
	cron   *cron.Cron
	engine *core.Engine
	cfg    config.SchedulerConfig
	minAge time.Duration
	logger *zap.Logger
}

func New(engine *core.Engine, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: engine,
		cfg:    cfg.Scheduler,
		minAge: cfg.MinPendingAge(),
		logger: logger.Get(),
	}
}

// Start registers the job and begins the cron loop. Disabled in config
// means this is a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("auto-commit scheduler disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.AutoCommitCron, s.runAutoCommit)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("auto-commit scheduler started",
		zap.String("schedule", s.cfg.AutoCommitCron),
		zap.Duration("min_pending_age", s.minAge))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runAutoCommit() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.engine.AutoCommitPending(ctx, s.minAge)
	if err != nil {
		s.logger.Error("auto-commit run failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("auto-committed pending commits", zap.Int("count", n))
	}
}
