package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tweet_monitor/internal/domain"
)

// Runner performs one throttled monitor invocation.
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// Scheduler triggers the runner on a fixed tick. The runner applies the
// stored frequency limit, so the tick only needs to be at least as frequent.
// Runs are not bounded by a timeout; outbound calls carry their own.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("monitor run failed", "error", err)
		return
	}
	if report.Skipped {
		s.logger.Debug("monitor run skipped", "run_id", report.RunID)
	}
}
