package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tweet_monitor/internal/domain"
)

const (
	MessageSkipped    = "Skipped execution due to frequency limit."
	MessageNoAccounts = "No accounts to monitor."
)

// Monitor is the throttled entry point invoked on every external trigger.
type Monitor struct {
	settings    SettingsStore
	accounts    AccountStore
	reconciler  *Reconciler
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewMonitor(
	settings SettingsStore,
	accounts AccountStore,
	reconciler *Reconciler,
	concurrency int,
	logger *slog.Logger,
) *Monitor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Monitor{
		settings:    settings,
		accounts:    accounts,
		reconciler:  reconciler,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Run checks the frequency limit and, if due, reconciles every monitored
// account. Only a settings or account-list read failure is returned as an
// error; per-account failures are reported in the RunReport.
//
// A started run is detached from the caller's cancellation so that
// last_checked_at and last_execution_time are always written.
func (m *Monitor) Run(ctx context.Context) (*domain.RunReport, error) {
	ctx = context.WithoutCancel(ctx)
	startedAt := m.now().UTC()
	report := &domain.RunReport{
		RunID:     uuid.New().String()[:8],
		StartedAt: startedAt,
	}
	logger := m.logger.With("run_id", report.RunID)

	settings, err := m.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch monitoring settings: %w", err)
	}
	if settings == nil {
		logger.Warn("monitoring settings not found, running check")
	}

	if due, elapsed := isDue(settings, startedAt); !due {
		logger.Info("skipping execution",
			"minutes_since_last", elapsed,
			"target_minutes", settings.Interval(),
		)
		report.Skipped = true
		report.Message = MessageSkipped
		return report, nil
	}

	accounts, err := m.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch monitored accounts: %w", err)
	}

	if len(accounts) == 0 {
		logger.Info("no accounts to monitor")
		report.Message = MessageNoAccounts
	} else {
		logger.Info("starting monitor run", "accounts", len(accounts), "concurrency", m.concurrency)
		report.Accounts = m.reconcileAll(ctx, accounts, startedAt)
	}

	for _, a := range report.Accounts {
		report.NewTweets += a.NewTweets
	}

	// Best effort: the cadence row is not transactional with ingestion.
	if err := m.settings.UpdateLastExecution(ctx, startedAt); err != nil {
		logger.Error("failed to update last execution time", "error", err)
	}

	report.Duration = m.now().Sub(startedAt)
	logger.Info("monitor run completed",
		"accounts", len(report.Accounts),
		"failed", report.Failed(),
		"new_tweets", report.NewTweets,
		"duration", report.Duration,
	)

	return report, nil
}

// isDue reports whether the configured interval has elapsed, counting whole
// minutes. A missing row or missing last execution time is always due.
func isDue(settings *domain.MonitoringSettings, now time.Time) (bool, int) {
	if settings == nil || settings.LastExecutionTime == nil {
		return true, 0
	}
	elapsed := int(math.Floor(now.Sub(*settings.LastExecutionTime).Minutes()))
	return elapsed >= settings.Interval(), elapsed
}

// reconcileAll processes each account exactly once. Results keep the order
// of accounts regardless of concurrency.
func (m *Monitor) reconcileAll(ctx context.Context, accounts []domain.MonitoredAccount, runAt time.Time) []domain.AccountResult {
	results := make([]domain.AccountResult, len(accounts))

	if m.concurrency == 1 {
		for i := range accounts {
			results[i] = m.reconciler.Reconcile(ctx, accounts[i], runAt)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i := range accounts {
		i := i // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			results[i] = m.reconciler.Reconcile(ctx, accounts[i], runAt)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
