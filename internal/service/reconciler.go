package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tweet_monitor/internal/domain"
)

// Reconciler runs one incremental pass for a single monitored account.
type Reconciler struct {
	source    Source
	accounts  AccountStore
	tweets    TweetStore
	txManager TransactionManager
	notifier  *Notifier
	logger    *slog.Logger
}

func NewReconciler(
	source Source,
	accounts AccountStore,
	tweets TweetStore,
	txManager TransactionManager,
	notifier *Notifier,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		source:    source,
		accounts:  accounts,
		tweets:    tweets,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger.With("component", "reconciler"),
	}
}

// Reconcile never returns an error: failures are contained in the result
// and leave the stored cursor untouched. last_checked_at always advances.
func (r *Reconciler) Reconcile(ctx context.Context, account domain.MonitoredAccount, runAt time.Time) domain.AccountResult {
	logger := r.logger.With("account", account.Username, "account_id", account.ID)
	result := domain.AccountResult{
		AccountID: account.ID,
		Username:  account.Username,
		Cursor:    account.LastTweetID,
	}

	// The first pass only establishes a baseline and never notifies.
	incremental := account.Incremental()

	timeline, err := r.source.FetchTimeline(ctx, account.TwitterID, account.LastTweetID)
	if err != nil {
		logger.Error("failed to fetch timeline", "error", err)
		r.touch(ctx, logger, account.ID, runAt)
		result.Outcome = domain.OutcomeFetchFailed
		result.Err = fmt.Errorf("fetch timeline: %w", err)
		return result
	}

	if len(timeline.Tweets) == 0 {
		logger.Debug("no new tweets")
		r.touch(ctx, logger, account.ID, runAt)
		result.Outcome = domain.OutcomeNoNewItems
		return result
	}

	tweets := make([]domain.Tweet, len(timeline.Tweets))
	for i, t := range timeline.Tweets {
		t.AccountID = account.ID
		tweets[i] = t
	}

	cursor, err := NextCursor(account.LastTweetID, timeline.NewestID, tweets)
	if err != nil {
		logger.Error("failed to compute cursor", "error", err)
		r.touch(ctx, logger, account.ID, runAt)
		result.Outcome = domain.OutcomeFetchFailed
		result.Err = fmt.Errorf("compute cursor: %w", err)
		return result
	}

	err = r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := r.tweets.InsertBatch(txCtx, tweets); err != nil {
			return err
		}
		return r.accounts.AdvanceCursor(txCtx, account.ID, runAt, cursor)
	})
	if err != nil {
		logger.Error("failed to persist tweets", "count", len(tweets), "error", err)
		r.touch(ctx, logger, account.ID, runAt)
		result.Outcome = domain.OutcomePersistFailed
		result.Err = fmt.Errorf("persist tweets: %w", err)
		return result
	}

	result.Cursor = cursor
	result.NewTweets = len(tweets)
	logger.Info("stored new tweets", "count", len(tweets), "cursor", *cursor)

	if !incremental {
		logger.Info("baseline established, skipping notifications")
		result.Outcome = domain.OutcomeBaseline
		return result
	}

	result.Broadcast, result.Calls = r.notifier.Notify(ctx, &account, tweets)
	result.Outcome = domain.OutcomeNotified
	return result
}

func (r *Reconciler) touch(ctx context.Context, logger *slog.Logger, accountID string, at time.Time) {
	if err := r.accounts.TouchChecked(ctx, accountID, at); err != nil {
		logger.Error("failed to update last_checked_at", "error", err)
	}
}
