package service

import (
	"context"
	"log/slog"
	"time"

	"tweet_monitor/internal/domain"
)

// Notifier fans one account's new tweets out to the realtime channel and to
// phone subscribers.
type Notifier struct {
	broadcaster Broadcaster
	prefs       PreferenceStore
	router      CallRouter
	callLogs    CallLogStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewNotifier(
	broadcaster Broadcaster,
	prefs PreferenceStore,
	router CallRouter,
	callLogs CallLogStore,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		broadcaster: broadcaster,
		prefs:       prefs,
		router:      router,
		callLogs:    callLogs,
		logger:      logger.With("component", "notifier"),
		now:         time.Now,
	}
}

// Notify never fails: every channel and subscriber error is logged and
// reported in the returned records.
func (n *Notifier) Notify(ctx context.Context, account *domain.MonitoredAccount, tweets []domain.Tweet) (bool, []domain.CallResult) {
	if len(tweets) == 0 {
		return false, nil
	}
	logger := n.logger.With("account", account.Username, "user_id", account.UserID)

	broadcast := n.broadcast(ctx, logger, account, tweets)

	if n.router == nil || !n.router.Enabled() {
		logger.Debug("no call providers enabled, skipping phone notification")
		return broadcast, nil
	}

	subs, err := n.prefs.PhoneSubscribers(ctx, account.UserID)
	if err != nil {
		logger.Error("failed to load phone subscribers", "error", err)
		return broadcast, nil
	}
	if len(subs) == 0 {
		logger.Debug("no phone subscribers")
		return broadcast, nil
	}

	// One call per batch, speaking the newest tweet only.
	content := tweets[0].Content
	if content == "" {
		logger.Warn("no tweet content available for phone notification")
		return broadcast, nil
	}

	calls := make([]domain.CallResult, 0, len(subs))
	for _, sub := range subs {
		calls = append(calls, n.call(ctx, logger, account, sub, content))
	}
	return broadcast, calls
}

func (n *Notifier) broadcast(ctx context.Context, logger *slog.Logger, account *domain.MonitoredAccount, tweets []domain.Tweet) bool {
	if n.broadcaster == nil {
		return false
	}
	if err := n.broadcaster.PublishNewTweets(ctx, account.UserID, account.Username, tweets); err != nil {
		logger.Error("failed to publish realtime notification", "error", err)
		return false
	}
	logger.Info("realtime notification sent", "count", len(tweets))
	return true
}

func (n *Notifier) call(ctx context.Context, logger *slog.Logger, account *domain.MonitoredAccount, sub domain.PhoneSubscriber, content string) domain.CallResult {
	result := domain.CallResult{UserID: sub.UserID, PhoneNumber: sub.PhoneNumber}

	if sub.PhoneNumber == "" || sub.UserID == "" {
		logger.Warn("skipping call: missing phone number or user id")
		result.Skipped = true
		return result
	}

	caller, err := n.router.Route(sub.PhoneNumber)
	if err != nil {
		logger.Warn("cannot route call", "phone", sub.PhoneNumber, "error", err)
		result.Skipped = true
		result.Err = err
		return result
	}
	result.Provider = caller.Provider()

	callID, err := caller.PlaceCall(ctx, domain.CallRequest{
		To:          sub.PhoneNumber,
		Content:     content,
		AccountName: account.Username,
		UserID:      sub.UserID,
	})
	if err != nil {
		logger.Error("call failed to initiate",
			"provider", result.Provider,
			"phone", sub.PhoneNumber,
			"error", err,
		)
		result.Status = domain.CallFailedToInitiate
		result.Err = err
	} else {
		logger.Info("call initiated", "provider", result.Provider, "call_id", callID)
		result.Status = domain.CallInitiated
		result.CallID = &callID
	}

	entry := &domain.CallLog{
		UserID:      sub.UserID,
		PhoneNumber: sub.PhoneNumber,
		Message:     content,
		Provider:    result.Provider,
		CallID:      result.CallID,
		Status:      result.Status,
		AccountName: account.Username,
		CreatedAt:   n.now().UTC(),
	}
	if err := n.callLogs.Insert(ctx, entry); err != nil {
		logger.Error("failed to record call log", "error", err)
	}

	return result
}
