package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"tweet_monitor/internal/domain"
	"tweet_monitor/internal/voice"
)

type AccountStore interface {
	List(ctx context.Context) ([]domain.MonitoredAccount, error)
	AdvanceCursor(ctx context.Context, accountID string, checkedAt time.Time, lastTweetID *string) error
	TouchChecked(ctx context.Context, accountID string, checkedAt time.Time) error
}

type TweetStore interface {
	InsertBatch(ctx context.Context, tweets []domain.Tweet) error
}

type SettingsStore interface {
	Get(ctx context.Context) (*domain.MonitoringSettings, error)
	UpdateLastExecution(ctx context.Context, at time.Time) error
}

type PreferenceStore interface {
	PhoneSubscribers(ctx context.Context, userID string) ([]domain.PhoneSubscriber, error)
}

type CallLogStore interface {
	Insert(ctx context.Context, entry *domain.CallLog) error
}

type Source interface {
	FetchTimeline(ctx context.Context, twitterID string, sinceID *string) (*domain.Timeline, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Broadcaster interface {
	PublishNewTweets(ctx context.Context, userID, username string, tweets []domain.Tweet) error
}

type CallRouter interface {
	Route(phone string) (voice.Caller, error)
	Enabled() bool
}
