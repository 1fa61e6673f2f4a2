package domain

import "time"

// MonitoredAccount is an external timeline tracked on behalf of one user.
type MonitoredAccount struct {
	ID              string     `db:"id"`
	UserID          string     `db:"user_id"`
	TwitterID       string     `db:"twitter_id"`
	Username        string     `db:"username"`
	Name            string     `db:"name"`
	ProfileImageURL *string    `db:"profile_image_url"`
	LastCheckedAt   *time.Time `db:"last_checked_at"`
	LastTweetID     *string    `db:"last_tweet_id"`
	CreatedAt       time.Time  `db:"created_at"`
}

// Incremental reports whether the account already has a baseline cursor.
func (a *MonitoredAccount) Incremental() bool {
	return a.LastTweetID != nil && *a.LastTweetID != ""
}

// Tweet is one fetched item. Rows are insert-only.
type Tweet struct {
	ID             int64     `db:"id" json:"-"`
	AccountID      string    `db:"account_id" json:"-"`
	TweetID        string    `db:"tweet_id" json:"tweet_id"`
	Content        string    `db:"content" json:"content"`
	MediaURLs      []string  `db:"-" json:"media_urls,omitempty"`
	TweetCreatedAt time.Time `db:"tweet_created_at" json:"tweet_created_at"`
}

// MonitoringSettings is the singleton cadence row (id = 1).
type MonitoringSettings struct {
	ID                     int        `db:"id"`
	TargetFrequencyMinutes *int       `db:"target_frequency_minutes"`
	LastExecutionTime      *time.Time `db:"last_execution_time"`
}

// DefaultFrequencyMinutes applies when the settings row carries no interval.
const DefaultFrequencyMinutes = 5

// Interval returns the configured minimum interval in whole minutes.
func (s *MonitoringSettings) Interval() int {
	if s == nil || s.TargetFrequencyMinutes == nil {
		return DefaultFrequencyMinutes
	}
	return *s.TargetFrequencyMinutes
}

// PhoneSubscriber is a user with phone notifications enabled.
type PhoneSubscriber struct {
	UserID      string `db:"user_id"`
	PhoneNumber string `db:"phone_number"`
}

// Timeline is one incremental page fetched for an account.
type Timeline struct {
	Tweets   []Tweet
	NewestID string
}
