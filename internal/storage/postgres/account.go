package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tweet_monitor/internal/domain"
)

type AccountStore struct {
	db *sqlx.DB
}

func NewAccountStore(db *sqlx.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) List(ctx context.Context) ([]domain.MonitoredAccount, error) {
	query := `
		SELECT id, user_id, twitter_id, username, name, profile_image_url,
			last_checked_at, last_tweet_id, created_at
		FROM monitored_accounts
		ORDER BY created_at, id`

	var accounts []domain.MonitoredAccount
	if err := GetExecutor(ctx, s.db).SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list monitored accounts: %w", err)
	}
	return accounts, nil
}

// AdvanceCursor records a check and moves the high-water mark.
func (s *AccountStore) AdvanceCursor(ctx context.Context, accountID string, checkedAt time.Time, lastTweetID *string) error {
	query := `
		UPDATE monitored_accounts
		SET last_checked_at = $2, last_tweet_id = $3
		WHERE id = $1`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, accountID, checkedAt, lastTweetID)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}

// TouchChecked records a check without moving the cursor.
func (s *AccountStore) TouchChecked(ctx context.Context, accountID string, checkedAt time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE monitored_accounts SET last_checked_at = $2 WHERE id = $1",
		accountID, checkedAt,
	)
	if err != nil {
		return fmt.Errorf("touch last_checked_at: %w", err)
	}
	return nil
}
