package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tweet_monitor/internal/domain"
)

type PreferenceStore struct {
	db *sqlx.DB
}

func NewPreferenceStore(db *sqlx.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// PhoneSubscribers lists the phone-enabled preference rows of userID, the
// owner of the account that produced new tweets. Rows of other users are not
// called, so an account tracked by several users reaches each owner through
// that owner's own account row.
func (s *PreferenceStore) PhoneSubscribers(ctx context.Context, userID string) ([]domain.PhoneSubscriber, error) {
	query := `
		SELECT user_id, phone_number
		FROM user_preferences
		WHERE user_id = $1
			AND phone_notifications_enabled = TRUE
			AND phone_number IS NOT NULL
			AND phone_number <> ''`

	var subs []domain.PhoneSubscriber
	if err := GetExecutor(ctx, s.db).SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("list phone subscribers: %w", err)
	}
	return subs, nil
}
