package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tweet_monitor/internal/domain"
)

type CallLogStore struct {
	db *sqlx.DB
}

func NewCallLogStore(db *sqlx.DB) *CallLogStore {
	return &CallLogStore{db: db}
}

func (s *CallLogStore) Insert(ctx context.Context, entry *domain.CallLog) error {
	query := `
		INSERT INTO call_logs (
			user_id, phone_number, message, provider, call_sid_or_task_id,
			status, account_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		entry.UserID,
		entry.PhoneNumber,
		entry.Message,
		entry.Provider,
		entry.CallID,
		entry.Status,
		entry.AccountName,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

func (s *CallLogStore) InsertStatusUpdate(ctx context.Context, update *domain.CallStatusUpdate) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"INSERT INTO call_status_updates (call_sid, status, duration) VALUES ($1, $2, $3)",
		update.CallSID, update.Status, update.Duration,
	)
	if err != nil {
		return fmt.Errorf("insert call status update: %w", err)
	}
	return nil
}
