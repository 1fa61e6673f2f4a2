package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tweet_monitor/internal/domain"
)

const settingsRowID = 1

type SettingsStore struct {
	db *sqlx.DB
}

func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the singleton settings row, or nil if it does not exist.
func (s *SettingsStore) Get(ctx context.Context) (*domain.MonitoringSettings, error) {
	var settings domain.MonitoringSettings
	query := `
		SELECT id, target_frequency_minutes, last_execution_time
		FROM monitoring_settings
		WHERE id = $1`

	err := GetExecutor(ctx, s.db).GetContext(ctx, &settings, query, settingsRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSettingsUnavailable, err)
	}
	return &settings, nil
}

func (s *SettingsStore) UpdateLastExecution(ctx context.Context, at time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE monitoring_settings SET last_execution_time = $2 WHERE id = $1",
		settingsRowID, at,
	)
	if err != nil {
		return fmt.Errorf("update last_execution_time: %w", err)
	}
	return nil
}
