// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"mexc-trader/internal/models"
)

// Store defines the persistence ports the bot core depends on. Implementations
// must keep the open-position invariant: RecordEntry fails when the account
// already has an OPEN position.
type Store interface {
	// Settings
	GetOrCreateSettings(ctx context.Context, defaults models.AccountSettings) (models.AccountSettings, error)
	SaveSettings(ctx context.Context, settings models.AccountSettings) error

	// Positions
	GetOpenPosition(ctx context.Context, accountID string) (*models.Position, error)
	RecordEntry(ctx context.Context, position *models.Position) error
	RecordExit(ctx context.Context, positionID string, exitPrice, pnl float64, closedAt time.Time) error
	ListRecentPositions(ctx context.Context, accountID string, limit int) ([]models.Position, error)

	// Daily loss tracking
	GetTodayLossFraction(ctx context.Context, accountID string) (float64, error)
	IncrementTodayLoss(ctx context.Context, accountID string, fraction float64) error

	// Strategy logs
	AppendLog(ctx context.Context, accountID, level, message string, payload interface{}) error
	ListRecentLogs(ctx context.Context, accountID string, limit int) ([]models.StrategyLog, error)

	// Lifecycle
	Close() error
}

// DayKey returns the UTC trading-day key for a point in time. Daily loss
// records roll over implicitly when this key changes; they are never
// explicitly zeroed.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
