package fan

import (
	"context"
	"time"
)

// StateHistoryEntry is one recorded fan state change.
//
// Each entry stores the full snapshot at the time of the change, giving a
// local audit trail even when the time-series database is unavailable.
type StateHistoryEntry struct {
	// ID is the row's primary key, assigned by the database.
	ID int64 `json:"id"`

	// FanID is the unique identifier of the fan.
	FanID string `json:"fan_id"`

	// State is the snapshot of fan state when the change was observed.
	State Snapshot `json:"state"`

	// Source identifies what caused the change (command, sensor, mqtt, restore).
	Source string `json:"source"`

	// CreatedAt is when the change happened, in UTC.
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRecorder is the narrow write-side interface entities depend on.
type HistoryRecorder interface {
	// RecordStateChange records a fan state change.
	RecordStateChange(ctx context.Context, fanID string, state Snapshot, source string) error
}

// StateHistoryRepository stores and retrieves fan state change history.
// Implementations are called from multiple goroutines and keep timestamps
// in UTC.
type StateHistoryRepository interface {
	HistoryRecorder

	// GetHistory returns recent state changes for the fan, newest first.
	// Implementations may clamp the limit.
	GetHistory(ctx context.Context, fanID string, limit int) ([]StateHistoryEntry, error)
}
