package fan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// GetHistory page sizes. Callers asking for nothing get a page, callers
// asking for everything get a bounded one.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteStateHistoryRepository persists state transitions in the
// fan_state_history table, one JSON snapshot per row.
type SQLiteStateHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStateHistoryRepository wraps an open database handle.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db}
}

// RecordStateChange appends one transition. An empty source is recorded
// as SourceMQTT, the catch-all for changes observed rather than made.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, fanID string, state Snapshot, source string) error {
	if fanID == "" {
		return fmt.Errorf("fan id is required")
	}
	if source == "" {
		source = SourceMQTT
	}

	snap, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO fan_state_history (fan_id, state, source) VALUES (?, ?, ?)",
		fanID, string(snap), source,
	); err != nil {
		return fmt.Errorf("recording state change: %w", err)
	}
	return nil
}

// GetHistory returns up to limit transitions for one fan, newest first.
// The id tiebreak keeps insertion order stable for rows that share a
// second-granularity timestamp.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, fanID string, limit int) ([]StateHistoryEntry, error) {
	if fanID == "" {
		return nil, fmt.Errorf("fan id is required")
	}
	limit = clampHistoryLimit(limit)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fan_id, state, source, created_at
		 FROM fan_state_history
		 WHERE fan_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		fanID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading state history: %w", err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("walking state history: %w", err)
	}
	return entries, nil
}

// PruneHistory drops every entry older than the retention window and
// reports how many went.
func (r *SQLiteStateHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM fan_state_history WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return pruned, nil
}

func clampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

// scanHistoryEntry decodes one row, including the JSON snapshot column
// and the stored timestamp.
func scanHistoryEntry(rows *sql.Rows) (StateHistoryEntry, error) {
	var (
		entry     StateHistoryEntry
		snap      string
		createdAt string
	)
	if err := rows.Scan(&entry.ID, &entry.FanID, &snap, &entry.Source, &createdAt); err != nil {
		return StateHistoryEntry{}, fmt.Errorf("scanning history row: %w", err)
	}
	if err := json.Unmarshal([]byte(snap), &entry.State); err != nil {
		return StateHistoryEntry{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	ts, err := parseHistoryTimestamp(createdAt)
	if err != nil {
		return StateHistoryEntry{}, err
	}
	entry.CreatedAt = ts
	return entry, nil
}

// Timestamps are written in RFC3339; the second layout covers rows the
// schema default produced before this package ever touched them.
var historyTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z"}

func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	var firstErr error
	for _, layout := range historyTimeLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parsing created_at: %w", firstErr)
}
