package fan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteAttributeStore implements AttributeStore using the fan_attributes
// table. One row per fan, upserted on every save.
type SQLiteAttributeStore struct {
	db *sql.DB
}

// NewSQLiteAttributeStore creates an attribute store backed by an open
// SQLite connection.
func NewSQLiteAttributeStore(db *sql.DB) *SQLiteAttributeStore {
	return &SQLiteAttributeStore{db: db}
}

// Load returns the persisted attributes for a fan, or nil when no row exists.
func (s *SQLiteAttributeStore) Load(ctx context.Context, fanID string) (*StoredAttributes, error) {
	if fanID == "" {
		return nil, fmt.Errorf("fan id is required")
	}

	var speed, direction, lastOnSpeed sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT speed, direction, last_on_speed FROM fan_attributes WHERE fan_id = ?",
		fanID,
	).Scan(&speed, &direction, &lastOnSpeed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading fan attributes: %w", err)
	}

	return &StoredAttributes{
		Speed:       speed.String,
		Direction:   direction.String,
		LastOnSpeed: lastOnSpeed.String,
	}, nil
}

// Save upserts the attributes row for a fan.
func (s *SQLiteAttributeStore) Save(ctx context.Context, fanID string, attrs StoredAttributes) error {
	if fanID == "" {
		return fmt.Errorf("fan id is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fan_attributes (fan_id, speed, direction, last_on_speed, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fan_id) DO UPDATE SET
		   speed = excluded.speed,
		   direction = excluded.direction,
		   last_on_speed = excluded.last_on_speed,
		   updated_at = excluded.updated_at`,
		fanID,
		nullableAttr(attrs.Speed),
		nullableAttr(attrs.Direction),
		nullableAttr(attrs.LastOnSpeed),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving fan attributes: %w", err)
	}
	return nil
}

// nullableAttr converts an empty string to a SQL NULL for optional columns.
func nullableAttr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
