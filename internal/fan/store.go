package fan

import "context"

// StoredAttributes holds the restorable slice of fan state persisted across
// restarts: the named speed (or the off sentinel), the rotation direction,
// and the last non-off speed used for resuming on turn-on.
//
// An empty Speed means no usable speed was persisted (e.g. the fan was last
// seen on-by-remote with an unknown speed).
type StoredAttributes struct {
	Speed       string
	Direction   string
	LastOnSpeed string
}

// AttributeStore persists restorable fan attributes.
//
// Implementations must be thread-safe.
type AttributeStore interface {
	// Load returns the persisted attributes for a fan, or nil when nothing
	// has been persisted yet.
	Load(ctx context.Context, fanID string) (*StoredAttributes, error)

	// Save persists the attributes for a fan, replacing any previous record.
	Save(ctx context.Context, fanID string, attrs StoredAttributes) error
}
