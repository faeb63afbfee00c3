package fan

import (
	"fmt"
	"sync"
)

// Registry holds the fan entities built from configuration at startup.
//
// Unlike a device database there is no CRUD lifecycle: the set of fans is
// fixed for the life of the process. The registry provides thread-safe
// lookup and stable-order listing for the API and bridge layers.
type Registry struct {
	mu    sync.RWMutex
	fans  map[string]*Entity
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fans: make(map[string]*Entity),
	}
}

// Add registers a fan entity. Returns ErrDuplicateFan if the ID is taken.
func (r *Registry) Add(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("fan: entity is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fans[entity.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFan, entity.ID())
	}
	r.fans[entity.ID()] = entity
	r.order = append(r.order, entity.ID())
	return nil
}

// Get returns the fan with the given ID, or ErrFanNotFound.
func (r *Registry) Get(id string) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.fans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFanNotFound, id)
	}
	return entity, nil
}

// List returns all fans in registration order.
func (r *Registry) List() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]*Entity, 0, len(r.order))
	for _, id := range r.order {
		entities = append(entities, r.fans[id])
	}
	return entities
}

// IDs returns all fan IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered fans.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fans)
}
