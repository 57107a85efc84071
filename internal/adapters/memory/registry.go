package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"auction-ledger-service/internal/domain/shared"
)

// Registry is an in-memory identity registry. Identifiers come from atomic
// counters, so concurrent registrations never produce duplicates.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]struct{}
	items map[int64]struct{}

	nextUserID atomic.Int64
	nextItemID atomic.Int64
}

// NewRegistry creates a new in-memory identity registry
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[int64]struct{}),
		items: make(map[int64]struct{}),
	}
}

// RegisterUser assigns and records a fresh user identity
func (r *Registry) RegisterUser(ctx context.Context) (shared.User, error) {
	id := r.nextUserID.Add(1)

	r.mu.Lock()
	r.users[id] = struct{}{}
	r.mu.Unlock()

	return shared.User{ID: id}, nil
}

// RegisterItem assigns and records a fresh item identity
func (r *Registry) RegisterItem(ctx context.Context) (shared.Item, error) {
	id := r.nextItemID.Add(1)

	r.mu.Lock()
	r.items[id] = struct{}{}
	r.mu.Unlock()

	return shared.Item{ID: id}, nil
}

// HasUser reports whether the user identity has been issued
func (r *Registry) HasUser(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// HasItem reports whether the item identity has been issued
func (r *Registry) HasItem(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}
