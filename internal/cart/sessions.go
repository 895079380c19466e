package cart

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/irevive/storefront/internal/kvstore"
)

// DefaultSessionCapacity bounds the number of cart managers kept in memory.
const DefaultSessionCapacity = 1024

// Sessions hands out one Manager per cart session so that concurrent requests
// for the same session share a single writer. Managers are kept in an LRU of
// bounded size; the store stays the source of truth, so every Get reloads the
// saved cart and an evicted session loses nothing.
type Sessions struct {
	store    kvstore.Store
	stock    StockLookup
	managers *lru.Cache[string, *Manager]
}

func NewSessions(store kvstore.Store, stock StockLookup) *Sessions {
	return NewSessionsWithCapacity(store, stock, DefaultSessionCapacity)
}

// NewSessionsWithCapacity is NewSessions with an explicit LRU size. A
// non-positive capacity uses DefaultSessionCapacity.
func NewSessionsWithCapacity(store kvstore.Store, stock StockLookup, capacity int) *Sessions {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	// lru.New only fails for a non-positive size
	managers, _ := lru.New[string, *Manager](capacity)
	return &Sessions{store: store, stock: stock, managers: managers}
}

// Get returns the manager of sessionID with its cart freshly loaded.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Manager, error) {
	m := NewManager(s.store, sessionID, s.stock)
	if previous, found, _ := s.managers.PeekOrAdd(sessionID, m); found {
		m = previous
	}
	s.managers.Get(sessionID)

	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Len returns the number of sessions currently held in memory.
func (s *Sessions) Len() int {
	return s.managers.Len()
}
