package cache

import (
	"sync"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
)

// AccountStore keeps the most recently fetched account snapshot
type AccountStore struct {
	mu   sync.RWMutex
	snap *account.Snapshot
}

// NewAccountStore creates an empty account store
func NewAccountStore() *AccountStore {
	return &AccountStore{}
}

// Set replaces the stored snapshot
func (s *AccountStore) Set(snap *account.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Get returns the latest snapshot, or nil before the first account refresh
func (s *AccountStore) Get() *account.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
