// Package cache holds the latest fetched collection per resource type.
// It is the only shared mutable state of a running process: sync cycles
// write to it chunk by chunk while queries read from it freely.
package cache

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
)

// Store is an in-memory record store backed by one go-cache instance per
// resource type. Records never expire; they are only superseded.
type Store struct {
	collections map[catalog.ResourceType]*gocache.Cache

	mu          sync.RWMutex
	lastUpdated time.Time
}

// New creates an empty store with a collection for every known resource type
func New() *Store {
	s := &Store{collections: make(map[catalog.ResourceType]*gocache.Cache, len(catalog.AllTypes))}
	for _, rt := range catalog.AllTypes {
		s.collections[rt] = gocache.New(gocache.NoExpiration, 0)
	}
	return s
}

func key(id catalog.ResourceID) string {
	return strconv.FormatInt(int64(id), 10)
}

func (s *Store) collection(rt catalog.ResourceType) (*gocache.Cache, bool) {
	c, ok := s.collections[rt]
	return c, ok
}

// Upsert replaces or inserts each record by id. Ids not in records are left untouched.
func (s *Store) Upsert(rt catalog.ResourceType, records catalog.Collection) {
	c, ok := s.collection(rt)
	if !ok {
		return
	}
	for id, rec := range records {
		if rec == nil || id <= 0 {
			continue
		}
		c.Set(key(id), rec, gocache.NoExpiration)
	}
	metrics.SetCacheRecords(rt.String(), float64(c.ItemCount()))
}

// Get returns the record for id, if cached
func (s *Store) Get(rt catalog.ResourceType, id catalog.ResourceID) (catalog.Record, bool) {
	c, ok := s.collection(rt)
	if !ok {
		return nil, false
	}
	v, found := c.Get(key(id))
	if !found {
		return nil, false
	}
	rec, ok := v.(catalog.Record)
	return rec, ok
}

// GetMany returns the cached subset of ids; unknown ids are omitted
func (s *Store) GetMany(rt catalog.ResourceType, ids []catalog.ResourceID) catalog.Collection {
	out := make(catalog.Collection, len(ids))
	for _, id := range ids {
		if rec, ok := s.Get(rt, id); ok {
			out[id] = rec
		}
	}
	return out
}

// Collection returns a copy of every record cached for rt
func (s *Store) Collection(rt catalog.ResourceType) catalog.Collection {
	c, ok := s.collection(rt)
	if !ok {
		return catalog.Collection{}
	}
	items := c.Items()
	out := make(catalog.Collection, len(items))
	for _, item := range items {
		if rec, ok := item.Object.(catalog.Record); ok {
			out[rec.RecordID()] = rec
		}
	}
	return out
}

// Len returns the number of records cached for rt
func (s *Store) Len(rt catalog.ResourceType) int {
	c, ok := s.collection(rt)
	if !ok {
		return 0
	}
	return c.ItemCount()
}

// MarkRefreshed stamps the end of a refresh cycle
func (s *Store) MarkRefreshed(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdated = at
}

// LastUpdated returns the stamp of the last completed refresh cycle
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Load primes the store from a persisted snapshot
func (s *Store) Load(snap *catalog.Snapshot) {
	if snap == nil {
		return
	}
	for rt, c := range snap.Collections {
		s.Upsert(rt, c)
	}
	if !snap.Meta.LastUpdated.IsZero() {
		s.MarkRefreshed(snap.Meta.LastUpdated)
	}
}

// Snapshot exports the full store state
func (s *Store) Snapshot() *catalog.Snapshot {
	collections := make(map[catalog.ResourceType]catalog.Collection, len(s.collections))
	for rt := range s.collections {
		collections[rt] = s.Collection(rt)
	}
	return catalog.NewSnapshot(collections, s.LastUpdated())
}

// Counts returns the number of cached records per resource type
func (s *Store) Counts() map[catalog.ResourceType]int {
	out := make(map[catalog.ResourceType]int, len(s.collections))
	for rt, c := range s.collections {
		out[rt] = c.ItemCount()
	}
	return out
}

var _ catalog.Store = (*Store)(nil)
