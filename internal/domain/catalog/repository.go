package catalog

import (
	"context"
	"time"
)

// Reader is the read side of the record store used by joins and queries
type Reader interface {
	// Get returns the cached record for id, if any
	Get(rt ResourceType, id ResourceID) (Record, bool)

	// GetMany returns the subset of ids that are cached; unknown ids are omitted
	GetMany(rt ResourceType, ids []ResourceID) Collection
}

// Store holds the latest fetched collection per resource type
type Store interface {
	Reader

	// Upsert replaces or inserts each record by id, leaving other ids untouched
	Upsert(rt ResourceType, records Collection)

	// Collection returns a copy of everything cached for rt
	Collection(rt ResourceType) Collection

	// Len returns the number of cached records for rt
	Len(rt ResourceType) int

	// MarkRefreshed stamps the end of a refresh cycle
	MarkRefreshed(at time.Time)

	// LastUpdated returns the stamp of the last completed cycle
	LastUpdated() time.Time
}

// Repository persists collections and snapshot metadata
type Repository interface {
	// SaveRecords upserts records of one type
	SaveRecords(ctx context.Context, rt ResourceType, records Collection) error

	// LoadRecords loads every persisted record of one type
	LoadRecords(ctx context.Context, rt ResourceType) (Collection, error)

	// SaveMetadata stores the snapshot metadata row
	SaveMetadata(ctx context.Context, meta Metadata) error

	// GetMetadata returns the snapshot metadata, or nil if nothing was persisted yet
	GetMetadata(ctx context.Context) (*Metadata, error)

	// LoadSnapshot loads every collection plus metadata
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}
