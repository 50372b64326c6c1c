package account

import "context"

// Repository persists the latest account snapshot
type Repository interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}
