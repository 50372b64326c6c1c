package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
)

// AccountRepository persists the latest account snapshot as a single JSON row
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Save replaces the stored account snapshot
func (r *AccountRepository) Save(ctx context.Context, snap *account.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode account snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO account_snapshots (id, name, data, fetched_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, data = excluded.data, fetched_at = excluded.fetched_at
	`, snap.Name, string(data), snap.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save account snapshot: %w", err)
	}
	return nil
}

// Load returns the stored account snapshot, or nil if none was saved
func (r *AccountRepository) Load(ctx context.Context) (*account.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM account_snapshots WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account snapshot: %w", err)
	}

	var snap account.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode account snapshot: %w", err)
	}
	return &snap, nil
}

var _ account.Repository = (*AccountRepository)(nil)
