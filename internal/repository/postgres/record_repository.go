package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
)

// RecordRepository implements catalog.Repository for PostgreSQL/SQLite
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// SaveRecords upserts every record of one type in a single transaction
func (r *RecordRepository) SaveRecords(ctx context.Context, rt catalog.ResourceType, records catalog.Collection) error {
	if len(records) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "records", time.Since(start)) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (resource_type, id, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (resource_type, id) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for id, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s %d: %w", rt, id, err)
		}
		if _, err := stmt.ExecContext(ctx, string(rt), int64(id), string(data), now); err != nil {
			return fmt.Errorf("failed to upsert %s %d: %w", rt, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// LoadRecords loads every persisted record of one type
func (r *RecordRepository) LoadRecords(ctx context.Context, rt catalog.ResourceType) (catalog.Collection, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "records", time.Since(start)) }()

	rows, err := r.db.QueryContext(ctx, `SELECT data FROM records WHERE resource_type = $1`, string(rt))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := make(catalog.Collection)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := catalog.DecodeRecord(rt, []byte(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s record: %w", rt, err)
		}
		out[rec.RecordID()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

// SaveMetadata stores the single snapshot metadata row
func (r *RecordRepository) SaveMetadata(ctx context.Context, meta catalog.Metadata) error {
	counts, err := json.Marshal(meta.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, last_updated, item_count, recipe_count, counts)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET last_updated = excluded.last_updated,
			item_count = excluded.item_count,
			recipe_count = excluded.recipe_count,
			counts = excluded.counts
	`, meta.LastUpdated.UTC(), meta.ItemCount, meta.RecipeCount, string(counts))
	if err != nil {
		return fmt.Errorf("failed to save snapshot metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the snapshot metadata, or nil before the first cycle
func (r *RecordRepository) GetMetadata(ctx context.Context) (*catalog.Metadata, error) {
	var meta catalog.Metadata
	var counts sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT last_updated, item_count, recipe_count, counts
		FROM snapshot_meta
		WHERE id = 1
	`).Scan(&meta.LastUpdated, &meta.ItemCount, &meta.RecipeCount, &counts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot metadata: %w", err)
	}

	if counts.Valid && counts.String != "" {
		if err := json.Unmarshal([]byte(counts.String), &meta.Counts); err != nil {
			return nil, fmt.Errorf("failed to decode counts: %w", err)
		}
	}
	return &meta, nil
}

// LoadSnapshot reads every collection and the metadata back into a snapshot
func (r *RecordRepository) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	snap := &catalog.Snapshot{Collections: make(map[catalog.ResourceType]catalog.Collection, len(catalog.AllTypes))}
	for _, rt := range catalog.AllTypes {
		c, err := r.LoadRecords(ctx, rt)
		if err != nil {
			return nil, err
		}
		snap.Collections[rt] = c
	}

	meta, err := r.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		snap.Meta = *meta
	}
	return snap, nil
}

var _ catalog.Repository = (*RecordRepository)(nil)
