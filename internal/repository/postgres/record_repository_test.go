package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/testutil"
)

func TestRecordRepository_SaveAndLoad(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewRecordRepository(db)
	ctx := context.Background()

	first := catalog.NewCollection([]catalog.Record{
		&catalog.Item{ID: 19721, Name: "Glob of Ectoplasm", Rarity: "Exotic"},
		&catalog.Item{ID: 24, Name: "Sealed Package of Snowballs"},
	})
	if err := repo.SaveRecords(ctx, catalog.TypeItems, first); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}

	// a later fetch supersedes 19721 and leaves 24 alone
	second := catalog.NewCollection([]catalog.Record{
		&catalog.Item{ID: 19721, Name: "Glob of Ectoplasm", Rarity: "Exotic", Level: 80},
	})
	if err := repo.SaveRecords(ctx, catalog.TypeItems, second); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}

	got, err := repo.LoadRecords(ctx, catalog.TypeItems)
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadRecords() returned %d records, want 2", len(got))
	}
	if it := got[19721].(*catalog.Item); it.Level != 80 {
		t.Errorf("record 19721 not superseded: %+v", it)
	}

	other, err := repo.LoadRecords(ctx, catalog.TypeRecipes)
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("recipes should be empty, got %d", len(other))
	}
}

func TestRecordRepository_Metadata(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewRecordRepository(db)
	ctx := context.Background()

	meta, err := repo.GetMetadata(ctx)
	if err != nil || meta != nil {
		t.Fatalf("GetMetadata() = %v, %v; want nil, nil", meta, err)
	}

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, n := range []int{10, 12} {
		err := repo.SaveMetadata(ctx, catalog.Metadata{
			LastUpdated: at,
			ItemCount:   n,
			RecipeCount: 3,
			Counts:      map[catalog.ResourceType]int{catalog.TypeItems: n, catalog.TypeRecipes: 3},
		})
		if err != nil {
			t.Fatalf("SaveMetadata() error = %v", err)
		}
	}

	meta, err = repo.GetMetadata(ctx)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if meta.ItemCount != 12 || meta.RecipeCount != 3 || meta.Counts[catalog.TypeItems] != 12 {
		t.Errorf("GetMetadata() = %+v", meta)
	}
	if !meta.LastUpdated.Equal(at) {
		t.Errorf("LastUpdated = %v, want %v", meta.LastUpdated, at)
	}
}

func TestRecordRepository_LoadSnapshot(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewRecordRepository(db)
	ctx := context.Background()

	quotes := catalog.NewCollection([]catalog.Record{
		&catalog.PriceQuote{ID: 19721, Whitelisted: true, Sells: catalog.PriceLevel{Quantity: 3, UnitPrice: 2500}},
	})
	if err := repo.SaveRecords(ctx, catalog.TypePrices, quotes); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}

	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	q, ok := snap.Collections[catalog.TypePrices][19721].(*catalog.PriceQuote)
	if !ok || q.Sells.UnitPrice != 2500 {
		t.Errorf("price 19721 = %+v", snap.Collections[catalog.TypePrices][19721])
	}
	if len(snap.Collections) != len(catalog.AllTypes) {
		t.Errorf("snapshot has %d collections", len(snap.Collections))
	}
}
