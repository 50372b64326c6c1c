package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/testutil"
)

func TestFetchJobRepository_CreateUpdateGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewFetchJobRepository(db)
	ctx := context.Background()

	job := &fetch.Job{
		CycleID:      "cycle-1",
		ResourceType: catalog.TypeItems,
		Status:       fetch.StatusRunning,
		Total:        450,
	}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if job.ID == "" {
		t.Fatal("Create() did not assign an id")
	}

	done := time.Now()
	job.Status = fetch.StatusCompleteWithGaps
	job.Processed = 450
	job.Fetched = 250
	job.FailedRanges = []fetch.IDRange{{First: 201, Last: 400, Count: 200}}
	job.CompletedAt = &done
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != fetch.StatusCompleteWithGaps || got.Fetched != 250 || got.CycleID != "cycle-1" {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.FailedRanges) != 1 || got.FailedRanges[0].String() != "[201,400]" {
		t.Errorf("FailedRanges = %v", got.FailedRanges)
	}
	if got.CompletedAt == nil || got.StartedAt != nil {
		t.Errorf("timestamps = %v / %v", got.StartedAt, got.CompletedAt)
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v", missing, err)
	}

	if err := repo.Update(ctx, &fetch.Job{ID: "nope"}); err == nil {
		t.Error("Update() of unknown job should fail")
	}
}

func TestFetchJobRepository_List(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)

	repo := NewFetchJobRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	types := []catalog.ResourceType{catalog.TypeItems, catalog.TypeRecipes, catalog.TypeItems, catalog.TypePrices}
	for i, rt := range types {
		err := repo.Create(ctx, &fetch.Job{
			ResourceType: rt,
			Status:       fetch.StatusComplete,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    fetch.Filter
		limit     int
		wantLen   int
		wantTotal int64
	}{
		{name: "all", filter: fetch.Filter{}, limit: 10, wantLen: 4, wantTotal: 4},
		{name: "paged", filter: fetch.Filter{}, limit: 2, wantLen: 2, wantTotal: 4},
		{name: "by type", filter: fetch.Filter{ResourceType: catalog.TypeItems}, limit: 10, wantLen: 2, wantTotal: 2},
		{name: "by status", filter: fetch.Filter{Status: fetch.StatusFailed}, limit: 10, wantLen: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, total, err := repo.List(ctx, tt.filter, tt.limit, 0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(jobs) != tt.wantLen || total != tt.wantTotal {
				t.Errorf("List() = %d jobs, total %d; want %d, %d", len(jobs), total, tt.wantLen, tt.wantTotal)
			}
		})
	}

	jobs, _, _ := repo.List(ctx, fetch.Filter{}, 1, 0)
	if jobs[0].ResourceType != catalog.TypePrices {
		t.Errorf("newest job = %s, want prices", jobs[0].ResourceType)
	}
}
