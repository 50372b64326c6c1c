package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/gw2"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
)

// fakeSource serves item records for every requested id, except for the
// chunks listed in failOn (1-based call numbers).
type fakeSource struct {
	mu     sync.Mutex
	calls  [][]catalog.ResourceID
	failOn map[int]bool
	onCall func(n int)
}

func (s *fakeSource) FetchByIDs(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]catalog.ResourceID(nil), ids...))
	n := len(s.calls)
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(n)
	}
	if s.failOn[n] {
		return nil, &gw2.APIError{StatusCode: 503, Text: "service unavailable"}
	}
	items := make([]catalog.Item, len(ids))
	for i, id := range ids {
		items[i] = catalog.Item{ID: id, Name: "item"}
	}
	return json.Marshal(items)
}

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func rangeIDs(first, last int) []catalog.ResourceID {
	out := make([]catalog.ResourceID, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, catalog.ResourceID(i))
	}
	return out
}

func newTestFetcher(src Source, pacer Pacer, size int) *BatchFetcher {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return New(src, pacer, Config{ChunkSize: size}, log)
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name      string
		n, size   int
		wantSizes []int
	}{
		{name: "empty", n: 0, size: 200, wantSizes: []int{}},
		{name: "exact multiple", n: 400, size: 200, wantSizes: []int{200, 200}},
		{name: "remainder", n: 450, size: 200, wantSizes: []int{200, 200, 50}},
		{name: "smaller than chunk", n: 7, size: 200, wantSizes: []int{7}},
		{name: "chunk of one", n: 3, size: 1, wantSizes: []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunks(rangeIDs(1, tt.n), tt.size)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, c := range chunks {
				if len(c) != tt.wantSizes[i] {
					t.Errorf("chunk %d has %d ids, want %d", i, len(c), tt.wantSizes[i])
				}
			}
		})
	}
}

func TestBatchFetcher_CallCount(t *testing.T) {
	tests := []struct {
		n, size int
	}{
		{1, 200}, {199, 200}, {200, 200}, {201, 200}, {450, 200}, {1000, 200}, {10, 3}, {0, 200},
	}

	for _, tt := range tests {
		src := &fakeSource{}
		pacer := &countingPacer{}
		f := newTestFetcher(src, pacer, tt.size)

		res, err := f.Fetch(context.Background(), catalog.TypeItems, rangeIDs(1, tt.n), nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		want := (tt.n + tt.size - 1) / tt.size
		if len(src.calls) != want {
			t.Errorf("n=%d size=%d: %d calls, want %d", tt.n, tt.size, len(src.calls), want)
		}
		for _, call := range src.calls {
			if len(call) > tt.size {
				t.Errorf("call with %d ids exceeds chunk size %d", len(call), tt.size)
			}
		}
		if pacer.waits != want {
			t.Errorf("pacer waited %d times, want %d", pacer.waits, want)
		}
		if len(res.Records) != tt.n {
			t.Errorf("got %d records, want %d", len(res.Records), tt.n)
		}
	}
}

func TestBatchFetcher_ChunkSizeCappedAtCeiling(t *testing.T) {
	f := newTestFetcher(&fakeSource{}, &countingPacer{}, 500)
	if f.ChunkSize() != MaxChunkSize {
		t.Errorf("ChunkSize() = %d, want %d", f.ChunkSize(), MaxChunkSize)
	}
}

func TestBatchFetcher_ChunkFailureContinues(t *testing.T) {
	for failing := 1; failing <= 3; failing++ {
		src := &fakeSource{failOn: map[int]bool{failing: true}}
		f := newTestFetcher(src, &countingPacer{}, 4)

		ids := rangeIDs(1, 12)
		res, err := f.Fetch(context.Background(), catalog.TypeItems, ids, nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}

		failedIDs := src.calls[failing-1]
		for _, id := range ids {
			_, ok := res.Records[id]
			inFailed := id >= failedIDs[0] && id <= failedIDs[len(failedIDs)-1]
			if ok == inFailed {
				t.Errorf("chunk %d failing: id %d present=%v", failing, id, ok)
			}
		}
		if len(res.Failed) != 1 {
			t.Fatalf("Failed = %v, want one range", res.Failed)
		}
		want := fetch.IDRange{First: failedIDs[0], Last: failedIDs[len(failedIDs)-1], Count: 4}
		if res.Failed[0] != want {
			t.Errorf("Failed[0] = %+v, want %+v", res.Failed[0], want)
		}
		if res.Job.Status != fetch.StatusCompleteWithGaps {
			t.Errorf("Status = %s, want %s", res.Job.Status, fetch.StatusCompleteWithGaps)
		}
	}
}

func TestBatchFetcher_EndToEnd450(t *testing.T) {
	src := &fakeSource{failOn: map[int]bool{2: true}}
	f := newTestFetcher(src, &countingPacer{}, 200)

	var applied []int
	res, err := f.Fetch(context.Background(), catalog.TypeItems, rangeIDs(1, 450), func(rt catalog.ResourceType, records catalog.Collection) {
		applied = append(applied, len(records))
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(src.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(src.calls))
	}
	if len(res.Records) != 250 {
		t.Errorf("records = %d, want 250", len(res.Records))
	}
	if len(res.Failed) != 1 || res.Failed[0].String() != "[201,400]" {
		t.Errorf("Failed = %v, want [[201,400]]", res.Failed)
	}
	if len(applied) != 2 || applied[0] != 200 || applied[1] != 50 {
		t.Errorf("chunks applied = %v, want [200 50]", applied)
	}
	if res.Job.Total != 450 || res.Job.Processed != 450 || res.Job.Fetched != 250 {
		t.Errorf("job counters = %+v", res.Job)
	}
}

func TestBatchFetcher_Progress(t *testing.T) {
	var updates []fetch.Progress
	f := newTestFetcher(&fakeSource{failOn: map[int]bool{2: true}}, &countingPacer{}, 2).
		WithProgress(func(p fetch.Progress) { updates = append(updates, p) })

	if _, err := f.Fetch(context.Background(), catalog.TypeRecipes, rangeIDs(1, 5), nil); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// initial report plus one per chunk, failed chunks included
	want := []int{0, 2, 4, 5}
	if len(updates) != len(want) {
		t.Fatalf("got %d updates, want %d", len(updates), len(want))
	}
	for i, u := range updates {
		if u.Processed != want[i] || u.Total != 5 || u.Label != "recipes" {
			t.Errorf("update %d = %+v", i, u)
		}
	}
}

func TestBatchFetcher_DeduplicatesInput(t *testing.T) {
	src := &fakeSource{}
	f := newTestFetcher(src, &countingPacer{}, 200)

	res, err := f.Fetch(context.Background(), catalog.TypeItems, []catalog.ResourceID{3, 3, 0, 1, 3, -2}, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(src.calls) != 1 || len(src.calls[0]) != 2 {
		t.Errorf("calls = %v, want one call with [3 1]", src.calls)
	}
	if res.Job.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Job.Total)
	}
}

func TestBatchFetcher_CancelAtChunkBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	f := newTestFetcher(src, &countingPacer{}, 10)

	res, err := f.Fetch(ctx, catalog.TypeItems, rangeIDs(1, 50), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch() error = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("partial result should be returned on cancellation")
	}
	if res.Job.Status != fetch.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", res.Job.Status)
	}
	if len(src.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(src.calls))
	}
	// chunk 2 completed before the boundary check
	if len(res.Records) != 20 {
		t.Errorf("records = %d, want 20", len(res.Records))
	}
}

func TestBatchFetcher_UndecodablePayloadIsChunkFailure(t *testing.T) {
	f := newTestFetcher(sourceFunc(func(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error) {
		return []byte(`{"text":"not an array"}`), nil
	}), &countingPacer{}, 200)

	res, err := f.Fetch(context.Background(), catalog.TypeItems, rangeIDs(1, 3), nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(res.Failed) != 1 || len(res.Records) != 0 {
		t.Errorf("Failed = %v, Records = %d", res.Failed, len(res.Records))
	}
}

func TestBatchFetcher_UnknownType(t *testing.T) {
	f := newTestFetcher(&fakeSource{}, &countingPacer{}, 200)
	if _, err := f.Fetch(context.Background(), "skins", rangeIDs(1, 3), nil); err == nil {
		t.Error("expected error for unknown resource type")
	}
}

func TestNewPacer_SpacesRequests(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// the first token is immediate, the next two wait one interval each
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("three waits took %v, want at least ~60ms", elapsed)
	}
}

type sourceFunc func(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error)

func (f sourceFunc) FetchByIDs(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error) {
	return f(ctx, rt, ids)
}
