// Package fetcher issues bulk record requests against the remote API in
// bounded, paced chunks and tolerates per-chunk failures.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pratik-mahalle/gw2ledger/internal/collector"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
)

const (
	// MaxChunkSize is the remote ceiling on ids per bulk request
	MaxChunkSize = 200

	// DefaultChunkSize is the number of ids sent per request
	DefaultChunkSize = MaxChunkSize

	// DefaultPacing is the minimum delay between two chunk requests
	DefaultPacing = time.Second
)

// Source performs one bulk request and returns the raw JSON array
type Source interface {
	FetchByIDs(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error)
}

// Pacer blocks until the next request may be sent. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter admitting one request per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// ChunkHandler receives each successfully decoded chunk in request order
type ChunkHandler func(rt catalog.ResourceType, records catalog.Collection)

// Config holds the fetcher configuration
type Config struct {
	ChunkSize int
}

// Result is the outcome of one fetch job
type Result struct {
	Records catalog.Collection
	Failed  []fetch.IDRange
	Job     *fetch.Job
}

// BatchFetcher partitions id sets into chunks and fetches them one at a time
type BatchFetcher struct {
	source    Source
	pacer     Pacer
	chunkSize int
	progress  fetch.ProgressFunc
	logger    *logger.Logger
}

// New creates a batch fetcher. Jobs that share a remote rate budget must
// share the pacer.
func New(source Source, pacer Pacer, cfg Config, log *logger.Logger) *BatchFetcher {
	size := cfg.ChunkSize
	if size <= 0 || size > MaxChunkSize {
		size = DefaultChunkSize
	}
	if pacer == nil {
		pacer = NewPacer(DefaultPacing)
	}
	return &BatchFetcher{
		source:    source,
		pacer:     pacer,
		chunkSize: size,
		logger:    log,
	}
}

// WithProgress sets the progress callback used by subsequent fetches
func (f *BatchFetcher) WithProgress(fn fetch.ProgressFunc) *BatchFetcher {
	f.progress = fn
	return f
}

// ChunkSize returns the effective chunk size
func (f *BatchFetcher) ChunkSize() int {
	return f.chunkSize
}

// Chunks splits ids into consecutive slices of at most size ids
func Chunks(ids []catalog.ResourceID, size int) [][]catalog.ResourceID {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]catalog.ResourceID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Fetch retrieves every id of rt. Duplicate and non-positive ids are dropped
// first. A failing chunk is recorded in Result.Failed and the job moves on.
// When ctx is cancelled the job stops at the next chunk boundary and the
// partial result is returned together with the context error.
func (f *BatchFetcher) Fetch(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID, onChunk ChunkHandler) (*Result, error) {
	if !rt.IsValid() {
		return nil, fmt.Errorf("unknown resource type: %s", rt)
	}

	ids = collector.NewSet(ids...).IDs()
	started := time.Now()
	job := &fetch.Job{
		ID:           uuid.New().String(),
		ResourceType: rt,
		Status:       fetch.StatusRunning,
		Total:        len(ids),
		StartedAt:    &started,
		CreatedAt:    started,
	}
	result := &Result{Records: make(catalog.Collection, len(ids)), Job: job}

	log := f.logger.WithFields(map[string]interface{}{
		"job_id":        job.ID,
		"resource_type": rt.String(),
	})
	chunks := Chunks(ids, f.chunkSize)
	log.Infof("Fetching %d ids in %d chunks", len(ids), len(chunks))
	f.report(job, rt)

	var ctxErr error
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		if err := f.pacer.Wait(ctx); err != nil {
			ctxErr = err
			break
		}

		records, err := f.fetchChunk(ctx, rt, chunk)
		if err != nil {
			if ctx.Err() != nil {
				ctxErr = ctx.Err()
				break
			}
			span := fetch.IDRange{First: chunk[0], Last: chunk[len(chunk)-1], Count: len(chunk)}
			result.Failed = append(result.Failed, span)
			metrics.RecordChunk(rt.String(), "failed")
			log.WithFields(map[string]interface{}{
				"chunk":    i + 1,
				"first_id": span.First,
				"last_id":  span.Last,
			}).WithError(err).Warn("Chunk fetch failed, continuing")
		} else {
			metrics.RecordChunk(rt.String(), "ok")
			result.Records.Merge(records)
			if onChunk != nil && len(records) > 0 {
				onChunk(rt, records)
			}
		}

		job.Processed += len(chunk)
		job.Fetched = len(result.Records)
		f.report(job, rt)
	}

	completed := time.Now()
	job.CompletedAt = &completed
	job.FailedRanges = result.Failed
	job.Fetched = len(result.Records)
	switch {
	case ctxErr != nil:
		job.Status = fetch.StatusCancelled
		job.ErrorMessage = ctxErr.Error()
	case len(result.Failed) > 0:
		job.Status = fetch.StatusCompleteWithGaps
	default:
		job.Status = fetch.StatusComplete
	}
	metrics.RecordFetchJob(rt.String(), string(job.Status), job.Duration())

	log.WithFields(map[string]interface{}{
		"status":        job.Status,
		"fetched":       job.Fetched,
		"failed_chunks": len(result.Failed),
		"duration":      job.Duration().String(),
	}).Info("Fetch job finished")

	return result, ctxErr
}

func (f *BatchFetcher) fetchChunk(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) (catalog.Collection, error) {
	body, err := f.source.FetchByIDs(ctx, rt, ids)
	if err != nil {
		return nil, err
	}
	records, err := catalog.DecodeRecords(rt, body)
	if err != nil {
		return nil, fmt.Errorf("decode %s chunk: %w", rt, err)
	}
	return catalog.NewCollection(records), nil
}

func (f *BatchFetcher) report(job *fetch.Job, rt catalog.ResourceType) {
	if f.progress == nil {
		return
	}
	f.progress(fetch.Progress{Processed: job.Processed, Total: job.Total, Label: rt.String()})
}
