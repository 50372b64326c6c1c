package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pratik-mahalle/gw2ledger/internal/cache"
	"github.com/pratik-mahalle/gw2ledger/internal/collector"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/fetcher"
	"github.com/pratik-mahalle/gw2ledger/internal/gw2"
	"github.com/pratik-mahalle/gw2ledger/internal/join"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/metrics"
	"github.com/pratik-mahalle/gw2ledger/internal/progress"
	"github.com/pratik-mahalle/gw2ledger/internal/snapshot"
)

// Remote is the subset of the game-data API a sync cycle needs
type Remote interface {
	fetcher.Source
	ListIDs(ctx context.Context, rt catalog.ResourceType) ([]catalog.ResourceID, error)
	HasKey() bool
	Account(ctx context.Context) (*gw2.AccountInfo, error)
	Characters(ctx context.Context) ([]account.Character, error)
	Bank(ctx context.Context) ([]*account.Slot, error)
	SharedInventory(ctx context.Context) ([]*account.Slot, error)
	Materials(ctx context.Context) ([]account.MaterialStack, error)
	AccountRecipes(ctx context.Context) ([]catalog.ResourceID, error)
}

// SyncConfig controls what a cycle fetches
type SyncConfig struct {
	ChunkSize   int
	Pacing      time.Duration
	FullCatalog bool
}

// SyncService runs fetch cycles: account refresh, id collection, paced bulk
// fetches per resource type, persistence and snapshot export.
type SyncService struct {
	remote      Remote
	fetcher     *fetcher.BatchFetcher
	pacer       fetcher.Pacer
	store       *cache.Store
	accounts    *cache.AccountStore
	records     catalog.Repository
	jobs        fetch.Repository
	accountRepo account.Repository
	sink        snapshot.Sink
	fallback    snapshot.Loader
	hub         *progress.Hub
	fullCatalog bool
	logger      *logger.Logger

	mu      sync.Mutex
	current *fetch.Cycle
	cancel  context.CancelFunc
	last    *fetch.Cycle
}

// NewSyncService creates a sync service. Every job of every cycle shares one
// pacer so concurrent resource types stay inside a single request budget.
// sink may be nil when no snapshot export is configured.
func NewSyncService(
	remote Remote,
	store *cache.Store,
	accounts *cache.AccountStore,
	records catalog.Repository,
	jobs fetch.Repository,
	accountRepo account.Repository,
	sink snapshot.Sink,
	hub *progress.Hub,
	cfg SyncConfig,
	log *logger.Logger,
) *SyncService {
	pacer := fetcher.NewPacer(cfg.Pacing)
	bf := fetcher.New(remote, pacer, fetcher.Config{ChunkSize: cfg.ChunkSize}, log)
	if hub != nil {
		bf.WithProgress(hub.Func())
	}
	return &SyncService{
		remote:      remote,
		fetcher:     bf,
		pacer:       pacer,
		store:       store,
		accounts:    accounts,
		records:     records,
		jobs:        jobs,
		accountRepo: accountRepo,
		sink:        sink,
		hub:         hub,
		fullCatalog: cfg.FullCatalog,
		logger:      log,
	}
}

// WithFallback sets where Restore reads records from when the database has
// never stored a snapshot, e.g. a fresh database next to an exported directory
func (s *SyncService) WithFallback(l snapshot.Loader) *SyncService {
	s.fallback = l
	return s
}

// Restore primes the in-memory stores from the database so queries work
// before the first cycle completes
func (s *SyncService) Restore(ctx context.Context) error {
	snap, err := s.records.LoadSnapshot(ctx)
	if err != nil {
		return errors.DatabaseError("Failed to load persisted records", err)
	}
	if snap.Meta.LastUpdated.IsZero() && s.fallback != nil {
		snap = s.restoreFallback(ctx, snap)
	}
	s.store.Load(snap)

	acct, err := s.accountRepo.Load(ctx)
	if err != nil {
		return errors.DatabaseError("Failed to load account snapshot", err)
	}
	if acct != nil {
		s.accounts.Set(acct)
	}

	s.logger.WithFields(map[string]interface{}{
		"counts":       s.store.Counts(),
		"last_updated": s.store.LastUpdated(),
		"account":      acct != nil,
	}).Info("Restored persisted snapshot")
	return nil
}

// restoreFallback loads the fallback snapshot and seeds the database with it.
// Load failures keep the database snapshot.
func (s *SyncService) restoreFallback(ctx context.Context, dbSnap *catalog.Snapshot) *catalog.Snapshot {
	log := s.logger.WithFields(map[string]interface{}{"source": s.fallback.Name()})
	snap, err := s.fallback.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load fallback snapshot")
		return dbSnap
	}
	if snap.Meta.LastUpdated.IsZero() {
		return dbSnap
	}

	for rt, c := range snap.Collections {
		if len(c) == 0 {
			continue
		}
		if err := s.records.SaveRecords(ctx, rt, c); err != nil {
			log.WithError(err).Warn("Failed to seed database from fallback snapshot")
			return snap
		}
	}
	if err := s.records.SaveMetadata(ctx, snap.Meta); err != nil {
		log.WithError(err).Warn("Failed to seed snapshot metadata")
	}
	log.Info("Restored snapshot from fallback")
	return snap
}

// Running returns the cycle in progress, if any
func (s *SyncService) Running() (*fetch.Cycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.copyCycle(s.current), true
}

// LastCycle returns the most recently finished cycle, if any
func (s *SyncService) LastCycle() (*fetch.Cycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	return s.copyCycle(s.last), true
}

// Trigger starts a cycle in the background and returns it immediately.
// The cycle outlives ctx; use Cancel to stop it.
func (s *SyncService) Trigger(ctx context.Context) (*fetch.Cycle, error) {
	cycle, runCtx, err := s.begin(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	started := s.copyCycle(cycle)
	go s.run(runCtx, cycle)
	return started, nil
}

// RunCycle runs one cycle to completion
func (s *SyncService) RunCycle(ctx context.Context) (*fetch.Cycle, error) {
	cycle, runCtx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	s.run(runCtx, cycle)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.copyCycle(cycle)
	if cycle.Status == fetch.StatusCancelled {
		return out, context.Canceled
	}
	return out, nil
}

// Cancel stops the running cycle at its next chunk boundary
func (s *SyncService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// ListJobs lists persisted fetch jobs, newest first
func (s *SyncService) ListJobs(ctx context.Context, filter fetch.Filter, limit, offset int) ([]*fetch.Job, int64, error) {
	jobs, total, err := s.jobs.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list fetch jobs", err)
	}
	return jobs, total, nil
}

// GetJob returns a persisted fetch job
func (s *SyncService) GetJob(ctx context.Context, id string) (*fetch.Job, error) {
	j, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, errors.DatabaseError("Failed to get fetch job", err)
	}
	if j == nil {
		return nil, errors.NotFound("Fetch job")
	}
	return j, nil
}

func (s *SyncService) begin(ctx context.Context) (*fetch.Cycle, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return nil, nil, errors.SyncInProgress(s.current.ID)
	}

	mode := fetch.ModeAccount
	if s.fullCatalog {
		mode = fetch.ModeFullCatalog
	}
	cycle := &fetch.Cycle{
		ID:        uuid.New().String(),
		Mode:      mode,
		Status:    fetch.StatusRunning,
		StartedAt: time.Now(),
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.current = cycle
	s.cancel = cancel
	return cycle, runCtx, nil
}

func (s *SyncService) finish(cycle *fetch.Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.current = nil
	s.cancel = nil
	s.last = cycle
}

func (s *SyncService) copyCycle(c *fetch.Cycle) *fetch.Cycle {
	out := *c
	out.Jobs = make([]*fetch.Job, len(c.Jobs))
	for i, j := range c.Jobs {
		cp := *j
		out.Jobs[i] = &cp
	}
	return &out
}

func (s *SyncService) addJob(cycle *fetch.Cycle, j *fetch.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cycle.Jobs = append(cycle.Jobs, j)
}

func (s *SyncService) publish(msgType string, data interface{}) {
	if s.hub != nil {
		s.hub.Publish(msgType, data)
	}
}

func (s *SyncService) run(ctx context.Context, cycle *fetch.Cycle) {
	log := s.logger.WithFields(map[string]interface{}{
		"cycle_id": cycle.ID,
		"mode":     cycle.Mode,
	})
	log.Info("Sync cycle started")
	if s.hub != nil {
		s.hub.Reset()
	}
	s.publish(progress.EventCycleStart, map[string]interface{}{"cycle_id": cycle.ID, "mode": cycle.Mode})

	err := s.stages(ctx, cycle, log)

	completed := time.Now()
	s.mu.Lock()
	cycle.CompletedAt = &completed
	switch {
	case err != nil && ctx.Err() != nil:
		cycle.Status = fetch.StatusCancelled
		cycle.Error = ctx.Err().Error()
	case err != nil:
		cycle.Status = fetch.StatusFailed
		cycle.Error = err.Error()
	default:
		cycle.Status = fetch.StatusComplete
		for _, j := range cycle.Jobs {
			if j.Status != fetch.StatusComplete {
				cycle.Status = fetch.StatusCompleteWithGaps
				break
			}
		}
	}
	s.mu.Unlock()

	if cycle.Status == fetch.StatusComplete || cycle.Status == fetch.StatusCompleteWithGaps {
		s.commit(ctx, cycle, log)
	}
	metrics.RecordSyncCycle(string(cycle.Status))
	s.publish(progress.EventCycleEnd, map[string]interface{}{
		"cycle_id": cycle.ID,
		"status":   cycle.Status,
		"error":    cycle.Error,
	})

	log.WithFields(map[string]interface{}{
		"status":   cycle.Status,
		"jobs":     len(cycle.Jobs),
		"duration": completed.Sub(cycle.StartedAt).String(),
	}).Info("Sync cycle finished")
	s.finish(cycle)
}

func (s *SyncService) stages(ctx context.Context, cycle *fetch.Cycle, log *logger.Logger) error {
	// Stage 1: account
	acct := s.refreshAccount(ctx, cycle, log)
	if err := ctx.Err(); err != nil {
		return err
	}

	c := collector.New()
	if cycle.Mode == fetch.ModeAccount {
		if acct == nil {
			return fmt.Errorf("no account snapshot available to collect ids from")
		}
		c.AddAccount(acct)
	}

	// ids requested in stage 2 are not requested again in stage 3
	attempted := collector.NewSet(c.Items()...)

	// Stage 2: items and recipes
	var items, recipes *fetcher.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.fetchType(gctx, cycle, catalog.TypeItems, c.Items())
		return err
	})
	g.Go(func() error {
		var err error
		recipes, err = s.fetchType(gctx, cycle, catalog.TypeRecipes, c.Recipes())
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Stage 3: everything referenced by what stage 2 returned
	if items != nil {
		c.AddItems(collector.ItemsOf(items.Records))
	}
	if recipes != nil {
		c.AddRecipes(collector.RecipesOf(recipes.Records))
	}

	g, gctx = errgroup.WithContext(ctx)
	if cycle.Mode == fetch.ModeAccount {
		derived := c.Set(catalog.TypeItems).Without(attempted.Has)
		if len(derived) > 0 {
			g.Go(func() error {
				_, err := s.fetchType(gctx, cycle, catalog.TypeItems, derived)
				return err
			})
		}
	}
	g.Go(func() error {
		_, err := s.fetchType(gctx, cycle, catalog.TypeItemStats, c.ItemStats())
		return err
	})
	g.Go(func() error {
		_, err := s.fetchType(gctx, cycle, catalog.TypePrices, c.Prices())
		return err
	})
	return g.Wait()
}

// fetchType runs one fetch job. In full-catalog mode the id list comes from
// the remote listing instead. Only cancellation is returned as an error;
// every other failure is recorded on the job.
func (s *SyncService) fetchType(ctx context.Context, cycle *fetch.Cycle, rt catalog.ResourceType, ids []catalog.ResourceID) (*fetcher.Result, error) {
	if cycle.Mode == fetch.ModeFullCatalog && rt != catalog.TypeItemStats {
		listed, err := s.listIDs(ctx, rt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.recordFailedJob(ctx, cycle, rt, err)
			return nil, nil
		}
		ids = listed
	}

	// records already in the store stay valid after a cancel, so they are
	// persisted even when ctx is done
	persistCtx := context.WithoutCancel(ctx)
	result, err := s.fetcher.Fetch(ctx, rt, ids, func(rt catalog.ResourceType, records catalog.Collection) {
		s.store.Upsert(rt, records)
		if err := s.records.SaveRecords(persistCtx, rt, records); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"cycle_id":      cycle.ID,
				"resource_type": rt.String(),
				"records":       len(records),
			}).ErrorWithErr(err, "Failed to persist fetched records")
		}
	})
	if result != nil {
		result.Job.CycleID = cycle.ID
		s.addJob(cycle, result.Job)
		s.saveJob(ctx, result.Job)
	}
	return result, err
}

func (s *SyncService) listIDs(ctx context.Context, rt catalog.ResourceType) ([]catalog.ResourceID, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	return s.remote.ListIDs(ctx, rt)
}

func (s *SyncService) recordFailedJob(ctx context.Context, cycle *fetch.Cycle, rt catalog.ResourceType, cause error) {
	now := time.Now()
	j := &fetch.Job{
		ID:           uuid.New().String(),
		CycleID:      cycle.ID,
		ResourceType: rt,
		Status:       fetch.StatusFailed,
		ErrorMessage: cause.Error(),
		StartedAt:    &now,
		CompletedAt:  &now,
		CreatedAt:    now,
	}
	s.logger.WithFields(map[string]interface{}{
		"cycle_id":      cycle.ID,
		"resource_type": rt.String(),
	}).ErrorWithErr(cause, "Failed to list ids, skipping resource type")
	metrics.RecordFetchJob(rt.String(), string(j.Status), 0)
	s.addJob(cycle, j)
	s.saveJob(ctx, j)
}

func (s *SyncService) saveJob(ctx context.Context, j *fetch.Job) {
	if err := s.jobs.Create(context.WithoutCancel(ctx), j); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"job_id": j.ID,
		}).ErrorWithErr(err, "Failed to persist fetch job")
	}
}

// refreshAccount fetches the account state. On failure the previous snapshot
// is kept and returned so the cycle can still refresh prices and references.
func (s *SyncService) refreshAccount(ctx context.Context, cycle *fetch.Cycle, log *logger.Logger) *account.Snapshot {
	previous := s.accounts.Get()
	if !s.remote.HasKey() {
		if cycle.Mode == fetch.ModeAccount {
			log.Warn("No API key configured, collecting ids from the stored account snapshot")
		}
		return previous
	}

	snap, err := s.fetchAccount(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(remoteError("account refresh", err)).Error("Account refresh failed, using stored snapshot")
		}
		return previous
	}

	s.accounts.Set(snap)
	if err := s.accountRepo.Save(ctx, snap); err != nil {
		log.ErrorWithErr(err, "Failed to persist account snapshot")
	}
	log.WithFields(map[string]interface{}{
		"account":    snap.Name,
		"characters": len(snap.Characters),
	}).Info("Account refreshed")
	return snap
}

func (s *SyncService) fetchAccount(ctx context.Context) (*account.Snapshot, error) {
	snap := &account.Snapshot{}
	steps := []struct {
		name string
		call func() error
	}{
		{"account", func() error {
			info, err := s.remote.Account(ctx)
			if err == nil {
				snap.Name = info.Name
			}
			return err
		}},
		{"characters", func() (err error) { snap.Characters, err = s.remote.Characters(ctx); return }},
		{"bank", func() (err error) { snap.Bank, err = s.remote.Bank(ctx); return }},
		{"shared inventory", func() (err error) { snap.SharedInventory, err = s.remote.SharedInventory(ctx); return }},
		{"materials", func() (err error) { snap.Materials, err = s.remote.Materials(ctx); return }},
		{"recipes", func() (err error) { snap.Recipes, err = s.remote.AccountRecipes(ctx); return }},
	}
	for _, step := range steps {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		if err := step.call(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}

// commit stamps the store and writes metadata and the snapshot export
func (s *SyncService) commit(ctx context.Context, cycle *fetch.Cycle, log *logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	s.store.MarkRefreshed(time.Now())
	snap := s.store.Snapshot()

	if err := s.records.SaveMetadata(ctx, snap.Meta); err != nil {
		log.ErrorWithErr(err, "Failed to persist snapshot metadata")
	}
	if s.sink != nil {
		if err := s.sink.Write(ctx, snap); err != nil {
			log.ErrorWithErr(err, "Failed to write snapshot")
		} else {
			log.WithFields(map[string]interface{}{
				"sink":         s.sink.Name(),
				"item_count":   snap.Meta.ItemCount,
				"recipe_count": snap.Meta.RecipeCount,
			}).Info("Snapshot written")
		}
	}

	if acct := s.accounts.Get(); acct != nil {
		v := join.New(s.store).Valuation(acct.TradableStacks())
		metrics.SetAccountValue(float64(v.Total))
	}
}

// remoteError maps a remote API failure to an application error
func remoteError(operation string, err error) error {
	var apiErr *gw2.APIError
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimited():
			return errors.RateLimited(apiErr.Text)
		case apiErr.IsUnauthorized():
			return errors.RemoteAuthError(err)
		}
	}
	return errors.RemoteAPIError(operation, err)
}
