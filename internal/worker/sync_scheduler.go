package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
)

// CycleRunner runs one complete fetch cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*fetch.Cycle, error)
}

// SyncScheduler runs fetch cycles on a cron schedule
type SyncScheduler struct {
	runner   CycleRunner
	schedule string
	onStart  bool
	logger   *logger.Logger

	mu      sync.RWMutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewSyncScheduler creates a scheduler for the given standard cron expression.
// An empty schedule disables periodic runs.
func NewSyncScheduler(runner CycleRunner, schedule string, onStart bool, log *logger.Logger) *SyncScheduler {
	return &SyncScheduler{
		runner:   runner,
		schedule: schedule,
		onStart:  onStart,
		logger:   log,
	}
}

// Start schedules cycles and blocks until ctx is cancelled
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
		"on_start": s.onStart,
	}).Info("Starting sync scheduler")

	if s.schedule != "" {
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		id, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) })
		if err != nil {
			return fmt.Errorf("invalid sync schedule: %w", err)
		}
		s.mu.Lock()
		s.cron = c
		s.entryID = id
		s.mu.Unlock()
		c.Start()
		defer func() {
			<-c.Stop().Done()
		}()
	}

	if s.onStart {
		s.runOnce(ctx)
	}

	<-ctx.Done()
	s.logger.Info("Sync scheduler stopped")
	return nil
}

// NextRun returns the next scheduled cycle time, or zero if none is scheduled
func (s *SyncScheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *SyncScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cycle, err := s.runner.RunCycle(ctx)
	switch {
	case errors.Code(err) == errors.ErrCodeSyncInProgress:
		s.logger.Warn("Skipping scheduled sync, a cycle is already running")
	case err == context.Canceled && cycle != nil:
		s.logger.WithFields(map[string]interface{}{"cycle_id": cycle.ID}).Info("Scheduled sync cancelled")
	case err != nil:
		s.logger.ErrorWithErr(err, "Scheduled sync failed")
	default:
		s.logger.WithFields(map[string]interface{}{
			"cycle_id": cycle.ID,
			"status":   cycle.Status,
		}).Info("Scheduled sync finished")
	}
}
