package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/gw2ledger/internal/api/dto"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/utils"
	"github.com/pratik-mahalle/gw2ledger/internal/progress"
	"github.com/pratik-mahalle/gw2ledger/internal/services"
)

// SyncController starts cycles and reads their history
type SyncController interface {
	Trigger(ctx context.Context) (*fetch.Cycle, error)
	Cancel() bool
	Running() (*fetch.Cycle, bool)
	LastCycle() (*fetch.Cycle, bool)
	ListJobs(ctx context.Context, filter fetch.Filter, limit, offset int) ([]*fetch.Job, int64, error)
	GetJob(ctx context.Context, id string) (*fetch.Job, error)
}

// SyncHandler serves sync triggers, job history and cycle status
type SyncHandler struct {
	sync    SyncController
	query   *services.QueryService
	hub     *progress.Hub
	nextRun func() time.Time
	logger  *logger.Logger
}

// NewSyncHandler creates a sync handler. nextRun may be nil when no schedule is configured.
func NewSyncHandler(sync SyncController, query *services.QueryService, hub *progress.Hub, nextRun func() time.Time, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		sync:    sync,
		query:   query,
		hub:     hub,
		nextRun: nextRun,
		logger:  log,
	}
}

// Trigger starts a fetch cycle in the background
// POST /api/v1/sync
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.sync.Trigger(r.Context())
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to start sync")
		return
	}
	h.logger.WithFields(map[string]interface{}{
		"cycle_id": cycle.ID,
	}).Info("Sync cycle triggered")
	utils.WriteSuccessWithMessage(w, http.StatusAccepted, "Sync started", cycle)
}

// Cancel stops the running cycle
// DELETE /api/v1/sync
func (h *SyncHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.sync.Cancel() {
		utils.WriteError(w, errors.NotFound("Running sync"))
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusAccepted, "Sync cancellation requested", nil)
}

// Status reports the running or last cycle, store counts and latest progress
// GET /api/v1/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := dto.SyncStatusResponse{Snapshot: h.query.SnapshotStatus()}
	if c, ok := h.sync.Running(); ok {
		resp.Running = true
		resp.Cycle = c
		if h.hub != nil {
			resp.Progress = h.hub.Latest()
		}
	}
	if c, ok := h.sync.LastCycle(); ok {
		resp.LastCycle = c
	}
	if h.nextRun != nil {
		if next := h.nextRun(); !next.IsZero() {
			resp.NextRun = &next
		}
	}
	utils.WriteSuccess(w, http.StatusOK, resp)
}

// ListJobs returns persisted fetch jobs with pagination
// GET /api/v1/sync/jobs?type=items&status=failed&cycle_id=...
func (h *SyncHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := fetch.Filter{
		ResourceType: catalog.ResourceType(q.Get("type")),
		Status:       fetch.Status(q.Get("status")),
		CycleID:      q.Get("cycle_id"),
	}
	if filter.ResourceType != "" && !filter.ResourceType.IsValid() {
		utils.WriteError(w, errors.BadRequest("Unknown resource type: "+filter.ResourceType.String()))
		return
	}

	page := utils.ParsePaginationParams(r)
	jobs, total, err := h.sync.ListJobs(r.Context(), filter, page.PageSize, page.Offset)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list fetch jobs")
		utils.WriteAnyError(w, err, "Failed to list fetch jobs")
		return
	}
	if jobs == nil {
		jobs = []*fetch.Job{}
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(jobs, page.Page, page.PageSize, total))
}

// GetJob returns one fetch job
// GET /api/v1/sync/jobs/{id}
func (h *SyncHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.sync.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to get fetch job")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, j)
}
