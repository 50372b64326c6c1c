package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// SyncService handles sync cycles and fetch job history
type SyncService struct {
	client *Client
}

// JobListOptions contains options for listing fetch jobs
type JobListOptions struct {
	ListOptions
	ResourceType string
	Status       string
	CycleID      string
}

// Trigger starts a sync cycle on the server. It fails with a 409 APIError
// when a cycle is already running.
func (s *SyncService) Trigger(ctx context.Context) (*Cycle, error) {
	var c Cycle
	if err := s.client.doRequest(ctx, "POST", "/api/v1/sync", nil, nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Cancel asks the server to stop the running cycle
func (s *SyncService) Cancel(ctx context.Context) error {
	return s.client.doRequest(ctx, "DELETE", "/api/v1/sync", nil, nil, nil)
}

// Status returns the running or last cycle and the store summary
func (s *SyncService) Status(ctx context.Context) (*SyncStatus, error) {
	var st SyncStatus
	if err := s.client.doRequest(ctx, "GET", "/api/v1/sync/status", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Jobs lists persisted fetch jobs, newest first
func (s *SyncService) Jobs(ctx context.Context, opts *JobListOptions) (*JobPage, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.ResourceType != "" {
			query.Set("type", opts.ResourceType)
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
		if opts.CycleID != "" {
			query.Set("cycle_id", opts.CycleID)
		}
	}

	var page JobPage
	if err := s.client.doRequest(ctx, "GET", "/api/v1/sync/jobs", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Job retrieves one fetch job
func (s *SyncService) Job(ctx context.Context, id string) (*FetchJob, error) {
	var j FetchJob
	if err := s.client.doRequest(ctx, "GET", "/api/v1/sync/jobs/"+url.PathEscape(id), nil, nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Wait polls the status endpoint until no cycle is running and returns the
// last finished cycle. onPoll, if set, sees every intermediate status.
func (s *SyncService) Wait(ctx context.Context, interval time.Duration, onPoll func(*SyncStatus)) (*Cycle, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := s.Status(ctx)
		if err != nil {
			return nil, err
		}
		if onPoll != nil {
			onPoll(st)
		}
		if !st.Running {
			return st.LastCycle, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
