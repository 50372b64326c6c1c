package fetch

import (
	"fmt"
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// Status represents the lifecycle state of a fetch job
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusComplete         Status = "complete"
	StatusCompleteWithGaps Status = "complete_with_gaps"
	StatusFailed           Status = "failed"
	StatusCancelled        Status = "cancelled"
)

// IsTerminal checks if the job status is terminal
func (s Status) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusCompleteWithGaps, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IDRange is an inclusive range of ids sent together as one chunk.
// First and Last are the first and last ids of the chunk in request order.
type IDRange struct {
	First catalog.ResourceID `json:"first"`
	Last  catalog.ResourceID `json:"last"`
	Count int                `json:"count"`
}

func (r IDRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}

// Job is an in-flight or completed bulk fetch over one resource type
type Job struct {
	ID           string               `json:"id"`
	CycleID      string               `json:"cycle_id,omitempty"`
	ResourceType catalog.ResourceType `json:"resource_type"`
	Status       Status               `json:"status"`
	Total        int                  `json:"total"`
	Processed    int                  `json:"processed"`
	Fetched      int                  `json:"fetched"`
	FailedRanges []IDRange            `json:"failed_ranges,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Duration returns how long the job ran, or zero if it has not finished
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// Progress is one observation of a running job
type Progress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Label     string `json:"label"`
}

// ProgressFunc receives progress updates. Implementations must not block.
type ProgressFunc func(Progress)

// Filter contains job filtering options
type Filter struct {
	ResourceType catalog.ResourceType
	Status       Status
	CycleID      string
}

// Mode selects where a cycle gets its ids from
type Mode string

const (
	// ModeAccount fetches what the account holds plus everything those records reference
	ModeAccount Mode = "account"
	// ModeFullCatalog lists and fetches every item and recipe
	ModeFullCatalog Mode = "full_catalog"
)

// Cycle is one refresh run across all resource types
type Cycle struct {
	ID          string     `json:"id"`
	Mode        Mode       `json:"mode"`
	Status      Status     `json:"status"`
	Jobs        []*Job     `json:"jobs"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Job returns the last job of the cycle for rt, if any
func (c *Cycle) Job(rt catalog.ResourceType) (*Job, bool) {
	for i := len(c.Jobs) - 1; i >= 0; i-- {
		if c.Jobs[i].ResourceType == rt {
			return c.Jobs[i], true
		}
	}
	return nil, false
}
