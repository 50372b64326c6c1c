package client

import (
	"encoding/json"
	"time"
)

// Resource types served by the records endpoints
const (
	TypeItems     = "items"
	TypeItemStats = "itemstats"
	TypeRecipes   = "recipes"
	TypePrices    = "prices"
)

// RecordsResponse is the result of a multi-id lookup. Records are left raw
// because their shape depends on the resource type.
type RecordsResponse struct {
	Type    string            `json:"type"`
	Records []json.RawMessage `json:"records"`
	Missing []int64           `json:"missing,omitempty"`
}

// Stack is an owned quantity of one item
type Stack struct {
	ID    int64 `json:"id"`
	Count int   `json:"count"`
}

// ValuedStack is one priced line of a valuation
type ValuedStack struct {
	ID        int64  `json:"id"`
	Name      string `json:"name,omitempty"`
	Count     int    `json:"count"`
	UnitPrice int64  `json:"unit_price"`
	Value     int64  `json:"value"`
}

// Valuation is the value of a set of stacks, in copper
type Valuation struct {
	Total    int64         `json:"total"`
	Stacks   []ValuedStack `json:"stacks"`
	Unpriced []int64       `json:"unpriced,omitempty"`
}

// Ingredient is one required input of a completion request
type Ingredient struct {
	ItemID int64 `json:"item_id"`
	Count  int   `json:"count"`
}

// IngredientStatus is the coverage of one ingredient
type IngredientStatus struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name,omitempty"`
	Required  int    `json:"required"`
	Owned     int    `json:"owned"`
	Satisfied int    `json:"satisfied"`
}

// Completion measures how much of an ingredient list is owned
type Completion struct {
	RecipeID    int64              `json:"recipe_id,omitempty"`
	Ingredients []IngredientStatus `json:"ingredients"`
	Satisfied   int                `json:"satisfied"`
	Required    int                `json:"required"`
	Percent     int                `json:"percent"`
}

// HydratedItem is one equipped item joined with its definitions
type HydratedItem struct {
	ID        int64           `json:"id"`
	Slot      string          `json:"slot,omitempty"`
	Count     int             `json:"count"`
	Item      *Item           `json:"item,omitempty"`
	Stats     json.RawMessage `json:"stats,omitempty"`
	Upgrades  []*Item         `json:"upgrades,omitempty"`
	Infusions []*Item         `json:"infusions,omitempty"`
	Price     json.RawMessage `json:"price,omitempty"`
}

// Item is the subset of an item definition the client displays
type Item struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rarity string `json:"rarity"`
	Level  int    `json:"level"`
}

// Equipment is the hydrated equipment of one character
type Equipment struct {
	Character string         `json:"character"`
	Items     []HydratedItem `json:"items"`
	Pending   []int64        `json:"pending,omitempty"`
}

// IDRange is a chunk of ids that failed to fetch
type IDRange struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
	Count int   `json:"count"`
}

// FetchJob is one bulk fetch over a resource type
type FetchJob struct {
	ID           string     `json:"id"`
	CycleID      string     `json:"cycle_id,omitempty"`
	ResourceType string     `json:"resource_type"`
	Status       string     `json:"status"`
	Total        int        `json:"total"`
	Processed    int        `json:"processed"`
	Fetched      int        `json:"fetched"`
	FailedRanges []IDRange  `json:"failed_ranges,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Cycle is one sync run over every resource type
type Cycle struct {
	ID          string      `json:"id"`
	Mode        string      `json:"mode"`
	Status      string      `json:"status"`
	Jobs        []*FetchJob `json:"jobs"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Progress is the latest progress of one running fetch
type Progress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Label     string `json:"label"`
}

// SnapshotStatus describes what the server's store holds
type SnapshotStatus struct {
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Counts      map[string]int `json:"counts"`
	Account     string         `json:"account,omitempty"`
	AccountAt   *time.Time     `json:"account_fetched_at,omitempty"`
}

// SyncStatus is the response of the sync status endpoint
type SyncStatus struct {
	Running   bool           `json:"running"`
	Cycle     *Cycle         `json:"cycle,omitempty"`
	LastCycle *Cycle         `json:"last_cycle,omitempty"`
	Snapshot  SnapshotStatus `json:"snapshot"`
	Progress  []Progress     `json:"progress,omitempty"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
}

// ListOptions contains pagination options for list endpoints
type ListOptions struct {
	Page     int `json:"page,omitempty"`      // Page number (1-based)
	PageSize int `json:"page_size,omitempty"` // Items per page
}

// JobPage is one page of fetch jobs
type JobPage struct {
	Data       []*FetchJob `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalItems int64       `json:"total_items"`
	TotalPages int         `json:"total_pages"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
