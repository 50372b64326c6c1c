package dto

import (
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
)

// StackDTO is one owned stack in a valuation request
type StackDTO struct {
	ID    int64 `json:"id" validate:"required,gt=0"`
	Count int   `json:"count" validate:"gte=0"`
}

// ValuationRequest represents a request to value a set of stacks
type ValuationRequest struct {
	Stacks []StackDTO `json:"stacks" validate:"required,min=1,dive"`
}

// ToStacks converts the request into owned stacks
func (r *ValuationRequest) ToStacks() []account.OwnedStack {
	out := make([]account.OwnedStack, len(r.Stacks))
	for i, s := range r.Stacks {
		out[i] = account.OwnedStack{ID: catalog.ResourceID(s.ID), Count: s.Count}
	}
	return out
}

// IngredientDTO is one required input of a completion request
type IngredientDTO struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
	Count  int   `json:"count" validate:"gte=0"`
}

// CompletionRequest represents a request to measure ingredient coverage.
// Owned maps item ids, as strings, to owned quantities.
type CompletionRequest struct {
	Ingredients []IngredientDTO `json:"ingredients" validate:"required,min=1,dive"`
	Owned       map[int64]int   `json:"owned"`
}

// ToIngredients converts the request into catalog ingredients
func (r *CompletionRequest) ToIngredients() []catalog.Ingredient {
	out := make([]catalog.Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		out[i] = catalog.Ingredient{ItemID: catalog.ResourceID(ing.ItemID), Count: ing.Count}
	}
	return out
}

// OwnedCounts converts the owned map into item id keyed counts
func (r *CompletionRequest) OwnedCounts() map[catalog.ResourceID]int {
	out := make(map[catalog.ResourceID]int, len(r.Owned))
	for id, n := range r.Owned {
		out[catalog.ResourceID(id)] = n
	}
	return out
}

// RecordsResponse is the result of a multi-id record lookup
type RecordsResponse struct {
	Type    string           `json:"type"`
	Records []catalog.Record `json:"records"`
	Missing []int64          `json:"missing,omitempty"`
}

// SyncStatusResponse describes the store and the current or last cycle
type SyncStatusResponse struct {
	Running   bool             `json:"running"`
	Cycle     *fetch.Cycle     `json:"cycle,omitempty"`
	LastCycle *fetch.Cycle     `json:"last_cycle,omitempty"`
	Snapshot  interface{}      `json:"snapshot"`
	Progress  []fetch.Progress `json:"progress,omitempty"`
	NextRun   *time.Time       `json:"next_run,omitempty"`
}
