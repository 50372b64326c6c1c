package services

import (
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/cache"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/join"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
)

// QueryService answers read queries from the record store. It never waits
// for a running fetch; answers reflect whatever has been stored so far.
type QueryService struct {
	store    *cache.Store
	accounts *cache.AccountStore
	engine   *join.Engine
	logger   *logger.Logger
}

// NewQueryService creates a new query service
func NewQueryService(store *cache.Store, accounts *cache.AccountStore, log *logger.Logger) *QueryService {
	return &QueryService{
		store:    store,
		accounts: accounts,
		engine:   join.New(store),
		logger:   log,
	}
}

// SnapshotStatus describes what the store currently holds
type SnapshotStatus struct {
	LastUpdated *time.Time                   `json:"last_updated,omitempty"`
	Counts      map[catalog.ResourceType]int `json:"counts"`
	Account     string                       `json:"account,omitempty"`
	AccountAt   *time.Time                   `json:"account_fetched_at,omitempty"`
}

// CharacterEquipment is the hydrated equipment of one character
type CharacterEquipment struct {
	Character string `json:"character"`
	*join.Hydrated
}

// GetRecord returns one cached record
func (s *QueryService) GetRecord(rt catalog.ResourceType, id catalog.ResourceID) (catalog.Record, error) {
	if !rt.IsValid() {
		return nil, errors.BadRequest("Unknown resource type: " + rt.String())
	}
	rec, ok := s.store.Get(rt, id)
	if !ok {
		return nil, errors.NotFound("Record")
	}
	return rec, nil
}

// GetMany returns the cached subset of ids; unknown ids are omitted
func (s *QueryService) GetMany(rt catalog.ResourceType, ids []catalog.ResourceID) (catalog.Collection, error) {
	if !rt.IsValid() {
		return nil, errors.BadRequest("Unknown resource type: " + rt.String())
	}
	return s.store.GetMany(rt, ids), nil
}

// ComputeValuation values the given stacks at current sell prices
func (s *QueryService) ComputeValuation(stacks []account.OwnedStack) *join.Valuation {
	return s.engine.Valuation(stacks)
}

// ComputeIngredientCompletion measures how much of an ingredient list is owned
func (s *QueryService) ComputeIngredientCompletion(ingredients []catalog.Ingredient, owned map[catalog.ResourceID]int) *join.Completion {
	return s.engine.IngredientCompletion(ingredients, owned)
}

func (s *QueryService) account() (*account.Snapshot, error) {
	snap := s.accounts.Get()
	if snap == nil {
		return nil, errors.ServiceUnavailable("No account snapshot has been fetched yet")
	}
	return snap, nil
}

// AccountValuation values everything the stored account snapshot holds
func (s *QueryService) AccountValuation() (*join.Valuation, error) {
	snap, err := s.account()
	if err != nil {
		return nil, err
	}
	return s.engine.Valuation(snap.TradableStacks()), nil
}

// RecipeCompletion measures a cached recipe against the stored account holdings
func (s *QueryService) RecipeCompletion(recipeID catalog.ResourceID) (*join.Completion, error) {
	snap, err := s.account()
	if err != nil {
		return nil, err
	}
	c, ok := s.engine.RecipeCompletion(recipeID, snap.OwnedCounts())
	if !ok {
		return nil, errors.NotFound("Recipe")
	}
	return c, nil
}

// CharacterEquipment hydrates the equipment of the named character
func (s *QueryService) CharacterEquipment(name string) (*CharacterEquipment, error) {
	snap, err := s.account()
	if err != nil {
		return nil, err
	}
	ch, ok := snap.Character(name)
	if !ok {
		return nil, errors.NotFound("Character")
	}
	return &CharacterEquipment{Character: ch.Name, Hydrated: s.engine.HydrateEquipment(ch.Equipment)}, nil
}

// SnapshotStatus reports the refresh stamp and per-type record counts
func (s *QueryService) SnapshotStatus() *SnapshotStatus {
	status := &SnapshotStatus{Counts: s.store.Counts()}
	if at := s.store.LastUpdated(); !at.IsZero() {
		status.LastUpdated = &at
	}
	if snap := s.accounts.Get(); snap != nil {
		status.Account = snap.Name
		at := snap.FetchedAt
		status.AccountAt = &at
	}
	return status
}
