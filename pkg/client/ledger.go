package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// LedgerService handles valuation and crafting completion queries
type LedgerService struct {
	client *Client
}

// Value prices the given stacks at current sell prices
func (s *LedgerService) Value(ctx context.Context, stacks []Stack) (*Valuation, error) {
	body := map[string]interface{}{"stacks": stacks}
	var v Valuation
	if err := s.client.doRequest(ctx, "POST", "/api/v1/valuation", nil, body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AccountValue prices everything the server's account snapshot holds
func (s *LedgerService) AccountValue(ctx context.Context) (*Valuation, error) {
	var v Valuation
	if err := s.client.doRequest(ctx, "GET", "/api/v1/account/valuation", nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Completion measures how much of an ingredient list the owned counts cover
func (s *LedgerService) Completion(ctx context.Context, ingredients []Ingredient, owned map[int64]int) (*Completion, error) {
	ownedJSON := make(map[string]int, len(owned))
	for id, n := range owned {
		ownedJSON[strconv.FormatInt(id, 10)] = n
	}
	body := map[string]interface{}{
		"ingredients": ingredients,
		"owned":       ownedJSON,
	}
	var c Completion
	if err := s.client.doRequest(ctx, "POST", "/api/v1/completion", nil, body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// RecipeCompletion measures a recipe against the server's account snapshot
func (s *LedgerService) RecipeCompletion(ctx context.Context, recipeID int64) (*Completion, error) {
	var c Completion
	path := fmt.Sprintf("/api/v1/recipes/%d/completion", recipeID)
	if err := s.client.doRequest(ctx, "GET", path, nil, nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Equipment returns the hydrated equipment of a character
func (s *LedgerService) Equipment(ctx context.Context, character string) (*Equipment, error) {
	var e Equipment
	path := "/api/v1/characters/" + url.PathEscape(character) + "/equipment"
	if err := s.client.doRequest(ctx, "GET", path, nil, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
