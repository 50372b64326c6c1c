package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/gw2ledger/internal/api/dto"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/utils"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/validator"
	"github.com/pratik-mahalle/gw2ledger/internal/services"
)

// LedgerHandler serves valuations, recipe completion and equipment views
type LedgerHandler struct {
	query     *services.QueryService
	logger    *logger.Logger
	validator *validator.Validator
}

func NewLedgerHandler(query *services.QueryService, log *logger.Logger, val *validator.Validator) *LedgerHandler {
	return &LedgerHandler{
		query:     query,
		logger:    log,
		validator: val,
	}
}

// Valuation values the stacks in the request body
// POST /api/v1/valuation
func (h *LedgerHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	var req dto.ValuationRequest
	if appErr := decodeAndValidate(r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, h.query.ComputeValuation(req.ToStacks()))
}

// AccountValuation values the stored account holdings
// GET /api/v1/account/valuation
func (h *LedgerHandler) AccountValuation(w http.ResponseWriter, r *http.Request) {
	v, err := h.query.AccountValuation()
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to value account")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, v)
}

// Completion measures ingredient coverage from the request body
// POST /api/v1/completion
func (h *LedgerHandler) Completion(w http.ResponseWriter, r *http.Request) {
	var req dto.CompletionRequest
	if appErr := decodeAndValidate(r, h.validator, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, h.query.ComputeIngredientCompletion(req.ToIngredients(), req.OwnedCounts()))
}

// RecipeCompletion measures a cached recipe against the account holdings
// GET /api/v1/recipes/{id}/completion
func (h *LedgerHandler) RecipeCompletion(w http.ResponseWriter, r *http.Request) {
	id, appErr := parseID(r, "id")
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	c, err := h.query.RecipeCompletion(id)
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to compute recipe completion")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, c)
}

// Equipment returns the hydrated equipment of a character
// GET /api/v1/characters/{name}/equipment
func (h *LedgerHandler) Equipment(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid character name"))
		return
	}
	eq, err := h.query.CharacterEquipment(name)
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to load equipment")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, eq)
}
