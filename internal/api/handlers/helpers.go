package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/validator"
)

// maxIDsPerLookup bounds ?ids= lists on record lookups
const maxIDsPerLookup = 200

// parseID reads a positive resource id from the named path parameter
func parseID(r *http.Request, param string) (catalog.ResourceID, *errors.AppError) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("Invalid id: " + raw)
	}
	return catalog.ResourceID(id), nil
}

// parseIDs reads a comma separated id list such as "1,2,3"
func parseIDs(raw string) ([]catalog.ResourceID, *errors.AppError) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.BadRequest("ids query parameter is required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxIDsPerLookup {
		return nil, errors.BadRequest("Too many ids, at most " + strconv.Itoa(maxIDsPerLookup) + " per request")
	}
	ids := make([]catalog.ResourceID, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.BadRequest("Invalid id: " + p)
		}
		ids = append(ids, catalog.ResourceID(id))
	}
	return ids, nil
}

// parseResourceType reads the {type} path parameter
func parseResourceType(r *http.Request) (catalog.ResourceType, *errors.AppError) {
	rt := catalog.ResourceType(chi.URLParam(r, "type"))
	if !rt.IsValid() {
		return "", errors.BadRequest("Unknown resource type: " + rt.String())
	}
	return rt, nil
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation
func decodeAndValidate(r *http.Request, val *validator.Validator, dst interface{}) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.BadRequest("Invalid request body")
	}
	if errs := val.Validate(dst); len(errs) > 0 {
		return errors.ValidationError("Validation failed", errs)
	}
	return nil
}
