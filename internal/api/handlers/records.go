package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/gw2ledger/internal/api/dto"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/logger"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/utils"
	"github.com/pratik-mahalle/gw2ledger/internal/services"
)

// RecordHandler serves cached records
type RecordHandler struct {
	query  *services.QueryService
	logger *logger.Logger
}

func NewRecordHandler(query *services.QueryService, log *logger.Logger) *RecordHandler {
	return &RecordHandler{
		query:  query,
		logger: log,
	}
}

// Get returns one record
// GET /api/v1/records/{type}/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rt, appErr := parseResourceType(r)
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	id, appErr := parseID(r, "id")
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	rec, err := h.query.GetRecord(rt, id)
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to get record")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, rec)
}

// List returns the cached subset of ?ids= and names the ids not cached yet
// GET /api/v1/records/{type}?ids=1,2,3
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	rt, appErr := parseResourceType(r)
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	ids, appErr := parseIDs(r.URL.Query().Get("ids"))
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	found, err := h.query.GetMany(rt, ids)
	if err != nil {
		utils.WriteAnyError(w, err, "Failed to get records")
		return
	}

	resp := dto.RecordsResponse{Type: rt.String(), Records: found.Records()}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			resp.Missing = append(resp.Missing, int64(id))
		}
	}
	if resp.Records == nil {
		resp.Records = []catalog.Record{}
	}
	utils.WriteSuccess(w, http.StatusOK, resp)
}
