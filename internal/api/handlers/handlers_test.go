package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/pratik-mahalle/gw2ledger/internal/cache"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/fetch"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/errors"
	"github.com/pratik-mahalle/gw2ledger/internal/pkg/validator"
	"github.com/pratik-mahalle/gw2ledger/internal/progress"
	"github.com/pratik-mahalle/gw2ledger/internal/services"
	"github.com/pratik-mahalle/gw2ledger/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func newQuery() (*services.QueryService, *cache.Store, *cache.AccountStore) {
	store := cache.New()
	accounts := cache.NewAccountStore()
	return services.NewQueryService(store, accounts, testutil.NewTestLogger()), store, accounts
}

func TestRecordHandler(t *testing.T) {
	query, store, _ := newQuery()
	store.Upsert(catalog.TypeItems, catalog.NewCollection([]catalog.Record{
		&catalog.Item{ID: 2, Name: "Two"},
	}))
	handler := NewRecordHandler(query, testutil.NewTestLogger())

	r := chi.NewRouter()
	r.Get("/records/{type}", handler.List)
	r.Get("/records/{type}/{id}", handler.Get)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCode   string
	}{
		{name: "get cached", path: "/records/items/2", expectedStatus: http.StatusOK},
		{name: "get missing", path: "/records/items/3", expectedStatus: http.StatusNotFound, expectedCode: errors.ErrCodeNotFound},
		{name: "bad id", path: "/records/items/abc", expectedStatus: http.StatusBadRequest, expectedCode: errors.ErrCodeBadRequest},
		{name: "bad type", path: "/records/skins/2", expectedStatus: http.StatusBadRequest, expectedCode: errors.ErrCodeBadRequest},
		{name: "list partial", path: "/records/items?ids=1,2,3", expectedStatus: http.StatusOK},
		{name: "list without ids", path: "/records/items", expectedStatus: http.StatusBadRequest, expectedCode: errors.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			env := decode(t, rr)
			if env.Error.Code != tt.expectedCode {
				t.Errorf("error code = %q, want %q", env.Error.Code, tt.expectedCode)
			}
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/records/items?ids=1,2,3", nil))
	var body struct {
		Data struct {
			Records []catalog.Item `json:"records"`
			Missing []int64        `json:"missing"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Records) != 1 || body.Data.Records[0].ID != 2 {
		t.Errorf("records = %+v", body.Data.Records)
	}
	if len(body.Data.Missing) != 2 || body.Data.Missing[0] != 1 || body.Data.Missing[1] != 3 {
		t.Errorf("missing = %v", body.Data.Missing)
	}
}

func TestLedgerHandler_Valuation(t *testing.T) {
	query, store, _ := newQuery()
	store.Upsert(catalog.TypePrices, catalog.NewCollection([]catalog.Record{
		&catalog.PriceQuote{ID: 1, Whitelisted: true, Sells: catalog.PriceLevel{UnitPrice: 100}},
		&catalog.PriceQuote{ID: 2, Whitelisted: true, Sells: catalog.PriceLevel{UnitPrice: 50}},
	}))
	handler := NewLedgerHandler(query, testutil.NewTestLogger(), validator.New())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedTotal  int64
	}{
		{
			name:           "valid stacks",
			body:           `{"stacks":[{"id":1,"count":5},{"id":2,"count":10}]}`,
			expectedStatus: http.StatusOK,
			expectedTotal:  1000,
		},
		{
			name:           "empty stacks",
			body:           `{"stacks":[]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid id",
			body:           `{"stacks":[{"id":0,"count":5}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"stacks":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/valuation", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.Valuation(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
			if rr.Code != http.StatusOK {
				return
			}
			var body struct {
				Data struct {
					Total int64 `json:"total"`
				} `json:"data"`
			}
			json.NewDecoder(rr.Body).Decode(&body)
			if body.Data.Total != tt.expectedTotal {
				t.Errorf("total = %d, want %d", body.Data.Total, tt.expectedTotal)
			}
		})
	}
}

func TestLedgerHandler_Completion(t *testing.T) {
	query, _, _ := newQuery()
	handler := NewLedgerHandler(query, testutil.NewTestLogger(), validator.New())

	body := `{"ingredients":[{"item_id":1,"count":5},{"item_id":2,"count":10}],"owned":{"1":5,"2":6}}`
	rr := httptest.NewRecorder()
	handler.Completion(rr, httptest.NewRequest(http.MethodPost, "/api/v1/completion", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			Satisfied int `json:"satisfied"`
			Required  int `json:"required"`
			Percent   int `json:"percent"`
		} `json:"data"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Data.Satisfied != 11 || resp.Data.Required != 15 || resp.Data.Percent != 73 {
		t.Errorf("completion = %+v", resp.Data)
	}
}

func TestLedgerHandler_AccountRoutes(t *testing.T) {
	query, store, accounts := newQuery()
	handler := NewLedgerHandler(query, testutil.NewTestLogger(), validator.New())
	r := chi.NewRouter()
	r.Get("/account/valuation", handler.AccountValuation)
	r.Get("/characters/{name}/equipment", handler.Equipment)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/account/valuation", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("valuation without account: status = %d", rr.Code)
	}

	store.Upsert(catalog.TypeItems, catalog.NewCollection([]catalog.Record{&catalog.Item{ID: 9, Name: "Helm"}}))
	accounts.Set(&account.Snapshot{Characters: []account.Character{
		{Name: "Some Body", Equipment: []account.EquipmentItem{{ID: 9, Slot: "Helm"}}},
	}})

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/characters/Some%20Body/equipment", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("equipment: status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data struct {
			Character string `json:"character"`
			Items     []struct {
				ID int64 `json:"id"`
			} `json:"items"`
		} `json:"data"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Data.Character != "Some Body" || len(resp.Data.Items) != 1 {
		t.Errorf("equipment = %+v", resp.Data)
	}
}

type fakeSync struct {
	busy    bool
	running *fetch.Cycle
	jobs    []*fetch.Job
}

func (f *fakeSync) Trigger(ctx context.Context) (*fetch.Cycle, error) {
	if f.busy {
		return nil, errors.SyncInProgress("other")
	}
	return &fetch.Cycle{ID: "new", Status: fetch.StatusRunning}, nil
}

func (f *fakeSync) Cancel() bool { return f.running != nil }

func (f *fakeSync) Running() (*fetch.Cycle, bool) { return f.running, f.running != nil }

func (f *fakeSync) LastCycle() (*fetch.Cycle, bool) { return nil, false }

func (f *fakeSync) ListJobs(ctx context.Context, filter fetch.Filter, limit, offset int) ([]*fetch.Job, int64, error) {
	return f.jobs, int64(len(f.jobs)), nil
}

func (f *fakeSync) GetJob(ctx context.Context, id string) (*fetch.Job, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, errors.NotFound("Fetch job")
}

func TestSyncHandler(t *testing.T) {
	query, _, _ := newQuery()
	fs := &fakeSync{jobs: []*fetch.Job{{ID: "j1", ResourceType: catalog.TypeItems, Status: fetch.StatusComplete}}}
	next := time.Date(2030, 1, 1, 6, 0, 0, 0, time.UTC)
	handler := NewSyncHandler(fs, query, progress.NewHub(4, testutil.NewTestLogger()),
		func() time.Time { return next }, testutil.NewTestLogger())

	r := chi.NewRouter()
	r.Post("/sync", handler.Trigger)
	r.Delete("/sync", handler.Cancel)
	r.Get("/sync/status", handler.Status)
	r.Get("/sync/jobs", handler.ListJobs)
	r.Get("/sync/jobs/{id}", handler.GetJob)

	tests := []struct {
		name           string
		method         string
		path           string
		busy           bool
		expectedStatus int
	}{
		{name: "trigger", method: http.MethodPost, path: "/sync", expectedStatus: http.StatusAccepted},
		{name: "trigger while busy", method: http.MethodPost, path: "/sync", busy: true, expectedStatus: http.StatusConflict},
		{name: "cancel idle", method: http.MethodDelete, path: "/sync", expectedStatus: http.StatusNotFound},
		{name: "status", method: http.MethodGet, path: "/sync/status", expectedStatus: http.StatusOK},
		{name: "jobs", method: http.MethodGet, path: "/sync/jobs?type=items", expectedStatus: http.StatusOK},
		{name: "jobs bad type", method: http.MethodGet, path: "/sync/jobs?type=skins", expectedStatus: http.StatusBadRequest},
		{name: "job", method: http.MethodGet, path: "/sync/jobs/j1", expectedStatus: http.StatusOK},
		{name: "job missing", method: http.MethodGet, path: "/sync/jobs/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs.busy = tt.busy
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
		})
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sync/status", nil))
	var status struct {
		Data struct {
			Running bool       `json:"running"`
			NextRun *time.Time `json:"next_run"`
		} `json:"data"`
	}
	json.NewDecoder(rr.Body).Decode(&status)
	if status.Data.Running || status.Data.NextRun == nil || !status.Data.NextRun.Equal(next) {
		t.Errorf("status = %+v", status.Data)
	}
}

func TestProgressHandler_Stream(t *testing.T) {
	hub := progress.NewHub(8, testutil.NewTestLogger())
	hub.Report(fetch.Progress{Processed: 200, Total: 450, Label: "items"})
	handler := NewProgressHandler(hub, nil, testutil.NewTestLogger())

	srv := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first progress.Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read latest: %v", err)
	}
	if first.Type != progress.EventProgress {
		t.Errorf("first message type = %q", first.Type)
	}

	// wait for the subscription before publishing
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(progress.EventCycleEnd, map[string]string{"cycle_id": "c1"})

	var next progress.Message
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read published: %v", err)
	}
	if next.Type != progress.EventCycleEnd {
		t.Errorf("published message type = %q", next.Type)
	}
}
