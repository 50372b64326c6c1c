package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// FakeRemote is an in-process stand-in for the game-data API
type FakeRemote struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[catalog.ResourceType]map[catalog.ResourceID]catalog.Record
	failIDs  map[catalog.ResourceType]map[catalog.ResourceID]bool
	failList map[catalog.ResourceType]bool
	account  *account.Snapshot
	requests map[string]int
}

// NewFakeRemote starts a fake remote that is closed with the test
func NewFakeRemote(t *testing.T) *FakeRemote {
	t.Helper()
	f := &FakeRemote{
		records:  make(map[catalog.ResourceType]map[catalog.ResourceID]catalog.Record),
		failIDs:  make(map[catalog.ResourceType]map[catalog.ResourceID]bool),
		failList: make(map[catalog.ResourceType]bool),
		requests: make(map[string]int),
	}
	mux := http.NewServeMux()
	for _, rt := range catalog.AllTypes {
		rt := rt
		mux.HandleFunc(rt.Endpoint(), func(w http.ResponseWriter, r *http.Request) { f.serveBulk(w, r, rt) })
	}
	mux.HandleFunc("/v2/account", f.serveAccount(func(s *account.Snapshot) interface{} {
		return map[string]interface{}{"id": "acc", "name": s.Name}
	}))
	mux.HandleFunc("/v2/characters", f.serveAccount(func(s *account.Snapshot) interface{} { return s.Characters }))
	mux.HandleFunc("/v2/account/bank", f.serveAccount(func(s *account.Snapshot) interface{} { return s.Bank }))
	mux.HandleFunc("/v2/account/inventory", f.serveAccount(func(s *account.Snapshot) interface{} { return s.SharedInventory }))
	mux.HandleFunc("/v2/account/materials", f.serveAccount(func(s *account.Snapshot) interface{} { return s.Materials }))
	mux.HandleFunc("/v2/account/recipes", f.serveAccount(func(s *account.Snapshot) interface{} { return s.Recipes }))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// AddRecords makes records available from their bulk endpoints
func (f *FakeRemote) AddRecords(records ...catalog.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		rt := rec.Type()
		if f.records[rt] == nil {
			f.records[rt] = make(map[catalog.ResourceID]catalog.Record)
		}
		f.records[rt][rec.RecordID()] = rec
	}
}

// FailIDs makes any chunk containing one of ids fail with 503
func (f *FakeRemote) FailIDs(rt catalog.ResourceType, ids ...catalog.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[rt] == nil {
		f.failIDs[rt] = make(map[catalog.ResourceID]bool)
	}
	for _, id := range ids {
		f.failIDs[rt][id] = true
	}
}

// FailList makes the id listing of rt fail with 500
func (f *FakeRemote) FailList(rt catalog.ResourceType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList[rt] = true
}

// SetAccount sets the account served to authenticated calls
func (f *FakeRemote) SetAccount(snap *account.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = snap
}

// Requests returns how many requests hit path
func (f *FakeRemote) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *FakeRemote) serveBulk(w http.ResponseWriter, r *http.Request, rt catalog.ResourceType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.URL.Path]++

	raw := r.URL.Query().Get("ids")
	if raw == "" {
		if f.failList[rt] {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"text": "internal error"})
			return
		}
		ids := make([]catalog.ResourceID, 0, len(f.records[rt]))
		for id := range f.records[rt] {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		writeJSON(w, http.StatusOK, ids)
		return
	}

	var out []catalog.Record
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"text": "invalid id list"})
			return
		}
		id := catalog.ResourceID(n)
		if f.failIDs[rt][id] {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"text": "API not active"})
			return
		}
		if rec, ok := f.records[rt][id]; ok {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"text": "all ids provided are invalid"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeRemote) serveAccount(pick func(*account.Snapshot) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests[r.URL.Path]++

		if f.account == nil || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"text": "Invalid access token"})
			return
		}
		writeJSON(w, http.StatusOK, pick(f.account))
	}
}
