package gw2

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

func TestJoinIDs(t *testing.T) {
	tests := []struct {
		ids  []catalog.ResourceID
		want string
	}{
		{nil, ""},
		{[]catalog.ResourceID{1}, "1"},
		{[]catalog.ResourceID{19721, 24, 46742}, "19721,24,46742"},
	}
	for _, tt := range tests {
		if got := JoinIDs(tt.ids); got != tt.want {
			t.Errorf("JoinIDs(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}
}

func TestClient_ListIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/recipes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Schema-Version") == "" {
			t.Error("schema version header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[1,2,7]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ids, err := c.ListIDs(context.Background(), catalog.TypeRecipes)
	if err != nil {
		t.Fatalf("ListIDs() error = %v", err)
	}
	if len(ids) != 3 || ids[2] != 7 {
		t.Errorf("ListIDs() = %v", ids)
	}
}

func TestClient_FetchByIDs(t *testing.T) {
	var gotIDs, gotLang, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/commerce/prices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotIDs = r.URL.Query().Get("ids")
		gotLang = r.URL.Query().Get("lang")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"id":19721,"whitelisted":true,"buys":{"quantity":10,"unit_price":80},"sells":{"quantity":4,"unit_price":100}}]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Lang: "de"})
	body, err := c.FetchByIDs(context.Background(), catalog.TypePrices, []catalog.ResourceID{19721, 24})
	if err != nil {
		t.Fatalf("FetchByIDs() error = %v", err)
	}
	if gotIDs != "19721,24" {
		t.Errorf("ids query = %q", gotIDs)
	}
	if gotLang != "de" {
		t.Errorf("lang query = %q", gotLang)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	records, err := catalog.DecodeRecords(catalog.TypePrices, body)
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	quote, ok := records[0].(*catalog.PriceQuote)
	if !ok || quote.Sells.UnitPrice != 100 || !quote.Whitelisted {
		t.Errorf("decoded quote = %+v", records[0])
	}
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantText    string
		rateLimited bool
	}{
		{name: "json body", status: http.StatusNotFound, body: `{"text":"all ids provided are invalid"}`, wantText: "all ids provided are invalid"},
		{name: "plain body", status: http.StatusBadGateway, body: "upstream down", wantText: "upstream down"},
		{name: "throttled", status: http.StatusTooManyRequests, body: `{"text":"too many requests"}`, wantText: "too many requests", rateLimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL})
			_, err := c.FetchByIDs(context.Background(), catalog.TypeItems, []catalog.ResourceID{1})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", apiErr.Text, tt.wantText)
			}
			if apiErr.IsRateLimited() != tt.rateLimited {
				t.Errorf("IsRateLimited() = %v", apiErr.IsRateLimited())
			}
		})
	}
}

func TestClient_Characters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") != "all" {
			t.Errorf("ids = %q, want all", r.URL.Query().Get("ids"))
		}
		w.Write([]byte(`[{"name":"Tali","level":80,"bags":[{"id":8932,"size":2,"inventory":[null,{"id":19721,"count":3}]},null],"equipment":[{"id":30698,"slot":"WeaponA1","upgrades":[24615]}]}]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	chars, err := c.Characters(context.Background())
	if err != nil {
		t.Fatalf("Characters() error = %v", err)
	}
	if len(chars) != 1 || chars[0].Name != "Tali" {
		t.Fatalf("Characters() = %+v", chars)
	}
	if len(chars[0].Bags) != 2 || chars[0].Bags[1] != nil {
		t.Errorf("bags = %+v", chars[0].Bags)
	}
	if chars[0].Bags[0].Inventory[0] != nil || chars[0].Bags[0].Inventory[1].Count != 3 {
		t.Errorf("inventory = %+v", chars[0].Bags[0].Inventory)
	}
	if !c.HasKey() {
		t.Error("HasKey() = false")
	}
}
