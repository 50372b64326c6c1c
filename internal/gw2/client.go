// Package gw2 is a thin client for the game-data API. It knows the two bulk
// call shapes (list every id of a type, fetch records for a set of ids) and the
// authenticated account endpoints.
package gw2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

const (
	DefaultBaseURL       = "https://api.guildwars2.com"
	DefaultSchemaVersion = "2019-12-19T00:00:00.000Z"
	DefaultTimeout       = 30 * time.Second
)

// Config holds the client configuration
type Config struct {
	BaseURL       string
	APIKey        string
	Lang          string
	SchemaVersion string
	Timeout       time.Duration
}

// Client talks to the remote game-data API
type Client struct {
	http *resty.Client
	key  bool
}

// APIError is a non-success response from the remote API
type APIError struct {
	StatusCode int    `json:"-"`
	Text       string `json:"text"`
}

func (e *APIError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("gw2 api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gw2 api: %s (status %d)", e.Text, e.StatusCode)
}

// IsRateLimited reports whether the remote throttled the call
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports whether the api key was missing or rejected
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// NewClient creates a new API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = DefaultSchemaVersion
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-Schema-Version", cfg.SchemaVersion)
	if cfg.Lang != "" {
		rc.SetQueryParam("lang", cfg.Lang)
	}
	if cfg.APIKey != "" {
		rc.SetAuthToken(cfg.APIKey)
	}

	return &Client{http: rc, key: cfg.APIKey != ""}
}

// HasKey reports whether account endpoints can be called
func (c *Client) HasKey() bool {
	return c.key
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Text == "" {
			apiErr.Text = strings.TrimSpace(string(resp.Body()))
		}
		return nil, apiErr
	}
	return resp.Body(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out interface{}) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListIDs returns every id the remote knows for a resource type, in remote order
func (c *Client) ListIDs(ctx context.Context, rt catalog.ResourceType) ([]catalog.ResourceID, error) {
	if !rt.IsValid() {
		return nil, fmt.Errorf("unknown resource type: %s", rt)
	}
	var ids []catalog.ResourceID
	if err := c.getJSON(ctx, rt.Endpoint(), nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// FetchByIDs fetches the records for ids in one call and returns the raw JSON array.
// Callers are responsible for keeping len(ids) under the remote ceiling.
func (c *Client) FetchByIDs(ctx context.Context, rt catalog.ResourceType, ids []catalog.ResourceID) ([]byte, error) {
	if !rt.IsValid() {
		return nil, fmt.Errorf("unknown resource type: %s", rt)
	}
	return c.get(ctx, rt.Endpoint(), map[string]string{"ids": JoinIDs(ids)})
}

// JoinIDs renders ids as the comma separated list the bulk endpoints expect
func JoinIDs(ids []catalog.ResourceID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return b.String()
}

// AccountInfo is the subset of /v2/account used for labelling snapshots
type AccountInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	World int    `json:"world"`
}

// Account returns basic account information
func (c *Client) Account(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.getJSON(ctx, "/v2/account", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Characters returns every character with bags and equipment
func (c *Client) Characters(ctx context.Context) ([]account.Character, error) {
	var chars []account.Character
	if err := c.getJSON(ctx, "/v2/characters", map[string]string{"ids": "all"}, &chars); err != nil {
		return nil, err
	}
	return chars, nil
}

// Bank returns the account bank; empty slots are nil
func (c *Client) Bank(ctx context.Context) ([]*account.Slot, error) {
	var slots []*account.Slot
	if err := c.getJSON(ctx, "/v2/account/bank", nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// SharedInventory returns the shared inventory slots; empty slots are nil
func (c *Client) SharedInventory(ctx context.Context) ([]*account.Slot, error) {
	var slots []*account.Slot
	if err := c.getJSON(ctx, "/v2/account/inventory", nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// Materials returns material storage
func (c *Client) Materials(ctx context.Context) ([]account.MaterialStack, error) {
	var mats []account.MaterialStack
	if err := c.getJSON(ctx, "/v2/account/materials", nil, &mats); err != nil {
		return nil, err
	}
	return mats, nil
}

// AccountRecipes returns the ids of unlocked recipes
func (c *Client) AccountRecipes(ctx context.Context) ([]catalog.ResourceID, error) {
	var ids []catalog.ResourceID
	if err := c.getJSON(ctx, "/v2/account/recipes", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
