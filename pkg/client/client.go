package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the gw2ledger API client
type Client struct {
	baseURL string
	http    *resty.Client
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "http://localhost:8080")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
	Token      string        // Optional operator token for sync control
}

// envelope is the wrapper every API response comes in
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// NewClient creates a new gw2ledger API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New().SetTimeout(cfg.Timeout)
	}
	rc.SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    rc,
	}
}

// BaseURL returns the server the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a request and decodes the data field of the response into result
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var env envelope
	raw := resp.Body()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.IsError() {
				return &APIError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(string(raw))}
			}
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.IsError() {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
		}
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}

	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

// Records returns the record lookup service
func (c *Client) Records() *RecordService {
	return &RecordService{client: c}
}

// Ledger returns the valuation and completion service
func (c *Client) Ledger() *LedgerService {
	return &LedgerService{client: c}
}

// Sync returns the sync control service
func (c *Client) Sync() *SyncService {
	return &SyncService{client: c}
}
