package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RecordService handles record lookups
type RecordService struct {
	client *Client
}

// Get retrieves one record. The raw JSON is returned since its shape depends on resourceType.
func (s *RecordService) Get(ctx context.Context, resourceType string, id int64) (json.RawMessage, error) {
	var rec json.RawMessage
	path := fmt.Sprintf("/api/v1/records/%s/%d", url.PathEscape(resourceType), id)
	if err := s.client.doRequest(ctx, "GET", path, nil, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List retrieves the cached subset of ids and reports the ids not cached yet
func (s *RecordService) List(ctx context.Context, resourceType string, ids []int64) (*RecordsResponse, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	query := url.Values{}
	query.Set("ids", strings.Join(parts, ","))

	var resp RecordsResponse
	path := "/api/v1/records/" + url.PathEscape(resourceType)
	if err := s.client.doRequest(ctx, "GET", path, query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Items retrieves item definitions decoded into Item
func (s *RecordService) Items(ctx context.Context, ids []int64) ([]Item, []int64, error) {
	resp, err := s.List(ctx, TypeItems, ids)
	if err != nil {
		return nil, nil, err
	}
	items := make([]Item, 0, len(resp.Records))
	for _, raw := range resp.Records {
		var it Item
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, nil, fmt.Errorf("failed to parse item: %w", err)
		}
		items = append(items, it)
	}
	return items, resp.Missing, nil
}
