package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/healthstore"
)

// HTTPClient implements DataSource by calling the HealthBridge REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but data
// lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, bridge.ErrNoSampleFound
	default:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	return c.do(req, path)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *HTTPClient) IsAvailable(ctx context.Context) (bool, error) {
	body, err := c.get(ctx, "/api/v1/availability", nil)
	if err != nil {
		return false, err
	}

	var resp struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("httpclient: decode availability: %w", err)
	}
	return resp.Available, nil
}

func (c *HTTPClient) LatestSample(ctx context.Context, dt bridge.DataType) (*bridge.LatestSampleResult, error) {
	params := url.Values{}
	params.Set("dataType", string(dt))

	body, err := c.get(ctx, "/api/v1/samples/latest", params)
	if err != nil {
		return nil, err
	}

	var sample bridge.LatestSampleResult
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, fmt.Errorf("httpclient: decode latest sample: %w", err)
	}
	return &sample, nil
}

func (c *HTTPClient) QueryAggregated(ctx context.Context, start, end time.Time, dt bridge.DataType, bucket bridge.Bucket) ([]bridge.AggregatedSample, error) {
	body, err := c.post(ctx, "/api/v1/aggregated", map[string]string{
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
		"dataType":  string(dt),
		"bucket":    string(bucket),
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		AggregatedData []bridge.AggregatedSample `json:"aggregatedData"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode aggregated: %w", err)
	}
	return resp.AggregatedData, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, req bridge.WorkoutsRequest) (*bridge.WorkoutsResult, error) {
	body, err := c.post(ctx, "/api/v1/workouts/query", map[string]any{
		"startDate":        req.Start.Format(time.RFC3339),
		"endDate":          req.End.Format(time.RFC3339),
		"includeHeartRate": req.IncludeHeartRate,
		"includeRoute":     req.IncludeRoute,
		"includeSteps":     req.IncludeSteps,
	})
	if err != nil {
		return nil, err
	}

	var result bridge.WorkoutsResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) CheckPermissions(ctx context.Context, perms []bridge.Permission) (map[bridge.Permission]healthstore.AuthorizationState, error) {
	body, err := c.post(ctx, "/api/v1/permissions/check", map[string]any{
		"permissions": perms,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Permissions map[bridge.Permission]healthstore.AuthorizationState `json:"permissions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("httpclient: decode permissions: %w", err)
	}
	return resp.Permissions, nil
}
