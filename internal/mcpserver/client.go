package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config holds the configuration for connecting to the SchoolGrid platform.
type Config struct {
	APIURL         string // Base URL, e.g. "http://localhost:8080"
	SchoolID       string // School the assistant acts for, e.g. "sch_..."
	OperatorSecret string // Optional; grants operator access when set
}

// SchoolgridClient is a pure HTTP client for the SchoolGrid platform API.
type SchoolgridClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewSchoolgridClient creates a new client for the SchoolGrid platform.
func NewSchoolgridClient(cfg Config) *SchoolgridClient {
	return &SchoolgridClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
func (c *SchoolgridClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Operator credentials outrank the per-school identity when present.
	if c.cfg.OperatorSecret != "" {
		req.Header.Set("X-Identity-Role", "SUPER_ADMIN")
		req.Header.Set("X-Operator-Secret", c.cfg.OperatorSecret)
	} else {
		req.Header.Set("X-Identity-Role", "SCHOOL_ADMIN")
	}
	if c.cfg.SchoolID != "" {
		req.Header.Set("X-Identity-School", c.cfg.SchoolID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ListPlans returns the plan catalog.
func (c *SchoolgridClient) ListPlans(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/plans", nil, nil)
}

// GetSubscription returns the school's subscription record.
func (c *SchoolgridClient) GetSubscription(ctx context.Context, schoolID string) (json.RawMessage, error) {
	path := "/v1/schools/" + schoolID + "/subscription"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// GetEntitlements returns the school's effective limits.
func (c *SchoolgridClient) GetEntitlements(ctx context.Context, schoolID string) (json.RawMessage, error) {
	path := "/v1/schools/" + schoolID + "/entitlements"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// GetUsage returns live usage counts next to effective limits.
func (c *SchoolgridClient) GetUsage(ctx context.Context, schoolID string) (json.RawMessage, error) {
	path := "/v1/schools/" + schoolID + "/usage"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// CheckCapacity asks the enforcement engine whether the school could add
// qty more units of a resource. The check does not consume capacity.
func (c *SchoolgridClient) CheckCapacity(ctx context.Context, schoolID, resource string, qty uint64) (json.RawMessage, error) {
	path := "/v1/schools/" + schoolID + "/entitlements/authorize"
	body := map[string]any{
		"resource": resource,
		"qty":      qty,
	}
	return c.doRequest(ctx, http.MethodPost, path, nil, body)
}
