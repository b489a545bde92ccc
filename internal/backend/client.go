// Package backend is the stateless client for the remote segugio trading
// backend. Every call returns a tagged Result; transport failures and non-ok
// statuses are both folded into it so nothing escapes the boundary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	apiKeyHeader = "x-api-key"

	defaultTimeout = 10 * time.Second
)

// Endpoints of the backend contract, all POST under /segugio.
const (
	EndpointCreate   = "create"
	EndpointSwap     = "swap"
	EndpointWithdraw = "withdraw"
	EndpointStats    = "stats"
)

// Data is the payload half of the backend envelope.
type Data struct {
	Message string `json:"message"`
	GroupID string `json:"groupId,omitempty"`
}

// Result is the normalized backend response. Err carries the internal cause
// for logging; it is never rendered to the end user.
type Result struct {
	Status string `json:"status"`
	Data   Data   `json:"data"`
	Err    error  `json:"-"`
}

// OK reports whether the backend accepted the operation.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Create submits a new copy-trade follow.
func (c *Client) Create(ctx context.Context, payload any) Result {
	return c.post(ctx, EndpointCreate, payload, true)
}

// Swap sells an amount of tokenOut for tokenIn on a followed position.
func (c *Client) Swap(ctx context.Context, payload any) Result {
	return c.post(ctx, EndpointSwap, payload, true)
}

// Withdraw pulls funds out of a segugio.
func (c *Client) Withdraw(ctx context.Context, payload any) Result {
	return c.post(ctx, EndpointWithdraw, payload, true)
}

// Stats fetches the owner's segugio statistics. The stats endpoint is the one
// backend route that takes no api key.
func (c *Client) Stats(ctx context.Context, payload any) Result {
	return c.post(ctx, EndpointStats, payload, false)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, withKey bool) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(endpoint, fmt.Errorf("marshal payload: %w", err))
	}

	url := fmt.Sprintf("%s/segugio/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failure(endpoint, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return failure(endpoint, fmt.Errorf("post %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(endpoint, fmt.Errorf("post %s: status %d", url, resp.StatusCode))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(endpoint, fmt.Errorf("decode %s response: %w", url, err))
	}
	if result.Status == "" {
		result.Status = StatusError
	}
	return result
}

func failure(endpoint string, err error) Result {
	log.WithError(err).WithField("endpoint", endpoint).Error("backend call failed")
	return Result{Status: StatusError, Err: err}
}
