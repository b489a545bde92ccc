// Package price is the read-through client for the public ETH price index.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	apiKeyHeader   = "x-cg-demo-api-key"
)

// Client reads the current ETH/USD price from coingecko.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{baseURL: defaultBaseURL, apiKey: apiKey, http: &http.Client{Timeout: 10 * time.Second}}
}

// NewClientWithBaseURL is used by tests to point at a fake index.
func NewClientWithBaseURL(baseURL, apiKey string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type coinResponse struct {
	MarketData struct {
		CurrentPrice struct {
			USD float64 `json:"usd"`
		} `json:"current_price"`
	} `json:"market_data"`
}

// ETHUSD returns the current price of ETH in dollars.
func (c *Client) ETHUSD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coins/ethereum", nil)
	if err != nil {
		return 0, fmt.Errorf("price: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price: status %d", resp.StatusCode)
	}

	var body coinResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("price: decode: %w", err)
	}
	usd := body.MarketData.CurrentPrice.USD
	if usd <= 0 {
		return 0, fmt.Errorf("price: missing market data")
	}

	log.WithField("usd", usd).Debug("fetched ETH price")
	return usd, nil
}
