package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestETHUSD(t *testing.T) {
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"market_data":{"current_price":{"usd":2731.42}}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "cg-key")
	usd, err := c.ETHUSD(context.Background())
	if err != nil {
		t.Fatalf("ethusd: %v", err)
	}
	if usd != 2731.42 {
		t.Fatalf("expected 2731.42, got %v", usd)
	}
	if gotKey != "cg-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotPath != "/coins/ethereum" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestETHUSD_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "")
	if _, err := c.ETHUSD(context.Background()); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestETHUSD_MissingMarketData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, "")
	if _, err := c.ETHUSD(context.Background()); err == nil {
		t.Fatal("expected error on empty payload")
	}
}
