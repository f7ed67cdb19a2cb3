package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cryptosage/pricefeed/internal/fetch"
	"github.com/cryptosage/pricefeed/internal/model"
	"github.com/cryptosage/pricefeed/internal/symbol"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.maxAttempts != 3 {
			t.Errorf("maxAttempts = %d, want %d", c.maxAttempts, 3)
		}
		if c.retryDelay != 500*time.Millisecond {
			t.Errorf("retryDelay = %v, want %v", c.retryDelay, 500*time.Millisecond)
		}
		if c.attemptTimeout != 15*time.Second {
			t.Errorf("attemptTimeout = %v, want %v", c.attemptTimeout, 15*time.Second)
		}
		if c.fetcher == nil {
			t.Error("fetcher should not be nil")
		}
	})

	t.Run("with retries option", func(t *testing.T) {
		c := NewClient("https://api.example.com", "", WithRetries(5, 2*time.Second))
		if c.fetcher.MaxAttempts() != 5 {
			t.Errorf("MaxAttempts() = %d, want %d", c.fetcher.MaxAttempts(), 5)
		}
		if c.retryDelay != 2*time.Second {
			t.Errorf("retryDelay = %v, want %v", c.retryDelay, 2*time.Second)
		}
	})

	t.Run("with logger option", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://api.example.com", "", WithLogger(logger))
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

func TestSimplePrice_Request(t *testing.T) {
	var gotPath, gotIDs, gotVs, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		gotVs = r.URL.Query().Get("vs_currencies")
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":65000.5}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "demo-key")
	resp, err := c.SimplePrice(context.Background(), []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("SimplePrice failed: %v", err)
	}

	if gotPath != "/simple/price" {
		t.Errorf("path = %q, want /simple/price", gotPath)
	}
	if gotIDs != "bitcoin,ethereum" {
		t.Errorf("ids = %q, want %q", gotIDs, "bitcoin,ethereum")
	}
	if gotVs != "usd" {
		t.Errorf("vs_currencies = %q, want usd", gotVs)
	}
	if gotKey != "demo-key" {
		t.Errorf("api key header = %q, want demo-key", gotKey)
	}
	if _, ok := resp["bitcoin"]; !ok {
		t.Errorf("response missing bitcoin: %v", resp)
	}
}

func TestFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":65000.5}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	prices, err := c.FetchPrices(context.Background(), []model.Symbol{"btc"}, symbol.NewCoinGecko())
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}

	if len(prices) != 1 || prices["btc"] != 65000.5 {
		t.Errorf("prices = %v, want map[btc:65000.5]", prices)
	}
}

func TestFetchPrices_DecodeErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`["not", "an", "object"]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	_, err := c.FetchPrices(context.Background(), []model.Symbol{"btc"}, symbol.NewCoinGecko())

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Error("errors.Is(err, ErrDecode) = false")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestFetchPrices_ServerErrorExhausts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	_, err := c.FetchPrices(context.Background(), []model.Symbol{"btc"}, symbol.NewCoinGecko())

	var fetchErr *fetch.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *fetch.FetchError", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("hits = %d, want 3", got)
	}
}

func TestDecodePrices(t *testing.T) {
	coingecko := symbol.NewCoinGecko()

	tests := []struct {
		name    string
		body    SimplePriceResponse
		symbols []model.Symbol
		want    model.Prices
	}{
		{
			name:    "single mapped symbol",
			body:    SimplePriceResponse{"bitcoin": []byte(`{"usd": 65000.5}`)},
			symbols: []model.Symbol{"btc"},
			want:    model.Prices{"btc": 65000.5},
		},
		{
			name: "malformed entry dropped",
			body: SimplePriceResponse{
				"bitcoin":  []byte(`{}`),
				"ethereum": []byte(`{"usd": 3000}`),
			},
			symbols: []model.Symbol{"btc", "eth"},
			want:    model.Prices{"eth": 3000},
		},
		{
			name: "non-numeric usd dropped",
			body: SimplePriceResponse{
				"bitcoin": []byte(`{"usd": "n/a"}`),
				"solana":  []byte(`{"usd": 150.25, "eur": 140}`),
			},
			symbols: []model.Symbol{"btc", "sol"},
			want:    model.Prices{"sol": 150.25},
		},
		{
			name:    "negative price dropped",
			body:    SimplePriceResponse{"bitcoin": []byte(`{"usd": -1}`)},
			symbols: []model.Symbol{"btc"},
			want:    model.Prices{},
		},
		{
			name:    "unrequested id falls back to id",
			body:    SimplePriceResponse{"dogecoin": []byte(`{"usd": 0.12}`)},
			symbols: []model.Symbol{"btc"},
			want:    model.Prices{"dogecoin": 0.12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePrices(tt.body, tt.symbols, coingecko)
			if len(got) != len(tt.want) {
				t.Fatalf("DecodePrices() = %v, want %v", got, tt.want)
			}
			for sym, want := range tt.want {
				if v, ok := got[sym]; !ok || v != want {
					t.Errorf("DecodePrices()[%q] = %v, want %v", sym, v, want)
				}
			}
		})
	}
}
