package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestCoinGeckoSourceParsesQuote(t *testing.T) {
	updated := time.Now().Add(-30 * time.Second).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "nhbcoin" {
			t.Errorf("unexpected ids %q", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Errorf("unexpected vs_currencies %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nhbcoin":{"usd":0.4321,"last_updated_at":` +
			strconv.FormatInt(updated, 10) + `}}`))
	}))
	defer server.Close()

	src := NewCoinGeckoSource(server.Client(), "coingecko", server.URL, map[string]string{"NHB": "nhbcoin"})
	quote, err := src.Fetch(context.Background(), "NHB", "USD")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if quote.Rate.FloatString(4) != "0.4321" {
		t.Fatalf("unexpected rate %s", quote.Rate.FloatString(4))
	}
	if quote.Timestamp.Unix() != updated {
		t.Fatalf("unexpected timestamp %v", quote.Timestamp)
	}
	if quote.Source != "coingecko" {
		t.Fatalf("unexpected source %q", quote.Source)
	}
}

func TestCoinGeckoSourceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewCoinGeckoSource(server.Client(), "", server.URL, nil)
	if _, err := src.Fetch(context.Background(), "NHB", "USD"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCoinGeckoSourceRejectsMissingPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	src := NewCoinGeckoSource(server.Client(), "", server.URL, nil)
	if _, err := src.Fetch(context.Background(), "NHB", "USD"); err == nil {
		t.Fatal("expected error for missing asset entry")
	}
}

func TestStaticSourceValidation(t *testing.T) {
	if _, err := NewStaticSource("manual", "not-a-number"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
	if _, err := NewStaticSource("manual", "-2"); err == nil {
		t.Fatal("expected error for non-positive rate")
	}
	src, err := NewStaticSource("manual", "1.25")
	if err != nil {
		t.Fatalf("new static source: %v", err)
	}
	quote, err := src.Fetch(context.Background(), "NHB", "USD")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if quote.Rate.FloatString(2) != "1.25" {
		t.Fatalf("unexpected rate %s", quote.Rate.FloatString(2))
	}
}
