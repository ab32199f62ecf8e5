package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const testMint = "DEZ6fxF9DXmwqWAuqrg2fGCSNRKRrJYnqabzPeHHbonk"

func TestBirdeye_CurrentPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/defi/price" {
			t.Errorf("expected path /defi/price, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != testMint {
			t.Errorf("expected address %s, got %s", testMint, got)
		}
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("expected X-API-KEY test-key, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"value":1.23,"updateUnixTime":1700000000,"liquidity":50000},"success":true}`))
	}))
	defer server.Close()

	client := NewBirdeye("test-key",
		WithBirdeyeBaseURL(server.URL),
		WithBirdeyeRateLimit(1000, 10),
	)

	snap, err := client.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}

	if snap.Price != 1.23 {
		t.Errorf("expected price 1.23, got %f", snap.Price)
	}
	if snap.TimestampMs != 1700000000000 {
		t.Errorf("expected timestamp 1700000000000, got %d", snap.TimestampMs)
	}
	if snap.Liquidity != 50000 {
		t.Errorf("expected liquidity 50000, got %f", snap.Liquidity)
	}
}

func TestBirdeye_CurrentPriceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":null,"success":false}`))
	}))
	defer server.Close()

	client := NewBirdeye("test-key",
		WithBirdeyeBaseURL(server.URL),
		WithBirdeyeRateLimit(1000, 10),
	)

	_, err := client.CurrentPrice(context.Background(), testMint)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestBirdeye_PriceHistoryOrdered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/defi/ohlcv" {
			t.Errorf("expected path /defi/ohlcv, got %s", r.URL.Path)
		}

		// Candles out of order, client must sort.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[
			{"unixTime":1700003600,"c":1.05},
			{"unixTime":1700000000,"c":1.00},
			{"unixTime":1700007200,"c":1.12}
		]},"success":true}`))
	}))
	defer server.Close()

	client := NewBirdeye("test-key",
		WithBirdeyeBaseURL(server.URL),
		WithBirdeyeRateLimit(1000, 10),
	)

	from := time.Unix(1700000000, 0)
	to := time.Unix(1700007200, 0)
	points, err := client.PriceHistory(context.Background(), testMint, from, to)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].TimestampMs < points[i-1].TimestampMs {
			t.Errorf("points not sorted at index %d", i)
		}
	}
	if points[0].Price != 1.00 || points[2].Price != 1.12 {
		t.Errorf("unexpected prices: %+v", points)
	}
}

func TestBirdeye_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"value":2.5,"updateUnixTime":1700000000},"success":true}`))
	}))
	defer server.Close()

	client := NewBirdeye("test-key",
		WithBirdeyeBaseURL(server.URL),
		WithBirdeyeRateLimit(1000, 10),
		WithBirdeyeMaxRetries(3),
		WithBirdeyeRetryDelay(time.Millisecond),
	)

	snap, err := client.CurrentPrice(context.Background(), testMint)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if snap.Price != 2.5 {
		t.Errorf("expected price 2.5, got %f", snap.Price)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestBirdeye_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewBirdeye("test-key",
		WithBirdeyeBaseURL(server.URL),
		WithBirdeyeRateLimit(1000, 10),
		WithBirdeyeMaxRetries(2),
		WithBirdeyeRetryDelay(time.Millisecond),
	)

	_, err := client.CurrentPrice(context.Background(), testMint)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}
