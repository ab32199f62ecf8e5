package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"kinkong/internal/domain"
)

// Default Birdeye client configuration.
const (
	DefaultBirdeyeBaseURL    = "https://public-api.birdeye.so"
	DefaultBirdeyeTimeout    = 15 * time.Second
	DefaultBirdeyeMaxRetries = 3
	DefaultBirdeyeRetryDelay = 2 * time.Second
	DefaultBirdeyeRPS        = 1.0
)

// Birdeye is a PriceSource backed by the Birdeye HTTP API.
type Birdeye struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// BirdeyeOption configures Birdeye.
type BirdeyeOption func(*Birdeye)

// WithBirdeyeBaseURL overrides the API base URL.
func WithBirdeyeBaseURL(u string) BirdeyeOption {
	return func(b *Birdeye) {
		b.baseURL = u
	}
}

// WithBirdeyeHTTPClient sets a custom http.Client.
func WithBirdeyeHTTPClient(client *http.Client) BirdeyeOption {
	return func(b *Birdeye) {
		b.client = client
	}
}

// WithBirdeyeMaxRetries sets maximum retry attempts.
func WithBirdeyeMaxRetries(n int) BirdeyeOption {
	return func(b *Birdeye) {
		b.maxRetries = n
	}
}

// WithBirdeyeRetryDelay sets the base retry delay.
func WithBirdeyeRetryDelay(d time.Duration) BirdeyeOption {
	return func(b *Birdeye) {
		b.retryDelay = d
	}
}

// WithBirdeyeRateLimit sets requests per second for the token bucket.
func WithBirdeyeRateLimit(rps float64, burst int) BirdeyeOption {
	return func(b *Birdeye) {
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewBirdeye creates a Birdeye client.
func NewBirdeye(apiKey string, opts ...BirdeyeOption) *Birdeye {
	b := &Birdeye{
		baseURL:    DefaultBirdeyeBaseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: DefaultBirdeyeTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultBirdeyeRPS), 2),
		maxRetries: DefaultBirdeyeMaxRetries,
		retryDelay: DefaultBirdeyeRetryDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile-time interface check.
var _ PriceSource = (*Birdeye)(nil)

type birdeyePriceResponse struct {
	Data *struct {
		Value          float64 `json:"value"`
		UpdateUnixTime int64   `json:"updateUnixTime"`
		Liquidity      float64 `json:"liquidity"`
	} `json:"data"`
	Success bool `json:"success"`
}

// CurrentPrice fetches the latest price for a mint.
func (b *Birdeye) CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error) {
	q := url.Values{}
	q.Set("address", mint)

	var resp birdeyePriceResponse
	if err := b.get(ctx, "/defi/price", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, fmt.Errorf("birdeye price %s: %w", mint, ErrPriceUnavailable)
	}

	return &domain.TokenSnapshot{
		Mint:        mint,
		TimestampMs: resp.Data.UpdateUnixTime * 1000,
		Price:       resp.Data.Value,
		Liquidity:   resp.Data.Liquidity,
	}, nil
}

type birdeyeOHLCVResponse struct {
	Data *struct {
		Items []struct {
			UnixTime int64   `json:"unixTime"`
			Close    float64 `json:"c"`
		} `json:"items"`
	} `json:"data"`
	Success bool `json:"success"`
}

// PriceHistory fetches hourly OHLCV candles and returns their close
// prices as the series.
func (b *Birdeye) PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("address", mint)
	q.Set("type", "1H")
	q.Set("time_from", strconv.FormatInt(from.Unix(), 10))
	q.Set("time_to", strconv.FormatInt(to.Unix(), 10))

	var resp birdeyeOHLCVResponse
	if err := b.get(ctx, "/defi/ohlcv", q, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, fmt.Errorf("birdeye ohlcv %s: %w", mint, ErrPriceUnavailable)
	}

	points := make([]domain.PricePoint, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		points = append(points, domain.PricePoint{
			TimestampMs: item.UnixTime * 1000,
			Price:       item.Close,
		})
	}
	domain.SortPricePoints(points)
	return points, nil
}

// get performs a rate-limited GET with linear-backoff retries.
func (b *Birdeye) get(ctx context.Context, path string, q url.Values, result interface{}) error {
	endpoint := b.baseURL + path + "?" + q.Encode()

	return withRetries(ctx, b.maxRetries, b.retryDelay, func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-API-KEY", b.apiKey)
		req.Header.Set("x-chain", "solana")
		req.Header.Set("Accept", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	})
}
