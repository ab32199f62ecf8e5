package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"kinkong/internal/domain"
)

// Default CoinGecko client configuration. The free tier allows around
// 10 requests per minute.
const (
	DefaultCoinGeckoBaseURL = "https://api.coingecko.com"
	DefaultCoinGeckoTimeout = 15 * time.Second
	DefaultCoinGeckoRPS     = 0.15
)

// WrappedSOLMint is the canonical wrapped SOL mint address.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// CoinGecko serves the SOL/USD spot price only. It backs the SOL leg of
// value calculations when the DEX aggregators are down.
type CoinGecko struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// CoinGeckoOption configures CoinGecko.
type CoinGeckoOption func(*CoinGecko)

// WithCoinGeckoBaseURL overrides the API base URL.
func WithCoinGeckoBaseURL(u string) CoinGeckoOption {
	return func(c *CoinGecko) {
		c.baseURL = u
	}
}

// WithCoinGeckoHTTPClient sets a custom http.Client.
func WithCoinGeckoHTTPClient(client *http.Client) CoinGeckoOption {
	return func(c *CoinGecko) {
		c.client = client
	}
}

// NewCoinGecko creates a CoinGecko client.
func NewCoinGecko(opts ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		baseURL: DefaultCoinGeckoBaseURL,
		client:  &http.Client{Timeout: DefaultCoinGeckoTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultCoinGeckoRPS), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ PriceSource = (*CoinGecko)(nil)

// CurrentPrice returns the SOL/USD spot price. Any mint other than
// wrapped SOL is unavailable.
func (c *CoinGecko) CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error) {
	if mint != WrappedSOLMint {
		return nil, fmt.Errorf("coingecko %s: %w", mint, ErrPriceUnavailable)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/v3/simple/price?ids=solana&vs_currencies=usd"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed map[string]map[string]float64
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	price, ok := parsed["solana"]["usd"]
	if !ok {
		return nil, fmt.Errorf("coingecko solana/usd: %w", ErrPriceUnavailable)
	}

	return &domain.TokenSnapshot{
		Mint:        mint,
		TimestampMs: c.now().UnixMilli(),
		Price:       price,
	}, nil
}

// PriceHistory is not served by CoinGecko.
func (c *CoinGecko) PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error) {
	return nil, fmt.Errorf("coingecko history %s: %w", mint, ErrPriceUnavailable)
}
