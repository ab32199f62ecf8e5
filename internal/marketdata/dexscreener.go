package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"kinkong/internal/domain"
)

// Default DexScreener client configuration. The public API needs no key
// but allows roughly 300 requests per minute.
const (
	DefaultDexScreenerBaseURL = "https://api.dexscreener.com"
	DefaultDexScreenerTimeout = 15 * time.Second
	DefaultDexScreenerRPS     = 4.0
)

// DexScreener is a keyless PriceSource used as a fallback when Birdeye
// has no price. It serves spot prices only.
type DexScreener struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// DexScreenerOption configures DexScreener.
type DexScreenerOption func(*DexScreener)

// WithDexScreenerBaseURL overrides the API base URL.
func WithDexScreenerBaseURL(u string) DexScreenerOption {
	return func(d *DexScreener) {
		d.baseURL = u
	}
}

// WithDexScreenerHTTPClient sets a custom http.Client.
func WithDexScreenerHTTPClient(client *http.Client) DexScreenerOption {
	return func(d *DexScreener) {
		d.client = client
	}
}

// NewDexScreener creates a DexScreener client.
func NewDexScreener(opts ...DexScreenerOption) *DexScreener {
	d := &DexScreener{
		baseURL: DefaultDexScreenerBaseURL,
		client:  &http.Client{Timeout: DefaultDexScreenerTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultDexScreenerRPS), 4),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Compile-time interface check.
var _ PriceSource = (*DexScreener)(nil)

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	PriceUsd  string         `json:"priceUsd"`
	Liquidity *dexLiquidity  `json:"liquidity"`
	Volume    *dexPairVolume `json:"volume"`
}

type dexLiquidity struct {
	Usd float64 `json:"usd"`
}

type dexPairVolume struct {
	H24 float64 `json:"h24"`
}

// CurrentPrice returns the price of the deepest pair for the mint.
func (d *DexScreener) CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := d.baseURL + "/latest/dex/tokens/" + mint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
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

	var parsed dexScreenerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Pairs) == 0 {
		return nil, fmt.Errorf("dexscreener %s: %w", mint, ErrPriceUnavailable)
	}

	// Pick the pair with the deepest liquidity.
	best := parsed.Pairs[0]
	bestLiq := best.liquidityUsd()
	for _, p := range parsed.Pairs[1:] {
		if liq := p.liquidityUsd(); liq > bestLiq {
			best = p
			bestLiq = liq
		}
	}

	price, err := strconv.ParseFloat(best.PriceUsd, 64)
	if err != nil {
		return nil, fmt.Errorf("parse priceUsd %q: %w", best.PriceUsd, err)
	}

	snap := &domain.TokenSnapshot{
		Mint:        mint,
		TimestampMs: d.now().UnixMilli(),
		Price:       price,
		Liquidity:   bestLiq,
	}
	if best.Volume != nil {
		snap.Volume24h = best.Volume.H24
	}
	return snap, nil
}

func (p dexScreenerPair) liquidityUsd() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}

// PriceHistory is not served by DexScreener.
func (d *DexScreener) PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error) {
	return nil, fmt.Errorf("dexscreener history %s: %w", mint, ErrPriceUnavailable)
}
