package marketdata

import (
	"context"
	"errors"
	"time"

	"kinkong/internal/domain"
)

// ErrPriceUnavailable indicates the source has no price for the mint.
// Fallback sources try the next provider on this error.
var ErrPriceUnavailable = errors.New("price unavailable")

// PriceSource provides current and historical token prices.
type PriceSource interface {
	// CurrentPrice returns the latest known snapshot for a mint.
	CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error)

	// PriceHistory returns price points for a mint in [from, to],
	// ordered by timestamp ascending.
	PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error)
}

// withRetries runs fn up to maxRetries+1 times with linear backoff
// (delay, 2*delay, 3*delay, ...). The last error is returned when all
// attempts fail.
func withRetries(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * delay):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
