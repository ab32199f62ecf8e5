package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kinkong/internal/domain"
)

// Fallback chains price sources in order. Each source is tried until
// one answers; ErrPriceUnavailable and transport errors both advance to
// the next source.
type Fallback struct {
	sources []PriceSource
	logger  *log.Logger
}

// NewFallback creates a Fallback over the given sources, tried in order.
func NewFallback(logger *log.Logger, sources ...PriceSource) *Fallback {
	if logger == nil {
		logger = log.Default()
	}
	return &Fallback{sources: sources, logger: logger}
}

// Compile-time interface check.
var _ PriceSource = (*Fallback)(nil)

// CurrentPrice returns the first successful snapshot.
func (f *Fallback) CurrentPrice(ctx context.Context, mint string) (*domain.TokenSnapshot, error) {
	var lastErr error
	for _, src := range f.sources {
		snap, err := src.CurrentPrice(ctx, mint)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, ErrPriceUnavailable) {
			f.logger.Printf("[marketdata] price source failed for %s: %v", mint, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrPriceUnavailable
	}
	return nil, fmt.Errorf("all price sources failed for %s: %w", mint, lastErr)
}

// PriceHistory returns the first successful series.
func (f *Fallback) PriceHistory(ctx context.Context, mint string, from, to time.Time) ([]domain.PricePoint, error) {
	var lastErr error
	for _, src := range f.sources {
		points, err := src.PriceHistory(ctx, mint, from, to)
		if err == nil {
			return points, nil
		}
		if !errors.Is(err, ErrPriceUnavailable) {
			f.logger.Printf("[marketdata] history source failed for %s: %v", mint, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrPriceUnavailable
	}
	return nil, fmt.Errorf("all history sources failed for %s: %w", mint, lastErr)
}
