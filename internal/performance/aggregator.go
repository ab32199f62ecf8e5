// Package performance batch-computes descriptive statistics over closed
// signals.
package performance

import (
	"context"
	"time"

	"kinkong/internal/domain"
	"kinkong/internal/query"
	"kinkong/internal/storage"
)

// Aggregator computes performance reports from the signal store.
type Aggregator struct {
	signals storage.SignalStore
	now     func() time.Time
}

// NewAggregator creates a new performance aggregator.
func NewAggregator(signals storage.SignalStore) *Aggregator {
	return &Aggregator{
		signals: signals,
		now:     time.Now,
	}
}

// ComputeReport builds a report over closed signals created within the
// last windowDays days. An empty window yields a zeroed report, never an
// error.
func (a *Aggregator) ComputeReport(ctx context.Context, windowDays int) (*domain.PerformanceReport, error) {
	now := a.now().UTC()

	pred := query.And{
		query.Closed(),
		query.CreatedAfter{T: now.AddDate(0, 0, -windowDays)},
	}
	closed, err := a.signals.Select(ctx, pred)
	if err != nil {
		return nil, err
	}

	report := computeFromSignals(closed)
	report.WindowDays = windowDays
	report.GeneratedAt = now

	report.ByTimeframe = computeBreakdown(closed, 1, func(s *domain.Signal) string {
		return s.Timeframe
	})
	report.ByConfidence = computeBreakdown(closed, 1, func(s *domain.Signal) string {
		return confidenceBucket(s.Confidence)
	})
	// Token rows need a minimum sample size before they are reported.
	report.ByToken = computeBreakdown(closed, domain.MinTokenSamples, func(s *domain.Signal) string {
		return s.Token
	})

	return report, nil
}
