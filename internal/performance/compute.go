package performance

import (
	"math"
	"sort"

	"kinkong/internal/domain"
)

// computeFromSignals calculates all scalar metrics from a slice of closed
// signals. Signals are sorted by CreatedAt ASC, ID ASC before computing
// order-dependent metrics (MaxDrawdown). An empty slice produces zeroed
// metrics; ratios with a zero denominator are +Inf.
func computeFromSignals(signals []*domain.Signal) *domain.PerformanceReport {
	n := len(signals)
	r := &domain.PerformanceReport{}
	if n == 0 {
		return r
	}

	sorted := make([]*domain.Signal, n)
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	// Returns in chronological order for order-dependent metrics.
	returns := make([]float64, n)
	for i, s := range sorted {
		returns[i] = *s.ActualReturn
	}

	wins := 0
	sumWins := 0.0
	sumLosses := 0.0
	for _, ret := range returns {
		if ret > 0 {
			wins++
			sumWins += ret
		} else {
			sumLosses += ret
		}
	}
	losses := n - wins

	sortedReturns := make([]float64, n)
	copy(sortedReturns, returns)
	sort.Float64s(sortedReturns)

	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)

	r.TotalSignals = n
	r.Wins = wins
	r.Losses = losses
	r.SuccessRate = float64(wins) / float64(n)
	r.MeanReturn = mean
	r.MedianReturn = computePercentile(sortedReturns, 0.50)
	r.StddevReturn = stddev
	r.SharpeRatio = ratioOrInf(mean, stddev)
	r.WinLossRatio = winLossRatio(sumWins, sumLosses, wins, losses)
	r.ProfitFactor = ratioOrInf(sumWins, math.Abs(sumLosses))
	r.MaxDrawdown = computeMaxDrawdown(returns)
	return r
}

// ratioOrInf divides num by denom, reporting +Inf for a zero denominator
// with a non-zero numerator and 0 when both are zero.
func ratioOrInf(num, denom float64) float64 {
	if denom == 0 {
		if num == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return num / denom
}

// winLossRatio is mean win divided by the magnitude of the mean loss.
func winLossRatio(sumWins, sumLosses float64, wins, losses int) float64 {
	if wins == 0 {
		return 0
	}
	meanWin := sumWins / float64(wins)
	if losses == 0 {
		return math.Inf(1)
	}
	meanLoss := math.Abs(sumLosses / float64(losses))
	return ratioOrInf(meanWin, meanLoss)
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation. sorted must be pre-sorted
// ascending; p is the percentile as a fraction (0.50 = median).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates the worst peak-to-trough distance on the
// cumulative-return curve. Returns must be in chronological order.
func computeMaxDrawdown(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, ret := range returns {
		cumulative += ret
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeBreakdown groups signals by the key function and produces one
// row per group with at least minSamples members, ordered by group name.
func computeBreakdown(signals []*domain.Signal, minSamples int, key func(*domain.Signal) string) []domain.PerformanceBreakdown {
	groups := make(map[string][]*domain.Signal)
	for _, s := range signals {
		k := key(s)
		groups[k] = append(groups[k], s)
	}

	names := make([]string, 0, len(groups))
	for name, members := range groups {
		if len(members) >= minSamples {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	rows := make([]domain.PerformanceBreakdown, 0, len(names))
	for _, name := range names {
		members := groups[name]
		wins := 0
		sum := 0.0
		for _, s := range members {
			ret := *s.ActualReturn
			sum += ret
			if ret > 0 {
				wins++
			}
		}
		rows = append(rows, domain.PerformanceBreakdown{
			Group:       name,
			Count:       len(members),
			SuccessRate: float64(wins) / float64(len(members)),
			MeanReturn:  sum / float64(len(members)),
		})
	}
	return rows
}

// confidenceBucket maps a 0..1 confidence to a coarse label.
func confidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "HIGH"
	case confidence >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
