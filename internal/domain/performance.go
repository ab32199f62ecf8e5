package domain

import "time"

// PerformanceReport holds descriptive statistics over a window of closed
// signals. An empty window produces a report with zero-valued metrics;
// ratios with a zero denominator are +Inf, never NaN.
type PerformanceReport struct {
	WindowDays  int
	GeneratedAt time.Time

	// Counts
	TotalSignals int
	Wins         int
	Losses       int

	// Return distribution (percent, net of fees)
	SuccessRate  float64 // fraction with ActualReturn > 0
	MeanReturn   float64
	MedianReturn float64
	StddevReturn float64 // sample stddev, n-1 denominator

	// Risk
	SharpeRatio  float64 // mean / stddev, risk-free rate 0
	WinLossRatio float64 // mean win / |mean loss|
	ProfitFactor float64 // sum wins / |sum losses|
	MaxDrawdown  float64 // worst peak-to-trough of cumulative returns

	// Grouped breakdowns. Token rows honor a minimum sample floor.
	ByTimeframe  []PerformanceBreakdown
	ByConfidence []PerformanceBreakdown
	ByToken      []PerformanceBreakdown
}

// PerformanceBreakdown is a per-group slice of the report.
type PerformanceBreakdown struct {
	Group       string // timeframe name, confidence bucket, or token symbol
	Count       int
	SuccessRate float64
	MeanReturn  float64
}

// MinTokenSamples is the floor below which a token-level breakdown row is
// withheld from the report.
const MinTokenSamples = 3
