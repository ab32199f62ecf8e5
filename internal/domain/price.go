package domain

import "sort"

// PricePoint is one sample of a token price series.
type PricePoint struct {
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // token price in USD
}

// TokenSnapshot is a periodic market-data capture for a tracked token.
// Corresponds to the token_snapshots table in ClickHouse.
type TokenSnapshot struct {
	Mint        string
	TimestampMs int64
	Price       float64
	Volume24h   float64
	Liquidity   float64
}

// SortPricePoints orders points by timestamp ascending, in place.
// Series handed to the simulator must be in this order.
func SortPricePoints(points []PricePoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})
}
