package domain

// ChartInsight is the model's reading of a rendered chart image.
type ChartInsight struct {
	Bias       string  // BULLISH | BEARISH | NEUTRAL
	Confidence float64 // 0..1
	Summary    string
	KeyLevels  []float64
}

// SentimentReading is the model's classification of recent market text.
type SentimentReading struct {
	Sentiment string  // BULLISH | BEARISH | NEUTRAL
	Score     float64 // -1..1
	Summary   string
}

// Sentiment bias constants shared by chart and text analysis.
const (
	BiasBullish = "BULLISH"
	BiasBearish = "BEARISH"
	BiasNeutral = "NEUTRAL"
)
