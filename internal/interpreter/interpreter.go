package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"kinkong/internal/domain"
)

// Completer produces a text completion for one user turn.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, image []byte) (string, error)
}

const chartSystemPrompt = `You are a technical analyst for Solana tokens.
You are given a rendered price chart. Respond with JSON only, no prose:
{"bias":"BULLISH|BEARISH|NEUTRAL","confidence":0.0,"summary":"...","keyLevels":[...]}`

const sentimentSystemPrompt = `You classify crypto market text.
Respond with JSON only, no prose:
{"sentiment":"BULLISH|BEARISH|NEUTRAL","score":0.0,"summary":"..."}`

// Interpreter turns charts and headlines into structured readings. Any
// model or parse failure degrades to a neutral reading so the signal
// pipeline never blocks on the LLM.
type Interpreter struct {
	completer Completer
	logger    *log.Logger
}

// New creates an Interpreter.
func New(completer Completer, logger *log.Logger) *Interpreter {
	if logger == nil {
		logger = log.Default()
	}
	return &Interpreter{completer: completer, logger: logger}
}

type chartResponse struct {
	Bias       string    `json:"bias"`
	Confidence float64   `json:"confidence"`
	Summary    string    `json:"summary"`
	KeyLevels  []float64 `json:"keyLevels"`
}

// InterpretChart reads a rendered chart image for a token.
func (i *Interpreter) InterpretChart(ctx context.Context, token string, chartPNG []byte) domain.ChartInsight {
	prompt := fmt.Sprintf("Analyze this %s price chart.", token)

	text, err := i.completer.Complete(ctx, chartSystemPrompt, prompt, chartPNG)
	if err != nil {
		i.logger.Printf("[interpreter] chart analysis for %s failed, using neutral: %v", token, err)
		return neutralChartInsight()
	}

	var parsed chartResponse
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &parsed); err != nil {
		i.logger.Printf("[interpreter] chart response for %s unparseable, using neutral: %v", token, err)
		return neutralChartInsight()
	}

	insight := domain.ChartInsight{
		Bias:       normalizeBias(parsed.Bias),
		Confidence: clamp(parsed.Confidence, 0, 1),
		Summary:    parsed.Summary,
		KeyLevels:  parsed.KeyLevels,
	}
	return insight
}

type sentimentResponse struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Summary   string  `json:"summary"`
}

// InterpretSentiment classifies a batch of recent headlines.
func (i *Interpreter) InterpretSentiment(ctx context.Context, token string, headlines []string) domain.SentimentReading {
	if len(headlines) == 0 {
		return neutralSentiment()
	}

	prompt := fmt.Sprintf("Recent %s headlines:\n- %s", token, strings.Join(headlines, "\n- "))

	text, err := i.completer.Complete(ctx, sentimentSystemPrompt, prompt, nil)
	if err != nil {
		i.logger.Printf("[interpreter] sentiment for %s failed, using neutral: %v", token, err)
		return neutralSentiment()
	}

	var parsed sentimentResponse
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &parsed); err != nil {
		i.logger.Printf("[interpreter] sentiment response for %s unparseable, using neutral: %v", token, err)
		return neutralSentiment()
	}

	return domain.SentimentReading{
		Sentiment: normalizeBias(parsed.Sentiment),
		Score:     clamp(parsed.Score, -1, 1),
		Summary:   parsed.Summary,
	}
}

// stripCodeFences removes markdown code fences the model sometimes wraps
// around JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeBias(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case domain.BiasBullish:
		return domain.BiasBullish
	case domain.BiasBearish:
		return domain.BiasBearish
	default:
		return domain.BiasNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func neutralChartInsight() domain.ChartInsight {
	return domain.ChartInsight{Bias: domain.BiasNeutral, Confidence: 0}
}

func neutralSentiment() domain.SentimentReading {
	return domain.SentimentReading{Sentiment: domain.BiasNeutral, Score: 0}
}
