package performance

import (
	"math"
	"strings"
	"testing"
	"time"

	"kinkong/internal/domain"
)

func sampleReport() *domain.PerformanceReport {
	return &domain.PerformanceReport{
		WindowDays:   30,
		GeneratedAt:  time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		TotalSignals: 10,
		Wins:         6,
		Losses:       4,
		SuccessRate:  0.6,
		MeanReturn:   2.5,
		MedianReturn: 1.8,
		StddevReturn: 4.2,
		SharpeRatio:  0.595,
		WinLossRatio: 1.4,
		ProfitFactor: 2.1,
		MaxDrawdown:  8.3,
		ByTimeframe: []domain.PerformanceBreakdown{
			{Group: "INTRADAY", Count: 7, SuccessRate: 0.571, MeanReturn: 2.1},
			{Group: "SWING", Count: 3, SuccessRate: 0.667, MeanReturn: 3.4},
		},
		ByToken: []domain.PerformanceBreakdown{
			{Group: "SOL", Count: 5, SuccessRate: 0.8, MeanReturn: 4.0},
		},
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	md := RenderMarkdown(sampleReport())

	for _, section := range []string{
		"# Signal Performance Report",
		"## Summary",
		"## By Timeframe",
		"## By Confidence",
		"## By Token",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("markdown missing section %q", section)
		}
	}
	if !strings.Contains(md, "| Success Rate | 60.00% |") {
		t.Errorf("markdown missing success rate row:\n%s", md)
	}
	if !strings.Contains(md, "| INTRADAY | 7 |") {
		t.Errorf("markdown missing timeframe row:\n%s", md)
	}
	// No confidence rows in the sample.
	if !strings.Contains(md, "No data.") {
		t.Errorf("expected empty-section placeholder:\n%s", md)
	}
}

func TestRenderMarkdown_InfiniteRatio(t *testing.T) {
	r := sampleReport()
	r.ProfitFactor = math.Inf(1)

	md := RenderMarkdown(r)
	if !strings.Contains(md, "| Profit Factor | inf |") {
		t.Errorf("expected inf sentinel rendered:\n%s", md)
	}
}

func TestRenderCSV_RowsAndHeader(t *testing.T) {
	csv := RenderCSV(sampleReport())
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "section,group,count,success_rate,mean_return" {
		t.Errorf("unexpected header %q", lines[0])
	}
	// Header + summary + 2 timeframe + 1 token.
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), csv)
	}
	if !strings.HasPrefix(lines[1], "summary,all,10,") {
		t.Errorf("unexpected summary row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "timeframe,INTRADAY,7,") {
		t.Errorf("unexpected first breakdown row %q", lines[2])
	}
	if !strings.HasPrefix(lines[4], "token,SOL,5,") {
		t.Errorf("unexpected token row %q", lines[4])
	}
}
