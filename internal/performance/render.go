package performance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"kinkong/internal/domain"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *domain.PerformanceReport) string {
	var sb strings.Builder

	sb.WriteString("# Signal Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: last %d days | Closed signals: %d\n\n", r.WindowDays, r.TotalSignals))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", r.Wins, r.Losses))
	sb.WriteString(fmt.Sprintf("| Success Rate | %.2f%% |\n", r.SuccessRate*100))
	sb.WriteString(fmt.Sprintf("| Mean Return | %.2f%% |\n", r.MeanReturn))
	sb.WriteString(fmt.Sprintf("| Median Return | %.2f%% |\n", r.MedianReturn))
	sb.WriteString(fmt.Sprintf("| Stddev | %.2f |\n", r.StddevReturn))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %s |\n", formatRatio(r.SharpeRatio)))
	sb.WriteString(fmt.Sprintf("| Win/Loss Ratio | %s |\n", formatRatio(r.WinLossRatio)))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatRatio(r.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", r.MaxDrawdown))
	sb.WriteString("\n")

	writeBreakdown(&sb, "By Timeframe", r.ByTimeframe)
	writeBreakdown(&sb, "By Confidence", r.ByConfidence)
	writeBreakdown(&sb, "By Token", r.ByToken)

	return sb.String()
}

func writeBreakdown(sb *strings.Builder, title string, rows []domain.PerformanceBreakdown) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No data.\n\n")
		return
	}
	sb.WriteString("| Group | Count | Success Rate | Mean Return |\n")
	sb.WriteString("|-------|-------|--------------|-------------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% | %.2f%% |\n",
			row.Group, row.Count, row.SuccessRate*100, row.MeanReturn))
	}
	sb.WriteString("\n")
}

// RenderCSV renders the breakdown rows of a report as a CSV string.
func RenderCSV(r *domain.PerformanceReport) string {
	var sb strings.Builder

	sb.WriteString("section,group,count,success_rate,mean_return\n")
	sb.WriteString(fmt.Sprintf("summary,all,%d,%.6f,%.6f\n", r.TotalSignals, r.SuccessRate, r.MeanReturn))
	for _, row := range r.ByTimeframe {
		writeCSVRow(&sb, "timeframe", row)
	}
	for _, row := range r.ByConfidence {
		writeCSVRow(&sb, "confidence", row)
	}
	for _, row := range r.ByToken {
		writeCSVRow(&sb, "token", row)
	}
	return sb.String()
}

func writeCSVRow(sb *strings.Builder, section string, row domain.PerformanceBreakdown) {
	sb.WriteString(fmt.Sprintf("%s,%s,%d,%.6f,%.6f\n",
		section, row.Group, row.Count, row.SuccessRate, row.MeanReturn))
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
