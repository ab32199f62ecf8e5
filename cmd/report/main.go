// Package main generates a performance report over closed signals.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"kinkong/internal/performance"
	pgstore "kinkong/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	windowDays := flag.Int("window-days", 30, "Lookback window in days")
	format := flag.String("format", "markdown", "Output format: markdown or csv")
	output := flag.String("output", "", "Output file path (default stdout)")

	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if *format != "markdown" && *format != "csv" {
		logger.Fatalf("Unknown format %q, expected markdown or csv", *format)
	}
	if *windowDays <= 0 {
		logger.Fatal("--window-days must be positive")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	aggregator := performance.NewAggregator(pgstore.NewSignalStore(pool))
	report, err := aggregator.ComputeReport(ctx, *windowDays)
	if err != nil {
		logger.Fatalf("Failed to compute report: %v", err)
	}

	var rendered string
	if *format == "csv" {
		rendered = performance.RenderCSV(report)
	} else {
		rendered = performance.RenderMarkdown(report)
	}

	if *output == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*output, []byte(rendered), 0644); err != nil {
		logger.Fatalf("Failed to write %s: %v", *output, err)
	}
	logger.Printf("Report written to %s (%d closed signals)", *output, report.TotalSignals)
}
