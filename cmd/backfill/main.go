// Package main backfills hourly price history for tracked tokens into
// the ClickHouse snapshot table. With --ws-endpoint it then follows
// live price pushes and keeps appending until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kinkong/internal/domain"
	"kinkong/internal/marketdata"
	chstore "kinkong/internal/storage/clickhouse"
	"kinkong/internal/storage/migrations"
	pgstore "kinkong/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	birdeyeKey := flag.String("birdeye-api-key", os.Getenv("BIRDEYE_API_KEY"), "Birdeye API key")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("PRICE_WS_ENDPOINT"), "WebSocket endpoint for live follow mode (optional)")
	lookback := flag.Duration("lookback", 7*24*time.Hour, "History window to backfill")

	flag.Parse()

	logger := log.New(os.Stdout, "[backfill] ", log.LstdFlags)

	if *postgresDSN == "" || *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required")
	}
	if *birdeyeKey == "" {
		logger.Fatal("--birdeye-api-key is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to prepare clickhouse: %v", err)
	}
	defer conn.Close()

	tokens, err := pgstore.NewTokenStore(pool).ListActive(ctx)
	if err != nil {
		logger.Fatalf("Failed to list active tokens: %v", err)
	}
	if len(tokens) == 0 {
		logger.Println("No active tokens, nothing to backfill")
		return
	}

	snapshots := chstore.NewTokenSnapshotStore(conn)
	source := marketdata.NewBirdeye(*birdeyeKey)

	to := time.Now()
	from := to.Add(-*lookback)
	total := 0

	for _, tok := range tokens {
		points, err := source.PriceHistory(ctx, tok.Mint, from, to)
		if err != nil {
			logger.Printf("Skipping %s: %v", tok.Symbol, err)
			continue
		}
		if len(points) == 0 {
			logger.Printf("Skipping %s: no history", tok.Symbol)
			continue
		}

		snaps := make([]*domain.TokenSnapshot, 0, len(points))
		for _, p := range points {
			snaps = append(snaps, &domain.TokenSnapshot{
				Mint:        tok.Mint,
				TimestampMs: p.TimestampMs,
				Price:       p.Price,
			})
		}
		if err := snapshots.InsertBulk(ctx, snaps); err != nil {
			logger.Fatalf("Failed to insert snapshots for %s: %v", tok.Symbol, err)
		}

		logger.Printf("Backfilled %s: %d samples", tok.Symbol, len(snaps))
		total += len(snaps)
	}

	logger.Printf("Done: %d samples across %d tokens", total, len(tokens))

	if *wsEndpoint != "" {
		if err := follow(ctx, logger, *wsEndpoint, tokens, snapshots); err != nil {
			logger.Fatalf("Live follow failed: %v", err)
		}
	}
}

// follow subscribes to live price pushes for the tracked tokens and
// appends each update to the snapshot table until interrupted.
func follow(ctx context.Context, logger *log.Logger, endpoint string, tokens []*domain.Token, snapshots *chstore.TokenSnapshotStore) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	stream, err := marketdata.NewPriceStream(ctx, endpoint, logger, nil)
	if err != nil {
		return fmt.Errorf("connect price stream: %w", err)
	}
	defer stream.Close()

	for _, tok := range tokens {
		if err := stream.Subscribe(tok.Mint); err != nil {
			return fmt.Errorf("subscribe %s: %w", tok.Symbol, err)
		}
	}

	logger.Printf("Following live prices for %d tokens, Ctrl-C to stop", len(tokens))
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-stream.Updates():
			if !ok {
				return nil
			}
			if err := snapshots.InsertBulk(ctx, []*domain.TokenSnapshot{&snap}); err != nil {
				logger.Printf("Insert live snapshot for %s: %v", snap.Mint, err)
			}
		}
	}
}
