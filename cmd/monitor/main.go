// Package main provides the signal monitoring daemon:
// - Lifecycle (continuous): activates, closes and expires signals
// - Outbox (continuous): delivers status-change notifications
// - HTTP: health, Prometheus metrics, SSE event stream
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kinkong/internal/lifecycle"
	"kinkong/internal/marketdata"
	"kinkong/internal/notify"
	"kinkong/internal/observability"
	"kinkong/internal/outbox"
	"kinkong/internal/storage"
	"kinkong/internal/storage/memory"
	"kinkong/internal/storage/migrations"
	pgstore "kinkong/internal/storage/postgres"
)

// stores holds the storage implementations the daemon wires together.
type stores struct {
	signals storage.SignalStore
	history storage.StatusHistoryStore
	outbox  storage.OutboxStore
}

func main() {
	// Load .env if present, system env wins.
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	birdeyeKey := flag.String("birdeye-api-key", os.Getenv("BIRDEYE_API_KEY"), "Birdeye API key")
	telegramToken := flag.String("telegram-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token (optional)")
	telegramChat := flag.String("telegram-chat-id", os.Getenv("TELEGRAM_CHAT_ID"), "Telegram chat ID")
	pollInterval := flag.Duration("poll-interval", time.Minute, "Signal poll cycle interval")
	outboxInterval := flag.Duration("outbox-interval", outbox.DefaultInterval, "Outbox drain interval")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/metrics/events")
	dryRun := flag.Bool("dry-run", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	logger := log.New(os.Stdout, "[monitor] ", log.LstdFlags|log.Lshortfile)

	if !*dryRun && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --dry-run for in-memory storage)")
	}
	if *birdeyeKey == "" {
		logger.Fatal("--birdeye-api-key is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *dryRun)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	prices := marketdata.NewFallback(logger,
		marketdata.NewBirdeye(*birdeyeKey),
		marketdata.NewDexScreener(),
		marketdata.NewCoinGecko(),
	)

	sse := notify.NewSSEBroadcaster()
	notifiers := notify.Multi{sse}
	if *telegramToken != "" {
		if *telegramChat == "" {
			logger.Fatal("--telegram-chat-id is required with --telegram-token")
		}
		notifiers = append(notifiers, notify.NewTelegram(*telegramToken, *telegramChat))
	}

	manager := lifecycle.NewManager(lifecycle.ManagerOptions{
		Signals:      st.signals,
		History:      st.history,
		Outbox:       st.outbox,
		Prices:       prices,
		Logger:       logger,
		PollInterval: *pollInterval,
	})

	dispatcher := outbox.NewDispatcher(outbox.DispatcherOptions{
		Store:    st.outbox,
		Notifier: notifiers,
		Logger:   log.New(os.Stdout, "[outbox] ", log.LstdFlags|log.Lshortfile),
		Interval: *outboxInterval,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go startHTTPServer(logger, *httpAddr, sse)

	errCh := make(chan error, 2)
	go func() {
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("lifecycle manager: %w", err)
		} else {
			errCh <- nil
		}
	}()
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("outbox dispatcher: %w", err)
		} else {
			errCh <- nil
		}
	}()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			logger.Fatalf("Monitor error: %v", err)
		}
	}

	logger.Println("Shutdown complete")
}

// createStores builds the storage layer, running migrations first.
func createStores(ctx context.Context, postgresDSN string, dryRun bool) (*stores, func(), error) {
	if dryRun {
		return &stores{
			signals: memory.NewSignalStore(),
			history: memory.NewStatusHistoryStore(),
			outbox:  memory.NewOutboxStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	return &stores{
		signals: pgstore.NewSignalStore(pool),
		history: pgstore.NewStatusHistoryStore(pool),
		outbox:  pgstore.NewOutboxStore(pool),
	}, pool.Close, nil
}

// startHTTPServer serves health, metrics and the SSE event stream.
func startHTTPServer(logger *log.Logger, addr string, sse *notify.SSEBroadcaster) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("/events", sse)

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
