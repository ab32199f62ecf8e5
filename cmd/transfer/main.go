// Package main sends an SPL token transfer:
//
//	transfer [flags] <destination> <token> <amount>
//
// token is either a mint address or a symbol resolved against the
// tracked tokens table. Exits 0 on success, 1 on any failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"

	"kinkong/internal/solana"
	pgstore "kinkong/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	walletSecret := flag.String("wallet-secret", os.Getenv("WALLET_SECRET_KEY"), "Base58 payer secret key")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (for symbol lookup)")
	simulate := flag.Bool("simulate", true, "Simulate the transaction before sending")
	timeout := flag.Duration("timeout", 60*time.Second, "Overall operation timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[transfer] ", log.LstdFlags)

	if flag.NArg() != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <destination> <token> <amount>\n", os.Args[0])
		os.Exit(1)
	}
	destination := flag.Arg(0)
	token := flag.Arg(1)
	amount, err := strconv.ParseFloat(flag.Arg(2), 64)
	if err != nil || amount <= 0 {
		logger.Fatalf("Invalid amount %q", flag.Arg(2))
	}

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *walletSecret == "" {
		logger.Fatal("--wallet-secret is required")
	}

	payer, err := solana.NewKeypairFromBase58(*walletSecret)
	if err != nil {
		logger.Fatalf("Invalid wallet secret: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mint, err := resolveMint(ctx, token, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to resolve token %q: %v", token, err)
	}

	service := solana.NewTransferService(solana.TransferServiceOptions{
		RPC:      solana.NewHTTPClient(*rpcEndpoint),
		Logger:   logger,
		Simulate: *simulate,
	})

	signature, err := service.Transfer(ctx, payer, destination, mint, amount)
	if err != nil {
		logger.Fatalf("Transfer failed: %v", err)
	}

	fmt.Println(signature)
}

// resolveMint accepts a mint address directly, or resolves a symbol
// against the tokens table when a DSN is configured.
func resolveMint(ctx context.Context, token, postgresDSN string) (string, error) {
	if isMintAddress(token) {
		return token, nil
	}
	if postgresDSN == "" {
		return "", fmt.Errorf("%q is not a mint address and --postgres-dsn is not set", token)
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return "", fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	tokens, err := pgstore.NewTokenStore(pool).ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("list tokens: %w", err)
	}
	for _, tok := range tokens {
		if strings.EqualFold(tok.Symbol, token) {
			return tok.Mint, nil
		}
	}
	return "", fmt.Errorf("no active token with symbol %q", token)
}

// isMintAddress reports whether s decodes to a 32-byte base58 key.
func isMintAddress(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}
