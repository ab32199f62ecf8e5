package domain

// Token is a tracked token record. Corresponds to the tokens table.
type Token struct {
	Mint     string // Solana mint address, primary key
	Symbol   string
	Name     string
	Decimals int
	Active   bool // inactive tokens are skipped by backfill and monitoring
}
