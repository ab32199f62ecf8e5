package solana

import "context"

// RPCClient defines the Solana RPC surface the transfer path needs.
type RPCClient interface {
	// GetBalance retrieves the lamport balance of a wallet.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns *AccountNotFoundError if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountBalance retrieves the raw token amount and decimals
	// of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (*TokenAmount, error)

	// SimulateTransaction runs a preflight simulation of a base64-encoded
	// transaction. Returns *SimulationError on rejection.
	SimulateTransaction(ctx context.Context, txBase64 string) error

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
}

// TokenAmount is an SPL token balance in raw units.
type TokenAmount struct {
	Amount   uint64
	Decimals uint8
}
