package solana

import "fmt"

// ConnectionError indicates the RPC endpoint could not be reached after
// all retries.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("solana rpc %s unreachable: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// AccountNotFoundError indicates a required account does not exist on
// chain, typically an unfunded associated token account.
type AccountNotFoundError struct {
	Address string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.Address)
}

// SimulationError indicates preflight simulation rejected the
// transaction. Logs carry the program output for diagnosis.
type SimulationError struct {
	Reason string
	Logs   []string
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("transaction simulation failed: %s", e.Reason)
}
