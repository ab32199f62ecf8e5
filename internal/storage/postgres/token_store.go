package postgres

import (
	"context"
	"fmt"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces a token record keyed by mint.
func (s *TokenStore) Upsert(ctx context.Context, tok *domain.Token) error {
	q := `
		INSERT INTO tokens (mint, symbol, name, decimals, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mint) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			active = EXCLUDED.active
	`

	_, err := s.pool.Exec(ctx, q, tok.Mint, tok.Symbol, tok.Name, tok.Decimals, tok.Active)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	q := `SELECT mint, symbol, name, decimals, active FROM tokens WHERE mint = $1`

	var tok domain.Token
	err := s.pool.QueryRow(ctx, q, mint).Scan(&tok.Mint, &tok.Symbol, &tok.Name, &tok.Decimals, &tok.Active)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return &tok, nil
}

// ListActive retrieves all active tokens, ordered by symbol ASC.
func (s *TokenStore) ListActive(ctx context.Context) ([]*domain.Token, error) {
	q := `SELECT mint, symbol, name, decimals, active FROM tokens WHERE active ORDER BY symbol ASC`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list active tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		var tok domain.Token
		if err := rows.Scan(&tok.Mint, &tok.Symbol, &tok.Name, &tok.Decimals, &tok.Active); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, &tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}
