package memory

import (
	"context"
	"sort"
	"sync"

	"kinkong/internal/domain"
	"kinkong/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces a token record keyed by mint.
func (s *TokenStore) Upsert(_ context.Context, tok *domain.Token) error {
	if tok == nil || tok.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tok
	s.data[tok.Mint] = &cp
	return nil
}

// GetByMint retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

// ListActive retrieves all active tokens, ordered by symbol ASC.
func (s *TokenStore) ListActive(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Token
	for _, tok := range s.data {
		if tok.Active {
			cp := *tok
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}
