package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/papertrade/market-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*model.User
	ledger []model.Transaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %s", ErrConflict, u.Username)
		}
		if existing.Email == u.Email {
			return fmt.Errorf("%w: email %s", ErrConflict, u.Email)
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("%w: user %s", ErrConflict, u.ID)
	}

	// Store a copy to avoid external mutation.
	copy := *u
	s.users[u.ID] = &copy
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			copy := *u
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("%w: login %s", ErrNotFound, login)
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, t := range s.ledger {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) RecentTransactions(_ context.Context, userID string, limit int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	// Ledger is append-only, so walking backwards yields newest first.
	for i := len(s.ledger) - 1; i >= 0 && len(result) < limit; i-- {
		if s.ledger[i].UserID == userID {
			result = append(result, s.ledger[i])
		}
	}
	return result, nil
}

func (s *MemoryStore) NetPosition(_ context.Context, userID, ticker string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.netPositionLocked(userID, ticker), nil
}

func (s *MemoryStore) netPositionLocked(userID, ticker string) int64 {
	var net int64
	for _, t := range s.ledger {
		if t.UserID == userID && t.Ticker == ticker {
			net += t.Quantity
		}
	}
	return net
}

// Settle holds the write lock across read, decide and append, so no
// concurrent settlement can observe a stale balance or position.
func (s *MemoryStore) Settle(_ context.Context, userID, ticker string, fn SettleFunc) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	acct := Account{User: *u, Owned: s.netPositionLocked(userID, ticker)}
	tx, balance, err := fn(acct)
	if err != nil {
		return nil, err
	}

	s.ledger = append(s.ledger, *tx)
	u.WalletBalance = balance

	copy := *u
	return &copy, nil
}
