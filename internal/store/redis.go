package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papertrade/market-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.primary.CreateUser(ctx, u); err != nil {
		return err
	}
	s.cacheUser(ctx, u)
	return nil
}

func (s *CachedStore) Settle(ctx context.Context, userID, ticker string, fn SettleFunc) (*model.User, error) {
	u, err := s.primary.Settle(ctx, userID, ticker, fn)
	if err != nil {
		return nil, err
	}
	// Invalidate; next read will re-populate.
	if err := s.rdb.Del(ctx, userKey(userID), ledgerKey(userID)).Err(); err != nil {
		slog.Warn("cache invalidation failed", "user", userID, "err", err)
	}
	return u, nil
}

// --- Read-through (check cache first) ---

// cachedUser carries the password hash, which model.User hides from JSON.
type cachedUser struct {
	model.User
	PasswordHash string `json:"password_hash"`
}

func (s *CachedStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err == nil {
		var cu cachedUser
		if json.Unmarshal(data, &cu) == nil {
			u := cu.User
			u.PasswordHash = cu.PasswordHash
			return &u, nil
		}
	}

	// Cache miss: read from primary.
	u, err := s.primary.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, u)
	return u, nil
}

func (s *CachedStore) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, ledgerKey(userID)).Bytes()
	if err == nil {
		var txs []model.Transaction
		if json.Unmarshal(data, &txs) == nil {
			return txs, nil
		}
	}

	// Cache miss.
	txs, err := s.primary.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txs); err == nil {
		s.rdb.Set(ctx, ledgerKey(userID), data, s.ttl)
	}
	return txs, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.primary.GetUserByLogin(ctx, login)
}

func (s *CachedStore) RecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	return s.primary.RecentTransactions(ctx, userID, limit)
}

func (s *CachedStore) NetPosition(ctx context.Context, userID, ticker string) (int64, error) {
	return s.primary.NetPosition(ctx, userID, ticker)
}

// --- Cache helpers ---

func (s *CachedStore) cacheUser(ctx context.Context, u *model.User) {
	if data, err := json.Marshal(cachedUser{User: *u, PasswordHash: u.PasswordHash}); err == nil {
		s.rdb.Set(ctx, userKey(u.ID), data, s.ttl)
	}
}

func userKey(id string) string    { return fmt.Sprintf("user:%s", id) }
func ledgerKey(uid string) string { return fmt.Sprintf("ledger:%s", uid) }
