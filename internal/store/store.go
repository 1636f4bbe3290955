// Package store defines the ledger persistence interface for the paper
// trading engine. Implementations include PostgreSQL (source of truth),
// Redis (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/model"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("store: already exists")
)

// Account is the state a settlement decision is made against: the user's
// current wallet and net shares owned in the traded ticker.
type Account struct {
	User  model.User
	Owned int64
}

// SettleFunc decides a settlement against a locked account. It returns
// the transaction to append and the new wallet balance, or an error to
// abort with nothing written.
type SettleFunc func(acct Account) (*model.Transaction, decimal.Decimal, error)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Users ---

	// CreateUser persists a new user. Returns ErrConflict when the
	// username or email is taken.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// GetUserByLogin retrieves a user by username or email.
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*model.User, error)

	// --- Immutable ledger ---

	// ListTransactions returns all of a user's transactions, oldest first.
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)

	// RecentTransactions returns up to limit transactions, newest first.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)

	// NetPosition sums the signed quantities of a user's trades in ticker.
	NetPosition(ctx context.Context, userID, ticker string) (int64, error)

	// Settle locks the user, loads the account for ticker, and applies
	// the decision of fn: appending the transaction and writing the new
	// balance together. Either both are visible afterwards or neither is.
	Settle(ctx context.Context, userID, ticker string, fn SettleFunc) (*model.User, error)
}
