package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range SchemaStatements() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatements splits the embedded schema into single statements.
func SchemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id, username, email, password_hash, wallet_balance::TEXT, created_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, wallet_balance, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.WalletBalance.String(), u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1
		 ORDER BY (username = $1) DESC LIMIT 1`, login)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by login %s: %w", login, err)
	}
	return u, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, ticker, quantity, price_per_share::TEXT, type, timestamp
		 FROM transactions WHERE user_id = $1 ORDER BY timestamp, seq`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) RecentTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, ticker, quantity, price_per_share::TEXT, type, timestamp
		 FROM transactions WHERE user_id = $1
		 ORDER BY timestamp DESC, seq DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) NetPosition(ctx context.Context, userID, ticker string) (int64, error) {
	return netPosition(ctx, s.pool, userID, ticker)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func netPosition(ctx context.Context, q querier, userID, ticker string) (int64, error) {
	var net int64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)
		 FROM transactions WHERE user_id = $1 AND ticker = $2`, userID, ticker).Scan(&net)
	return net, err
}

// settleTxOptions is read committed: the user row lock taken by Settle
// orders trades per user, and a newer snapshot would otherwise fail with
// 40001 when a queued trade wakes up.
var settleTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Settle runs in a transaction holding the user row lock, so concurrent
// trades by the same user are applied one at a time. Each statement after
// the lock sees rows committed by the trade that held it before.
func (s *PostgresStore) Settle(ctx context.Context, userID, ticker string, fn SettleFunc) (*model.User, error) {
	tx, err := s.pool.BeginTx(ctx, settleTxOptions)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, fmt.Errorf("settle user %s: %w", userID, err)
	}

	owned, err := netPosition(ctx, tx, userID, ticker)
	if err != nil {
		return nil, err
	}

	entry, balance, err := fn(Account{User: *u, Owned: owned})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, ticker, quantity, price_per_share, type, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7)`,
		entry.ID, entry.UserID, entry.Ticker, entry.Quantity,
		entry.PricePerShare.String(), string(entry.Type), entry.Timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET wallet_balance = $2::NUMERIC WHERE id = $1`,
		userID, balance.String(),
	); err != nil {
		return nil, fmt.Errorf("update wallet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	u.WalletBalance = balance
	return u, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var balanceS string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &balanceS, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.WalletBalance, err = decimal.NewFromString(balanceS)
	if err != nil {
		return nil, fmt.Errorf("parse wallet balance: %w", err)
	}
	return &u, nil
}

// scanTransactions reads pgx rows into Transaction slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var priceS, typeS string

		if err := rows.Scan(&t.ID, &t.UserID, &t.Ticker, &t.Quantity,
			&priceS, &typeS, &t.Timestamp); err != nil {
			return nil, err
		}

		price, err := decimal.NewFromString(priceS)
		if err != nil {
			return nil, fmt.Errorf("parse price of transaction %s: %w", t.ID, err)
		}
		t.PricePerShare = price
		t.Type = model.Direction(typeS)

		txs = append(txs, t)
	}
	return txs, rows.Err()
}
