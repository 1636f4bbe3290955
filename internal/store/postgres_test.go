package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/model"
)

func TestSettleTxOptions_ReadCommitted(t *testing.T) {
	if settleTxOptions.IsoLevel != pgx.ReadCommitted {
		t.Errorf("expected read committed, got %q", settleTxOptions.IsoLevel)
	}
}

// fakeRows feeds scanTransactions fixed column values.
type fakeRows struct {
	rows [][]any
	i    int
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.rows[r.i-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*string) = row[1].(string)
	*dest[2].(*string) = row[2].(string)
	*dest[3].(*int64) = row[3].(int64)
	*dest[4].(*string) = row[4].(string)
	*dest[5].(*string) = row[5].(string)
	*dest[6].(*time.Time) = row[6].(time.Time)
	return nil
}

func (r *fakeRows) Err() error { return nil }

func TestScanTransactions(t *testing.T) {
	now := time.Now().UTC()
	txs, err := scanTransactions(&fakeRows{rows: [][]any{
		{"t1", "u1", "AAPL", int64(10), "175.25", "BUY", now},
		{"t2", "u1", "AAPL", int64(-4), "180", "SELL", now},
	}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if !txs[0].PricePerShare.Equal(decimal.RequireFromString("175.25")) || txs[1].Type != model.DirectionSell {
		t.Errorf("unexpected transactions %+v", txs)
	}
}

func TestScanTransactions_CorruptPrice(t *testing.T) {
	_, err := scanTransactions(&fakeRows{rows: [][]any{
		{"t1", "u1", "AAPL", int64(10), "not-a-number", "BUY", time.Now()},
	}})
	if err == nil {
		t.Fatal("expected error for unparseable price")
	}
}

// TestPostgresSettle_QueuedTradesDoNotConflict runs against a live
// database when PAPERTRADE_TEST_DATABASE_URL is set.
func TestPostgresSettle_QueuedTradesDoNotConflict(t *testing.T) {
	dsn := os.Getenv("PAPERTRADE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PAPERTRADE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := NewPostgresStore(pool)
	id := uuid.New().String()
	if err := s.CreateUser(ctx, &model.User{
		ID:            id,
		Username:      "pg-" + id,
		Email:         id + "@example.com",
		WalletBalance: d(10000),
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, id)
		pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	})

	// The first trade holds the row lock until the second is queued on it.
	entered := make(chan struct{})
	release := make(chan struct{})
	first := buy(id, "AAPL", 10, 100)
	hold := func(acct Account) (*model.Transaction, decimal.Decimal, error) {
		close(entered)
		<-release
		return first(acct)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = s.Settle(ctx, id, "AAPL", hold)
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, errs[1] = s.Settle(ctx, id, "MSFT", buy(id, "MSFT", 5, 400))
	}()
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		t.Fatalf("settle: %v", err)
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.WalletBalance.Equal(d(7000)) {
		t.Errorf("expected balance 7000, got %s", u.WalletBalance)
	}
	txs, err := s.ListTransactions(ctx, id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(txs))
	}
}
