package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func seedUser(t *testing.T, s *MemoryStore, id, username string, balance float64) {
	t.Helper()
	err := s.CreateUser(context.Background(), &model.User{
		ID:            id,
		Username:      username,
		Email:         username + "@example.com",
		WalletBalance: d(balance),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// buy returns a SettleFunc recording a trade of qty at price.
func buy(userID, ticker string, qty int64, price float64) SettleFunc {
	return func(acct Account) (*model.Transaction, decimal.Decimal, error) {
		dir, _ := model.DirectionOf(qty)
		cost := d(price).Mul(decimal.NewFromInt(qty))
		return &model.Transaction{
			ID:            userID + "-" + time.Now().String(),
			UserID:        userID,
			Ticker:        ticker,
			Quantity:      qty,
			PricePerShare: d(price),
			Type:          dir,
			Timestamp:     time.Now().UTC(),
		}, acct.User.WalletBalance.Sub(cost), nil
	}
}

func TestCreateUser_Conflicts(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 100)

	err := s.CreateUser(context.Background(), &model.User{ID: "u2", Username: "alice", Email: "other@example.com"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}
	err = s.CreateUser(context.Background(), &model.User{ID: "u3", Username: "bob", Email: "alice@example.com"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetUser(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByLogin(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserByLogin_UsernameOrEmail(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 100)

	for _, login := range []string{"alice", "alice@example.com"} {
		u, err := s.GetUserByLogin(context.Background(), login)
		if err != nil {
			t.Fatalf("login %s: %v", login, err)
		}
		if u.ID != "u1" {
			t.Errorf("login %s: expected u1, got %s", login, u.ID)
		}
	}
}

func TestSettle_AppendsAndUpdatesBalance(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 1000)
	ctx := context.Background()

	u, err := s.Settle(ctx, "u1", "AAPL", buy("u1", "AAPL", 3, 100))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !u.WalletBalance.Equal(d(700)) {
		t.Errorf("expected balance 700, got %s", u.WalletBalance)
	}
	net, _ := s.NetPosition(ctx, "u1", "AAPL")
	if net != 3 {
		t.Errorf("expected net 3, got %d", net)
	}
}

func TestSettle_ErrorLeavesNothingWritten(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 1000)
	ctx := context.Background()
	errNope := errors.New("nope")

	_, err := s.Settle(ctx, "u1", "AAPL", func(Account) (*model.Transaction, decimal.Decimal, error) {
		return nil, decimal.Zero, errNope
	})
	if !errors.Is(err, errNope) {
		t.Fatalf("expected settle error, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "u1")
	if len(txs) != 0 {
		t.Errorf("expected no transactions, got %d", len(txs))
	}
	u, _ := s.GetUser(ctx, "u1")
	if !u.WalletBalance.Equal(d(1000)) {
		t.Errorf("expected balance unchanged, got %s", u.WalletBalance)
	}
}

func TestSettle_UnknownUser(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Settle(context.Background(), "ghost", "AAPL", buy("ghost", "AAPL", 1, 1))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSettle_SeesOwnedShares(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 1000)
	ctx := context.Background()

	s.Settle(ctx, "u1", "TSLA", buy("u1", "TSLA", 5, 10))
	s.Settle(ctx, "u1", "AAPL", buy("u1", "AAPL", 2, 10))

	var owned int64 = -1
	s.Settle(ctx, "u1", "TSLA", func(acct Account) (*model.Transaction, decimal.Decimal, error) {
		owned = acct.Owned
		return nil, decimal.Zero, errors.New("inspect only")
	})
	if owned != 5 {
		t.Errorf("expected 5 TSLA owned, got %d", owned)
	}
}

func TestSettle_ConcurrentSellsCannotOversell(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 1000)
	ctx := context.Background()
	s.Settle(ctx, "u1", "TSLA", buy("u1", "TSLA", 5, 10))

	errShort := errors.New("short")
	sell := func(acct Account) (*model.Transaction, decimal.Decimal, error) {
		if acct.Owned < 5 {
			return nil, decimal.Zero, errShort
		}
		return buy("u1", "TSLA", -5, 10)(acct)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Settle(ctx, "u1", "TSLA", sell); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly one sell to succeed, got %d", succeeded)
	}
	net, _ := s.NetPosition(ctx, "u1", "TSLA")
	if net != 0 {
		t.Errorf("expected net 0, got %d", net)
	}
}

func TestRecentTransactions_NewestFirstWithLimit(t *testing.T) {
	s := NewMemoryStore()
	seedUser(t, s, "u1", "alice", 100000)
	seedUser(t, s, "u2", "bob", 100000)
	ctx := context.Background()

	for _, sym := range []string{"A", "B", "C", "D"} {
		s.Settle(ctx, "u1", sym, buy("u1", sym, 1, 1))
		s.Settle(ctx, "u2", sym, buy("u2", sym, 1, 1))
	}

	txs, err := s.RecentTransactions(ctx, "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3, got %d", len(txs))
	}
	want := []string{"D", "C", "B"}
	for i, tx := range txs {
		if tx.Ticker != want[i] || tx.UserID != "u1" {
			t.Errorf("index %d: got %s/%s, want u1/%s", i, tx.UserID, tx.Ticker, want[i])
		}
	}
}

func TestSchemaStatements_Split(t *testing.T) {
	stmts := SchemaStatements()
	if len(stmts) != 4 {
		t.Fatalf("expected 4 schema statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if s == "" {
			t.Error("empty statement")
		}
	}
}
