// Package trade executes buy and sell orders against the price engine and
// the ledger, and serves the portfolio, history and market endpoints.
//
// All monetary values use shopspring/decimal, never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/analytics"
	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/metrics"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/portfolio"
	"github.com/papertrade/market-engine/internal/pricing"
	"github.com/papertrade/market-engine/internal/store"
	"github.com/papertrade/market-engine/internal/ticker"
)

var (
	ErrInvalidQuantity    = errors.New("trade: quantity must be non-zero and at most 1000000000 shares")
	ErrInvalidTicker      = ticker.ErrInvalidSymbol
	ErrInsufficientFunds  = errors.New("trade: insufficient funds")
	ErrInsufficientShares = errors.New("trade: insufficient shares")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	// MaxQuantity bounds |quantity| for a single trade.
	MaxQuantity int64 = 1_000_000_000
)

// Service executes trades and answers read queries over the ledger.
// Trades on one ticker are serialized by the price engine; settlement
// for one user is serialized by the store.
type Service struct {
	store        store.Store
	engine       *pricing.Engine
	positions    *portfolio.Aggregator
	rng          jitter.Source
	wsHub        *WSHub // optional WebSocket hub for real-time broadcasts
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithHistoryLimit sets the default trade history page size.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = min(n, MaxHistoryLimit)
		}
	}
}

// NewService creates a new trade service. rng drives the synthetic day
// changes and risk figures; pass nil for the default generator.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, engine *pricing.Engine, rng jitter.Source, hub *WSHub, opts ...Option) *Service {
	if rng == nil {
		rng = jitter.Default()
	}
	rng = jitter.Locked(rng)
	s := &Service{
		store:        st,
		engine:       engine,
		positions:    portfolio.NewAggregator(st, engine, rng),
		rng:          rng,
		wsHub:        hub,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of an executed trade.
type Result struct {
	TransactionID string          `json:"transaction_id"`
	Message       string          `json:"message"`
	Ticker        string          `json:"ticker"`
	Type          model.Direction `json:"type"`
	Quantity      int64           `json:"quantity"`
	QuotedPrice   decimal.Decimal `json:"quoted_price"`
	ExecutedPrice decimal.Decimal `json:"executed_price"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// Trade executes a signed order: positive quantity buys, negative sells.
// The order pays the post-impact quote. A rejected order leaves the
// wallet, the ledger and the ticker price as they were.
func (s *Service) Trade(ctx context.Context, userID, symbol string, quantity int64) (*Result, error) {
	start := time.Now()

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, s.reject(err)
	}
	dir, ok := model.DirectionOf(quantity)
	if !ok || quantity < -MaxQuantity || quantity > MaxQuantity {
		return nil, s.reject(ErrInvalidQuantity)
	}
	symbol, err := ticker.Normalize(symbol)
	if err != nil {
		return nil, s.reject(err)
	}

	var (
		txn  *model.Transaction
		user *model.User
	)
	exec, err := s.engine.Execute(symbol, quantity, dir, func(price decimal.Decimal) error {
		u, err := s.store.Settle(ctx, userID, symbol, func(acct store.Account) (*model.Transaction, decimal.Decimal, error) {
			cost := price.Mul(decimal.NewFromInt(quantity)) // negative for sells
			balance := acct.User.WalletBalance
			switch dir {
			case model.DirectionBuy:
				if cost.GreaterThan(balance) {
					return nil, decimal.Zero, fmt.Errorf("%w: cost %s exceeds balance %s",
						ErrInsufficientFunds, usd(cost), usd(balance))
				}
			case model.DirectionSell:
				if acct.Owned < -quantity {
					return nil, decimal.Zero, fmt.Errorf("%w: own %d %s, selling %d",
						ErrInsufficientShares, acct.Owned, symbol, -quantity)
				}
			}
			txn = &model.Transaction{
				ID:            uuid.New().String(),
				UserID:        userID,
				Ticker:        symbol,
				Quantity:      quantity,
				PricePerShare: price,
				Type:          dir,
				Timestamp:     time.Now().UTC(),
			}
			return txn, balance.Sub(cost), nil
		})
		user = u
		return err
	})
	if err != nil {
		return nil, s.reject(err)
	}

	metrics.TradesTotal.WithLabelValues(string(dir)).Inc()
	metrics.TradeLatency.WithLabelValues(string(dir)).Observe(time.Since(start).Seconds())
	metrics.TradeVolume.WithLabelValues(symbol, string(dir)).Add(float64(abs(quantity)))

	slog.Info("trade executed",
		"trade_id", txn.ID,
		"user", userID,
		"ticker", symbol,
		"type", dir,
		"qty", quantity,
		"quoted_price", exec.QuotedPrice.String(),
		"executed_price", exec.Price.String(),
		"state_before", exec.StateBefore.String(),
		"state_after", exec.StateAfter.String(),
		"new_balance", user.WalletBalance.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "trade_executed",
			Ticker:    symbol,
			Direction: string(dir),
			Quantity:  abs(quantity),
			Price:     exec.Price.String(),
			State:     exec.StateAfter.String(),
		})
	}

	verb := "Bought"
	if dir == model.DirectionSell {
		verb = "Sold"
	}
	return &Result{
		TransactionID: txn.ID,
		Message:       fmt.Sprintf("%s %d shares of %s", verb, abs(quantity), symbol),
		Ticker:        symbol,
		Type:          dir,
		Quantity:      quantity,
		QuotedPrice:   exec.QuotedPrice,
		ExecutedPrice: exec.Price,
		NewBalance:    user.WalletBalance.Round(2),
	}, nil
}

// reject counts a refused trade and passes err through.
func (s *Service) reject(err error) error {
	metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidTicker):
		return "invalid_ticker"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	default:
		return "error"
	}
}

// Portfolio returns the user's open positions, largest first.
func (s *Service) Portfolio(ctx context.Context, userID string) ([]model.Position, error) {
	return s.positions.ComputePositions(ctx, userID)
}

// Summary returns the user's portfolio totals.
func (s *Service) Summary(ctx context.Context, userID string) (model.Summary, error) {
	user, positions, err := s.positions.Holdings(ctx, userID)
	if err != nil {
		return model.Summary{}, err
	}
	return analytics.Summary(user, positions), nil
}

// RiskMetrics returns the heuristic risk figures for the user's portfolio.
func (s *Service) RiskMetrics(ctx context.Context, userID string) (model.RiskMetrics, error) {
	positions, err := s.positions.ComputePositions(ctx, userID)
	if err != nil {
		return model.RiskMetrics{}, err
	}
	return analytics.RiskMetrics(positions, s.rng), nil
}

// Allocation returns each position's share of portfolio value.
func (s *Service) Allocation(ctx context.Context, userID string) ([]model.AllocationItem, error) {
	positions, err := s.positions.ComputePositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.Allocation(positions), nil
}

// Sectors returns portfolio value grouped by sector.
func (s *Service) Sectors(ctx context.Context, userID string) ([]model.SectorBreakdownItem, error) {
	positions, err := s.positions.ComputePositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.SectorBreakdown(positions), nil
}

// History returns up to limit of the user's trades, most recent first.
// A limit <= 0 uses the configured default; limits above MaxHistoryLimit
// are capped.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]model.TradeHistoryItem, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	limit = min(limit, MaxHistoryLimit)

	txs, err := s.store.RecentTransactions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return analytics.TradeHistory(txs), nil
}

// MarketPrices quotes every known ticker.
func (s *Service) MarketPrices() []model.MarketPrice {
	return analytics.MarketSnapshot(s.engine, s.rng)
}

// usd formats the magnitude of amount as US dollars, e.g. $1,750.00.
func usd(amount decimal.Decimal) string {
	cur := money.GetCurrency("USD")
	minor := amount.Abs().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// abs saturates at math.MaxInt64 for math.MinInt64.
func abs(n int64) int64 {
	switch {
	case n == math.MinInt64:
		return math.MaxInt64
	case n < 0:
		return -n
	}
	return n
}
