// Package portfolio folds a user's transaction ledger into current
// holdings and values them at live quotes.
//
// Positions are never stored. Every call re-reads the full history, so the
// result always agrees with the ledger at the cost of O(transactions) work.
package portfolio

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/ticker"
)

var (
	// FallbackCostRatio prices cost basis when a holding has no BUY on
	// record: average cost is assumed to be this fraction of the quote.
	FallbackCostRatio = decimal.NewFromFloat(0.9)

	// DayChangeLow and DayChangeHigh bound the synthetic day change, in percent.
	DayChangeLow  = -2.5
	DayChangeHigh = 2.5

	hundred = decimal.NewFromInt(100)
)

// Ledger is the read side of the store the aggregator needs.
type Ledger interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

// Quoter prices a ticker. *pricing.Engine satisfies it.
type Quoter interface {
	Quote(symbol string) decimal.Decimal
}

// Holding is the fold of one ticker's transactions.
type Holding struct {
	Ticker    string
	Quantity  int64           // net signed quantity
	BuyCost   decimal.Decimal // sum(price * qty) over BUYs
	BuyShares int64           // sum(qty) over BUYs
}

// AverageCost returns the weighted average BUY price. ok is false when the
// ticker has no BUY history.
func (h Holding) AverageCost() (avg decimal.Decimal, ok bool) {
	if h.BuyShares <= 0 {
		return decimal.Zero, false
	}
	return h.BuyCost.Div(decimal.NewFromInt(h.BuyShares)), true
}

// Fold groups transactions by ticker in order of first appearance.
func Fold(txs []model.Transaction) []Holding {
	idx := make(map[string]int)
	var out []Holding
	for _, tx := range txs {
		i, ok := idx[tx.Ticker]
		if !ok {
			i = len(out)
			idx[tx.Ticker] = i
			out = append(out, Holding{Ticker: tx.Ticker, BuyCost: decimal.Zero})
		}
		h := &out[i]
		h.Quantity += tx.Quantity
		if tx.Type == model.DirectionBuy && tx.Quantity > 0 {
			h.BuyCost = h.BuyCost.Add(tx.PricePerShare.Mul(decimal.NewFromInt(tx.Quantity)))
			h.BuyShares += tx.Quantity
		}
	}
	return out
}

// Aggregator computes positions from the ledger and live quotes.
type Aggregator struct {
	ledger Ledger
	prices Quoter
	rng    jitter.Source
}

// NewAggregator creates an aggregator. rng drives the synthetic day change;
// pass nil for the default generator.
func NewAggregator(ledger Ledger, prices Quoter, rng jitter.Source) *Aggregator {
	if rng == nil {
		rng = jitter.Default()
	}
	return &Aggregator{ledger: ledger, prices: prices, rng: jitter.Locked(rng)}
}

// ComputePositions returns the user's open positions ordered by descending
// total value. Tickers whose net quantity is zero or negative are omitted.
// Returns store.ErrNotFound for an unknown user.
func (a *Aggregator) ComputePositions(ctx context.Context, userID string) ([]model.Position, error) {
	_, positions, err := a.Holdings(ctx, userID)
	return positions, err
}

// Holdings resolves the user and computes their positions in one pass.
func (a *Aggregator) Holdings(ctx context.Context, userID string) (*model.User, []model.Position, error) {
	user, err := a.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	txs, err := a.ledger.ListTransactions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	positions := make([]model.Position, 0)
	for _, h := range Fold(txs) {
		if h.Quantity <= 0 {
			continue
		}
		pct := jitter.UniformDecimal(a.rng, DayChangeLow, DayChangeHigh, 2)
		positions = append(positions, Value(h, a.prices.Quote(h.Ticker), pct))
	}

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].TotalValue.GreaterThan(positions[j].TotalValue)
	})
	return user, positions, nil
}

// Value prices a holding at price with a day change of dayChangePct percent.
// Money fields are rounded to 2 places.
func Value(h Holding, price, dayChangePct decimal.Decimal) model.Position {
	qty := decimal.NewFromInt(h.Quantity)
	totalValue := qty.Mul(price).Round(2)

	avg, ok := h.AverageCost()
	if !ok {
		avg = price.Mul(FallbackCostRatio)
	}

	basis := avg.Mul(qty)
	totalReturn := totalValue.Sub(basis)
	returnPct := decimal.Zero
	if basis.IsPositive() {
		returnPct = totalReturn.Div(basis).Mul(hundred)
	}

	return model.Position{
		Ticker:             h.Ticker,
		CompanyName:        ticker.CompanyName(h.Ticker),
		Quantity:           h.Quantity,
		CurrentPrice:       price,
		TotalValue:         totalValue,
		DayChange:          qty.Mul(price).Mul(dayChangePct).Div(hundred).Round(2),
		DayChangePercent:   dayChangePct,
		TotalReturn:        totalReturn.Round(2),
		TotalReturnPercent: returnPct.Round(2),
		AverageCost:        avg.Round(2),
		HasCostHistory:     ok,
	}
}
