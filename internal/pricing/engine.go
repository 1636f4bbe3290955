// Package pricing maintains one synthetic mid-price per ticker and applies
// market impact from trade volume.
//
// The persistent per-ticker state moves only through ApplyImpact (or a
// trade run under Execute). Quotes layer per-call noise on top of that
// state, so repeated trades shift the market while every individual quote
// still jitters, mimicking bid/ask noise without an order book.
//
// All monetary values use shopspring/decimal, never float64 for money.
package pricing

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/ticker"
)

var (
	// ImpactPerShare is the fractional price move per share traded.
	ImpactPerShare = decimal.NewFromFloat(0.001)

	// MaxImpact caps the move from a single trade.
	MaxImpact = decimal.NewFromFloat(0.05)

	// FloorRatio and CeilingRatio bound the state relative to the base price.
	FloorRatio   = decimal.NewFromFloat(0.5)
	CeilingRatio = decimal.NewFromInt(2)

	// VolatilityLow and VolatilityHigh bound the per-quote noise factor.
	// The band is asymmetric: slightly more upside than downside.
	VolatilityLow  = 0.995
	VolatilityHigh = 1.02

	// QuoteScale is the number of decimal places in a quote.
	QuoteScale int32 = 2

	// StateScale is the number of decimal places kept in the impact state.
	StateScale int32 = 8
)

// Observer is notified whenever a ticker's persistent state changes.
type Observer func(symbol string, state decimal.Decimal)

// Engine is the process-wide price table. Each ticker has its own lock;
// the table lock only guards lazy creation of entries.
type Engine struct {
	mu      sync.Mutex
	tickers map[string]*tickerState

	rng      jitter.Source
	base     func(string) decimal.Decimal
	observer Observer
}

type tickerState struct {
	mu    sync.Mutex
	base  decimal.Decimal
	price decimal.Decimal
}

// Option configures an Engine.
type Option func(*Engine)

// WithBasePrices overrides the base price table lookup.
func WithBasePrices(fn func(string) decimal.Decimal) Option {
	return func(e *Engine) { e.base = fn }
}

// WithObserver registers a callback for state changes.
func WithObserver(fn Observer) Option {
	return func(e *Engine) { e.observer = fn }
}

// NewEngine creates an engine drawing quote noise from rng.
// Pass nil to use the default global generator.
func NewEngine(rng jitter.Source, opts ...Option) *Engine {
	if rng == nil {
		rng = jitter.Default()
	}
	e := &Engine{
		tickers: make(map[string]*tickerState),
		rng:     jitter.Locked(rng),
		base:    ticker.BasePrice,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BasePrice returns the configured base price for symbol. Pure.
func (e *Engine) BasePrice(symbol string) decimal.Decimal {
	return e.base(symbol)
}

// state returns the entry for symbol, initializing it to the base price
// on first access.
func (e *Engine) state(symbol string) *tickerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts, ok := e.tickers[symbol]
	if !ok {
		b := e.base(symbol)
		ts = &tickerState{base: b, price: b}
		e.tickers[symbol] = ts
	}
	return ts
}

// State returns the current persistent (noise-free) price for symbol.
func (e *Engine) State(symbol string) decimal.Decimal {
	ts := e.state(symbol)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.price
}

// Quote returns the current state times a noise factor drawn from
// [VolatilityLow, VolatilityHigh), rounded to QuoteScale places and kept
// inside the price band. Repeated calls vary.
func (e *Engine) Quote(symbol string) decimal.Decimal {
	ts := e.state(symbol)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return e.quoteLocked(ts)
}

func (e *Engine) quoteLocked(ts *tickerState) decimal.Decimal {
	factor := decimal.NewFromFloat(jitter.Uniform(e.rng, VolatilityLow, VolatilityHigh))
	q := ts.price.Mul(factor).Round(QuoteScale)
	return clamp(q, ts.base)
}

// Impact returns the fractional move for a trade of quantity shares:
// min(|quantity| * ImpactPerShare, MaxImpact).
func Impact(quantity int64) decimal.Decimal {
	impact := decimal.NewFromInt(quantity).Abs().Mul(ImpactPerShare)
	if impact.GreaterThan(MaxImpact) {
		return MaxImpact
	}
	return impact
}

// ApplyImpact moves symbol's state up for a BUY or down for a SELL and
// clamps it into [FloorRatio, CeilingRatio] * base. Returns the new state.
func (e *Engine) ApplyImpact(symbol string, quantity int64, dir model.Direction) decimal.Decimal {
	ts := e.state(symbol)
	ts.mu.Lock()
	next := e.impactLocked(ts, quantity, dir)
	ts.mu.Unlock()

	e.notify(symbol, next)
	return next
}

func (e *Engine) impactLocked(ts *tickerState, quantity int64, dir model.Direction) decimal.Decimal {
	one := decimal.NewFromInt(1)
	impact := Impact(quantity)

	factor := one.Add(impact)
	if dir == model.DirectionSell {
		factor = one.Sub(impact)
	}
	ts.price = clamp(ts.price.Mul(factor).Round(StateScale), ts.base)
	return ts.price
}

func (e *Engine) notify(symbol string, state decimal.Decimal) {
	if e.observer != nil {
		e.observer(symbol, state)
	}
}

// Execution is the price side of one trade.
type Execution struct {
	Symbol      string          `json:"ticker"`
	QuotedPrice decimal.Decimal `json:"quoted_price"`   // pre-impact quote
	Price       decimal.Decimal `json:"executed_price"` // post-impact quote
	StateBefore decimal.Decimal `json:"-"`
	StateAfter  decimal.Decimal `json:"-"`
}

// SettleFunc commits the trade at the executed price. A non-nil error
// aborts the trade.
type SettleFunc func(price decimal.Decimal) error

// Execute runs one trade against symbol while holding its lock: quote,
// apply impact, re-quote, then settle at the post-impact quote. If settle
// fails the state is restored and the error returned, so a rejected trade
// leaves the market where it was.
func (e *Engine) Execute(symbol string, quantity int64, dir model.Direction, settle SettleFunc) (Execution, error) {
	exec, err := e.execute(e.state(symbol), quantity, dir, settle)
	if err != nil {
		return Execution{}, err
	}
	exec.Symbol = symbol
	e.notify(symbol, exec.StateAfter)
	return exec, nil
}

// execute holds ts.mu for the whole trade. The state is restored unless
// settle returns nil, including when settle panics.
func (e *Engine) execute(ts *tickerState, quantity int64, dir model.Direction, settle SettleFunc) (Execution, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	before := ts.price
	committed := false
	defer func() {
		if !committed {
			ts.price = before
		}
	}()

	exec := Execution{StateBefore: before}
	exec.QuotedPrice = e.quoteLocked(ts)
	exec.StateAfter = e.impactLocked(ts, quantity, dir)
	exec.Price = e.quoteLocked(ts)

	if err := settle(exec.Price); err != nil {
		return Execution{}, err
	}
	committed = true
	return exec, nil
}

// Snapshot returns the current state of every ticker touched so far.
func (e *Engine) Snapshot() map[string]decimal.Decimal {
	e.mu.Lock()
	entries := make(map[string]*tickerState, len(e.tickers))
	for sym, ts := range e.tickers {
		entries[sym] = ts
	}
	e.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(entries))
	for sym, ts := range entries {
		ts.mu.Lock()
		out[sym] = ts.price
		ts.mu.Unlock()
	}
	return out
}

func clamp(price, base decimal.Decimal) decimal.Decimal {
	lo := base.Mul(FloorRatio)
	hi := base.Mul(CeilingRatio)
	if price.LessThan(lo) {
		return lo
	}
	if price.GreaterThan(hi) {
		return hi
	}
	return price
}
