// Package model defines the core domain types shared across the paper
// trading engine. All monetary values use shopspring/decimal, never
// float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tags a transaction as a purchase or a sale.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// DirectionOf classifies a signed share quantity. The second result is
// false for a zero quantity, which is neither a buy nor a sell.
func DirectionOf(quantity int64) (Direction, bool) {
	switch {
	case quantity > 0:
		return DirectionBuy, true
	case quantity < 0:
		return DirectionSell, true
	default:
		return "", false
	}
}

// User is a paper trader with a cash wallet. WalletBalance never goes
// negative after a trade settles.
type User struct {
	ID            string          `json:"id" db:"id"`
	Username      string          `json:"username" db:"username"`
	Email         string          `json:"email" db:"email"`
	PasswordHash  string          `json:"-" db:"password_hash"`
	WalletBalance decimal.Decimal `json:"wallet_balance" db:"wallet_balance"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Transaction is an immutable record of a trade execution.
// Once created, these are never modified or deleted.
// Schema: {user, ticker, quantity, price, type, timestamp}
type Transaction struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Ticker        string          `json:"ticker" db:"ticker"`
	Quantity      int64           `json:"quantity" db:"quantity"` // signed: +buy, -sell
	PricePerShare decimal.Decimal `json:"price_per_share" db:"price_per_share"`
	Type          Direction       `json:"type" db:"type"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// Position is a derived holding in one ticker, recomputed from the full
// transaction history on every query.
type Position struct {
	Ticker             string          `json:"ticker"`
	CompanyName        string          `json:"company_name"`
	Quantity           int64           `json:"quantity"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	TotalValue         decimal.Decimal `json:"total_value"`
	DayChange          decimal.Decimal `json:"day_change"`
	DayChangePercent   decimal.Decimal `json:"day_change_percent"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent decimal.Decimal `json:"total_return_percent"`
	AverageCost        decimal.Decimal `json:"average_cost"`

	// HasCostHistory is false when AverageCost is the fallback estimate
	// because no BUY was recorded for the ticker.
	HasCostHistory bool `json:"-"`
}

// Summary aggregates a user's positions and cash.
type Summary struct {
	TotalValue             decimal.Decimal `json:"total_value"`
	DayGainLoss            decimal.Decimal `json:"day_gain_loss"`
	DayGainLossPercent     decimal.Decimal `json:"day_gain_loss_percent"`
	TotalPositions         int             `json:"total_positions"`
	CashAvailable          decimal.Decimal `json:"cash_available"`
	TotalProfitLoss        decimal.Decimal `json:"total_profit_loss"`
	TotalProfitLossPercent decimal.Decimal `json:"total_profit_loss_percent"`
}

// RiskMetrics are heuristic portfolio risk proxies with status labels.
type RiskMetrics struct {
	SharpeRatio       decimal.Decimal `json:"sharpe_ratio"`
	SharpeStatus      string          `json:"sharpe_status"`
	Beta              decimal.Decimal `json:"beta"`
	BetaStatus        string          `json:"beta_status"`
	Volatility        decimal.Decimal `json:"volatility"`
	VolatilityStatus  string          `json:"volatility_status"`
	MaxDrawdown       decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownStatus string          `json:"max_drawdown_status"`
}

// MarketPrice is one row of the market snapshot.
type MarketPrice struct {
	Ticker           string          `json:"ticker"`
	CompanyName      string          `json:"company_name"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	DayChange        decimal.Decimal `json:"day_change"`
	DayChangePercent decimal.Decimal `json:"day_change_percent"`
}

// AllocationItem is one ticker's share of total portfolio value.
type AllocationItem struct {
	Ticker     string          `json:"ticker"`
	Percentage decimal.Decimal `json:"percentage"`
	Value      decimal.Decimal `json:"value"`
}

// SectorBreakdownItem groups holdings by sector.
type SectorBreakdownItem struct {
	Sector     string          `json:"sector"`
	Holdings   int             `json:"holdings"`
	Percentage decimal.Decimal `json:"percentage"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// TradeHistoryItem is a transaction as presented in a user's history.
type TradeHistoryItem struct {
	ID            string          `json:"id"`
	Ticker        string          `json:"ticker"`
	CompanyName   string          `json:"company_name"`
	Type          Direction       `json:"type"`
	Quantity      int64           `json:"quantity"` // absolute
	PricePerShare decimal.Decimal `json:"price_per_share"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Timestamp     time.Time       `json:"timestamp"`
}
