// Package analytics derives summaries, breakdowns and heuristic risk
// figures from computed portfolio positions.
//
// The risk metrics are deliberately rough: the Sharpe-like ratio comes from
// the average unrealized return, and beta, volatility and max drawdown are
// drawn from fixed plausible bands. They are display values, not
// statistics, and must not be read as such.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/ticker"
)

// StatusNA labels every risk metric of an empty portfolio.
const StatusNA = "N/A"

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// Summary totals positions against the user's cash. Only positions with
// recorded BUYs contribute to the cost basis.
func Summary(user *model.User, positions []model.Position) model.Summary {
	totalValue := decimal.Zero
	dayGainLoss := decimal.Zero
	costBasis := decimal.Zero
	for _, p := range positions {
		totalValue = totalValue.Add(p.TotalValue)
		dayGainLoss = dayGainLoss.Add(p.DayChange)
		if p.HasCostHistory {
			costBasis = costBasis.Add(p.AverageCost.Mul(decimal.NewFromInt(p.Quantity)))
		}
	}

	profitLoss := totalValue.Sub(costBasis)
	return model.Summary{
		TotalValue:             totalValue.Round(2),
		DayGainLoss:            dayGainLoss.Round(2),
		DayGainLossPercent:     percentOf(dayGainLoss, totalValue.Sub(dayGainLoss)),
		TotalPositions:         len(positions),
		CashAvailable:          user.WalletBalance.Round(2),
		TotalProfitLoss:        profitLoss.Round(2),
		TotalProfitLossPercent: percentOf(profitLoss, costBasis),
	}
}

// percentOf returns part/whole*100 rounded to 2 places, or 0 when whole is
// not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

func totalValue(positions []model.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.TotalValue)
	}
	return total
}

// Allocation returns each position's share of total value, largest first.
// An empty or zero-valued portfolio yields an empty list.
func Allocation(positions []model.Position) []model.AllocationItem {
	out := make([]model.AllocationItem, 0, len(positions))
	total := totalValue(positions)
	if !total.IsPositive() {
		return out
	}
	for _, p := range positions {
		out = append(out, model.AllocationItem{
			Ticker:     p.Ticker,
			Percentage: percentOf(p.TotalValue, total),
			Value:      p.TotalValue,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage.GreaterThan(out[j].Percentage)
	})
	return out
}

// SectorBreakdown groups positions by sector, largest first. Tickers
// without a sector mapping fall into ticker.SectorOther.
func SectorBreakdown(positions []model.Position) []model.SectorBreakdownItem {
	out := make([]model.SectorBreakdownItem, 0)
	total := totalValue(positions)
	if !total.IsPositive() {
		return out
	}

	idx := make(map[string]int)
	for _, p := range positions {
		sector := ticker.Sector(p.Ticker)
		i, ok := idx[sector]
		if !ok {
			i = len(out)
			idx[sector] = i
			out = append(out, model.SectorBreakdownItem{Sector: sector, TotalValue: decimal.Zero})
		}
		out[i].Holdings++
		out[i].TotalValue = out[i].TotalValue.Add(p.TotalValue)
	}
	for i := range out {
		out[i].Percentage = percentOf(out[i].TotalValue, total)
		out[i].TotalValue = out[i].TotalValue.Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percentage.GreaterThan(out[j].Percentage)
	})
	return out
}

// Risk metric bands.
var (
	SharpeFallbackLow, SharpeFallbackHigh = 1.5, 2.0
	BetaLow, BetaHigh                     = 0.8, 1.3
	VolatilityLow, VolatilityHigh         = 15.0, 22.0
	DrawdownLow, DrawdownHigh             = -15.0, -8.0
)

// RiskMetrics computes the heuristic risk figures for positions, drawing
// the randomized components from rng. An empty portfolio yields zeros
// labelled StatusNA.
func RiskMetrics(positions []model.Position, rng jitter.Source) model.RiskMetrics {
	if len(positions) == 0 {
		return model.RiskMetrics{
			SharpeRatio: decimal.Zero, SharpeStatus: StatusNA,
			Beta: decimal.Zero, BetaStatus: StatusNA,
			Volatility: decimal.Zero, VolatilityStatus: StatusNA,
			MaxDrawdown: decimal.Zero, MaxDrawdownStatus: StatusNA,
		}
	}

	sum := decimal.Zero
	for _, p := range positions {
		sum = sum.Add(p.TotalReturnPercent)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(positions))))

	var sharpe decimal.Decimal
	if avg.IsPositive() {
		sharpe = avg.Div(ten).Round(2)
	} else {
		sharpe = jitter.UniformDecimal(rng, SharpeFallbackLow, SharpeFallbackHigh, 2)
	}
	beta := jitter.UniformDecimal(rng, BetaLow, BetaHigh, 2)
	volatility := jitter.UniformDecimal(rng, VolatilityLow, VolatilityHigh, 1)
	drawdown := jitter.UniformDecimal(rng, DrawdownLow, DrawdownHigh, 1)

	return model.RiskMetrics{
		SharpeRatio:       sharpe,
		SharpeStatus:      SharpeStatus(sharpe),
		Beta:              beta,
		BetaStatus:        BetaStatus(beta),
		Volatility:        volatility,
		VolatilityStatus:  VolatilityStatus(volatility),
		MaxDrawdown:       drawdown,
		MaxDrawdownStatus: DrawdownStatus(drawdown),
	}
}

// SharpeStatus: Good above 1.5, Moderate above 1.0, else Low.
func SharpeStatus(v decimal.Decimal) string {
	switch {
	case v.GreaterThan(decimal.NewFromFloat(1.5)):
		return "Good"
	case v.GreaterThan(decimal.NewFromInt(1)):
		return "Moderate"
	default:
		return "Low"
	}
}

// BetaStatus: Moderate within [0.9, 1.1], High above, Low below.
func BetaStatus(v decimal.Decimal) string {
	switch {
	case v.GreaterThan(decimal.NewFromFloat(1.1)):
		return "High"
	case v.GreaterThanOrEqual(decimal.NewFromFloat(0.9)):
		return "Moderate"
	default:
		return "Low"
	}
}

// VolatilityStatus: Medium within [16, 20], High above, Low below.
func VolatilityStatus(v decimal.Decimal) string {
	switch {
	case v.GreaterThan(decimal.NewFromInt(20)):
		return "High"
	case v.GreaterThanOrEqual(decimal.NewFromInt(16)):
		return "Medium"
	default:
		return "Low"
	}
}

// DrawdownStatus: Low above -10, Moderate above -15, else High.
func DrawdownStatus(v decimal.Decimal) string {
	switch {
	case v.GreaterThan(decimal.NewFromInt(-10)):
		return "Low"
	case v.GreaterThan(decimal.NewFromInt(-15)):
		return "Moderate"
	default:
		return "High"
	}
}

// Quoter prices a ticker. *pricing.Engine satisfies it.
type Quoter interface {
	Quote(symbol string) decimal.Decimal
}

// MarketDayChangeLow and MarketDayChangeHigh bound the snapshot's synthetic
// day change, in percent.
var MarketDayChangeLow, MarketDayChangeHigh = -3.0, 3.0

// MarketSnapshot quotes every known ticker in reference-table order.
func MarketSnapshot(quotes Quoter, rng jitter.Source) []model.MarketPrice {
	known := ticker.Known()
	out := make([]model.MarketPrice, 0, len(known))
	for _, info := range known {
		price := quotes.Quote(info.Symbol)
		pct := jitter.UniformDecimal(rng, MarketDayChangeLow, MarketDayChangeHigh, 2)
		out = append(out, model.MarketPrice{
			Ticker:           info.Symbol,
			CompanyName:      info.Name,
			CurrentPrice:     price.Round(2),
			DayChange:        price.Mul(pct).Div(hundred).Round(2),
			DayChangePercent: pct,
		})
	}
	return out
}

// TradeHistory presents transactions with display names and absolute
// quantities, preserving their order.
func TradeHistory(txs []model.Transaction) []model.TradeHistoryItem {
	out := make([]model.TradeHistoryItem, 0, len(txs))
	for _, tx := range txs {
		qty := tx.Quantity
		if qty < 0 {
			qty = -qty
		}
		out = append(out, model.TradeHistoryItem{
			ID:            tx.ID,
			Ticker:        tx.Ticker,
			CompanyName:   ticker.CompanyName(tx.Ticker),
			Type:          tx.Type,
			Quantity:      qty,
			PricePerShare: tx.PricePerShare,
			TotalAmount:   tx.PricePerShare.Mul(decimal.NewFromInt(qty)).Round(2),
			Timestamp:     tx.Timestamp,
		})
	}
	return out
}
