// Package ticker holds the static reference data for synthetic tickers
// (display names, base price ranges, sectors) and symbol validation.
package ticker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// symbolRegex matches an upper-case symbol such as AAPL or BRK.B.
var symbolRegex = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

var ErrInvalidSymbol = errors.New("ticker: invalid symbol")

// SectorOther is the bucket for tickers without a sector mapping.
const SectorOther = "Other"

// DefaultBasePrice is used for tickers outside the price range table.
var DefaultBasePrice = decimal.NewFromInt(250)

// Info is the reference data for one known ticker.
type Info struct {
	Symbol string
	Name   string
	Sector string
	Low    decimal.Decimal
	High   decimal.Decimal
}

func info(symbol, name, sector string, low, high int64) Info {
	return Info{
		Symbol: symbol,
		Name:   name,
		Sector: sector,
		Low:    decimal.NewFromInt(low),
		High:   decimal.NewFromInt(high),
	}
}

// known is ordered; Known() and the market snapshot preserve this order.
var known = []Info{
	info("AAPL", "Apple Inc.", "Technology", 150, 200),
	info("MSFT", "Microsoft Corporation", "Technology", 350, 450),
	info("TSLA", "Tesla, Inc.", "Industrial", 200, 300),
	info("NVDA", "NVIDIA Corporation", "Technology", 800, 950),
	info("AMZN", "Amazon.com, Inc.", "Consumer", 150, 200),
	info("GOOGL", "Alphabet Inc. Class A", "Technology", 130, 160),
	info("META", "Meta Platforms, Inc.", "Technology", 450, 550),
	info("AMD", "Advanced Micro Devices", "Technology", 150, 200),
	info("NFLX", "Netflix, Inc.", "Consumer", 550, 650),
	info("DIS", "The Walt Disney Company", "Consumer", 100, 125),
	info("JPM", "JPMorgan Chase & Co.", "Financial", 140, 180),
	info("V", "Visa Inc.", "Financial", 220, 280),
	info("MA", "Mastercard Incorporated", "Financial", 350, 420),
	info("BAC", "Bank of America Corp", "Financial", 30, 45),
	info("WMT", "Walmart Inc.", "Consumer", 140, 180),
	info("PG", "The Procter & Gamble Company", "Consumer", 150, 180),
	info("JNJ", "Johnson & Johnson", "Healthcare", 150, 180),
	info("UNH", "UnitedHealth Group Inc.", "Healthcare", 450, 550),
}

var bySymbol = func() map[string]Info {
	m := make(map[string]Info, len(known))
	for _, i := range known {
		m[i.Symbol] = i
	}
	return m
}()

// Known returns the reference table in display order.
func Known() []Info {
	out := make([]Info, len(known))
	copy(out, known)
	return out
}

// Lookup returns the reference data for symbol, if any.
func Lookup(symbol string) (Info, bool) {
	i, ok := bySymbol[symbol]
	return i, ok
}

// Normalize trims and upper-cases a symbol and validates its format.
func Normalize(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolRegex.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// BasePrice is the midpoint of the symbol's configured range, or
// DefaultBasePrice for unknown symbols.
func BasePrice(symbol string) decimal.Decimal {
	i, ok := Lookup(symbol)
	if !ok {
		return DefaultBasePrice
	}
	return i.Low.Add(i.High).Div(decimal.NewFromInt(2))
}

// CompanyName returns the display name, falling back to "<SYMBOL> Corporation".
func CompanyName(symbol string) string {
	if i, ok := Lookup(symbol); ok {
		return i.Name
	}
	return symbol + " Corporation"
}

// Sector returns the symbol's sector or SectorOther.
func Sector(symbol string) string {
	if i, ok := Lookup(symbol); ok {
		return i.Sector
	}
	return SectorOther
}
