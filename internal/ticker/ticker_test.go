package ticker

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestNormalize_Valid(t *testing.T) {
	tests := map[string]string{
		"AAPL":   "AAPL",
		" aapl ": "AAPL",
		"brk.b":  "BRK.B",
		"V":      "V",
		"x1":     "X1",
	}
	for in, want := range tests {
		got, err := Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"1ABC",
		"AB CD",
		"ABCDEFGHIJK", // too long
		"AAPL$",
		".AAPL",
	}
	for _, in := range tests {
		_, err := Normalize(in)
		if !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("Normalize(%q): expected ErrInvalidSymbol, got %v", in, err)
		}
	}
}

func TestBasePrice_KnownTickers(t *testing.T) {
	tests := []struct {
		symbol string
		want   float64
	}{
		{"AAPL", 175},
		{"MSFT", 400},
		{"TSLA", 250},
		{"NVDA", 875},
		{"DIS", 112.5},
		{"BAC", 37.5},
	}
	for _, tt := range tests {
		got := BasePrice(tt.symbol)
		if !got.Equal(d(tt.want)) {
			t.Errorf("BasePrice(%s) = %s, want %v", tt.symbol, got, tt.want)
		}
	}
}

func TestBasePrice_UnknownTicker(t *testing.T) {
	if got := BasePrice("ZZZZ"); !got.Equal(DefaultBasePrice) {
		t.Errorf("expected default base price %s, got %s", DefaultBasePrice, got)
	}
}

func TestBasePrice_Deterministic(t *testing.T) {
	for _, i := range Known() {
		a, b := BasePrice(i.Symbol), BasePrice(i.Symbol)
		if !a.Equal(b) {
			t.Errorf("%s: base price not stable: %s vs %s", i.Symbol, a, b)
		}
		if a.LessThan(i.Low) || a.GreaterThan(i.High) {
			t.Errorf("%s: base price %s outside range [%s, %s]", i.Symbol, a, i.Low, i.High)
		}
	}
}

func TestCompanyNameAndSector(t *testing.T) {
	if got := CompanyName("AAPL"); got != "Apple Inc." {
		t.Errorf("unexpected name: %s", got)
	}
	if got := CompanyName("ZZZZ"); got != "ZZZZ Corporation" {
		t.Errorf("unexpected fallback name: %s", got)
	}
	if got := Sector("JPM"); got != "Financial" {
		t.Errorf("unexpected sector: %s", got)
	}
	if got := Sector("ZZZZ"); got != SectorOther {
		t.Errorf("expected %s, got %s", SectorOther, got)
	}
}

func TestKnown_ReturnsCopy(t *testing.T) {
	k := Known()
	if len(k) != 18 {
		t.Fatalf("expected 18 known tickers, got %d", len(k))
	}
	k[0].Name = "mutated"
	if Known()[0].Name == "mutated" {
		t.Error("Known() must not expose the internal table")
	}
}

func TestLookup(t *testing.T) {
	i, ok := Lookup("NVDA")
	if !ok {
		t.Fatal("expected NVDA in reference table")
	}
	if i.Symbol != "NVDA" || i.Sector != Sector("NVDA") || i.Name != CompanyName("NVDA") {
		t.Errorf("unexpected info %+v", i)
	}
	if _, ok := Lookup("nvda"); ok {
		t.Error("Lookup expects a normalized symbol")
	}
	if _, ok := Lookup("ZZZZ"); ok {
		t.Error("unexpected entry for ZZZZ")
	}
}
