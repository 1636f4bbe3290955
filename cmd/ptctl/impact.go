package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/pricing"
	"github.com/papertrade/market-engine/internal/ticker"
)

type impactCmd struct {
	symbol string
	qty    int64
	repeat int
}

func (*impactCmd) Name() string     { return "impact" }
func (*impactCmd) Synopsis() string { return "show how repeated trades move a ticker's price state" }
func (*impactCmd) Usage() string {
	return `ptctl impact -ticker <symbol> -qty <signed shares> [-n <trades>]

  Applies the market impact of n identical trades to a fresh price engine
  and prints the noise-free price state after each one. Positive quantities
  buy, negative sell. The state stops at the clamp band
  [0.5, 2.0] x base price.
`
}

func (c *impactCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "ticker", "AAPL", "Ticker symbol.")
	f.Int64Var(&c.qty, "qty", 100, "Signed share quantity per trade.")
	f.IntVar(&c.repeat, "n", 10, "Number of trades to apply.")
}

func (c *impactCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbol, err := ticker.Normalize(c.symbol)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	dir, ok := model.DirectionOf(c.qty)
	if !ok || c.repeat <= 0 {
		fmt.Fprintln(os.Stderr, "qty must be non-zero and n positive")
		return subcommands.ExitUsageError
	}

	simulateImpact(os.Stdout, pricing.NewEngine(nil), symbol, c.qty, dir, c.repeat)
	return subcommands.ExitSuccess
}

func simulateImpact(out io.Writer, engine *pricing.Engine, symbol string, qty int64, dir model.Direction, n int) {
	base := engine.BasePrice(symbol)
	fmt.Fprintf(out, "%s base %s, impact %s per trade\n",
		symbol, base.StringFixed(2), pricing.Impact(qty).StringFixed(3))
	for i := 1; i <= n; i++ {
		state := engine.ApplyImpact(symbol, qty, dir)
		fmt.Fprintf(out, "%3d  %s  (%s x base)\n", i, state.StringFixed(4), state.Div(base).StringFixed(4))
	}
}
