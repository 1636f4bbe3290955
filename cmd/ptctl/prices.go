package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/papertrade/market-engine/internal/analytics"
	"github.com/papertrade/market-engine/internal/jitter"
	"github.com/papertrade/market-engine/internal/model"
	"github.com/papertrade/market-engine/internal/pricing"
)

type pricesCmd struct {
	seed   uint64
	asJSON bool
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "print a market snapshot for every known ticker" }
func (*pricesCmd) Usage() string {
	return `ptctl prices [-seed <n>] [-json]

  Quotes every ticker of the reference table from a fresh price engine,
  i.e. at its base price plus quote noise, with a synthetic day change.
  A non-zero seed makes the output reproducible.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&c.seed, "seed", 0, "Seed for quote noise and day change (0 = random).")
	f.BoolVar(&c.asJSON, "json", false, "Emit JSON instead of a table.")
}

func (c *pricesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rng := jitter.Default()
	if c.seed != 0 {
		rng = jitter.Seeded(c.seed)
	}
	prices := analytics.MarketSnapshot(pricing.NewEngine(rng), rng)

	if err := writePrices(os.Stdout, prices, c.asJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writePrices(out io.Writer, prices []model.MarketPrice, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(prices)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TICKER\tPRICE\tCHANGE\tCHANGE %\tCOMPANY\t")
	for _, p := range prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			p.Ticker, p.CurrentPrice.StringFixed(2), p.DayChange.StringFixed(2),
			p.DayChangePercent.StringFixed(2), p.CompanyName)
	}
	return tw.Flush()
}
