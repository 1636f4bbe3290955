package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/subcommands"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papertrade/market-engine/internal/store"
)

type migrateCmd struct {
	dsn    string
	dryRun bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the ledger schema to PostgreSQL" }
func (*migrateCmd) Usage() string {
	return `ptctl migrate [-dsn <url>] [-n]

  Applies the embedded users/transactions schema. Every statement is
  idempotent, so running it against an up-to-date database is a no-op.
  The connection string defaults to $DATABASE_URL.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dsn, "dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string.")
	f.BoolVar(&c.dryRun, "n", false, "Print the statements instead of executing them.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dryRun {
		for _, stmt := range store.SchemaStatements() {
			fmt.Printf("%s;\n\n", stmt)
		}
		return subcommands.ExitSuccess
	}
	if c.dsn == "" {
		fmt.Fprintln(os.Stderr, "no database: set -dsn or DATABASE_URL")
		return subcommands.ExitUsageError
	}

	pool, err := pgxpool.New(ctx, c.dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return subcommands.ExitFailure
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	slog.Info("schema applied", "statements", len(store.SchemaStatements()))
	return subcommands.ExitSuccess
}
