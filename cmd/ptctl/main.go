// Command ptctl is the operator CLI for the paper trading engine.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&pricesCmd{}, "market")
	commander.Register(&impactCmd{}, "market")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
