package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fivetwenty-io/stackapi/cmd/stackapi/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := commands.NewRootCommand(version, commit, date).ExecuteContext(ctx)

	stop()

	if err != nil {
		commands.PrintError(os.Stderr, err)

		os.Exit(1)
	}
}
