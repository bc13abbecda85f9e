// Command forum creates and reads forum threads from the command line and
// serves the ledger over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacentio/forumledger/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
