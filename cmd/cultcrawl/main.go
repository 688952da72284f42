// cmd/cultcrawl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cultcrawl/cultcrawl/internal/cli"
)

func main() {
	// Ctrl-C cancels the context; in-flight stages stop and persist
	// what they finished before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
