// Package main is the entry point for the azup CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nnstorm/azup/cmd/azup/commands"
	"github.com/nnstorm/azup/internal/logging"
)

func main() {
	logging.Init(os.Getenv("AZUP_LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
