package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"access-tool/internal/cli"
	"access-tool/internal/common/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(cli.Options{Config: cfg}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorText(err))
		stop()
		os.Exit(1)
	}
}
