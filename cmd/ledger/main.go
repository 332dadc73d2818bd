// ledger is the back-office command line for the dealer invoice ledger.
//
// Usage: go run ./cmd/ledger <command> [args]
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"dealer-ledger/internal/adapters/cli"
	"dealer-ledger/internal/bootstrap"
	"dealer-ledger/internal/config"
	"dealer-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Keep the terminal for command output; only warnings and errors are logged.
	zlog, err := logger.New(cfg.Server.Env, "warn")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()
	ledger, err := bootstrap.New(ctx, cfg, zlog, nil)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer ledger.Close()

	if err := cli.Run(ctx, ledger.App, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		ledger.Close()
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
