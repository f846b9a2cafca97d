package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/GowthamR7/wallet-frontend/internal/api"
	"github.com/GowthamR7/wallet-frontend/internal/cli"
	"github.com/GowthamR7/wallet-frontend/internal/config"
	"github.com/GowthamR7/wallet-frontend/internal/logging"
	"github.com/GowthamR7/wallet-frontend/internal/notice"
	"github.com/GowthamR7/wallet-frontend/internal/session"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	client, err := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, logger)
	if err != nil {
		logger.Error("build wallet service client", "error", err)
		os.Exit(1)
	}

	notifier := notice.NewWriter(os.Stdout)
	sess := session.New(client, notifier, logger)
	app := cli.New(cfg, client, sess, notifier, logger, os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error("dashboard exited", "error", err)
		os.Exit(1)
	}
}
