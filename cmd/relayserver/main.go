// Package main runs the table relay server: a WebSocket endpoint that keeps a
// shared token board in sync and relays room events between players.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay/internal/config"
	"github.com/luciancaetano/tablerelay/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults and TABLERELAY_* environment when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
