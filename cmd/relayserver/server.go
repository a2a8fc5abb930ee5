package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/tablerelay/internal/config"
	"github.com/luciancaetano/tablerelay/internal/observability"
	"github.com/luciancaetano/tablerelay/internal/relay"
	"github.com/luciancaetano/tablerelay/ws"
)

// run starts the relay core and the WebSocket transport and blocks until ctx
// is cancelled. The transport is stopped before the relay so that the final
// disconnects are still processed.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	core := relay.New(relay.Config{
		DefaultRoom:     cfg.Rooms.Default,
		HeartbeatPeriod: cfg.Heartbeat.Period,
	}, observability.Component(logger, observability.ComponentRelay))

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	defer cancelRelay()
	relayDone := make(chan error, 1)
	go func() { relayDone <- core.Run(relayCtx) }()

	server := ws.New(serverConfig(cfg, core, logger))
	if err := server.Start(ctx); err != nil {
		cancelRelay()
		<-relayDone
		return fmt.Errorf("starting websocket server: %w", err)
	}

	logger.Info("table relay ready",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("path", cfg.Server.Path),
		zap.String("default_room", cfg.Rooms.Default),
		zap.Duration("heartbeat_period", cfg.Heartbeat.Period),
		zap.Duration("heartbeat_timeout", cfg.Heartbeat.Timeout),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	<-ctx.Done()
	logger.Info("shutting down", zap.Int("clients", server.ClientCount()))

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	stopErr := server.Stop(stopCtx)

	cancelRelay()
	if err := <-relayDone; err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("stopping websocket server: %w", stopErr)
	}
	return nil
}

func serverConfig(cfg config.Config, core *relay.Relay, logger *zap.Logger) ws.ServerConfig {
	hooks := ws.Hooks{
		OnConnect:    core.Connect,
		OnMessage:    core.Receive,
		OnPong:       core.Pong,
		OnDisconnect: core.Disconnect,
	}
	sc := ws.NewConfig(cfg.Server.Addr(), rateLimit(cfg.RateLimit), ws.OriginList(cfg.Server.AllowedOrigins), hooks)
	sc = ws.WithPath(sc, cfg.Server.Path)
	return ws.WithLogger(sc, observability.Component(logger, observability.ComponentTransport))
}

func rateLimit(cfg config.RateLimitConfig) *ws.RateLimitConfig {
	if !cfg.Enabled {
		return ws.NoRateLimit()
	}
	return &ws.RateLimitConfig{
		MessagesPerSecond: rate.Limit(cfg.MessagesPerSecond),
		Burst:             cfg.Burst,
		Enabled:           true,
	}
}
