package ws

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay"
	"github.com/luciancaetano/tablerelay/internal/websocket"
)

type RateLimitConfig = websocket.RateLimitConfig
type CheckOriginFn = websocket.CheckOriginFn
type OnConnectFn = websocket.OnConnectFn
type OnMessageFn = websocket.OnMessageFn
type OnPongFn = websocket.OnPongFn
type OnDisconnectFn = websocket.OnClientDisconnectFn
type ServerConfig = *websocket.ServerConfig

// Hooks are the callbacks through which the transport hands connections to the
// relay core. Any of them may be nil.
type Hooks struct {
	OnConnect    OnConnectFn
	OnMessage    OnMessageFn
	OnPong       OnPongFn
	OnDisconnect OnDisconnectFn
}

// New creates a new WebSocket server from cfg.
//
// Example:
//
//	server := ws.New(ws.NewConfig(":8080", ws.DefaultRateLimitConfig(), ws.AllOrigins(), hooks))
func New(cfg ServerConfig) tablerelay.WebsocketServer {
	return websocket.New(cfg)
}

// NewConfig builds a server configuration listening on addr at the default path.
// Use WithPath and WithLogger to adjust it.
func NewConfig(addr string, rateLimitConfig *RateLimitConfig, checkOrigin CheckOriginFn, hooks Hooks) ServerConfig {
	return &websocket.ServerConfig{
		Addr:               addr,
		RateLimitConfig:    rateLimitConfig,
		CheckOrigin:        checkOrigin,
		OnConnect:          hooks.OnConnect,
		OnMessage:          hooks.OnMessage,
		OnPong:             hooks.OnPong,
		OnClientDisconnect: hooks.OnDisconnect,
	}
}

// WithPath sets the HTTP path that is upgraded to WebSocket.
func WithPath(cfg ServerConfig, path string) ServerConfig {
	cfg.Path = path
	return cfg
}

// WithLogger sets the transport logger.
func WithLogger(cfg ServerConfig, logger *zap.Logger) ServerConfig {
	cfg.Logger = logger
	return cfg
}

// AllOrigins returns the default checkOrigin function that allows all origins
func AllOrigins() CheckOriginFn {
	return func(r *http.Request) bool {
		return true
	}
}

// OriginList allows only requests whose Origin header is one of origins.
// An empty list allows every origin.
func OriginList(origins []string) CheckOriginFn {
	if len(origins) == 0 {
		return AllOrigins()
	}
	allowed := slices.Clone(origins)
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}
