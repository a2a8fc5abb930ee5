package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/tablerelay"
	"github.com/luciancaetano/tablerelay/internal/protocol"
)

// DefaultPath is the HTTP path upgraded to WebSocket when ServerConfig.Path is empty.
const DefaultPath = "/ws"

// CheckOriginFn is a function that validates the origin of a WebSocket connection request.
// It receives the HTTP request and returns true if the origin is allowed, false otherwise.
type CheckOriginFn = func(r *http.Request) bool

// OnConnectFn is called when a new client connects, after the handshake and
// before the read loop starts. No message from the client is delivered before
// it returns.
type OnConnectFn = func(client tablerelay.Client)

// OnMessageFn is called for every inbound data frame, in arrival order, from the
// client's read goroutine.
type OnMessageFn = func(client tablerelay.Client, payload []byte)

// OnPongFn is called when the client answers a ping.
type OnPongFn = func(client tablerelay.Client)

// OnClientDisconnectFn is invoked exactly once when a client's read loop ends.
// voluntary is true when the peer closed the connection and false when the
// server closed or terminated it.
type OnClientDisconnectFn = func(client tablerelay.Client, voluntary bool)

type ServerConfig struct {
	Addr               string
	Path               string
	RateLimitConfig    *RateLimitConfig
	CheckOrigin        CheckOriginFn
	OnConnect          OnConnectFn
	OnMessage          OnMessageFn
	OnPong             OnPongFn
	OnClientDisconnect OnClientDisconnectFn
	Logger             *zap.Logger
}

// RateLimitConfig defines rate limiting configuration for clients
type RateLimitConfig struct {
	// MessagesPerSecond defines how many messages a client can send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 100 messages per second with burst of 200
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Server accepts WebSocket transports and hands them to the configured hooks.
type Server struct {
	addr    string
	path    string
	server  *http.Server
	clients sync.Map // map[string]*Client

	// Rate limiting configuration
	rateLimitConfig *RateLimitConfig

	mu           sync.RWMutex
	running      bool
	upgrader     websocket.Upgrader
	onConnect    OnConnectFn
	onMessage    OnMessageFn
	onPong       OnPongFn
	onDisconnect OnClientDisconnectFn
	logger       *zap.Logger
}

// New creates a new WebSocket server instance with the specified configuration.
//
// A nil RateLimitConfig selects DefaultRateLimitConfig(), an empty Path selects
// DefaultPath and a nil Logger discards logs. Hooks may be nil.
//
// The server uses the Gorilla WebSocket library with read/write buffer sizes of 1024 bytes.
// Rate limiting is applied per-client using a token bucket algorithm.
func New(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = DefaultRateLimitConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		addr:            cfg.Addr,
		path:            cfg.Path,
		rateLimitConfig: cfg.RateLimitConfig,
		onConnect:       cfg.OnConnect,
		onMessage:       cfg.OnMessage,
		onPong:          cfg.OnPong,
		onDisconnect:    cfg.OnClientDisconnect,
		logger:          cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// Start starts the WebSocket server
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New(tablerelay.ErrServerAlreadyRunning)
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Check for immediate startup errors with a small timeout
	select {
	case err := <-errChan:
		// Reset running state without calling Stop to avoid deadlock
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(stopCtx)
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("websocket server listening",
			zap.String("addr", s.addr),
			zap.String("path", s.path),
		)
		return nil
	}
}

// Stop stops the WebSocket server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	// Close all client connections
	s.clients.Range(func(key, value interface{}) bool {
		if client, ok := value.(*Client); ok {
			client.CloseWithCode(ctx, websocket.CloseGoingAway, "server shutting down")
		}
		return true
	})

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ClientCount returns the number of open transports.
func (s *Server) ClientCount() int {
	n := 0
	s.clients.Range(func(key, value interface{}) bool {
		n++
		return true
	})
	return n
}

// handleWebSocket handles incoming WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	client := NewClient(conn, r.RemoteAddr, s.rateLimitConfig)
	s.clients.Store(client.ID(), client)

	go s.handleClient(client)
}

// handleClient runs the read loop of a connected client
func (s *Server) handleClient(client *Client) {
	defer func() {
		voluntary := client.Context().Err() == nil

		s.clients.Delete(client.ID())
		client.Close(context.Background())
		if s.onDisconnect != nil {
			s.onDisconnect(client, voluntary)
		}
	}()

	client.conn.SetReadLimit(protocol.MaxPayloadSize)
	client.conn.SetPongHandler(func(string) error {
		if s.onPong != nil {
			s.onPong(client)
		}
		return nil
	})

	if s.onConnect != nil {
		s.onConnect(client)
	}

	for {
		select {
		case <-client.Context().Done():
			return
		default:
			_, data, err := client.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) &&
					client.Context().Err() == nil {
					s.logger.Error("websocket transport error",
						zap.String("conn_id", client.ID()),
						zap.String("remote_addr", client.RemoteAddr()),
						zap.Error(err),
					)
				}
				return
			}

			// Check rate limit before processing message
			if !client.CheckRateLimit(context.Background()) {
				s.logger.Warn("rate limit exceeded",
					zap.String("conn_id", client.ID()),
					zap.String("remote_addr", client.RemoteAddr()),
				)
				client.CloseWithCode(context.Background(), websocket.ClosePolicyViolation, tablerelay.ReasonRateLimited)
				return
			}

			if s.onMessage != nil {
				s.onMessage(client, data)
			}
		}
	}
}
