package tablerelay

import "context"

// WebsocketServer defines the interface for the WebSocket transport that hands
// connections to the relay core.
//
// Example usage:
//
//	import "github.com/luciancaetano/tablerelay/ws"
//
//	cfg := ws.NewConfig(":8080", ws.DefaultRateLimitConfig(), ws.AllOrigins(), hooks)
//	server := ws.New(cfg)
//	server.Start(ctx)
type WebsocketServer interface {
	// Start starts the WebSocket server and begins listening for connections.
	// The server will continue running until Stop is called or the context is cancelled.
	//
	// Returns an error if the server is already running or if there's a problem
	// binding to the network address.
	Start(ctx context.Context) error

	// Stop gracefully stops the WebSocket server and closes all client connections.
	//
	// Returns an error if there's a problem during shutdown.
	Stop(ctx context.Context) error

	// ClientCount returns the number of transports currently open.
	ClientCount() int
}

// Client represents one accepted WebSocket transport.
//
// A Client is a capability: the relay core uses it to send frames, probe
// liveness and close the connection, but the transport owns its lifecycle.
// The ID is per transport, not per logical player; a player that reconnects
// arrives on a new Client with a new ID.
type Client interface {
	// ID returns a unique identifier for the transport.
	ID() string

	// RemoteAddr returns the client's remote network address.
	//
	// This is typically in the format "IP:port", for example "192.168.1.100:54321".
	RemoteAddr() string

	// Context returns the client's lifecycle context.
	//
	// This context is cancelled when the connection closes.
	Context() context.Context

	// Send queues a text frame for delivery. It never blocks: when the client is
	// closed or its send buffer is full the frame is dropped and an error is
	// returned.
	Send(ctx context.Context, payload []byte) error

	// Ping writes a ping control frame. The peer's pong is reported through the
	// server's OnPong hook.
	Ping(ctx context.Context) error

	// Close closes the client connection gracefully.
	//
	// This is equivalent to calling CloseWithCode with websocket.CloseNormalClosure.
	Close(ctx context.Context) error

	// CloseWithCode closes the connection with a specific WebSocket close code and optional reason.
	//
	// Common close codes:
	//   - 1000 (websocket.CloseNormalClosure): Normal closure
	//   - 1001 (websocket.CloseGoingAway): Endpoint going away
	//   - 1008 (websocket.ClosePolicyViolation): Rate limit exceeded
	CloseWithCode(ctx context.Context, code int, reason string) error

	// Terminate drops the underlying socket without a close handshake.
	Terminate() error

	// IsAlive returns true while the connection is open and writable.
	IsAlive() bool
}
