// Package relay is the table relay core: connection registry, room index,
// token store, message dispatch, reconnect handling and heartbeat supervision.
//
// All state is owned by a single event loop (Run). Transport callbacks
// (Connect, Receive, Pong, Disconnect) only enqueue events, so handlers never
// run concurrently and no state is locked.
package relay

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luciancaetano/tablerelay"
)

// ErrStopped is returned when an event is posted after Run has returned.
var ErrStopped = errors.New(tablerelay.ErrRelayStopped)

const (
	// DefaultHeartbeatPeriod is the interval between liveness sweeps.
	DefaultHeartbeatPeriod = 30 * time.Second

	eventBufferSize = 1024
)

// Config holds the relay settings.
type Config struct {
	// DefaultRoom is the room new connections are placed in.
	DefaultRoom string
	// HeartbeatPeriod is the interval between liveness sweeps. A silent
	// connection is terminated one to two periods after its last activity.
	HeartbeatPeriod time.Duration
}

// Relay serializes every event touching the registry and the token store.
type Relay struct {
	cfg         Config
	logger      *zap.Logger
	registry    *Registry
	store       *TokenStore
	newIdentity func() string

	events chan func()
	done   chan struct{}
}

// New builds a relay seeded with SeedTokens. A nil logger discards logs.
func New(cfg Config, logger *zap.Logger) *Relay {
	if cfg.DefaultRoom == "" {
		cfg.DefaultRoom = tablerelay.DefaultRoom
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		cfg:         cfg,
		logger:      logger,
		registry:    NewRegistry(cfg.DefaultRoom),
		store:       NewTokenStore(SeedTokens()),
		newIdentity: uuid.NewString,
		events:      make(chan func(), eventBufferSize),
		done:        make(chan struct{}),
	}
}

// Run processes events and heartbeat ticks until ctx is cancelled. It must be
// called at most once.
func (r *Relay) Run(ctx context.Context) error {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.HeartbeatPeriod)
	defer ticker.Stop()

	r.logger.Info("relay started",
		zap.String("default_room", r.cfg.DefaultRoom),
		zap.Duration("heartbeat_period", r.cfg.HeartbeatPeriod),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped", zap.Int("connections", r.registry.Len()))
			return nil
		case fn := <-r.events:
			fn()
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Relay) post(fn func()) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.events <- fn:
		return nil
	case <-r.done:
		return ErrStopped
	}
}

// Connect registers a newly accepted transport.
func (r *Relay) Connect(client tablerelay.Client) {
	r.postOrLog(client, "connect", func() { r.handleConnect(client) })
}

// Receive hands an inbound frame to the dispatcher.
func (r *Relay) Receive(client tablerelay.Client, payload []byte) {
	r.postOrLog(client, "message", func() { r.handleMessage(client, payload) })
}

// Pong records a heartbeat response.
func (r *Relay) Pong(client tablerelay.Client) {
	r.postOrLog(client, "pong", func() { r.handlePong(client) })
}

// Disconnect tears down a closed transport.
func (r *Relay) Disconnect(client tablerelay.Client, voluntary bool) {
	r.postOrLog(client, "disconnect", func() { r.handleDisconnect(client, voluntary) })
}

// Inspect runs fn on the event loop with read access to the relay state and
// waits for it to finish.
func (r *Relay) Inspect(ctx context.Context, fn func(*Registry, *TokenStore)) error {
	finished := make(chan struct{})
	if err := r.post(func() {
		defer close(finished)
		fn(r.registry, r.store)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) postOrLog(client tablerelay.Client, event string, fn func()) {
	if err := r.post(fn); err != nil {
		r.logger.Debug("event dropped",
			zap.String("event", event),
			zap.String("conn_id", client.ID()),
			zap.Error(err),
		)
	}
}

func (r *Relay) handleConnect(client tablerelay.Client) {
	conn := r.registry.Add(client)
	conn.identity = r.newIdentity()
	r.registry.Join(conn, r.registry.DefaultRoom())

	r.logger.Info("client connected",
		zap.String("client_id", conn.identity),
		zap.String("conn_id", client.ID()),
		zap.String("remote_addr", client.RemoteAddr()),
		zap.String("room_id", conn.roomID),
		zap.Int("room_size", len(r.registry.Members(conn.roomID))),
	)
	r.welcome(conn)
}

func (r *Relay) handlePong(client tablerelay.Client) {
	if conn, ok := r.registry.Get(client.ID()); ok {
		conn.alive = true
	}
}

func (r *Relay) handleDisconnect(client tablerelay.Client, voluntary bool) {
	conn, ok := r.registry.Get(client.ID())
	if !ok {
		return
	}
	r.unregister(conn)
	r.logger.Info("client disconnected",
		zap.String("client_id", conn.identity),
		zap.String("conn_id", client.ID()),
		zap.Bool("voluntary", voluntary),
	)
}
