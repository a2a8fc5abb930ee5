package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/tablerelay"
)

// TestDefaultRateLimitConfig tests the default rate limit configuration
func TestDefaultRateLimitConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRateLimitConfig()
	require.NotNil(t, config)
	assert.True(t, config.Enabled)
	assert.Equal(t, rate.Limit(100), config.MessagesPerSecond)
	assert.Equal(t, 200, config.Burst)
}

// TestNoRateLimit tests the no rate limit configuration
func TestNoRateLimit(t *testing.T) {
	t.Parallel()

	config := NoRateLimit()
	require.NotNil(t, config)
	assert.False(t, config.Enabled)
}

// TestNewServer tests server creation with various configurations
func TestNewServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		cfg             *ServerConfig
		wantPath        string
		wantRateEnabled bool
	}{
		{
			name:            "defaults",
			cfg:             &ServerConfig{Addr: ":8080"},
			wantPath:        DefaultPath,
			wantRateEnabled: true,
		},
		{
			name:            "custom path without rate limit",
			cfg:             &ServerConfig{Addr: ":8081", Path: "/table", RateLimitConfig: NoRateLimit()},
			wantPath:        "/table",
			wantRateEnabled: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := New(tt.cfg)
			require.NotNil(t, server)
			assert.Equal(t, tt.cfg.Addr, server.addr)
			assert.Equal(t, tt.wantPath, server.path)
			require.NotNil(t, server.rateLimitConfig)
			assert.Equal(t, tt.wantRateEnabled, server.rateLimitConfig.Enabled)
			assert.NotNil(t, server.logger)
			assert.False(t, server.running)
			assert.Equal(t, 1024, server.upgrader.ReadBufferSize)
			assert.Equal(t, 1024, server.upgrader.WriteBufferSize)
		})
	}
}

// recorder collects hook invocations from a test server
type recorder struct {
	connected   chan tablerelay.Client
	messages    chan string
	pongs       chan string
	disconnects chan bool
}

func newRecorder() *recorder {
	return &recorder{
		connected:   make(chan tablerelay.Client, 8),
		messages:    make(chan string, 64),
		pongs:       make(chan string, 8),
		disconnects: make(chan bool, 8),
	}
}

func (r *recorder) config(rl *RateLimitConfig) *ServerConfig {
	return &ServerConfig{
		RateLimitConfig: rl,
		CheckOrigin:     func(*http.Request) bool { return true },
		OnConnect:       func(c tablerelay.Client) { r.connected <- c },
		OnMessage:       func(c tablerelay.Client, p []byte) { r.messages <- string(p) },
		OnPong:          func(c tablerelay.Client) { r.pongs <- c.ID() },
		OnClientDisconnect: func(c tablerelay.Client, voluntary bool) {
			r.disconnects <- voluntary
		},
	}
}

// startTestServer serves handleWebSocket on an httptest listener and dials it
func startTestServer(t *testing.T, rec *recorder, rl *RateLimitConfig) (*Server, *websocket.Conn, tablerelay.Client) {
	t.Helper()

	server := New(rec.config(rl))
	hs := httptest.NewServer(http.HandlerFunc(server.handleWebSocket))
	t.Cleanup(hs.Close)

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case client := <-rec.connected:
		return server, conn, client
	case <-time.After(5 * time.Second):
		t.Fatal("OnConnect was not called")
		return nil, nil, nil
	}
}

func TestServerDeliversFramesInOrder(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	server, conn, _ := startTestServer(t, rec, NoRateLimit())
	assert.Equal(t, 1, server.ClientCount())

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-rec.messages:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %q not delivered", want)
		}
	}
}

func TestClientSendWritesTextFrame(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	_, conn, client := startTestServer(t, rec, NoRateLimit())

	require.NoError(t, client.Send(context.Background(), []byte(`{"type":"pong"}`)))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, `{"type":"pong"}`, string(data))
}

func TestClientPingReportsPong(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	_, conn, client := startTestServer(t, rec, NoRateLimit())

	// The peer must be reading for gorilla's default ping handler to answer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, client.Ping(context.Background()))

	select {
	case id := <-rec.pongs:
		assert.Equal(t, client.ID(), id)
	case <-time.After(5 * time.Second):
		t.Fatal("pong not reported")
	}
}

func TestTerminateIsInvoluntaryDisconnect(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	server, _, client := startTestServer(t, rec, NoRateLimit())

	require.NoError(t, client.Terminate())
	assert.False(t, client.IsAlive())
	assert.Error(t, client.Send(context.Background(), []byte("late")))

	select {
	case voluntary := <-rec.disconnects:
		assert.False(t, voluntary)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect not reported")
	}
	assert.Eventually(t, func() bool { return server.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestPeerCloseIsVoluntaryDisconnect(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	_, conn, _ := startTestServer(t, rec, NoRateLimit())

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case voluntary := <-rec.disconnects:
		assert.True(t, voluntary)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect not reported")
	}
}

func TestRateLimitClosesWithPolicyViolation(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rl := &RateLimitConfig{MessagesPerSecond: 1, Burst: 1, Enabled: true}
	_, conn, _ := startTestServer(t, rec, rl)

	for i := 0; i < 5; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("spam")); err != nil {
			break
		}
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	select {
	case voluntary := <-rec.disconnects:
		assert.False(t, voluntary)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect not reported")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	cfg := rec.config(nil)
	cfg.Addr = "127.0.0.1:18231"
	server := New(cfg)

	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	assert.Error(t, server.Start(ctx), "second Start must fail")

	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial("ws://127.0.0.1:18231"+DefaultPath, nil)
	require.NoError(t, err)
	defer conn.Close()
	<-rec.connected

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(stopCtx))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.NoError(t, server.Stop(stopCtx), "Stop on a stopped server is a no-op")
}
