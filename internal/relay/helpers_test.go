package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClient records everything the relay does to a transport.
type fakeClient struct {
	id string

	mu         sync.Mutex
	frames     [][]byte
	pings      int
	closed     bool
	terminated bool
	closeCode  int
	closeText  string
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id}
}

func (f *fakeClient) ID() string                      { return f.id }
func (f *fakeClient) RemoteAddr() string              { return "127.0.0.1:0" }
func (f *fakeClient) Context() context.Context        { return context.Background() }
func (f *fakeClient) Close(ctx context.Context) error { return f.CloseWithCode(ctx, 1000, "") }

func (f *fakeClient) Send(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.frames = append(f.frames, append([]byte(nil), payload...))
	return nil
}

func (f *fakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.pings++
	return nil
}

func (f *fakeClient) CloseWithCode(_ context.Context, code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.closeCode = code
		f.closeText = reason
	}
	return nil
}

func (f *fakeClient) Terminate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.terminated = true
	return nil
}

func (f *fakeClient) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// messages decodes every frame received so far.
func (f *fakeClient) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(frame, &m), "frame %s", frame)
		out = append(out, m)
	}
	return out
}

// ofType returns the received messages whose type is kind.
func (f *fakeClient) ofType(t *testing.T, kind string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range f.messages(t) {
		if m["type"] == kind {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeClient) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeClient) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// closeState reports whether the transport was closed and with which code and
// reason.
func (f *fakeClient) closeState() (bool, int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode, f.closeText
}

func (f *fakeClient) wasClosed() bool {
	closed, _, _ := f.closeState()
	return closed
}

func (f *fakeClient) wasTerminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated
}

// newTestRelay returns a relay with predictable identities client-1, client-2, ...
func newTestRelay() *Relay {
	r := New(Config{}, zap.NewNop())
	n := 0
	r.newIdentity = func() string {
		n++
		return fmt.Sprintf("client-%d", n)
	}
	return r
}

// connect drives a fresh transport through the connect handler.
func connect(r *Relay, transportID string) (*fakeClient, *Connection) {
	fc := newFakeClient(transportID)
	r.handleConnect(fc)
	conn, _ := r.registry.Get(transportID)
	return fc, conn
}

func sendJSON(r *Relay, fc *fakeClient, payload string) {
	r.handleMessage(fc, []byte(payload))
}
