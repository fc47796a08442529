package client_test

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaximallyHack/Maximally-Hack-sub003/config"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/adapter/pubsub"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/registry"
	wshandler "github.com/MaximallyHack/Maximally-Hack-sub003/internal/handler/ws"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/service"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/client"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

type scheduledCall struct {
	delay time.Duration
	fire  func()
}

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

// fakeClock hands every AfterFunc to the test instead of the scheduler,
// so backoff can be observed and fired deterministically.
type fakeClock struct {
	scheduled chan scheduledCall
}

func newFakeClock() *fakeClock {
	return &fakeClock{scheduled: make(chan scheduledCall, 16)}
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) client.Timer {
	c.scheduled <- scheduledCall{delay: d, fire: fn}
	return &fakeTimer{}
}

func (c *fakeClock) next(t *testing.T) scheduledCall {
	t.Helper()
	select {
	case call := <-c.scheduled:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect scheduled")
		return scheduledCall{}
	}
}

func (c *fakeClock) assertNothingScheduled(t *testing.T) {
	t.Helper()
	select {
	case call := <-c.scheduled:
		t.Fatalf("unexpected reconnect scheduled with delay %s", call.delay)
	case <-time.After(200 * time.Millisecond):
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler wires the real server stack for end to end tests.
func newTestHandler(t *testing.T) (http.Handler, service.Notifier) {
	t.Helper()
	hub := registry.NewHub(discard())
	t.Cleanup(hub.Shutdown)

	cfg := &config.Config{Hub: config.HubConfig{SendBuffer: 16}}
	h := wshandler.NewHandler(discard(), hub, pubsub.NewNoopDispatcher(), cfg)
	return h, service.NewNotifierService(hub, discard())
}

func TestController_BackoffSequence(t *testing.T) {
	clock := newFakeClock()
	disconnects := make(chan struct{}, 16)

	ctrl, err := client.New(client.Options{
		ServerURL:     "http://127.0.0.1:1",
		UserID:        "u1",
		AutoReconnect: true,
		Logger:        discard(),
		Clock:         clock,
		OnDisconnect:  func() { disconnects <- struct{}{} },
	})
	require.NoError(t, err)
	defer ctrl.Disconnect()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, d := range want {
		call := clock.next(t)
		assert.Equal(t, d, call.delay, "retry %d", i+1)
		call.fire()
	}

	// Initial failure plus five retries, then the controller gives up.
	for i := 0; i < len(want)+1; i++ {
		select {
		case <-disconnects:
		case <-time.After(2 * time.Second):
			t.Fatalf("missing disconnect callback %d", i+1)
		}
	}
	clock.assertNothingScheduled(t)
	assert.False(t, ctrl.IsConnected())
	assert.False(t, ctrl.IsConnecting())
}

func TestController_DisconnectCancelsBackoff(t *testing.T) {
	clock := newFakeClock()

	ctrl, err := client.New(client.Options{
		ServerURL:     "http://127.0.0.1:1",
		UserID:        "u1",
		AutoReconnect: true,
		Logger:        discard(),
		Clock:         clock,
	})
	require.NoError(t, err)

	call := clock.next(t)
	ctrl.Disconnect()

	// A stale timer firing after Disconnect must stay inert.
	call.fire()
	clock.assertNothingScheduled(t)
	assert.False(t, ctrl.IsConnecting())
}

func TestController_AttemptsResetAfterSuccess(t *testing.T) {
	// Reserve a port, then release it so the first dials fail.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	clock := newFakeClock()
	connected := make(chan struct{}, 1)

	ctrl, err := client.New(client.Options{
		ServerURL:     "http://" + addr,
		UserID:        "u1",
		AutoReconnect: true,
		Logger:        discard(),
		Clock:         clock,
		OnConnect:     func() { connected <- struct{}{} },
	})
	require.NoError(t, err)
	defer ctrl.Disconnect()

	first := clock.next(t)
	require.Equal(t, 1*time.Second, first.delay)
	first.fire()

	second := clock.next(t)
	require.Equal(t, 2*time.Second, second.delay)

	// Bring the server up on the reserved port before the next retry.
	handler, _ := newTestHandler(t)
	l2, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	srv := &httptest.Server{Listener: l2, Config: &http.Server{Handler: handler}}
	srv.Start()
	t.Cleanup(srv.Close)

	second.fire()
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not reconnect")
	}

	// A fresh loss schedules from the base delay again.
	srv.CloseClientConnections()
	next := clock.next(t)
	assert.Equal(t, 1*time.Second, next.delay, "attempt counter should reset after a successful connect")
}

func TestController_EndToEnd(t *testing.T) {
	handler, notifier := newTestHandler(t)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pushes := make(chan *protocol.Push, 4)
	connected := make(chan struct{}, 1)

	ctrl, err := client.New(client.Options{
		ServerURL:   srv.URL,
		UserID:      "org1",
		IsOrganizer: true,
		EventID:     "evt42",
		Logger:      discard(),
		OnConnect:   func() { connected <- struct{}{} },
		OnMessage:   func(p *protocol.Push) { pushes <- p },
	})
	require.NoError(t, err)
	defer ctrl.Disconnect()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not connect")
	}

	// Authentication and the event subscription are automatic, but the
	// handshake races the broadcast below. Wait for the registration to
	// land before publishing.
	require.Eventually(t, func() bool {
		return notifier.Stats().Organizers == 1
	}, 2*time.Second, 20*time.Millisecond)

	notifier.SendSubmissionCreated("evt42", map[string]any{"title": "demo"})

	select {
	case push := <-pushes:
		assert.Equal(t, protocol.KindSubmissionCreated, push.Type)
		assert.Equal(t, "evt42", push.EventID)
		assert.NotEmpty(t, push.Timestamp)
		assert.Equal(t, push, ctrl.LastMessage())
	case <-time.After(2 * time.Second):
		t.Fatal("push not delivered")
	}
}

func TestController_DeriveURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		wantErr   bool
	}{
		{name: "http", serverURL: "http://example.com:8090"},
		{name: "https", serverURL: "https://example.com"},
		{name: "ws passthrough", serverURL: "ws://example.com/anything"},
		{name: "bad scheme", serverURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.New(client.Options{ServerURL: tt.serverURL, Logger: discard()})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestController_SendWhileDisconnectedDrops(t *testing.T) {
	ctrl, err := client.New(client.Options{
		ServerURL: "http://127.0.0.1:1",
		Logger:    discard(),
	})
	require.NoError(t, err)

	// Must not panic or block.
	ctrl.Send(map[string]string{"hello": "world"})
	assert.False(t, ctrl.IsConnected())
}
