package client

import (
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

// Options configures a Controller. Zero values are usable except
// ServerURL, which is required.
type Options struct {
	// ServerURL is the base URL of the realtime server, e.g.
	// "https://hack.example.com". The socket path /ws is appended and the
	// scheme mapped to ws/wss.
	ServerURL string

	// UserID authenticates the connection once open. A non-empty UserID
	// also triggers an initial Connect from New.
	UserID      string
	IsOrganizer bool

	// EventID, when set, is subscribed to automatically after every
	// successful authentication, including re-authentication after a
	// reconnect.
	EventID string

	// Callbacks are invoked from the controller's own goroutines and
	// must not block for long.
	OnMessage    func(*protocol.Push)
	OnConnect    func()
	OnDisconnect func()

	// AutoReconnect re-dials after a lost connection with exponential
	// backoff, giving up silently after five attempts. Observe
	// IsConnected to detect the give-up.
	AutoReconnect bool

	Logger *slog.Logger
	Dialer *websocket.Dialer

	// Clock overrides timer scheduling in tests.
	Clock Clock
}
