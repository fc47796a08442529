// Package client is the Go SDK for the realtime socket: it keeps one
// logical subscription alive across physical reconnects and dispatches
// inbound pushes to a caller-supplied listener.
//
// The controller is an explicit state machine, disconnected → connecting
// → connected, driven by discrete events: dial result, inbound frame,
// socket close, manual disconnect. Connection loss schedules a re-dial
// with exponential backoff; authentication and the configured event
// subscription are re-established transparently on every reconnect.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second

	writeTimeout = 10 * time.Second
)

// Controller manages one outbound connection's lifecycle. All methods are
// safe for concurrent use.
type Controller struct {
	opts   Options
	url    string
	logger *slog.Logger
	dialer *websocket.Dialer
	clock  Clock

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	attempts    int
	timer       Timer
	manual      bool
	gen         int // bumped on manual disconnect to invalidate stale events
	eventID     string
	lastMessage *protocol.Push

	// wmu serializes socket writes; gorilla allows one writer at a time.
	wmu sync.Mutex
}

// New creates a Controller. When opts.UserID is non-empty the controller
// connects immediately, mirroring activation on login.
func New(opts Options) (*Controller, error) {
	wsURL, err := deriveURL(opts.ServerURL)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}

	c := &Controller{
		opts:    opts,
		url:     wsURL,
		logger:  logger.With("component", "realtime-client"),
		dialer:  dialer,
		clock:   clock,
		eventID: opts.EventID,
	}

	if opts.UserID != "" {
		c.Connect()
	}
	return c, nil
}

// deriveURL maps the server base URL to the socket endpoint: scheme
// http→ws, https→wss, path fixed at /ws.
func deriveURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Connect opens the socket. No-op when already connected or connecting,
// so concurrent invocation cannot produce duplicate sockets. The dial
// itself runs in the background; the outcome arrives via callbacks.
func (c *Controller) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.manual = false
	gen := c.gen
	c.mu.Unlock()

	go c.dial(gen)
}

func (c *Controller) dial(gen int) {
	conn, resp, err := c.dialer.Dial(c.url, nil) //nolint:bodyclose
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Manually disconnected while dialing.
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Warn("connect failed", "url", c.url, "error", err)
		c.onClosed(gen)
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.url)
	if c.opts.UserID != "" {
		c.write(&protocol.ClientFrame{
			Type:        protocol.TypeAuthenticate,
			UserID:      c.opts.UserID,
			IsOrganizer: c.opts.IsOrganizer,
		})
	}
	if c.opts.OnConnect != nil {
		c.opts.OnConnect()
	}

	go c.readLoop(conn, gen)
}

func (c *Controller) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleFrame(data)
	}

	c.mu.Lock()
	if c.gen != gen {
		// Manual disconnect already ran the close path.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.onClosed(gen)
}

// onClosed runs the shared close path: notify the listener, then schedule
// a reconnect unless disabled, exhausted, or manually disconnected.
func (c *Controller) onClosed(gen int) {
	c.mu.Lock()
	schedule := c.opts.AutoReconnect && !c.manual && c.attempts < maxReconnectAttempts
	if schedule {
		delay := backoffDelay(c.attempts)
		c.logger.Info("reconnect scheduled", "attempt", c.attempts+1, "delay", delay)
		c.timer = c.clock.AfterFunc(delay, func() {
			c.mu.Lock()
			if c.gen != gen || c.state != StateDisconnected {
				c.mu.Unlock()
				return
			}
			c.attempts++
			c.timer = nil
			c.mu.Unlock()
			c.Connect()
		})
	} else if c.opts.AutoReconnect && !c.manual {
		// Exhausted: stop silently. Callers observe IsConnected.
		c.logger.Warn("reconnect attempts exhausted", "attempts", c.attempts)
	}
	c.mu.Unlock()

	if c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
}

// backoffDelay is min(1s·2^attempts, 30s).
func backoffDelay(attempts int) time.Duration {
	d := baseReconnectDelay << attempts
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}

func (c *Controller) handleFrame(data []byte) {
	var frame protocol.ServerFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn("unparsable frame", "error", err)
		return
	}

	switch {
	case frame.Type == protocol.TypeAuthenticated:
		c.logger.Debug("authenticated", "client_id", frame.ClientID)
		c.mu.Lock()
		eventID := c.eventID
		c.mu.Unlock()
		if eventID != "" {
			c.write(&protocol.ClientFrame{
				Type:    protocol.TypeSubscribeEvent,
				EventID: eventID,
			})
		}

	case frame.Type == protocol.TypeSubscribed:
		c.logger.Debug("subscribed", "event_id", frame.EventID)

	case frame.Type == protocol.TypeUnsubscribed:
		c.logger.Debug("unsubscribed", "event_id", frame.EventID)

	case frame.Type == protocol.TypeError:
		c.logger.Warn("server error", "error", frame.Error)

	case protocol.IsDomainKind(frame.Type):
		push := &protocol.Push{
			Type:      frame.Type,
			EventID:   frame.EventID,
			Data:      frame.Data,
			Timestamp: frame.Timestamp,
		}
		c.mu.Lock()
		c.lastMessage = push
		c.mu.Unlock()
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(push)
		}

	default:
		c.logger.Debug("unhandled frame", "type", frame.Type)
	}
}

// Disconnect tears the connection down: cancels any pending reconnect,
// closes the socket and resets to disconnected. Idempotent, and always
// effective even mid-backoff.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	c.gen++
	c.manual = true
	c.attempts = 0
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if wasConnected && c.opts.OnDisconnect != nil {
		c.opts.OnDisconnect()
	}
}

// SubscribeToEvent records eventID as the controller's subscription and
// sends the control frame when connected. When disconnected the updated
// configuration takes effect on the next authenticated handshake.
func (c *Controller) SubscribeToEvent(eventID string) {
	c.mu.Lock()
	c.eventID = eventID
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		c.write(&protocol.ClientFrame{
			Type:    protocol.TypeSubscribeEvent,
			EventID: eventID,
		})
	}
}

// UnsubscribeFromEvent clears the configured subscription if it matches
// and sends the control frame when connected.
func (c *Controller) UnsubscribeFromEvent(eventID string) {
	c.mu.Lock()
	if c.eventID == eventID {
		c.eventID = ""
	}
	connected := c.state == StateConnected
	c.mu.Unlock()

	if connected {
		c.write(&protocol.ClientFrame{
			Type:    protocol.TypeUnsubscribeEvent,
			EventID: eventID,
		})
	}
}

// Send transmits an arbitrary payload when connected; otherwise it logs a
// warning and drops the payload. It never fails loudly.
func (c *Controller) Send(v any) {
	c.mu.Lock()
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected {
		c.logger.Warn("send while disconnected, dropping")
		return
	}
	c.write(v)
}

func (c *Controller) write(v any) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.logger.Warn("write with no socket, dropping")
		return
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	if err := conn.WriteJSON(v); err != nil {
		// The read loop sees the same failure and runs the close path.
		c.logger.Warn("write failed", "error", err)
	}
}

func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

func (c *Controller) IsConnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnecting
}

// LastMessage returns the most recent domain push, or nil.
func (c *Controller) LastMessage() *protocol.Push {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMessage
}
