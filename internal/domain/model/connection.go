package model

import "time"

// Transport is the interface for external layers (registry, handlers) to
// push frames to one live socket. This allows mocking and decoupling
// from the concrete WebSocket session.
type Transport interface {
	// Send enqueues one outbound frame without blocking. It returns false
	// if the connection is closed or its buffer is full; the frame is
	// dropped in that case, never queued.
	Send(data []byte) bool

	// Close terminates the connection and releases resources.
	Close()
}

// Connection binds a socket to an authenticated identity and an optional
// event subscription. Created on authenticate, destroyed when the socket
// closes; there is no explicit logout.
type Connection struct {
	// ID is unique per registration and never reused.
	ID string

	UserID      string
	IsOrganizer bool

	// EventID is the single event this connection is subscribed to, or
	// empty. Subscribing to a new event replaces the prior subscription.
	EventID string

	CreatedAt time.Time

	Transport Transport
}
