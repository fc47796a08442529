/*
Package registry is the single source of truth for live connections: which
sockets exist, who they authenticated as, and which hackathon event each one
is subscribed to. It routes every outbound push.

Delivery is best-effort, at-most-once. Broadcast operations marshal the
payload exactly once per call and fan the bytes out through each
connection's non-blocking Transport; a slow or closed socket drops the
frame and never stalls delivery to the rest.

The registry is an explicit object with a construction/teardown lifecycle,
owned by the application container and injected into every collaborator
that emits events. It is never a package-level singleton, which keeps tests
isolated with a fresh instance each.
*/
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/model"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

// Hubber defines the gateway for connection management and push routing.
type Hubber interface {
	Register(t model.Transport, userID string, isOrganizer bool) string
	Subscribe(connID, eventID string)
	Unsubscribe(connID, eventID string)
	Remove(connID string)
	BroadcastToEvent(eventID string, push *protocol.Push)
	BroadcastToEventOrganizers(eventID string, push *protocol.Push)
	Stats() model.HubStats
}

// Hub implements Hubber over a mutex-guarded connection map. Handlers run
// on independent goroutines, so concurrent register/remove/broadcast on
// the same map would be a data race without the lock.
type Hub struct {
	logger  *slog.Logger
	started time.Time

	mu    sync.RWMutex
	conns map[string]*model.Connection
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		started: time.Now(),
		conns:   make(map[string]*model.Connection),
	}
}

// Register creates a Connection for an authenticated socket and returns
// its id. Ids are userID plus a random suffix: unique per registration,
// never reused.
func (h *Hub) Register(t model.Transport, userID string, isOrganizer bool) string {
	conn := &model.Connection{
		ID:          fmt.Sprintf("%s-%s", userID, uuid.NewString()),
		UserID:      userID,
		IsOrganizer: isOrganizer,
		CreatedAt:   time.Now(),
		Transport:   t,
	}

	h.mu.Lock()
	h.conns[conn.ID] = conn
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("connection registered",
		"conn_id", conn.ID,
		"user_id", userID,
		"is_organizer", isOrganizer,
		"total", total,
	)
	return conn.ID
}

// Subscribe sets or overwrites the connection's event subscription.
// Subscribing twice to the same event is a no-op.
func (h *Hub) Subscribe(connID, eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		h.logger.Warn("subscribe for unknown connection", "conn_id", connID)
		return
	}
	if conn.EventID == eventID {
		return
	}
	conn.EventID = eventID
	h.logger.Info("subscribed", "conn_id", connID, "event_id", eventID)
}

// Unsubscribe clears the subscription only if it still equals eventID.
// This guards against a stale unsubscribe racing a resubscribe.
func (h *Hub) Unsubscribe(connID, eventID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok || conn.EventID != eventID {
		return
	}
	conn.EventID = ""
	h.logger.Info("unsubscribed", "conn_id", connID, "event_id", eventID)
}

// Remove deletes the connection entry. Called on socket close or error;
// safe to call with an id that is already gone.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	_, existed := h.conns[connID]
	delete(h.conns, connID)
	total := len(h.conns)
	h.mu.Unlock()

	if existed {
		h.logger.Info("connection removed", "conn_id", connID, "total", total)
	}
}

// BroadcastToEvent sends push to every connection subscribed to eventID.
func (h *Hub) BroadcastToEvent(eventID string, push *protocol.Push) {
	h.broadcast(push, func(c *model.Connection) bool {
		return c.EventID == eventID
	})
}

// BroadcastToEventOrganizers sends push to every organizer connection that
// is either subscribed to eventID or not subscribed to any event at all.
// The unsubscribed case gives organizers a global feed across all events.
func (h *Hub) BroadcastToEventOrganizers(eventID string, push *protocol.Push) {
	h.broadcast(push, func(c *model.Connection) bool {
		return c.IsOrganizer && (c.EventID == "" || c.EventID == eventID)
	})
}

// broadcast marshals push once and fans it out to every matching
// connection. A recipient whose transport refuses the frame is skipped;
// one stalled client must not abort delivery to the others.
func (h *Hub) broadcast(push *protocol.Push, match func(*model.Connection) bool) {
	data, err := json.Marshal(push)
	if err != nil {
		h.logger.Error("broadcast marshal failed", "kind", push.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*model.Connection, 0, len(h.conns))
	for _, c := range h.conns {
		if match(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.Transport.Send(data) {
			h.logger.Warn("frame dropped",
				"conn_id", c.ID,
				"kind", push.Type,
				"event_id", push.EventID,
			)
		}
	}
}

// Stats returns connection counts for diagnostics.
func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := model.HubStats{
		TotalConnections: len(h.conns),
		Uptime:           time.Since(h.started),
	}
	for _, c := range h.conns {
		if c.IsOrganizer {
			stats.Organizers++
		} else {
			stats.Participants++
		}
	}
	return stats
}

// Shutdown closes every remaining transport and empties the map.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.conns {
		c.Transport.Close()
		delete(h.conns, id)
	}
}
