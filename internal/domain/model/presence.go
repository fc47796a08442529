package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PresenceKind string

const (
	PresenceConnected    PresenceKind = "connected"
	PresenceDisconnected PresenceKind = "disconnected"
)

// PresenceEvent is published to the message bus when a connection
// registers or drops, so the platform can track who is online.
type PresenceEvent struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Kind        PresenceKind `json:"kind"`
	UserID      string       `json:"user_id"`
	ConnID      string       `json:"conn_id"`
	IsOrganizer bool         `json:"is_organizer"`
	Timestamp   int64        `json:"timestamp"`
}

func NewPresenceEvent(kind PresenceKind, userID, connID string, isOrganizer bool) *PresenceEvent {
	return &PresenceEvent{
		ID:          uuid.NewString(),
		Source:      "hack-realtime-service",
		Kind:        kind,
		UserID:      userID,
		ConnID:      connID,
		IsOrganizer: isOrganizer,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// GetRoutingKey generates the bus routing topic.
// Pattern: hack_realtime.presence.{kind}.v1
func (e *PresenceEvent) GetRoutingKey() string {
	return fmt.Sprintf("hack_realtime.presence.%s.v1", e.Kind)
}
