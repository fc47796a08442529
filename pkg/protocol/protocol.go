// Package protocol defines the JSON wire format spoken over the /ws socket.
//
// Clients send control frames (authenticate, subscribe_event,
// unsubscribe_event); the server answers with acknowledgement frames and
// pushes typed domain updates. The same types are used by the server
// handlers and the Go client SDK, so the two halves cannot drift apart.
package protocol

import "encoding/json"

// Control frame types, client to server.
const (
	TypeAuthenticate     = "authenticate"
	TypeSubscribeEvent   = "subscribe_event"
	TypeUnsubscribeEvent = "unsubscribe_event"
)

// Acknowledgement frame types, server to client.
const (
	TypeAuthenticated = "authenticated"
	TypeSubscribed    = "subscribed"
	TypeUnsubscribed  = "unsubscribed"
	TypeError         = "error"
)

// Domain push kinds. event_update goes to subscribers of the event; the
// other four are organizer-only.
const (
	KindEventUpdate       = "event_update"
	KindParticipantJoined = "participant_joined"
	KindSubmissionCreated = "submission_created"
	KindJudgeActivity     = "judge_activity"
	KindAnalyticsUpdate   = "analytics_update"
)

// ErrInvalidFormat is the error text returned for frames that fail to parse.
const ErrInvalidFormat = "Invalid message format"

// IsDomainKind reports whether t is one of the five push kinds.
func IsDomainKind(t string) bool {
	switch t {
	case KindEventUpdate, KindParticipantJoined, KindSubmissionCreated,
		KindJudgeActivity, KindAnalyticsUpdate:
		return true
	}
	return false
}

// IsOrganizerKind reports whether t is delivered to organizers only.
func IsOrganizerKind(t string) bool {
	return IsDomainKind(t) && t != KindEventUpdate
}

// ClientFrame is an inbound control message.
type ClientFrame struct {
	Type        string `json:"type"`
	UserID      string `json:"userId,omitempty"`
	IsOrganizer bool   `json:"isOrganizer,omitempty"`
	EventID     string `json:"eventId,omitempty"`
}

// ServerFrame is the envelope for everything the server writes: acks,
// error reports and domain pushes. Unused fields are omitted on the wire.
type ServerFrame struct {
	Type      string          `json:"type"`
	ClientID  string          `json:"clientId,omitempty"`
	EventID   string          `json:"eventId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Push is a typed domain update as handed to broadcast callers and client
// listeners. Data is opaque to the delivery layer; Timestamp is RFC 3339,
// set by the sender at send time.
type Push struct {
	Type      string `json:"type"`
	EventID   string `json:"eventId"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}
