package service

import (
	"log/slog"
	"time"

	"github.com/MaximallyHack/Maximally-Hack-sub003/infra/metrics"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/model"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/domain/registry"
	"github.com/MaximallyHack/Maximally-Hack-sub003/pkg/protocol"
)

// Notifier is the primary interface for the rest of the platform to emit
// real-time updates. CRUD collaborators call these after their own writes
// complete; delivery is fire-and-forget per recipient and never fails with
// a recoverable error visible to the caller.
type Notifier interface {
	// SendEventUpdate reaches every connection subscribed to the event,
	// organizer or not.
	SendEventUpdate(eventID string, update any)

	// The remaining emitters reach organizer connections only: those
	// subscribed to the event plus those with no subscription at all.
	SendParticipantJoined(eventID string, participant any)
	SendSubmissionCreated(eventID string, submission any)
	SendJudgeActivity(eventID string, activity any)
	SendAnalyticsUpdate(eventID string, analytics any)

	Stats() model.HubStats
}

type NotifierService struct {
	hub    registry.Hubber
	logger *slog.Logger
}

// NewNotifierService returns a production-ready instance of the service.
func NewNotifierService(hub registry.Hubber, logger *slog.Logger) *NotifierService {
	return &NotifierService{
		hub:    hub,
		logger: logger,
	}
}

func (s *NotifierService) SendEventUpdate(eventID string, update any) {
	push := s.newPush(protocol.KindEventUpdate, eventID, update)
	s.hub.BroadcastToEvent(eventID, push)
}

func (s *NotifierService) SendParticipantJoined(eventID string, participant any) {
	push := s.newPush(protocol.KindParticipantJoined, eventID, participant)
	s.hub.BroadcastToEventOrganizers(eventID, push)
}

func (s *NotifierService) SendSubmissionCreated(eventID string, submission any) {
	push := s.newPush(protocol.KindSubmissionCreated, eventID, submission)
	s.hub.BroadcastToEventOrganizers(eventID, push)
}

func (s *NotifierService) SendJudgeActivity(eventID string, activity any) {
	push := s.newPush(protocol.KindJudgeActivity, eventID, activity)
	s.hub.BroadcastToEventOrganizers(eventID, push)
}

func (s *NotifierService) SendAnalyticsUpdate(eventID string, analytics any) {
	push := s.newPush(protocol.KindAnalyticsUpdate, eventID, analytics)
	s.hub.BroadcastToEventOrganizers(eventID, push)
}

func (s *NotifierService) Stats() model.HubStats {
	return s.hub.Stats()
}

// newPush stamps the envelope at send time. The timestamp belongs to the
// sender, not the registry.
func (s *NotifierService) newPush(kind, eventID string, payload any) *protocol.Push {
	metrics.BroadcastsTotal.WithLabelValues(kind).Inc()
	s.logger.Debug("broadcasting", "kind", kind, "event_id", eventID)

	return &protocol.Push{
		Type:      kind,
		EventID:   eventID,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
