// Package amqp consumes platform domain events from the message bus and
// replays them into the realtime notifier. It is the second ingress next
// to direct in-process Notifier calls: CRUD services that publish to the
// bus instead of holding a Notifier reference land here.
package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/adapter/pubsub"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/service"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/service/dto"
)

const (
	// ------------------- EXCHANGES (SOURCES) -------------------
	PlatformEventsExchange = "hack_platform.events"

	// ------------------- TOPICS (ROUTING KEYS) -----------------
	// Segment 3 of every topic is the hackathon event id.
	TopicParticipantJoined = "hack_platform.event.*.participant.joined.v1"
	TopicSubmissionCreated = "hack_platform.event.*.submission.created.v1"
	TopicJudgeActivity     = "hack_platform.event.*.judge.activity.v1"
	TopicAnalyticsUpdated  = "hack_platform.event.*.analytics.updated.v1"
	TopicEventUpdated      = "hack_platform.event.*.event.updated.v1"

	// ------------------- QUEUES (CONSUMERS) --------------------
	IngressQueue       = "hack-realtime.ingress.v1"
	IngressPoisonTopic = "hack-realtime.ingress.v1.poison"
)

type IngressHandler struct {
	notifier   service.Notifier
	logger     *slog.Logger
	dispatcher pubsub.EventDispatcher
}

func NewIngressHandler(notifier service.Notifier, logger *slog.Logger, dispatcher pubsub.EventDispatcher) *IngressHandler {
	return &IngressHandler{notifier, logger, dispatcher}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, logger)
}

// RegisterHandlers binds every bus topic to its listener, each on a
// node-unique queue so every instance sees every event.
func (h *IngressHandler) RegisterHandlers(router *message.Router, subProvider *pubsub.SubscriberProvider) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), IngressPoisonTopic)
	if err != nil {
		return fmt.Errorf("poison queue setup: %w", err)
	}

	dedupe, err := NewDedupeMiddleware(4096)
	if err != nil {
		return fmt.Errorf("dedupe setup: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_PARTICIPANT_JOINED", TopicParticipantJoined, Bind(h, h.OnParticipantJoinedV1)},
		{"ON_SUBMISSION_CREATED", TopicSubmissionCreated, Bind(h, h.OnSubmissionCreatedV1)},
		{"ON_JUDGE_ACTIVITY", TopicJudgeActivity, Bind(h, h.OnJudgeActivityV1)},
		{"ON_ANALYTICS_UPDATED", TopicAnalyticsUpdated, Bind(h, h.OnAnalyticsUpdatedV1)},
		{"ON_EVENT_UPDATED", TopicEventUpdated, Bind(h, h.OnEventUpdatedV1)},
	}

	instanceID := uuid.NewString()[:8]
	for _, c := range configs {
		// Queue per handler per node, e.g.
		// hack-realtime.ingress.v1.b23a8f12.ON_PARTICIPANT_JOINED
		handlerQueue := fmt.Sprintf("%s.%s.%s", IngressQueue, instanceID, c.name)

		sub, err := subProvider.Build(handlerQueue, PlatformEventsExchange)
		if err != nil {
			return err
		}

		router.AddNoPublisherHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			dedupe,
			NewRetryMiddleware().Middleware,
			poison,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("amqp ingress ready", "queue", IngressQueue, "instance", instanceID)
	return nil
}

// Listener wiring from dto payloads to notifier emitters.

func (h *IngressHandler) OnParticipantJoinedV1(eventID string, raw *dto.ParticipantV1) error {
	h.notifier.SendParticipantJoined(eventID, raw)
	return nil
}

func (h *IngressHandler) OnSubmissionCreatedV1(eventID string, raw *dto.SubmissionV1) error {
	h.notifier.SendSubmissionCreated(eventID, raw)
	return nil
}

func (h *IngressHandler) OnJudgeActivityV1(eventID string, raw *dto.JudgeActivityV1) error {
	h.notifier.SendJudgeActivity(eventID, raw)
	return nil
}

func (h *IngressHandler) OnAnalyticsUpdatedV1(eventID string, raw *dto.AnalyticsV1) error {
	h.notifier.SendAnalyticsUpdate(eventID, raw)
	return nil
}

func (h *IngressHandler) OnEventUpdatedV1(eventID string, raw *dto.EventUpdateV1) error {
	h.notifier.SendEventUpdate(eventID, raw)
	return nil
}
