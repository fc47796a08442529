package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
)

// RealtimeExchange is the topic exchange this service publishes to.
const RealtimeExchange = "hack_realtime.events"

// Routable is an outbound event that knows its routing topic.
type Routable interface {
	GetRoutingKey() string
}

// EventDispatcher is the high-level contract for outgoing events. It keeps
// handlers agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, ev Routable) error
	Publisher() message.Publisher
}

// eventDispatcher publishes through a circuit breaker so a down broker
// degrades presence export instead of stalling connection handling.
type eventDispatcher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
}

func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "bus-publisher",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
}

func (d *eventDispatcher) Publish(ctx context.Context, ev Routable) error {
	if ev == nil {
		return fmt.Errorf("event dispatcher: cannot publish nil event")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	_, err = d.breaker.Execute(func() (any, error) {
		return nil, d.publisher.Publish(ev.GetRoutingKey(), msg)
	})
	if err != nil {
		return fmt.Errorf("event dispatcher: publish to %s: %w", ev.GetRoutingKey(), err)
	}
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}

// noopDispatcher stands in when the bus is disabled.
type noopDispatcher struct{}

func NewNoopDispatcher() EventDispatcher { return noopDispatcher{} }

func (noopDispatcher) Publish(context.Context, Routable) error { return nil }
func (noopDispatcher) Publisher() message.Publisher            { return nil }
