package amqp

import (
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MaximallyHack/Maximally-Hack-sub003/infra/metrics"
)

// DomainHandler is the functional signature for ingress listeners:
// the hackathon event id resolved from the routing key plus the decoded
// payload.
type DomainHandler[T any] func(eventID string, payload *T) error

// Bind bridges watermill to a typed listener: panic recovery, event-id
// resolution and payload decoding. Messages that cannot be routed or
// decoded are acked — redelivery cannot fix them.
func Bind[T any](h *IngressHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("listener panic recovered",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		eventID, ok := resolveEventID(msg)
		if !ok {
			h.logger.Warn("routing failed: event id missing", "msg_id", msg.UUID)
			return nil
		}

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			h.logger.Error("decode failed", "err", err, "msg_id", msg.UUID)
			return nil
		}

		metrics.BusEventsTotal.WithLabelValues(resolveHandlerName(msg)).Inc()
		return fn(eventID, payload)
	}
}

// resolveEventID extracts the hackathon event id from the routing key,
// pattern hack_platform.event.{eventID}.{domain}.{action}.v1.
func resolveEventID(msg *message.Message) (string, bool) {
	rk := msg.Metadata.Get("x-routing-key")
	if rk == "" {
		rk = msg.Metadata.Get("routing_key")
	}

	parts := strings.Split(rk, ".")
	if len(parts) < 3 || parts[1] != "event" || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func resolveHandlerName(msg *message.Message) string {
	if name := message.HandlerNameFromCtx(msg.Context()); name != "" {
		return name
	}
	return "unknown"
}
