package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

// Module wires the real AMQP providers and dispatcher. Included only when
// a broker URL is configured.
var Module = fx.Module("pubsub",
	fx.Provide(
		NewSubscriberProvider,
		NewPublisherProvider,
		func(pp *PublisherProvider) (message.Publisher, error) {
			pub, err := pp.Build(RealtimeExchange)
			if err != nil {
				return nil, fmt.Errorf("build publisher: %w", err)
			}
			return pub, nil
		},
		NewEventDispatcher,
	),
)

// NoopModule stands in for Module when the bus is disabled.
var NoopModule = fx.Module("pubsub-noop",
	fx.Provide(NewNoopDispatcher),
)
