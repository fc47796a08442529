// Package pubsub adapts the service to the AMQP message bus: subscriber
// and publisher builders for topic exchanges, plus the outbound event
// dispatcher. When no broker is configured the rest of the service runs
// against a no-op dispatcher and none of this is wired.
package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MaximallyHack/Maximally-Hack-sub003/config"
)

// SubscriberProvider builds AMQP subscribers bound to a topic exchange.
type SubscriberProvider struct {
	uri    string
	logger watermill.LoggerAdapter
}

func NewSubscriberProvider(cfg *config.Config, logger watermill.LoggerAdapter) *SubscriberProvider {
	return &SubscriberProvider{uri: cfg.Bus.URL, logger: logger}
}

// Build creates a subscriber consuming queue, bound to exchange with the
// routing-key pattern given as the watermill topic.
func (p *SubscriberProvider) Build(queue, exchange string) (message.Subscriber, error) {
	cfg := amqp.NewDurablePubSubConfig(p.uri, amqp.GenerateQueueNameConstant(queue))
	cfg.Exchange.GenerateName = func(string) string { return exchange }
	cfg.Exchange.Type = "topic"
	cfg.QueueBind.GenerateRoutingKey = func(topic string) string { return topic }

	return amqp.NewSubscriber(cfg, p.logger)
}

// PublisherProvider builds AMQP publishers for a topic exchange.
type PublisherProvider struct {
	uri    string
	logger watermill.LoggerAdapter
}

func NewPublisherProvider(cfg *config.Config, logger watermill.LoggerAdapter) *PublisherProvider {
	return &PublisherProvider{uri: cfg.Bus.URL, logger: logger}
}

func (p *PublisherProvider) Build(exchange string) (message.Publisher, error) {
	cfg := amqp.NewDurablePubSubConfig(p.uri, nil)
	cfg.Exchange.GenerateName = func(string) string { return exchange }
	cfg.Exchange.Type = "topic"
	cfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	return amqp.NewPublisher(cfg, p.logger)
}
