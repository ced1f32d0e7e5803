package bus

import "context"

// EventPublisher sends signals to a broker: a NATS subject, a RabbitMQ exchange or a Kafka topic.
type EventPublisher interface {
	PublishIntegration(ctx context.Context, evt IntegrationEvent, opts PublishOptions) error
}

// Transport carries the broker's whole external surface: remote methods in, signals out.
type Transport interface {
	MethodServer
	EventPublisher
}
