package bus

import "context"

// Bus is the mediator as seen by remote method bindings and the Service.
// Typed helpers (servicebus.Ask, BindQuery, ...) build on it.
type Bus interface {
	DispatchSync(ctx context.Context, cmd Command) error
	Ask(ctx context.Context, query any) (any, error)
	PublishDomain(ctx context.Context, event DomainEvent) error
	PublishIntegration(ctx context.Context, event IntegrationEvent, opts PublishOptions) error
}
