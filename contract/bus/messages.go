package bus

import "context"

// Command asks the broker to do something, such as hand a file to an endpoint.
// Exactly one handler is bound per command type.
type Command interface{}

// Query reads broker state without changing it.
type Query interface{}

// DomainEvent is delivered synchronously to every in-process listener bound to its type.
type DomainEvent interface{}

// IntegrationEvent is a signal that leaves the process; Topic names where it is published.
type IntegrationEvent interface{ Topic() string }

type CommandHandler[C Command] interface {
	Handle(ctx context.Context, c C) error
}

type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, q Q) (R, error)
}

type DomainEventHandler[E DomainEvent] interface {
	Handle(ctx context.Context, e E) error
}
