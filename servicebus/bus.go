package servicebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Bus is a thin in-process mediator between remote method bindings and the broker.
// Queries and commands have exactly one handler, domain events fan out to every bound
// handler, and integration events (signals) leave the process through the configured
// EventPublisher.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	mu sync.RWMutex

	cmd map[reflect.Type]func(ctx context.Context, cmd any) error
	qry map[reflect.Type]func(ctx context.Context, q any) (any, error)
	dom map[reflect.Type][]func(ctx context.Context, e any) error

	// global command middleware executed in registration order
	cmdMW []CommandMiddleware

	pub    cbus.EventPublisher
	logger *slog.Logger
}

var _ cbus.Bus = (*Bus)(nil)

// BusOption configures a Bus instance.
type BusOption func(*Bus)

// CommandMiddleware wraps command handler execution. Middlewares are executed in registration order.
type CommandMiddleware func(next func(ctx context.Context, cmd any) error) func(ctx context.Context, cmd any) error

// New constructs a Bus publishing integration events through pub (which may be nil).
func New(pub cbus.EventPublisher, logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Bus{
		cmd:    make(map[reflect.Type]func(context.Context, any) error),
		qry:    make(map[reflect.Type]func(context.Context, any) (any, error)),
		dom:    make(map[reflect.Type][]func(context.Context, any) error),
		pub:    pub,
		logger: logger,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// WithCommandMiddleware registers global command middleware via an option.
func WithCommandMiddleware(mw ...CommandMiddleware) BusOption {
	return func(b *Bus) { b.cmdMW = append(b.cmdMW, mw...) }
}

// LogCommands is middleware that logs every command and its outcome at debug level,
// and failures at warn level.
func LogCommands(logger *slog.Logger) CommandMiddleware {
	return func(next func(ctx context.Context, cmd any) error) func(ctx context.Context, cmd any) error {
		return func(ctx context.Context, cmd any) error {
			name := reflect.TypeOf(cmd).String()
			logger.DebugContext(ctx, "command", "type", name)

			err := next(ctx, cmd)
			if err != nil {
				logger.WarnContext(ctx, "command failed", "type", name, "err", err)
			}

			return err
		}
	}
}

// BindCommand registers a handler for command type C. Duplicate bindings are rejected.
func BindCommand[C cbus.Command](b *Bus, h cbus.CommandHandler[C]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero C

	t := reflect.TypeOf(zero)

	if _, exists := b.cmd[t]; exists {
		return fmt.Errorf("bind command %s: %w", t.String(), berr.ErrHandlerExists)
	}

	b.cmd[t] = func(ctx context.Context, v any) error {
		c, ok := v.(C)
		if !ok {
			return fmt.Errorf("dispatch %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, c)
	}

	return nil
}

// BindQuery registers a handler for query type Q producing R. Duplicate bindings are rejected.
func BindQuery[Q cbus.Query, R any](b *Bus, h cbus.QueryHandler[Q, R]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero Q
	t := reflect.TypeOf(zero)

	if _, exists := b.qry[t]; exists {
		return fmt.Errorf("bind query %s: %w", t.String(), berr.ErrHandlerExists)
	}

	b.qry[t] = func(ctx context.Context, v any) (any, error) {
		q, ok := v.(Q)
		if !ok {
			return nil, fmt.Errorf("ask %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, q)
	}

	return nil
}

// BindDomainEvent registers a domain event handler. Multiple handlers are allowed.
func BindDomainEvent[E cbus.DomainEvent](b *Bus, h cbus.DomainEventHandler[E]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero E
	t := reflect.TypeOf(zero)
	b.dom[t] = append(b.dom[t], func(ctx context.Context, v any) error {
		e, ok := v.(E)
		if !ok {
			return fmt.Errorf("publish domain %s: %w", reflect.TypeOf(v).String(), berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, e)
	})

	return nil
}

// Ask executes a query handler synchronously and returns an untyped result.
func (b *Bus) Ask(ctx context.Context, q any) (any, error) {
	b.mu.RLock()
	f, ok := b.qry[reflect.TypeOf(q)]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("ask %T: %w", q, berr.ErrHandlerNotFound)
	}

	return f(ctx, q)
}

// Ask executes a query handler synchronously and returns the typed result.
func Ask[Q cbus.Query, R any](ctx context.Context, b cbus.Bus, q Q) (R, error) {
	var zero R

	res, err := b.Ask(ctx, q)
	if err != nil {
		return zero, err
	}

	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("ask %s: %w", reflect.TypeOf(q).String(), berr.ErrHandlerTypeMismatch)
	}

	return r, nil
}

// DispatchSync executes the command handler synchronously through the global middleware.
func (b *Bus) DispatchSync(ctx context.Context, cmd cbus.Command) error {
	b.mu.RLock()
	f, ok := b.cmd[reflect.TypeOf(cmd)]
	chain := append([]CommandMiddleware(nil), b.cmdMW...)
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("dispatch %T: %w", cmd, berr.ErrHandlerNotFound)
	}

	// Build chain so the first registered middleware runs first
	final := f
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	return final(ctx, cmd)
}

// PublishDomain publishes a domain event to all bound handlers synchronously.
// All errors are aggregated with errors.Join and returned.
func (b *Bus) PublishDomain(ctx context.Context, e cbus.DomainEvent) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, any) error(nil), b.dom[reflect.TypeOf(e)]...)
	b.mu.RUnlock()

	var errs []error

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PublishIntegration publishes an integration event via the configured EventPublisher.
func (b *Bus) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if b.pub == nil {
		return fmt.Errorf("publish integration %T: no publisher configured: %w", e, berr.ErrPublishFailed)
	}

	if err := b.pub.PublishIntegration(ctx, e, opts); err != nil {
		return err
	}

	b.logger.DebugContext(ctx, "published", "topic", e.Topic())

	return nil
}
