// Package memory wires a complete broker in-process: the mediator, the Service and its
// handlers, and an in-memory transport with a Client attached. Used by tests and by
// callers embedding the broker without a network.
package memory

import (
	"log/slog"

	"github.com/nullptr-deref/dbus-sharing/adapters/inmemory"
	"github.com/nullptr-deref/dbus-sharing/launcher"
	"github.com/nullptr-deref/dbus-sharing/registry"
	"github.com/nullptr-deref/dbus-sharing/servicebus"
	"github.com/nullptr-deref/dbus-sharing/sharing"
)

// Broker is an in-process broker. Signals land in Transport.Published.
type Broker struct {
	Service   *sharing.Service
	Bus       *servicebus.Bus
	Transport *inmemory.Adapter
	Client    *sharing.Client
}

// New wires a Broker over reg that starts programs through l.
func New(reg *registry.Registry, l launcher.Launcher, logger *slog.Logger, opts ...sharing.Option) (*Broker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tr := inmemory.New()
	b := servicebus.New(&tr.Publisher, logger, servicebus.WithCommandMiddleware(servicebus.LogCommands(logger)))
	svc := sharing.NewService(reg, l, b, logger, opts...)

	if err := sharing.Bind(b, svc); err != nil {
		return nil, err
	}

	if err := servicebus.BindDomainEvent[sharing.FileRouted](b, sharing.RoutedLogger{Logger: logger}); err != nil {
		return nil, err
	}

	if err := sharing.RegisterMethods(&tr.Server, b); err != nil {
		return nil, err
	}

	return &Broker{
		Service:   svc,
		Bus:       b,
		Transport: tr,
		Client:    sharing.NewClient(&tr.Server),
	}, nil
}
