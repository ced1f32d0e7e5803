package sharing

import (
	"context"
	"log/slog"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	"github.com/nullptr-deref/dbus-sharing/servicebus"
)

type getEndpointsHandler struct{ s *Service }

func (h getEndpointsHandler) Handle(ctx context.Context, _ GetEndpoints) ([]string, error) {
	return h.s.Endpoints(ctx), nil
}

type getEndpointFormatsHandler struct{ s *Service }

func (h getEndpointFormatsHandler) Handle(ctx context.Context, q GetEndpointFormats) ([]string, error) {
	return h.s.EndpointFormats(ctx, q.Endpoint)
}

type passFileHandler struct{ s *Service }

func (h passFileHandler) Handle(ctx context.Context, c PassFileForProcessing) error {
	_, err := h.s.RouteFile(ctx, c.Endpoint, c.Path)
	return err
}

var (
	_ cbus.QueryHandler[GetEndpoints, []string]       = getEndpointsHandler{}
	_ cbus.QueryHandler[GetEndpointFormats, []string] = getEndpointFormatsHandler{}
	_ cbus.CommandHandler[PassFileForProcessing]      = passFileHandler{}
)

// Bind registers the Service's query and command handlers on b.
func Bind(b *servicebus.Bus, s *Service) error {
	if err := servicebus.BindQuery[GetEndpoints, []string](b, getEndpointsHandler{s: s}); err != nil {
		return err
	}

	if err := servicebus.BindQuery[GetEndpointFormats, []string](b, getEndpointFormatsHandler{s: s}); err != nil {
		return err
	}

	return servicebus.BindCommand[PassFileForProcessing](b, passFileHandler{s: s})
}

// RoutedLogger is a FileRouted listener that records every handoff.
type RoutedLogger struct {
	Logger *slog.Logger
}

func (l RoutedLogger) Handle(ctx context.Context, e FileRouted) error {
	l.Logger.InfoContext(ctx, "endpoint started",
		"endpoint", e.Endpoint, "executable", e.Executable, "path", e.Path, "pid", e.PID)

	return nil
}

var _ cbus.DomainEventHandler[FileRouted] = RoutedLogger{}
