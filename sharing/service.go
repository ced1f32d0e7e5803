package sharing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
	"github.com/nullptr-deref/dbus-sharing/launcher"
	"github.com/nullptr-deref/dbus-sharing/registry"
)

// Service answers the broker's three operations against the current registry.
//
// The registry is immutable; Reload swaps in a new one wholesale, so every call observes
// a fully loaded registry. Nothing else is shared between calls.
type Service struct {
	reg      atomic.Pointer[registry.Registry]
	launcher launcher.Launcher
	events   cbus.Bus
	iface    string
	logger   *slog.Logger

	broadcastTimeout time.Duration
}

// DefaultBroadcastTimeout bounds one endpointsReady broadcast across all sinks.
const DefaultBroadcastTimeout = 2 * time.Second

// Option configures a Service.
type Option func(*Service)

// WithInterface sets the interface name used to build signal topics.
func WithInterface(name string) Option {
	return func(s *Service) { s.iface = name }
}

// WithBroadcastTimeout bounds each endpointsReady broadcast. A slow or unreachable sink
// then costs a call at most d. Zero or negative keeps DefaultBroadcastTimeout.
func WithBroadcastTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.broadcastTimeout = d
		}
	}
}

// NewService builds a Service over reg. events receives the endpointsReady signal and
// FileRouted domain events; when nil, nothing is published.
func NewService(reg *registry.Registry, l launcher.Launcher, events cbus.Bus, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Service{
		launcher: l,
		events:   events,
		iface:    DefaultInterface,
		logger:   logger,

		broadcastTimeout: DefaultBroadcastTimeout,
	}
	s.reg.Store(reg)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Registry returns the registry currently in use.
func (s *Service) Registry() *registry.Registry { return s.reg.Load() }

// Reload replaces the registry. Calls already in flight finish against the old one.
func (s *Service) Reload(reg *registry.Registry) {
	s.reg.Store(reg)
	s.logger.Info("registry reloaded", "endpoints", reg.Len())
}

// Endpoints returns every endpoint name and broadcasts the same list as the
// endpointsReady signal. A failed broadcast is logged; the list is still returned.
func (s *Service) Endpoints(ctx context.Context) []string {
	names := s.Registry().Names()

	if err := s.announce(ctx, names); err != nil {
		s.logger.WarnContext(ctx, "endpointsReady broadcast failed", "err", err)
	}

	return names
}

// AnnounceEndpoints broadcasts endpointsReady without a caller waiting for the list.
func (s *Service) AnnounceEndpoints(ctx context.Context) error {
	return s.announce(ctx, s.Registry().Names())
}

func (s *Service) announce(ctx context.Context, names []string) error {
	if s.events == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.broadcastTimeout)
	defer cancel()

	return s.events.PublishIntegration(ctx, EndpointsReady{Interface: s.iface, Endpoints: names}, cbus.PublishOptions{})
}

// EndpointFormats returns the formats the named endpoint accepts.
func (s *Service) EndpointFormats(_ context.Context, name string) ([]string, error) {
	e, err := s.Registry().Get(name)
	if err != nil {
		return nil, err
	}

	return e.Formats, nil
}

// RouteFile hands path to the named endpoint's program.
//
// It fails with ErrUnknownEndpoint when the endpoint does not exist, ErrIncompatibleFormat
// when the endpoint does not accept path's extension (nothing is spawned), and
// ErrLaunchFailed when the program cannot be started. None of these affect later calls.
func (s *Service) RouteFile(ctx context.Context, name, path string) (launcher.Process, error) {
	e, err := s.Registry().Get(name)
	if err != nil {
		return launcher.Process{}, err
	}

	if !registry.Compatible(e, path) {
		return launcher.Process{}, fmt.Errorf("route %q to %s: %w", path, name, berr.ErrIncompatibleFormat)
	}

	if !e.Dispatchable() {
		return launcher.Process{}, fmt.Errorf("route %q to %s: no executable configured: %w", path, name, berr.ErrLaunchFailed)
	}

	proc, err := s.launcher.Launch(ctx, e.Executable, path)
	if err != nil {
		return launcher.Process{}, fmt.Errorf("route %q to %s: %w", path, name, err)
	}

	s.logger.InfoContext(ctx, "file routed", "endpoint", name, "path", path, "pid", proc.PID)

	if s.events != nil {
		routed := FileRouted{Endpoint: name, Executable: e.Executable, Path: path, PID: proc.PID}
		if err := s.events.PublishDomain(ctx, routed); err != nil {
			s.logger.WarnContext(ctx, "FileRouted listeners failed", "endpoint", name, "err", err)
		}
	}

	return proc, nil
}
