package inmemory

import (
	"context"
	"fmt"
	"sync"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Publisher is a thread-safe in-memory implementation of cbus.EventPublisher.
// It records published signals for tests and local wiring.
type Publisher struct {
	mu     sync.Mutex
	Events []cbus.IntegrationEvent
}

func (p *Publisher) PublishIntegration(
	ctx context.Context,
	e cbus.IntegrationEvent,
	opts cbus.PublishOptions,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.Events = append(p.Events, e)
	p.mu.Unlock()

	return nil
}

// Published returns a snapshot of the recorded events.
func (p *Publisher) Published() []cbus.IntegrationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]cbus.IntegrationEvent(nil), p.Events...)
}

// Server is an in-process method server. Call invokes handlers directly, one call at a time.
type Server struct {
	mu      sync.Mutex
	methods map[string]cbus.MethodHandler
}

func (s *Server) Handle(method string, h cbus.MethodHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.methods == nil {
		s.methods = make(map[string]cbus.MethodHandler)
	}

	if _, exists := s.methods[method]; exists {
		return fmt.Errorf("handle %s: %w", method, berr.ErrHandlerExists)
	}

	s.methods[method] = h

	return nil
}

// Serve blocks until ctx is done; calls are served by Call regardless.
func (s *Server) Serve(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Call runs the named method and returns its reply envelope. Handler failures travel
// inside the envelope; only a missing method fails the call itself.
func (s *Server) Call(ctx context.Context, method string, body []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.methods[method]
	if !ok {
		return nil, fmt.Errorf("call %s: %w", method, berr.ErrHandlerNotFound)
	}

	return cbus.EncodeReply(h(ctx, body))
}

// Adapter combines Server and Publisher into a complete transport.
type Adapter struct {
	Server
	Publisher
}

// Ensure Adapter implements the combined contract.
var (
	_ cbus.Transport    = (*Adapter)(nil)
	_ cbus.MethodCaller = (*Adapter)(nil)
)

// New creates a new in-memory adapter instance.
func New() *Adapter { return &Adapter{} }
