package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nuid"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Msg is an inbound request. Respond is nil when the sender expects no reply.
type Msg struct {
	Subject string
	Data    []byte
	Respond func(data []byte) error
}

// Subscriber delivers messages for a subject, one at a time, until unsubscribed.
type Subscriber interface {
	Subscribe(subject string, fn func(Msg)) (unsubscribe func() error, err error)
}

// Server exposes methods as request/reply subjects "<prefix>.<method>".
//
// A single wildcard subscription carries every method, so calls are handled strictly
// one at a time in arrival order.
type Server struct {
	sub    Subscriber
	prefix string
	logger *slog.Logger

	mu      sync.RWMutex
	methods map[string]cbus.MethodHandler
	ctx     context.Context

	ready     chan struct{}
	readyOnce sync.Once

	callTimeout time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCallTimeout gives every call its own deadline. Without it a call runs until it
// returns or Serve's context ends.
func WithCallTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.callTimeout = d }
}

var _ cbus.MethodServer = (*Server)(nil)

// NewServer creates a method server under prefix (e.g. "org.rt.SharingService").
func NewServer(sub Subscriber, prefix string, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		sub:     sub,
		prefix:  prefix,
		logger:  logger,
		methods: make(map[string]cbus.MethodHandler),
		ready:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ready is closed once Serve has subscribed and calls can be delivered.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) Handle(method string, h cbus.MethodHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.methods[method]; exists {
		return fmt.Errorf("nats handle %s: %w", method, berr.ErrHandlerExists)
	}

	s.methods[method] = h

	return nil
}

// Serve subscribes and handles calls until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if s.sub == nil {
		return fmt.Errorf("nats serve: %w", berr.ErrTransportFailed)
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	unsubscribe, err := s.sub.Subscribe(s.prefix+".*", s.serve)
	if err != nil {
		return fmt.Errorf("nats subscribe %s.*: %w", s.prefix, errors.Join(berr.ErrTransportFailed, err))
	}

	s.logger.Info("serving methods", "subject", s.prefix+".*")
	s.readyOnce.Do(func() { close(s.ready) })

	<-ctx.Done()

	if err := unsubscribe(); err != nil {
		s.logger.Warn("nats unsubscribe failed", "err", err)
	}

	return nil
}

func (s *Server) serve(m Msg) {
	method := strings.TrimPrefix(m.Subject, s.prefix+".")

	s.mu.RLock()
	h, ok := s.methods[method]
	base := s.ctx
	s.mu.RUnlock()

	// Signals published under the same prefix arrive here too; nobody waits on them.
	if !ok && m.Respond == nil {
		return
	}

	if base == nil {
		base = context.Background()
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc

		base, cancel = context.WithTimeout(base, s.callTimeout)
		defer cancel()
	}

	id := nuid.Next()
	ctx := cbus.WithRequestID(base, id)
	log := s.logger.With("method", method, "request_id", id)

	var (
		reply []byte
		err   error
	)

	if !ok {
		reply, err = cbus.EncodeReply(nil, fmt.Errorf("unknown method %q: %w", method, berr.ErrHandlerNotFound))
	} else {
		reply, err = cbus.EncodeReply(h(ctx, m.Data))
	}

	if err != nil {
		log.Error("encode reply", "err", err)
		reply, _ = cbus.EncodeReply(nil, err)
	}

	log.Debug("call served")

	if m.Respond == nil {
		return
	}

	if err := m.Respond(reply); err != nil {
		log.Warn("nats respond failed", "err", err)
	}
}

// Caller issues method calls against a Server.
type Caller struct {
	req    Requester
	prefix string
}

// Requester sends a request and waits for its reply.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

var _ cbus.MethodCaller = (*Caller)(nil)

// NewCaller creates a caller for methods under prefix.
func NewCaller(r Requester, prefix string) *Caller { return &Caller{req: r, prefix: prefix} }

func (c *Caller) Call(ctx context.Context, method string, body []byte) ([]byte, error) {
	reply, err := c.req.Request(ctx, c.prefix+"."+method, body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("nats request %s: %w", method, errors.Join(berr.ErrTransportFailed, err))
	}

	return reply, nil
}
