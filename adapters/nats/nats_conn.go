package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Concrete NATS connection satisfying Client, Subscriber and Requester.

type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

// Conn wraps a live *nats.Conn.
type Conn struct{ nc *nats.Conn }

var (
	_ Client     = (*Conn)(nil)
	_ Subscriber = (*Conn)(nil)
	_ Requester  = (*Conn)(nil)
)

// Connect dials NATS and returns the connection and a cleanup that drains it.
func Connect(cfg Config) (*Conn, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrTransportFailed)
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", berr.ErrTransportFailed, err)
	}

	cleanup := func() {
		if nc != nil && !nc.IsClosed() {
			_ = nc.Drain() //nolint:errcheck // best-effort shutdown; cannot return error here
			nc.Close()
		}
	}

	return &Conn{nc: nc}, cleanup, nil
}

func (c *Conn) Publish(subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}

	if len(headers) > 0 {
		msg.Header = nats.Header{}
		for k, v := range headers {
			msg.Header.Add(k, v)
		}
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.Flush()
}

func (c *Conn) Subscribe(subject string, fn func(Msg)) (func() error, error) {
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		in := Msg{Subject: m.Subject, Data: m.Data}
		if m.Reply != "" {
			in.Respond = m.Respond
		}

		fn(in)
	})
	if err != nil {
		return nil, err
	}

	return sub.Unsubscribe, nil
}

func (c *Conn) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	m, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("no broker is serving %s: %w", subject, err)
		}

		return nil, err
	}

	return m.Data, nil
}
