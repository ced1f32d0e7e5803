package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Concrete AMQP connection-backed publisher with auto-reconnect.

const (
	exchangeType = "topic"
	maxBackoff   = 30 * time.Second
)

type Config struct {
	URL         string
	Exchange    string
	ConnTimeout time.Duration
}

type reconnectingPublisher struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	ready  chan struct{} // closed once the first channel is up
	closed chan struct{}

	readyOnce sync.Once
	closeOnce sync.Once
}

func newReconnectingPublisher(cfg Config, logger *slog.Logger) *reconnectingPublisher {
	rp := &reconnectingPublisher{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
	go rp.run()

	return rp
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	rp.mu.RLock()
	ch := rp.ch
	rp.mu.RUnlock()

	if ch == nil {
		select {
		case <-rp.ready:
		case <-rp.closed:
			return fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrPublishFailed)
		case <-ctx.Done():
			return ctx.Err()
		}

		rp.mu.RLock()
		ch = rp.ch
		rp.mu.RUnlock()

		if ch == nil {
			return fmt.Errorf("%w: rabbitmq not connected", berr.ErrPublishFailed)
		}
	}

	return ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, amqp.Publishing{
		Headers:     amqpTable(m.Headers),
		ContentType: "application/json",
		Body:        m.Body,
	})
}

func (rp *reconnectingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "dbus-sharing"},
		Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(rp.cfg.Exchange, exchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

func (rp *reconnectingPublisher) run() {
	backoff := time.Second
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter only

	for {
		conn, ch, err := rp.dial()
		if err != nil {
			sleep := backoff + time.Duration(rng.Int63n(int64(backoff/2)))
			if sleep > maxBackoff {
				sleep = maxBackoff
			}

			rp.logger.Warn("rabbitmq dial failed", "err", err, "retry_in", sleep)

			t := time.NewTimer(sleep)
			select {
			case <-rp.closed:
				t.Stop()
				return
			case <-t.C:
			}

			backoff = min(backoff*2, maxBackoff)

			continue
		}

		backoff = time.Second

		rp.mu.Lock()
		rp.conn, rp.ch = conn, ch
		rp.mu.Unlock()
		rp.readyOnce.Do(func() { close(rp.ready) })

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-rp.closed:
			rp.drop()
			return
		case amqpErr := <-notify:
			rp.logger.Warn("rabbitmq connection lost", "err", amqpErr)
			rp.drop()
		}
	}
}

func (rp *reconnectingPublisher) drop() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}

	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

func (rp *reconnectingPublisher) close() {
	rp.closeOnce.Do(func() { close(rp.closed) })
	rp.drop()
}

// NewWithAMQPConn dials RabbitMQ in the background with auto-reconnect, declares the
// signal exchange, and returns an Adapter and cleanup. Publishes wait for the first
// connection or their context.
func NewWithAMQPConn(cfg Config, logger *slog.Logger) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrPublishFailed)
	}

	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	rp := newReconnectingPublisher(cfg, logger)

	return New(rp, cfg.Exchange), rp.close, nil
}
