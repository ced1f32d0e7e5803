package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Writer is a minimal Kafka-like writer interface.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter mirrors broker signals onto Kafka topics using an injected Writer.
type Adapter struct {
	Writer     Writer
	Propagator cbus.HeaderPropagator
}

var _ cbus.EventPublisher = (*Adapter)(nil)

func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func NewWithPropagator(w Writer, hp cbus.HeaderPropagator) *Adapter {
	return &Adapter{Writer: w, Propagator: hp}
}

// PublishIntegration writes e to its topic, keyed by opts.Key when set.
func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka publish: %w", berr.ErrPublishFailed)
	}

	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	topic := topicForEvent(e, opts)

	var key []byte
	if opts.Key != "" {
		key = []byte(opts.Key)
	}

	headers := copyHeaders(opts.Headers)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, headers)
	}

	if err = a.Writer.Write(ctx, topic, key, val, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish %s: %w", topic, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func topicForEvent(e cbus.IntegrationEvent, o cbus.PublishOptions) string {
	if o.TopicOverride != "" {
		return o.TopicOverride
	}

	return e.Topic()
}

func copyHeaders(in map[string]string) map[string]string {
	h := make(map[string]string, len(in)+1)
	for k, v := range in {
		h[k] = v
	}

	return h
}
