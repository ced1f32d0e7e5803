package servicebus

import (
	"context"
	"errors"
	"sync"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
)

// FanOut is an EventPublisher that forwards every event to all of its publishers.
// Publishers run concurrently, so a stalled sink does not hold back the others; the
// call returns once all have finished and failures are aggregated with errors.Join.
type FanOut []cbus.EventPublisher

var _ cbus.EventPublisher = FanOut(nil)

func (f FanOut) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	errs := make([]error, len(f))

	var wg sync.WaitGroup

	for i, p := range f {
		if p == nil {
			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			errs[i] = p.PublishIntegration(ctx, e, opts)
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}
