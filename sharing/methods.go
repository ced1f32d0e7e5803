package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
	"github.com/nullptr-deref/dbus-sharing/servicebus"
)

// RegisterMethods exposes the broker's operations on srv. Each remote call is decoded and
// forwarded through the mediator b, whose handlers are installed by Bind.
func RegisterMethods(srv cbus.MethodServer, b cbus.Bus) error {
	methods := map[string]cbus.MethodHandler{
		MethodGetEndpoints: func(ctx context.Context, _ []byte) (any, error) {
			return servicebus.Ask[GetEndpoints, []string](ctx, b, GetEndpoints{})
		},
		MethodGetEndpointFormats: func(ctx context.Context, body []byte) (any, error) {
			var q GetEndpointFormats
			if err := decodeRequest(MethodGetEndpointFormats, body, &q); err != nil {
				return nil, err
			}

			return servicebus.Ask[GetEndpointFormats, []string](ctx, b, q)
		},
		MethodPassFile: func(ctx context.Context, body []byte) (any, error) {
			var c PassFileForProcessing
			if err := decodeRequest(MethodPassFile, body, &c); err != nil {
				return nil, err
			}

			return nil, b.DispatchSync(ctx, c)
		},
	}

	for _, name := range []string{MethodGetEndpoints, MethodGetEndpointFormats, MethodPassFile} {
		if err := srv.Handle(name, methods[name]); err != nil {
			return fmt.Errorf("register method %s: %w", name, err)
		}
	}

	return nil
}

func decodeRequest(method string, body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s request: %w", method, errors.Join(berr.ErrBadRequest, err))
	}

	return nil
}
