package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// Client calls a remote broker. Remote failures come back as errors matching the
// sentinels in contract/errors.
type Client struct {
	caller cbus.MethodCaller
}

// NewClient returns a Client issuing calls through caller.
func NewClient(caller cbus.MethodCaller) *Client { return &Client{caller: caller} }

// Endpoints lists the broker's endpoints. The broker broadcasts endpointsReady as a side effect.
func (c *Client) Endpoints(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.call(ctx, MethodGetEndpoints, GetEndpoints{}, &names); err != nil {
		return nil, err
	}

	return names, nil
}

// EndpointFormats returns the formats accepted by endpoint.
func (c *Client) EndpointFormats(ctx context.Context, endpoint string) ([]string, error) {
	var formats []string
	if err := c.call(ctx, MethodGetEndpointFormats, GetEndpointFormats{Endpoint: endpoint}, &formats); err != nil {
		return nil, err
	}

	return formats, nil
}

// PassFile asks the broker to hand path to endpoint.
func (c *Client) PassFile(ctx context.Context, endpoint, path string) error {
	return c.call(ctx, MethodPassFile, PassFileForProcessing{Endpoint: endpoint, Path: path}, nil)
}

func (c *Client) call(ctx context.Context, method string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, errors.Join(berr.ErrSerializationFailed, err))
	}

	reply, err := c.caller.Call(ctx, method, body)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	return cbus.DecodeReply(reply, out)
}
