package bus_test

import (
	"errors"
	"fmt"
	"testing"

	cbus "github.com/nullptr-deref/dbus-sharing/contract/bus"
	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

func TestReply_ResultRoundTrip(t *testing.T) {
	data, err := cbus.EncodeReply([]string{"Viewer", "Editor"}, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var names []string
	if err := cbus.DecodeReply(data, &names); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(names) != 2 || names[0] != "Viewer" || names[1] != "Editor" {
		t.Fatalf("names=%v", names)
	}
}

func TestReply_ErrorKeepsCode(t *testing.T) {
	data, err := cbus.EncodeReply(nil, fmt.Errorf("get endpoint %q: %w", "nope", berr.ErrUnknownEndpoint))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	err = cbus.DecodeReply(data, nil)
	if !errors.Is(err, berr.ErrUnknownEndpoint) {
		t.Fatalf("want ErrUnknownEndpoint, got %v", err)
	}

	var remote *cbus.RemoteError
	if !errors.As(err, &remote) || remote.Message != `get endpoint "nope": sharing.unknown_endpoint` {
		t.Fatalf("remote=%+v", remote)
	}
}

func TestReply_UncodedErrorBecomesTransportFailure(t *testing.T) {
	data, err := cbus.EncodeReply(nil, errors.New("boom"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := cbus.DecodeReply(data, nil); !errors.Is(err, berr.ErrTransportFailed) {
		t.Fatalf("want ErrTransportFailed, got %v", err)
	}
}

func TestReply_VoidAndGarbage(t *testing.T) {
	data, err := cbus.EncodeReply(nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out []string
	if err := cbus.DecodeReply(data, &out); err != nil || out != nil {
		t.Fatalf("void decode: %v out=%v", err, out)
	}

	if err := cbus.DecodeReply([]byte("{not json"), nil); !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	if _, err := cbus.EncodeReply(make(chan int), nil); !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed on encode, got %v", err)
	}
}

func TestRequestIDPropagator(t *testing.T) {
	h := map[string]string{}
	cbus.RequestIDPropagator{}.Inject(t.Context(), h)

	if _, ok := h[cbus.RequestIDHeader]; ok {
		t.Fatalf("unexpected header without id: %v", h)
	}

	ctx := cbus.WithRequestID(t.Context(), "abc")
	cbus.RequestIDPropagator{}.Inject(ctx, h)

	if h[cbus.RequestIDHeader] != "abc" {
		t.Fatalf("headers=%v", h)
	}

	h[cbus.RequestIDHeader] = "keep"
	cbus.RequestIDPropagator{}.Inject(ctx, h)

	if h[cbus.RequestIDHeader] != "keep" {
		t.Fatalf("existing header overwritten: %v", h)
	}
}
