package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	berr "github.com/nullptr-deref/dbus-sharing/contract/errors"
)

// MethodHandler serves one remote method. It decodes its arguments from body and
// returns the value to send back as the reply result.
type MethodHandler func(ctx context.Context, body []byte) (any, error)

// MethodServer exposes named methods on a transport.
// Handle must be called before Serve; Serve blocks until ctx is done.
type MethodServer interface {
	Handle(method string, h MethodHandler) error
	Serve(ctx context.Context) error
}

// Reply is the wire envelope for a method result.
type Reply struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ReplyError     `json:"error,omitempty"`
}

// ReplyError describes a failed call. Code is one of the codes in contract/errors.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeReply builds the envelope for a handler outcome.
// Errors without a code are reported as transport failures.
func EncodeReply(result any, err error) ([]byte, error) {
	var r Reply

	if err != nil {
		code := berr.CodeOf(err)
		if code == "" {
			code = berr.ErrCodeTransportFailed
		}

		r.Error = &ReplyError{Code: code, Message: err.Error()}

		return json.Marshal(r)
	}

	if result != nil {
		raw, merr := json.Marshal(result)
		if merr != nil {
			return nil, fmt.Errorf("encode reply: %w", errors.Join(berr.ErrSerializationFailed, merr))
		}

		r.Result = raw
	}

	return json.Marshal(r)
}

// DecodeReply unpacks an envelope into out (which may be nil for void methods).
// A remote failure is returned as an error matching the sentinel for its code.
func DecodeReply(data []byte, out any) error {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decode reply: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if r.Error != nil {
		return &RemoteError{Code: r.Error.Code, Message: r.Error.Message}
	}

	if out == nil || len(r.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decode reply result: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return nil
}

// RemoteError is a failure reported by the serving side of a call.
// It unwraps to the sentinel for Code, so errors.Is works across the wire.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return berr.Code(e.Code) }

// MethodCaller invokes a named remote method and returns the raw reply envelope.
type MethodCaller interface {
	Call(ctx context.Context, method string, body []byte) ([]byte, error)
}
