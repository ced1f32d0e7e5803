package bus

import "context"

// RequestIDHeader carries the id of the remote call that caused a publish.
const RequestIDHeader = "x-request-id"

// HeaderPropagator abstracts injecting call context into outgoing headers.
// Implementors mutate the provided headers map by inserting keys that carry the
// context across process boundaries. Implementations must be safe for concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the id of the remote call being served.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the call id stored by WithRequestID, if any.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// RequestIDPropagator copies the call id from the context into RequestIDHeader.
// An id already present in headers is left untouched.
type RequestIDPropagator struct{}

func (RequestIDPropagator) Inject(ctx context.Context, headers map[string]string) {
	if ctx == nil || headers == nil {
		return
	}

	if _, set := headers[RequestIDHeader]; set {
		return
	}

	if id, ok := RequestID(ctx); ok {
		headers[RequestIDHeader] = id
	}
}
