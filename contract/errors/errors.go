package errors

import stderrors "errors"

// Error codes for the broker and bus contracts. Keep stable; they travel over the wire
// in reply envelopes and clients rebuild sentinels from them.
const (
	ErrCodeConfigUnreadable   = "sharing.config_unreadable"
	ErrCodeUnknownEndpoint    = "sharing.unknown_endpoint"
	ErrCodeIncompatibleFormat = "sharing.incompatible_format"
	ErrCodeLaunchFailed       = "sharing.launch_failed"
	ErrCodeBadRequest         = "sharing.bad_request"

	ErrCodeHandlerExists       = "servicebus.handler_exists"
	ErrCodeHandlerNotFound     = "servicebus.handler_not_found"
	ErrCodeHandlerTypeMismatch = "servicebus.handler_type_mismatch"
	ErrCodePublishFailed       = "servicebus.publish_failed"
	ErrCodeSerializationFailed = "servicebus.serialization_failed"
	ErrCodeTransportFailed     = "servicebus.transport_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

// CodeOf returns the code of the first coded error found in err's chain,
// or the empty string when err carries none.
func CodeOf(err error) string {
	var ce codedError
	if stderrors.As(err, &ce) {
		return string(ce)
	}

	return ""
}

var (
	ErrConfigUnreadable   = Code(ErrCodeConfigUnreadable)
	ErrUnknownEndpoint    = Code(ErrCodeUnknownEndpoint)
	ErrIncompatibleFormat = Code(ErrCodeIncompatibleFormat)
	ErrLaunchFailed       = Code(ErrCodeLaunchFailed)
	ErrBadRequest         = Code(ErrCodeBadRequest)

	ErrHandlerExists       = Code(ErrCodeHandlerExists)
	ErrHandlerNotFound     = Code(ErrCodeHandlerNotFound)
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrTransportFailed     = Code(ErrCodeTransportFailed)
)
