package client

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required identifier is missing or
	// blank. No request has been sent when this error is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConsistency is returned when the server answers for a different key
	// than the one requested.
	ErrConsistency = errors.New("inconsistent server response")

	// ErrProtocol is returned when a response lacks an expected header or
	// property, or cannot be decoded.
	ErrProtocol = errors.New("OData protocol error")

	// ErrTransport is returned for request-level failures: the server could
	// not be reached or answered with an unexpected status. Unexpected
	// statuses are reported as *StatusError, which unwraps to ErrTransport.
	ErrTransport = errors.New("request failed")

	// ErrIO is returned when a local file cannot be opened or read.
	ErrIO = errors.New("local I/O failure")
)

// StatusError reports an HTTP status other than the one an operation
// requires. Body holds the (size-limited) raw response payload.
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d: %s", e.Op, e.StatusCode, string(e.Body))
}

// Unwrap lets errors.Is(err, ErrTransport) match a StatusError.
func (e *StatusError) Unwrap() error { return ErrTransport }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func protocolError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

func consistencyError(property, requested, got string) error {
	return fmt.Errorf("%w: %s contained in server response (%q) does not match request (%q)",
		ErrConsistency, property, got, requested)
}
