// Package tunnel implements the wire codec for the legacy Nabto-style UDP
// tunnel protocol: discovery frames, the U_CONNECT handshake, and DATA
// frames carrying ping / datapoint / setpoint command buffers.
//
// Everything in this package is pure: building and parsing byte buffers,
// no sockets, no timers.
package tunnel

import "fmt"

// InvalidArgumentError is returned when a caller-supplied argument is
// missing or malformed (e.g. no IP, no email).
type InvalidArgumentError struct {
	Field string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("tunnel: invalid argument: %s", e.Field)
}

// ProtocolError is returned for malformed frames, bad status codes, or
// mismatched payload types encountered while parsing a response.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("tunnel: protocol error: %s", e.Reason)
}

// NewProtocolError builds a ProtocolError with a formatted reason.
func NewProtocolError(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
