package session

import "fmt"

// NotConnectedError is returned when a request is issued while the
// session is not CONNECTED (spec.md section 4.3, "Request while not
// CONNECTED: fails with NotConnected synchronously").
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string { return "session: not connected" }

// ConnectTimeoutError is returned when Connect gives up after exhausting
// its retransmits.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string { return "session: connect timed out" }

// ReadTimeoutError is returned when a read request's per-request timer
// fires before a matching response arrives.
type ReadTimeoutError struct {
	Seq uint16
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("session: read timed out (seq=%d)", e.Seq)
}

// WriteTimeoutError is returned when a write request's per-request timer
// fires before a matching response arrives.
type WriteTimeoutError struct {
	Seq uint16
}

func (e *WriteTimeoutError) Error() string {
	return fmt.Sprintf("session: write timed out (seq=%d)", e.Seq)
}

// SocketClosedError is returned to every pending request that was still
// outstanding when the session was explicitly disconnected. Preferring
// this over letting the per-request timeout fire is the permitted
// refinement spec.md section 5 calls out.
type SocketClosedError struct{}

func (e *SocketClosedError) Error() string { return "session: closed" }

// SocketError wraps a transport-level failure that tore the session
// down.
type SocketError struct {
	Cause error
}

func (e *SocketError) Error() string { return fmt.Sprintf("session: socket error: %v", e.Cause) }

func (e *SocketError) Unwrap() error { return e.Cause }
