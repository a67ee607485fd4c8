package client

import (
	"errors"
	"fmt"
)

var (
	// ErrBootstrapFailed means no bootstrap server produced a usable
	// metadata response. It wraps the per-server dial errors.
	ErrBootstrapFailed = errors.New("failed to contact any bootstrap server")

	// ErrConnClosed is returned by exchanges on a connection that was
	// already discarded.
	ErrConnClosed = errors.New("connection closed")

	// ErrUnknownBroker is returned when a request targets a broker id the
	// metadata bootstrap never reported.
	ErrUnknownBroker = errors.New("unknown broker id")
)

// ProtocolError is a framing-level violation: the stream can no longer be
// trusted to carry matched request/response pairs and must be discarded.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func correlationMismatch(expected, got int32) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf("unexpected correlation_id=%d, expected correlation_id=%d", got, expected)}
}
