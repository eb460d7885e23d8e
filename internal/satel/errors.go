package satel

import "errors"

// Domain errors for the Integra protocol engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrEncoding is returned when a command cannot be serialised into a
	// frame (payload too large or malformed arguments). This indicates a
	// caller bug and is never retried.
	ErrEncoding = errors.New("satel: frame encoding failed")

	// ErrFraming is returned when the inbound byte stream contains a
	// malformed escape sequence or an impossible frame structure. The
	// decoder resynchronises on the next plausible header.
	ErrFraming = errors.New("satel: malformed frame")

	// ErrChecksum is returned when a complete frame fails checksum
	// verification. Treated as line noise; the decoder continues after
	// the corrupt frame.
	ErrChecksum = errors.New("satel: frame checksum mismatch")

	// ErrTimeout is returned when the panel does not answer an in-flight
	// command before its deadline.
	ErrTimeout = errors.New("satel: command timed out")

	// ErrRejected is returned when the panel explicitly refused a command.
	// The result code is carried alongside in a RejectedError.
	ErrRejected = errors.New("satel: command rejected by panel")

	// ErrQueueFull is returned by Submit when the command queue is at
	// capacity. The command was never sent.
	ErrQueueFull = errors.New("satel: command queue full")

	// ErrCancelled is returned for commands cancelled before being sent,
	// including queued commands failed during shutdown.
	ErrCancelled = errors.New("satel: command cancelled")

	// ErrConnectionLost is returned when the transport connection fails
	// while commands are pending, and by Submit while disconnected.
	ErrConnectionLost = errors.New("satel: panel connection lost")

	// ErrNotConnected is returned by transport writes before a connection
	// is established.
	ErrNotConnected = errors.New("satel: not connected to panel")

	// ErrClosed is returned once the engine or transport has been shut down.
	ErrClosed = errors.New("satel: engine closed")
)

// RejectedError carries the panel's result code for a refused command.
type RejectedError struct {
	Code ResultCode
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return "satel: command rejected by panel: " + e.Code.String()
}

// Unwrap makes errors.Is(err, ErrRejected) work on RejectedError values.
func (e *RejectedError) Unwrap() error {
	return ErrRejected
}
