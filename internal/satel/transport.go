package satel

import (
	"context"
	"sync"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ConnState describes the transport link.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String names the state for logs and health payloads.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// TransportStats holds operational statistics for a transport.
type TransportStats struct {
	BytesTx         uint64
	BytesRx         uint64
	ErrorsTotal     uint64
	ReconnectsTotal uint64 // Successful reconnections
	LastActivity    time.Time
	Connected       bool
	Reconnecting    bool // True if currently attempting to reconnect
}

// Transport is a byte-stream link to the panel's integration port.
//
// Read blocks until data arrives. When the link drops it returns
// ErrConnectionLost once while reconnection proceeds in the background;
// subsequent calls block until the link is back. After Close it returns
// ErrClosed. Implementations reconnect on their own; callers only need
// to reset any partial frame state on ErrConnectionLost.
type Transport interface {
	Write(ctx context.Context, raw []byte) error
	Read(buf []byte) (int, error)
	IsConnected() bool
	SetOnStateChange(callback func(ConnState))
	Stats() TransportStats
	Close() error
}

// Default timeouts and intervals for panel communication.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultReadTimeout is the timeout for individual read operations.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the timeout for write operations.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute
)
