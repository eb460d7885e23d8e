package satel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// defaultTCPPort is the integration port of the panel's Ethernet module.
const defaultTCPPort = "7094"

// TCPConfig holds connection configuration for an Ethernet module.
type TCPConfig struct {
	// Address is the panel's host:port. A bare host gets the default
	// integration port appended.
	Address string

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for read operations.
	// Default: 30 seconds.
	ReadTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration
}

// Ensure TCPTransport implements Transport.
var _ Transport = (*TCPTransport)(nil)

// TCPTransport connects to the panel through its Ethernet module.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//
// Auto-Reconnection:
//   - When the connection is lost, the transport reconnects in the
//     background with exponential backoff up to maxReconnectInterval.
//   - Reconnection stops only when Close() is called.
type TCPTransport struct {
	cfg  TCPConfig
	conn net.Conn

	// Connection state
	connMu    sync.RWMutex
	connected bool

	// Reconnection state
	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	// State change callback
	onState    func(ConnState)
	callbackMu sync.RWMutex

	// Shutdown coordination
	done *closeOnce
	wg   sync.WaitGroup

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	bytesTx         atomic.Uint64
	bytesRx         atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64 // Unix timestamp
}

// DialTCP connects to the panel's Ethernet module.
//
// Parameters:
//   - ctx: Context for cancellation (used for initial connection)
//   - cfg: Connection configuration
//
// Returns:
//   - *TCPTransport: Connected transport ready for use
//   - error: If the connection fails
func DialTCP(ctx context.Context, cfg TCPConfig) (*TCPTransport, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	cfg.Address = withDefaultPort(cfg.Address)

	connectCtx := ctx
	if connectCtx == nil {
		connectCtx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(connectCtx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(connectCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrNotConnected, cfg.Address, err)
	}

	t := &TCPTransport{
		cfg:  cfg,
		conn: conn,
		done: newCloseOnce(),
	}
	t.lastActivity.Store(time.Now().Unix())

	t.connMu.Lock()
	t.connected = true
	t.connMu.Unlock()

	return t, nil
}

// withDefaultPort appends the integration port when the address has none.
func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return net.JoinHostPort(address, defaultTCPPort)
	}
	return address
}

// Read fills buf with the next chunk from the panel. It blocks until
// data arrives. Returns ErrConnectionLost once when the link drops and
// ErrClosed after Close.
func (t *TCPTransport) Read(buf []byte) (int, error) {
	for {
		if t.isClosed() {
			return 0, ErrClosed
		}

		t.connMu.RLock()
		conn := t.conn
		connected := t.connected
		t.connMu.RUnlock()

		if conn == nil || !connected {
			if !t.waitForReconnection() {
				return 0, ErrClosed
			}
			continue
		}

		if err := conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
			t.logError("set read deadline failed", err)
		}

		n, err := conn.Read(buf)
		if n > 0 {
			t.bytesRx.Add(uint64(n))
			t.lastActivity.Store(time.Now().Unix())
			return n, nil
		}
		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue // Quiet bus, keep waiting
		}

		if t.isClosed() {
			return 0, ErrClosed
		}

		t.logError("read failed", err)
		t.errorsTotal.Add(1)
		t.handleDisconnect()
		t.startReconnect()
		return 0, ErrConnectionLost
	}
}

// Write sends raw bytes to the panel.
func (t *TCPTransport) Write(ctx context.Context, raw []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	default:
	}

	t.connMu.RLock()
	conn := t.conn
	connected := t.connected
	t.connMu.RUnlock()

	if conn == nil || !connected {
		return ErrNotConnected
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := conn.Write(raw); err != nil {
		t.errorsTotal.Add(1)
		t.handleDisconnect()
		t.startReconnect()
		return fmt.Errorf("%w: write: %w", ErrConnectionLost, err)
	}

	t.bytesTx.Add(uint64(len(raw)))
	t.lastActivity.Store(time.Now().Unix())
	return nil
}

// handleDisconnect marks the link down and notifies the state callback.
func (t *TCPTransport) handleDisconnect() {
	t.connMu.Lock()
	wasConnected := t.connected
	t.connected = false
	t.connMu.Unlock()

	if wasConnected {
		t.logInfo("connection lost, will attempt reconnection")
		t.notifyState(StateDisconnected)
	}
}

// startReconnect launches the background reconnection loop if one is
// not already running.
func (t *TCPTransport) startReconnect() {
	if t.isClosed() {
		return
	}
	if !t.reconnecting.CompareAndSwap(false, true) {
		return // Already reconnecting
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.reconnecting.Store(false)
		t.reconnectLoop()
	}()
}

// reconnectLoop re-establishes the connection with exponential backoff.
func (t *TCPTransport) reconnectLoop() {
	t.notifyState(StateConnecting)

	backoff := t.cfg.ReconnectInterval

	for {
		if t.isClosed() {
			return
		}

		attempt := t.reconnectCount.Add(1)
		t.logInfo("attempting reconnection", "attempt", attempt, "address", t.cfg.Address)

		t.closeOldConnection()

		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ConnectTimeout)
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Address)
		cancel()

		if err != nil {
			t.logError("reconnect: dial failed", err)
			t.errorsTotal.Add(1)

			select {
			case <-t.done.Done():
				return
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * 1.5)
			if backoff > maxReconnectInterval {
				backoff = maxReconnectInterval
			}
			continue
		}

		t.connMu.Lock()
		t.conn = conn
		t.connected = true
		t.connMu.Unlock()

		t.reconnectCount.Store(0)
		t.reconnectsTotal.Add(1)
		t.lastActivity.Store(time.Now().Unix())

		t.logInfo("reconnection successful", "total_reconnects", t.reconnectsTotal.Load())
		t.notifyState(StateConnected)
		return
	}
}

// waitForReconnection blocks until the link is back or Close is called.
// Returns false on shutdown.
func (t *TCPTransport) waitForReconnection() bool {
	for !t.isClosed() {
		if t.IsConnected() {
			return true
		}
		select {
		case <-t.done.Done():
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
	return false
}

// closeOldConnection closes the existing connection if any.
func (t *TCPTransport) closeOldConnection() {
	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()
}

func (t *TCPTransport) isClosed() bool {
	select {
	case <-t.done.Done():
		return true
	default:
		return false
	}
}

// Close shuts the transport down.
//
// It unblocks pending reads and stops any reconnection in progress.
// Safe to call multiple times.
func (t *TCPTransport) Close() error {
	t.done.Close()

	t.connMu.Lock()
	t.connected = false
	conn := t.conn
	t.connMu.Unlock()

	if conn != nil {
		conn.Close()
	}

	t.wg.Wait()
	t.logInfo("connection closed")
	return nil
}

// SetOnStateChange sets the callback invoked on link state transitions.
// The callback runs on the transport's goroutines and must not block.
func (t *TCPTransport) SetOnStateChange(callback func(ConnState)) {
	t.callbackMu.Lock()
	t.onState = callback
	t.callbackMu.Unlock()
}

// SetLogger sets the logger for this transport.
func (t *TCPTransport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

// IsConnected reports whether the link is up.
func (t *TCPTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.connected
}

// Stats returns current operational statistics.
func (t *TCPTransport) Stats() TransportStats {
	return TransportStats{
		BytesTx:         t.bytesTx.Load(),
		BytesRx:         t.bytesRx.Load(),
		ErrorsTotal:     t.errorsTotal.Load(),
		ReconnectsTotal: t.reconnectsTotal.Load(),
		LastActivity:    time.Unix(t.lastActivity.Load(), 0),
		Connected:       t.IsConnected(),
		Reconnecting:    t.reconnecting.Load(),
	}
}

func (t *TCPTransport) notifyState(state ConnState) {
	t.callbackMu.RLock()
	callback := t.onState
	t.callbackMu.RUnlock()

	if callback != nil {
		callback(state)
	}
}

func (t *TCPTransport) logInfo(msg string, keysAndValues ...any) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (t *TCPTransport) logError(msg string, err error) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
