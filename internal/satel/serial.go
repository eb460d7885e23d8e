package satel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// SerialConfig holds connection configuration for an RS-232 module.
type SerialConfig struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string

	// BaudRate defaults to 19200, the module's fixed rate.
	BaudRate int

	// ReadTimeout bounds a single read so shutdown is not stuck on a
	// quiet bus. Default: 1 second.
	ReadTimeout time.Duration

	// ReconnectInterval is the initial delay between reopen attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration
}

// Ensure SerialTransport implements Transport.
var _ Transport = (*SerialTransport)(nil)

// SerialTransport connects to the panel through its RS-232 module.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//
// Auto-Reconnection:
//   - When the port read fails (unplugged adapter, driver reset), the
//     transport reopens it in the background with exponential backoff.
type SerialTransport struct {
	cfg  SerialConfig
	port serial.Port

	portMu    sync.RWMutex
	connected bool

	reconnecting   atomic.Bool
	reconnectCount atomic.Int32

	onState    func(ConnState)
	callbackMu sync.RWMutex

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	bytesTx         atomic.Uint64
	bytesRx         atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64
}

// OpenSerial opens the panel's serial port.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 19200
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}

	port, err := openPort(cfg)
	if err != nil {
		return nil, err
	}

	t := &SerialTransport{
		cfg:  cfg,
		port: port,
		done: newCloseOnce(),
	}
	t.connected = true
	t.lastActivity.Store(time.Now().Unix())
	return t, nil
}

func openPort(cfg SerialConfig) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrNotConnected, cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: set read timeout: %w", ErrNotConnected, err)
	}
	return port, nil
}

// Read fills buf with the next chunk from the panel. A read timeout on
// a quiet bus is not an error; the call keeps waiting. Returns
// ErrConnectionLost once when the port fails and ErrClosed after Close.
func (t *SerialTransport) Read(buf []byte) (int, error) {
	for {
		if t.isClosed() {
			return 0, ErrClosed
		}

		t.portMu.RLock()
		port := t.port
		connected := t.connected
		t.portMu.RUnlock()

		if port == nil || !connected {
			if !t.waitForReconnection() {
				return 0, ErrClosed
			}
			continue
		}

		n, err := port.Read(buf)
		if n > 0 {
			t.bytesRx.Add(uint64(n))
			t.lastActivity.Store(time.Now().Unix())
			return n, nil
		}
		if err == nil {
			continue // Read timeout, quiet bus
		}

		if t.isClosed() {
			return 0, ErrClosed
		}

		t.logError("port read failed", err)
		t.errorsTotal.Add(1)
		t.handleDisconnect()
		t.startReconnect()
		return 0, ErrConnectionLost
	}
}

// Write sends raw bytes to the panel.
func (t *SerialTransport) Write(ctx context.Context, raw []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	default:
	}

	t.portMu.RLock()
	port := t.port
	connected := t.connected
	t.portMu.RUnlock()

	if port == nil || !connected {
		return ErrNotConnected
	}

	if _, err := port.Write(raw); err != nil {
		t.errorsTotal.Add(1)
		t.handleDisconnect()
		t.startReconnect()
		return fmt.Errorf("%w: write: %w", ErrConnectionLost, err)
	}

	t.bytesTx.Add(uint64(len(raw)))
	t.lastActivity.Store(time.Now().Unix())
	return nil
}

func (t *SerialTransport) handleDisconnect() {
	t.portMu.Lock()
	wasConnected := t.connected
	t.connected = false
	t.portMu.Unlock()

	if wasConnected {
		t.logInfo("port lost, will attempt reopen")
		t.notifyState(StateDisconnected)
	}
}

func (t *SerialTransport) startReconnect() {
	if t.isClosed() {
		return
	}
	if !t.reconnecting.CompareAndSwap(false, true) {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.reconnecting.Store(false)
		t.reconnectLoop()
	}()
}

func (t *SerialTransport) reconnectLoop() {
	t.notifyState(StateConnecting)

	backoff := t.cfg.ReconnectInterval

	for {
		if t.isClosed() {
			return
		}

		attempt := t.reconnectCount.Add(1)
		t.logInfo("attempting port reopen", "attempt", attempt, "port", t.cfg.Port)

		t.closeOldPort()

		port, err := openPort(t.cfg)
		if err != nil {
			t.logError("reopen failed", err)
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

		t.portMu.Lock()
		t.port = port
		t.connected = true
		t.portMu.Unlock()

		t.reconnectCount.Store(0)
		t.reconnectsTotal.Add(1)
		t.lastActivity.Store(time.Now().Unix())

		t.logInfo("port reopened", "total_reconnects", t.reconnectsTotal.Load())
		t.notifyState(StateConnected)
		return
	}
}

func (t *SerialTransport) waitForReconnection() bool {
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

func (t *SerialTransport) closeOldPort() {
	t.portMu.Lock()
	if t.port != nil {
		t.port.Close()
		t.port = nil
	}
	t.portMu.Unlock()
}

func (t *SerialTransport) isClosed() bool {
	select {
	case <-t.done.Done():
		return true
	default:
		return false
	}
}

// Close shuts the transport down. Safe to call multiple times.
func (t *SerialTransport) Close() error {
	t.done.Close()

	t.portMu.Lock()
	t.connected = false
	port := t.port
	t.portMu.Unlock()

	if port != nil {
		port.Close()
	}

	t.wg.Wait()
	t.logInfo("port closed")
	return nil
}

// SetOnStateChange sets the callback invoked on link state transitions.
func (t *SerialTransport) SetOnStateChange(callback func(ConnState)) {
	t.callbackMu.Lock()
	t.onState = callback
	t.callbackMu.Unlock()
}

// SetLogger sets the logger for this transport.
func (t *SerialTransport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

// IsConnected reports whether the port is open.
func (t *SerialTransport) IsConnected() bool {
	t.portMu.RLock()
	defer t.portMu.RUnlock()
	return t.connected
}

// Stats returns current operational statistics.
func (t *SerialTransport) Stats() TransportStats {
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

func (t *SerialTransport) notifyState(state ConnState) {
	t.callbackMu.RLock()
	callback := t.onState
	t.callbackMu.RUnlock()

	if callback != nil {
		callback(state)
	}
}

func (t *SerialTransport) logInfo(msg string, keysAndValues ...any) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (t *SerialTransport) logError(msg string, err error) {
	t.loggerMu.RLock()
	logger := t.logger
	t.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
