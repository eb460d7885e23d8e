package satel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatch queue and timing defaults.
const (
	// defaultQueueSize bounds the number of commands waiting behind the
	// in-flight one.
	defaultQueueSize = 32

	// defaultResponseTimeout applies when Submit is given no timeout.
	defaultResponseTimeout = 10 * time.Second

	// readChunkSize is the size of the transport read buffer.
	readChunkSize = 256
)

type engineState int

const (
	stateIdle engineState = iota
	stateAwaiting
	stateDraining
)

// Result is the outcome of a dispatched command. Err is set on
// rejection, timeout, cancellation, or connection loss; Status carries
// the decoded reply otherwise.
type Result struct {
	Status Status
	Err    error
}

// Pending is the future for a submitted command.
type Pending struct {
	cmd     Command
	timeout time.Duration

	ch        chan Result
	once      sync.Once
	cancelled atomic.Bool
	client    *Client
}

func (p *Pending) resolve(res Result) {
	p.once.Do(func() { p.ch <- res })
}

// Wait blocks until the command resolves or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Status, error) {
	select {
	case res := <-p.ch:
		return res.Status, res.Err
	case <-ctx.Done():
		p.Cancel()
		return Status{}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// Cancel withdraws the command. A queued command is removed and fails
// with ErrCancelled; an in-flight command cannot be recalled from the
// wire, so its eventual response is still consumed for correlation but
// no longer delivered.
func (p *Pending) Cancel() {
	if !p.cancelled.CompareAndSwap(false, true) {
		return
	}
	p.client.removeQueued(p)
	p.resolve(Result{Err: ErrCancelled})
}

// Options configures a Client.
type Options struct {
	// Transport carries frames to and from the panel. Required. The
	// client takes ownership and closes it on Close.
	Transport Transport

	// Logger is optional.
	Logger Logger

	// QueueSize bounds the command queue. Default 32.
	QueueSize int

	// ResponseTimeout applies when Submit gets no explicit timeout.
	// Default 10 seconds.
	ResponseTimeout time.Duration
}

// Stats holds dispatcher counters.
type Stats struct {
	FramesTx     uint64
	FramesRx     uint64
	PushesRx     uint64
	ResponsesRx  uint64
	UnexpectedRx uint64
	DecodeErrors uint64
	Timeouts     uint64
	Rejections   uint64
	QueueDepth   int
	InFlight     bool
}

// Client is the protocol engine: it serializes commands onto the bus
// one at a time, correlates replies, folds spontaneous pushes into the
// snapshot, and resolves waiters.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Any number of goroutines may call Submit and WaitFor; a single
//     reader goroutine owns the inbound byte stream.
//
// At most one command is ever awaiting a response. Later submissions
// queue in FIFO order and each is written only after its predecessor
// resolved, whether by reply, timeout, or failure.
type Client struct {
	transport Transport
	logger    Logger
	snapshot  *Snapshot

	queueSize      int
	defaultTimeout time.Duration

	mu          sync.Mutex
	state       engineState
	queue       []*Pending
	inflight    *Pending
	dispatching bool
	expected    Code
	gen         uint64
	timer       *time.Timer

	// idleCh closes when a draining engine has nothing left on the wire.
	idleCh   chan struct{}
	idleOnce sync.Once

	waiters   map[uint64]*waiter
	waiterSeq uint64

	// Callbacks
	onPush     func(Status)
	onState    func(ConnState)
	callbackMu sync.RWMutex

	done *closeOnce
	wg   sync.WaitGroup

	framesTx     atomic.Uint64
	framesRx     atomic.Uint64
	pushesRx     atomic.Uint64
	responsesRx  atomic.Uint64
	unexpectedRx atomic.Uint64
	decodeErrors atomic.Uint64
	timeouts     atomic.Uint64
	rejections   atomic.Uint64
}

// NewClient wraps a connected transport in a protocol engine and starts
// the reader goroutine.
func NewClient(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrNotConnected)
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.ResponseTimeout == 0 {
		opts.ResponseTimeout = defaultResponseTimeout
	}

	c := &Client{
		transport:      opts.Transport,
		logger:         opts.Logger,
		snapshot:       NewSnapshot(),
		queueSize:      opts.QueueSize,
		defaultTimeout: opts.ResponseTimeout,
		waiters:        make(map[uint64]*waiter),
		idleCh:         make(chan struct{}),
		done:           newCloseOnce(),
	}

	c.transport.SetOnStateChange(c.handleConnState)

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// Submit queues a command and returns its future. The write happens as
// soon as every earlier command has resolved. A timeout of zero uses
// the client default.
func (c *Client) Submit(cmd Command, timeout time.Duration) (*Pending, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}

	p := &Pending{
		cmd:     cmd,
		timeout: timeout,
		ch:      make(chan Result, 1),
		client:  c,
	}

	c.mu.Lock()
	if c.state == stateDraining {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.transport.IsConnected() {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if len(c.queue) >= c.queueSize {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d commands queued", ErrQueueFull, c.queueSize)
	}

	c.queue = append(c.queue, p)
	c.pumpLocked()
	c.mu.Unlock()

	return p, nil
}

// pumpLocked dispatches the queue head when nothing is on the wire.
// Caller holds c.mu. The dispatching guard keeps the single-writer
// invariant across the window where dispatch drops the lock.
func (c *Client) pumpLocked() {
	for c.inflight == nil && !c.dispatching && c.state != stateDraining && len(c.queue) > 0 {
		p := c.queue[0]
		c.queue = c.queue[1:]
		if p.cancelled.Load() {
			continue
		}
		c.dispatch(p)
	}
	if c.inflight == nil && !c.dispatching && c.state != stateDraining {
		c.state = stateIdle
	}
	c.signalIdleLocked()
}

// dispatch writes one command to the transport and arms its deadline.
// Caller holds c.mu. The write itself runs with the lock released: a
// failed write tears the link down synchronously, and the transport's
// state callback may call back into the client. The dispatching flag
// keeps other pumps out so the bus still sees commands in resolution
// order.
func (c *Client) dispatch(p *Pending) {
	raw, err := EncodeFrame(p.cmd.Code, p.cmd.Data)
	if err != nil {
		p.resolve(Result{Err: err})
		return
	}

	c.dispatching = true
	c.mu.Unlock()
	werr := c.transport.Write(context.Background(), raw)
	c.mu.Lock()
	c.dispatching = false

	if werr != nil {
		c.logError("command write failed", werr, "code", p.cmd.Code.String())
		p.resolve(Result{Err: werr})
		return
	}

	c.framesTx.Add(1)
	c.logDebug("command sent", "code", p.cmd.Code.String(), "bytes", len(raw))

	if !p.cmd.expectsResponse() {
		p.resolve(Result{})
		return
	}

	expected, _ := ResponseCode(p.cmd.Code)
	c.inflight = p
	c.expected = expected
	c.state = stateAwaiting
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(p.timeout, func() { c.onTimeout(gen) })
}

// signalIdleLocked releases a draining Close once nothing is in flight
// and no write is outstanding. Caller holds c.mu.
func (c *Client) signalIdleLocked() {
	if c.state == stateDraining && c.inflight == nil && !c.dispatching {
		c.idleOnce.Do(func() { close(c.idleCh) })
	}
}

// onTimeout fires when the in-flight command's deadline passes. The
// generation guard discards stale timers from already-resolved
// dispatches.
func (c *Client) onTimeout(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.inflight == nil {
		c.mu.Unlock()
		return
	}
	p := c.inflight
	c.inflight = nil
	c.timer = nil
	c.gen++
	c.timeouts.Add(1)
	c.logWarn("command timed out", "code", p.cmd.Code.String(), "timeout", p.timeout.String())
	c.pumpLocked()
	c.mu.Unlock()

	p.resolve(Result{Err: ErrTimeout})
}

// removeQueued takes a cancelled command out of the queue.
func (c *Client) removeQueued(p *Pending) {
	c.mu.Lock()
	for i, q := range c.queue {
		if q == p {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// readLoop pulls bytes from the transport and feeds the frame decoder.
// It is the only goroutine that touches the inbound stream.
func (c *Client) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, readChunkSize)
	var acc []byte

	for {
		n, err := c.transport.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, ErrClosed):
				return
			case errors.Is(err, ErrConnectionLost):
				acc = acc[:0]
				c.failAll(ErrConnectionLost)
				continue
			default:
				c.logError("transport read failed", err)
				continue
			}
		}

		acc = append(acc, buf[:n]...)
		for {
			frame, rest, derr := DecodeFrame(acc)
			consumed := len(acc) - len(rest)
			acc = rest
			if derr != nil {
				c.decodeErrors.Add(1)
				c.logWarn("dropping corrupt frame", "error", derr.Error())
				if consumed == 0 {
					acc = acc[1:]
				}
				continue
			}
			if frame == nil {
				break // Incomplete, wait for more bytes
			}
			c.framesRx.Add(1)
			c.handleFrame(frame)
		}
	}
}

// handleFrame classifies one inbound frame and routes it.
func (c *Client) handleFrame(f *Frame) {
	c.mu.Lock()
	class := classify(f.Code, c.expected, c.inflight != nil)

	switch class {
	case ClassDirectResponse:
		c.handleResponseLocked(f)

	case ClassSpontaneousPush:
		c.handlePushLocked(f)

	default:
		c.unexpectedRx.Add(1)
		c.mu.Unlock()
		c.logWarn("dropping unexpected frame", "code", f.Code.String())
	}
}

// handleResponseLocked resolves the in-flight command with the decoded
// reply. Caller holds c.mu; it is released before callbacks run.
func (c *Client) handleResponseLocked(f *Frame) {
	p := c.inflight
	c.inflight = nil
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.responsesRx.Add(1)

	st, err := DecodeStatus(f)
	var res Result
	switch {
	case err != nil:
		c.decodeErrors.Add(1)
		res = Result{Err: err}
	case st.Kind == StatusResult && !st.Result.OK():
		c.rejections.Add(1)
		res = Result{Status: st, Err: &RejectedError{Code: st.Result}}
	default:
		res = Result{Status: st}
	}

	changed := false
	var matched []*waiter
	if err == nil {
		changed = c.snapshot.Apply(st)
		matched = c.matchWaitersLocked(st)
	}

	c.pumpLocked()
	c.mu.Unlock()

	for _, w := range matched {
		w.deliver(st)
	}
	p.resolve(res)
	if changed {
		c.notifyPush(st)
	}
}

// handlePushLocked folds a spontaneous push into the snapshot and wakes
// matching waiters. Caller holds c.mu; it is released before callbacks
// run. A push that fails to decode never touches the snapshot.
func (c *Client) handlePushLocked(f *Frame) {
	st, err := DecodeStatus(f)
	if err != nil {
		c.decodeErrors.Add(1)
		c.mu.Unlock()
		c.logWarn("dropping undecodable push", "code", f.Code.String(), "error", err.Error())
		return
	}

	c.pushesRx.Add(1)
	changed := c.snapshot.Apply(st)
	matched := c.matchWaitersLocked(st)
	c.mu.Unlock()

	c.logDebug("status push", "status", st.String(), "changed", changed)

	for _, w := range matched {
		w.deliver(st)
	}
	if changed {
		c.notifyPush(st)
	}
}

// failAll resolves the in-flight and all queued commands with err.
// Called on connection loss; the engine returns to idle so submissions
// resume once the transport is back.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	p := c.inflight
	c.inflight = nil
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	queued := c.queue
	c.queue = nil
	if c.state == stateAwaiting {
		c.state = stateIdle
	}
	c.signalIdleLocked()
	c.mu.Unlock()

	if p != nil {
		p.resolve(Result{Err: err})
	}
	for _, q := range queued {
		q.resolve(Result{Err: err})
	}
}

// handleConnState chains transport state changes to the registered
// callback.
func (c *Client) handleConnState(state ConnState) {
	c.logInfo("link state changed", "state", state.String())

	c.callbackMu.RLock()
	callback := c.onState
	c.callbackMu.RUnlock()

	if callback != nil {
		callback(state)
	}
}

// Subscribe sets the callback invoked whenever a decoded fragment
// changes the snapshot. The callback runs on the reader goroutine and
// must not block.
func (c *Client) Subscribe(callback func(Status)) {
	c.callbackMu.Lock()
	c.onPush = callback
	c.callbackMu.Unlock()
}

// SetOnStateChange sets the callback invoked on link state transitions.
func (c *Client) SetOnStateChange(callback func(ConnState)) {
	c.callbackMu.Lock()
	c.onState = callback
	c.callbackMu.Unlock()
}

func (c *Client) notifyPush(st Status) {
	c.callbackMu.RLock()
	callback := c.onPush
	c.callbackMu.RUnlock()

	if callback != nil {
		callback(st)
	}
}

// CurrentSnapshot returns the live snapshot. Readers always see the
// latest applied state.
func (c *Client) CurrentSnapshot() *Snapshot {
	return c.snapshot
}

// IsConnected reports whether the transport link is up.
func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

// TransportStats returns the transport's counters.
func (c *Client) TransportStats() TransportStats {
	return c.transport.Stats()
}

// Stats returns dispatcher counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	depth := len(c.queue)
	inflight := c.inflight != nil
	c.mu.Unlock()

	return Stats{
		FramesTx:     c.framesTx.Load(),
		FramesRx:     c.framesRx.Load(),
		PushesRx:     c.pushesRx.Load(),
		ResponsesRx:  c.responsesRx.Load(),
		UnexpectedRx: c.unexpectedRx.Load(),
		DecodeErrors: c.decodeErrors.Load(),
		Timeouts:     c.timeouts.Load(),
		Rejections:   c.rejections.Load(),
		QueueDepth:   depth,
		InFlight:     inflight,
	}
}

// Close drains the engine: new submissions are refused, queued commands
// fail with ErrCancelled, the in-flight command finishes or times out,
// then the transport is released. Safe to call multiple times.
func (c *Client) Close() error {
	c.mu.Lock()
	alreadyDraining := c.state == stateDraining
	c.state = stateDraining
	queued := c.queue
	c.queue = nil
	c.signalIdleLocked()
	c.mu.Unlock()

	if !alreadyDraining {
		for _, q := range queued {
			q.resolve(Result{Err: ErrCancelled})
		}
	}

	// Let the in-flight command finish or hit its deadline.
	<-c.idleCh

	c.done.Close()
	err := c.transport.Close()
	c.wg.Wait()

	c.failWaiters()
	c.logInfo("engine closed")
	return err
}

func (c *Client) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Client) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) logError(msg string, err error, keysAndValues ...any) {
	if c.logger != nil {
		kv := append([]any{"error", err}, keysAndValues...)
		c.logger.Error(msg, kv...)
	}
}
