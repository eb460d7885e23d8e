package satel

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Predicate inspects a freshly applied fragment together with the live
// snapshot. It runs on the reader goroutine and must not block.
type Predicate func(st Status, snap *Snapshot) bool

// waiter is one registered predicate blocking a WaitFor call.
type waiter struct {
	id   uint64
	pred Predicate
	ch   chan Status
}

func (w *waiter) deliver(st Status) {
	select {
	case w.ch <- st:
	default:
	}
}

func (c *Client) addWaiter(pred Predicate) *waiter {
	c.mu.Lock()
	c.waiterSeq++
	w := &waiter{id: c.waiterSeq, pred: pred, ch: make(chan Status, 1)}
	c.waiters[w.id] = w
	c.mu.Unlock()
	return w
}

func (c *Client) removeWaiter(id uint64) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

// matchWaitersLocked collects waiters whose predicate matches the
// fragment. Matched waiters are unregistered; the caller delivers after
// releasing the lock. The snapshot has already absorbed the fragment
// when predicates run. Caller holds c.mu.
func (c *Client) matchWaitersLocked(st Status) []*waiter {
	if len(c.waiters) == 0 {
		return nil
	}
	var matched []*waiter
	for id, w := range c.waiters {
		if w.pred(st, c.snapshot) {
			matched = append(matched, w)
			delete(c.waiters, id)
		}
	}
	return matched
}

// failWaiters unregisters everything on shutdown. Blocked WaitFor calls
// wake through the engine's done channel.
func (c *Client) failWaiters() {
	c.mu.Lock()
	c.waiters = make(map[uint64]*waiter)
	c.mu.Unlock()
}

// WaitFor blocks until a status fragment satisfies pred, a single
// timeout spanning the whole wait.
//
// With a command, the command is submitted first and its direct
// response awaited; pred then matches against the ongoing status
// stream. The predicate is registered before the command is written, so
// a confirmation that races the direct response is not missed. With a
// nil predicate the call reduces to submit-and-wait. With a nil command
// the call only watches the stream.
//
// This is how callers get "armed and the panel confirmed it" semantics:
// the arm command's acceptance is a direct response, while the armed
// state arrives later as a spontaneous push.
func (c *Client) WaitFor(ctx context.Context, pred Predicate, cmd *Command, timeout time.Duration) (Status, error) {
	if pred == nil && cmd == nil {
		return Status{}, errors.New("satel: WaitFor needs a predicate or a command")
	}
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	deadline := time.Now().Add(timeout)

	var w *waiter
	if pred != nil {
		w = c.addWaiter(pred)
		defer c.removeWaiter(w.id)
	}

	if cmd != nil {
		p, err := c.Submit(*cmd, timeout)
		if err != nil {
			return Status{}, err
		}
		st, err := p.Wait(ctx)
		if err != nil {
			return Status{}, err
		}
		if pred == nil {
			return st, nil
		}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return Status{}, ErrTimeout
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case st := <-w.ch:
		return st, nil
	case <-timer.C:
		return Status{}, ErrTimeout
	case <-ctx.Done():
		return Status{}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-c.done.Done():
		return Status{}, ErrClosed
	}
}

// PartitionsArmed matches once every given partition shows armed. The
// transitional exit-time and entry-time categories never satisfy it;
// only an armed-set fragment counts.
func PartitionsArmed(partitions ...int) Predicate {
	return func(st Status, snap *Snapshot) bool {
		if st.Kind != StatusPartsArmed {
			return false
		}
		return snap.AllActive(StatusPartsArmed, partitions)
	}
}

// PartitionsDisarmed matches once none of the given partitions shows
// armed.
func PartitionsDisarmed(partitions ...int) Predicate {
	return func(st Status, snap *Snapshot) bool {
		if st.Kind != StatusPartsArmed {
			return false
		}
		for _, p := range partitions {
			if snap.Active(StatusPartsArmed, p) {
				return false
			}
		}
		return true
	}
}

// OutputsSet matches once every given output reports the wanted state.
func OutputsSet(on bool, outputs ...int) Predicate {
	return func(st Status, snap *Snapshot) bool {
		if st.Kind != StatusOutputs {
			return false
		}
		for _, o := range outputs {
			if snap.Active(StatusOutputs, o) != on {
				return false
			}
		}
		return true
	}
}
