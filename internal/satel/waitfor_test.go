package satel

import (
	"context"
	"errors"
	"testing"
	"time"
)

type waitForResult struct {
	st  Status
	err error
}

func TestWaitForArmedConfirmation(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	arm, _ := Arm(0, "1234", []int{1})

	resCh := make(chan waitForResult, 1)
	go func() {
		st, err := c.WaitFor(context.Background(), PartitionsArmed(1), &arm, 2*time.Second)
		resCh <- waitForResult{st, err}
	}()

	<-ft.writeCh
	ft.inject(t, CodeResult, []byte{0x00})

	// The panel signals exit time, then entry-like transitional state.
	// Neither is full confirmation and neither may resolve the wait.
	exit, _ := ListToBitmap([]int{1}, partitionBytes)
	ft.inject(t, CodePartsExitTime, exit)
	ft.inject(t, CodePartsEntryTime, exit)

	select {
	case res := <-resCh:
		t.Fatalf("WaitFor resolved on transitional push: %+v", res)
	case <-time.After(150 * time.Millisecond):
	}

	// The armed push is the real confirmation.
	ft.inject(t, CodePartsArmed, exit)

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("WaitFor error: %v", res.err)
		}
		if res.st.Kind != StatusPartsArmed {
			t.Errorf("Kind = %s, want %s", res.st.Kind, StatusPartsArmed)
		}
		if !c.CurrentSnapshot().Active(StatusPartsArmed, 1) {
			t.Error("snapshot missing armed partition")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never resolved on armed push")
	}
}

func TestWaitForCommandRejected(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	arm, _ := Arm(0, "1234", []int{1})

	resCh := make(chan waitForResult, 1)
	go func() {
		st, err := c.WaitFor(context.Background(), PartitionsArmed(1), &arm, 2*time.Second)
		resCh <- waitForResult{st, err}
	}()

	<-ft.writeCh
	ft.inject(t, CodeResult, []byte{byte(ResultNoAccess)})

	select {
	case res := <-resCh:
		if !errors.Is(res.err, ErrRejected) {
			t.Errorf("WaitFor = %v, want ErrRejected", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never resolved on rejection")
	}
}

func TestWaitForTimeout(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	start := time.Now()
	_, err := c.WaitFor(context.Background(), PartitionsArmed(1), nil, 80*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitFor = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("resolved after %v, before the deadline", elapsed)
	}
}

func TestWaitForStreamOnly(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	resCh := make(chan waitForResult, 1)
	go func() {
		st, err := c.WaitFor(context.Background(), PartitionsDisarmed(2), nil, 2*time.Second)
		resCh <- waitForResult{st, err}
	}()

	// Armed set without partition 2 satisfies the disarmed predicate.
	armed, _ := ListToBitmap([]int{1}, partitionBytes)

	// Small delay so the waiter is registered before the push lands.
	time.Sleep(50 * time.Millisecond)
	ft.inject(t, CodePartsArmed, armed)

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("WaitFor error: %v", res.err)
		}
		if res.st.Kind != StatusPartsArmed {
			t.Errorf("Kind = %s, want %s", res.st.Kind, StatusPartsArmed)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never resolved")
	}
}

func TestWaitForNoPredicate(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	disarm, _ := Disarm("1234", []int{1})

	resCh := make(chan waitForResult, 1)
	go func() {
		st, err := c.WaitFor(context.Background(), nil, &disarm, time.Second)
		resCh <- waitForResult{st, err}
	}()

	<-ft.writeCh
	ft.inject(t, CodeResult, []byte{0x00})

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("WaitFor error: %v", res.err)
		}
		if res.st.Kind != StatusResult || res.st.Result != ResultOK {
			t.Errorf("status = %+v, want ok result", res.st)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never resolved")
	}
}

func TestWaitForNeitherPredicateNorCommand(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	if _, err := c.WaitFor(context.Background(), nil, nil, time.Second); err == nil {
		t.Error("WaitFor(nil, nil) succeeded, want error")
	}
}

func TestWaitForContextCancelled(t *testing.T) {
	ft := newFakeTransport()
	c := newTestClient(t, ft)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())

	resCh := make(chan waitForResult, 1)
	go func() {
		st, err := c.WaitFor(ctx, PartitionsArmed(1), nil, 5*time.Second)
		resCh <- waitForResult{st, err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case res := <-resCh:
		if !errors.Is(res.err, ErrCancelled) {
			t.Errorf("WaitFor = %v, want ErrCancelled", res.err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitFor never resolved on cancellation")
	}
}
