package task

import (
	"testing"
	"time"

	"github.com/nowdb/nowdb/xerror"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := NewQueue[int](0, nil)
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	for _, want := range []int{1, 2, 3} {
		got, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestEnqueuePrioInsertsAtHead(t *testing.T) {
	q := NewQueue[int](0, nil)
	q.Enqueue(1)
	q.Enqueue(2)
	q.EnqueuePrio(99)
	got, _ := q.Dequeue(0)
	if got != 99 {
		t.Fatalf("got %d, want 99", got)
	}
}

func TestDequeueZeroTimeoutReturnsImmediately(t *testing.T) {
	q := NewQueue[int](0, nil)
	_, err := q.Dequeue(0)
	if err == nil || err.Code != xerror.Timeout {
		t.Fatalf("expected immediate timeout, got %v", err)
	}
}

func TestDequeuePositiveTimeoutExpires(t *testing.T) {
	q := NewQueue[int](0, nil)
	start := time.Now()
	_, err := q.Dequeue(20 * time.Millisecond)
	elapsed := time.Since(start)
	if err == nil || err.Code != xerror.Timeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed < 15*time.Millisecond {
		t.Fatalf("returned too early: %v", elapsed)
	}
}

func TestEnqueueBlocksAtCapacity(t *testing.T) {
	q := NewQueue[int](1, nil)
	q.Enqueue(1)
	done := make(chan struct{})
	go func() {
		q.Enqueue(2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("enqueue should have blocked at capacity")
	case <-time.After(30 * time.Millisecond):
	}

	q.Dequeue(0)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("enqueue never unblocked after capacity freed")
	}
}

func TestShutdownDrainsResidual(t *testing.T) {
	var drained []int
	q := NewQueue[int](0, func(m int) { drained = append(drained, m) })
	q.Enqueue(1)
	q.Enqueue(2)
	q.Shutdown()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained messages, got %d", len(drained))
	}
	if err := q.Enqueue(3); err == nil || err.Code != xerror.Busy {
		t.Fatalf("expected busy error enqueueing to shut-down queue")
	}
}

func TestDequeueNegativeBlocksForever(t *testing.T) {
	q := NewQueue[int](0, nil)
	done := make(chan int)
	go func() {
		v, _ := q.Dequeue(-1)
		done <- v
	}()
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(42)
	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("negative timeout never unblocked")
	}
}
