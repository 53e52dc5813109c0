// Copyright (C) 2024 NoWDB Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package task

import (
	"container/list"
	"sync"
	"time"

	"github.com/nowdb/nowdb/xerror"
)

// Queue is a bounded blocking FIFO with an optional maximum size, a
// drain callback invoked on residual messages at Shutdown, and a
// priority push used for stop sentinels. It mirrors spec §4.2's queue:
// Enqueue blocks while at capacity, EnqueuePrio always succeeds by
// inserting at the head, Dequeue honors a nanosecond timeout, and
// Shutdown closes and drains.
type Queue[T any] struct {
	mu     sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items  list.List
	max    int // 0 = unbounded
	closed bool
	drain  func(T)
}

// NewQueue creates a queue bounded to max messages (0 means unbounded).
// drain, if non-nil, is invoked once per residual message on Shutdown.
func NewQueue[T any](max int, drain func(T)) *Queue[T] {
	q := &Queue[T]{max: max, drain: drain}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends m to the tail, blocking while the queue is at
// capacity. It fails with xerror.Busy if the queue has been shut down.
func (q *Queue[T]) Enqueue(m T) *xerror.Error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.max > 0 && q.items.Len() >= q.max {
		q.notFull.Wait()
	}
	if q.closed {
		return xerror.Get(xerror.Busy, 0, "queue", "queue is closed")
	}
	q.items.PushBack(m)
	q.notEmpty.Signal()
	return nil
}

// EnqueuePrio inserts m at the head, ignoring capacity; used for
// priority messages such as worker stop sentinels.
func (q *Queue[T]) EnqueuePrio(m T) *xerror.Error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return xerror.Get(xerror.Busy, 0, "queue", "queue is closed")
	}
	q.items.PushFront(m)
	q.notEmpty.Signal()
	return nil
}

// Dequeue pops the head message, waiting up to timeout for one to
// arrive. A negative timeout blocks forever; zero returns immediately
// (xerror.Timeout if nothing is queued); a positive timeout is honored
// via a background waker and returns xerror.Timeout on expiry.
func (q *Queue[T]) Dequeue(timeout time.Duration) (T, *xerror.Error) {
	var zero T

	if timeout == 0 {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.items.Len() == 0 {
			return zero, xerror.Get(xerror.Timeout, 0, "queue", "dequeue would block")
		}
		return q.pop(), nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if timeout < 0 {
		for !q.closed && q.items.Len() == 0 {
			q.notEmpty.Wait()
		}
		if q.items.Len() == 0 {
			return zero, xerror.Get(xerror.QueueErr, 0, "queue", "shut down while waiting")
		}
		return q.pop(), nil
	}

	deadline := time.Now().Add(timeout)
	for !q.closed && q.items.Len() == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, xerror.Get(xerror.Timeout, 0, "queue", "dequeue timed out")
		}
		// sync.Cond has no timed wait; a small timer goroutine
		// signals us so the loop re-checks the deadline.
		timer := time.AfterFunc(remaining, func() {
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		})
		q.notEmpty.Wait()
		timer.Stop()
	}
	if q.items.Len() == 0 {
		return zero, xerror.Get(xerror.Timeout, 0, "queue", "dequeue timed out")
	}
	return q.pop(), nil
}

func (q *Queue[T]) pop() T {
	front := q.items.Front()
	q.items.Remove(front)
	q.notFull.Signal()
	return front.Value.(T)
}

// Len reports the number of queued messages.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Shutdown closes the queue and drains any residual messages through
// the configured drain callback, then wakes every blocked waiter.
func (q *Queue[T]) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for e := q.items.Front(); e != nil; e = e.Next() {
		if q.drain != nil {
			q.drain(e.Value.(T))
		}
	}
	q.items.Init()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
