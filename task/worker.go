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
	"log"
	"sync"
	"time"

	"github.com/nowdb/nowdb/xerror"
)

// State is a Worker's lifecycle state.
type State int32

const (
	Stopped State = iota
	Running
)

// envelope wraps a job message with the stop sentinel bit, so that a
// priority-enqueued stop request is observed on the very queue the
// worker blocks on, rather than requiring a second queue the worker
// might never look at while blocked forever (spec §4.2, §5).
type envelope[T any] struct {
	msg  T
	stop bool
}

// Job is the function a Worker invokes per loop iteration. msg is nil
// on a periodic timeout tick; otherwise it is the dequeued message.
// A non-nil error is either published to ErrQueue (if set) or logged.
type Job[T any] func(w *Worker[T], msg *T) *xerror.Error

// Worker owns a thread (goroutine), a job queue, a tick period and a
// user job function, cycling stopped -> running -> stopped (spec §4.2).
type Worker[T any] struct {
	Name   string
	Period time.Duration
	Job    Job[T]
	// ErrQueue, if set, receives job errors instead of them being logged.
	ErrQueue *Queue[*xerror.Error]

	q *Queue[envelope[T]]

	mu    sync.Mutex
	state State
}

// NewWorker constructs a worker ticking every period and invoking job
// per iteration. A non-positive period blocks indefinitely between
// messages (no periodic tick).
func NewWorker[T any](name string, period time.Duration, job Job[T]) *Worker[T] {
	return &Worker[T]{
		Name:   name,
		Period: period,
		Job:    job,
		q:      NewQueue[envelope[T]](0, nil),
	}
}

// Submit enqueues msg for the worker to process.
func (w *Worker[T]) Submit(msg T) *xerror.Error {
	return w.q.Enqueue(envelope[T]{msg: msg})
}

// State reports the worker's current lifecycle state.
func (w *Worker[T]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start spawns the worker's goroutine. Start is a no-op if already running.
func (w *Worker[T]) Start() {
	w.mu.Lock()
	if w.state == Running {
		w.mu.Unlock()
		return
	}
	w.state = Running
	w.mu.Unlock()

	go w.loop()
}

func (w *Worker[T]) loop() {
	period := w.Period
	if period <= 0 {
		period = -1
	}
	for {
		env, err := w.q.Dequeue(period)
		if err != nil {
			if err.Code == xerror.Timeout {
				if jerr := w.Job(w, nil); jerr != nil {
					w.report(jerr)
				}
				continue
			}
			w.setState(Stopped)
			return
		}
		if env.stop {
			w.setState(Stopped)
			return
		}
		msg := env.msg
		if jerr := w.Job(w, &msg); jerr != nil {
			w.report(jerr)
		}
	}
}

func (w *Worker[T]) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker[T]) report(err *xerror.Error) {
	if w.ErrQueue != nil {
		w.ErrQueue.Enqueue(err)
		return
	}
	log.Printf("nowdb: worker %s job error: %s", w.Name, err.Error())
}

// Stop priority-enqueues a stop sentinel and polls every 10ms until the
// worker reaches Stopped or timeout elapses, per spec §5.
func (w *Worker[T]) Stop(timeout time.Duration) *xerror.Error {
	w.q.EnqueuePrio(envelope[T]{stop: true})
	deadline := time.Now().Add(timeout)
	for {
		if w.State() == Stopped {
			return nil
		}
		if time.Now().After(deadline) {
			return xerror.Get(xerror.Timeout, 0, w.Name, "worker did not stop in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
