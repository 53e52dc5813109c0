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

// Package task implements NoWDB's locking, queue and worker primitives
// (spec §4.2, §5): a read/write lock wrapper, a bounded blocking FIFO
// with priority push and timeout-based dequeue, and a long-lived worker
// goroutine driven by that queue.
package task

import "sync"

// RWLock wraps sync.RWMutex with acquire/release calls that match the
// store/index locking granularity from spec §5: readers take RLock for
// listings, writers take Lock for insert/rotate/drop.
type RWLock struct {
	mu sync.RWMutex
}

// RLock acquires the lock for readers (file listing, index lookup).
func (l *RWLock) RLock() { l.mu.RLock() }

// RUnlock releases a reader lock.
func (l *RWLock) RUnlock() { l.mu.RUnlock() }

// Lock acquires the lock for writers (insert, rotate, drop).
func (l *RWLock) Lock() { l.mu.Lock() }

// Unlock releases a writer lock.
func (l *RWLock) Unlock() { l.mu.Unlock() }
