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

package xerror

import (
	"math/bits"
	"sync"
)

const blockSize = 64

// block is a fixed-size slab of descriptors fronted by an availability
// bitmap: bit i set means slot i is free. Allocation skips blocks whose
// bitmap is zero and takes the lowest free slot by a trailing-zero
// scan, matching spec §4.1's pool growth strategy.
type block struct {
	free  uint64 // 1 = free
	slots [blockSize]Error
}

// Pool is a growable pool of Error descriptors backed by fixed blocks.
// The zero value is not usable; use NewPool.
type Pool struct {
	mu     sync.Mutex
	blocks []*block
}

// NewPool creates an empty descriptor pool.
func NewPool() *Pool {
	return &Pool{}
}

// Get draws a descriptor from the pool, growing it by one 64-entry
// block if every existing block is full.
func (p *Pool) Get(code Code, oserrno int, object, info string) *Error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.blocks {
		if b.free == 0 {
			continue
		}
		i := bits.TrailingZeros64(b.free)
		b.free &^= 1 << uint(i)
		e := &b.slots[i]
		*e = Error{Code: code, OSErrno: oserrno, Info: info, pooled: true, block: b, slot: i}
		e.SetObject(object)
		return e
	}

	b := &block{free: ^uint64(0)}
	b.free &^= 1
	p.blocks = append(p.blocks, b)
	e := &b.slots[0]
	*e = Error{Code: code, OSErrno: oserrno, Info: info, pooled: true, block: b, slot: 0}
	e.SetObject(object)
	return e
}

// Release returns a pooled descriptor to its block's free list. Calling
// Release on a descriptor not drawn from this pool (e.g. one created by
// New) is a no-op.
func (p *Pool) Release(e *Error) {
	if e == nil || !e.pooled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.block.free |= 1 << uint(e.slot)
	e.pooled = false
	e.block = nil
}

// Default is the process-wide pool used by package-level Get/Release.
var Default = NewPool()

// Get draws from the default pool.
func Get(code Code, oserrno int, object, info string) *Error {
	return Default.Get(code, oserrno, object, info)
}

// Release returns e to the default pool.
func Release(e *Error) { Default.Release(e) }
