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

// Package blist implements the fixed-size block arena (spec §4.3) used
// as scratch workspace by the block-merge sort: a list of equal-sized
// byte blocks with an embedded free list, supporting zero-copy reuse
// across sort rounds.
package blist

import "sync"

// Block is one fixed-size buffer drawn from an Arena.
type Block struct {
	Buf  []byte
	next *Block
}

// List is a singly linked, caller-owned chain of Blocks (e.g. the
// sort's current set of sorted runs). The zero value is an empty list.
type List struct {
	head *Block
	n    int
}

// Len reports the number of blocks in l.
func (l *List) Len() int { return l.n }

// Push prepends b to l.
func (l *List) Push(b *Block) {
	b.next = l.head
	l.head = b
	l.n++
}

// Pop removes and returns the head block, or nil if l is empty.
func (l *List) Pop() *Block {
	if l.head == nil {
		return nil
	}
	b := l.head
	l.head = b.next
	b.next = nil
	l.n--
	return b
}

// Arena is a free list of fixed-size blocks. Get draws one (allocating
// if the free list is empty); Give/Take/Free/FreeAll move blocks
// between the arena and a caller's List per spec §4.3.
type Arena struct {
	mu        sync.Mutex
	blockSize int
	free      List
	given     int // blocks currently checked out, for arena-identity tests
}

// NewArena creates an arena producing blocks of blockSize bytes.
func NewArena(blockSize int) *Arena {
	return &Arena{blockSize: blockSize}
}

// Get pops a free block, allocating a new one if the free list is empty.
func (a *Arena) Get() *Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.free.Pop()
	if b == nil {
		b = &Block{Buf: make([]byte, a.blockSize)}
	}
	a.given++
	return b
}

// Give pushes a freshly-filled block onto the front of the caller's
// list (it remains checked out of the arena until Take or Free returns
// it).
func (*Arena) Give(my *List, b *Block) {
	my.Push(b)
}

// Take moves the head block of the caller's list back to the arena's
// free list, returning it.
func (a *Arena) Take(my *List) *Block {
	b := my.Pop()
	if b == nil {
		return nil
	}
	a.mu.Lock()
	a.free.Push(b)
	a.given--
	a.mu.Unlock()
	return b
}

// Free returns a single checked-out block directly to the arena.
func (a *Arena) Free(b *Block) {
	if b == nil {
		return
	}
	a.mu.Lock()
	a.free.Push(b)
	a.given--
	a.mu.Unlock()
}

// FreeAll returns every block in my to the arena.
func (a *Arena) FreeAll(my *List) {
	for {
		b := my.Pop()
		if b == nil {
			return
		}
		a.mu.Lock()
		a.free.Push(b)
		a.given--
		a.mu.Unlock()
	}
}

// FreeLen reports the number of blocks currently sitting in the arena's
// free list (for tests verifying arena identity across a sort round).
func (a *Arena) FreeLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free.Len()
}

// Given reports the number of blocks currently checked out of the arena.
func (a *Arena) Given() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.given
}
