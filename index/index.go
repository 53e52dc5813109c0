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

// Package index implements NoWDB's persistent composite-key B-tree
// index (spec §4.7): a mapping from a composite key to a page id and a
// 128-bit per-page record-presence bitmap, plus the batching indexer
// that amortises upsert cost across a sort run.
package index

import (
	"bytes"

	"github.com/google/btree"
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
)

const degree = 32

// Bitmap is the 128-bit per-page-per-key presence map: bit i%64 of
// Bitmap[i/64] is set iff a record with this key sits at slot i of the
// owning page.
type Bitmap [2]uint64

// Set marks slot as present.
func (b *Bitmap) Set(slot int) {
	b[slot/64] |= 1 << uint(slot%64)
}

// Has reports whether slot is marked present.
func (b Bitmap) Has(slot int) bool {
	return b[slot/64]&(1<<uint(slot%64)) != 0
}

// entry is one B-tree item: a composite key, the page it was seen on,
// and the accumulated presence bitmap for that (key, page) pair.
type entry struct {
	key    []byte
	page   uint64
	bitmap Bitmap
}

func less(a, b entry) bool {
	c := bytes.Compare(a.key, b.key)
	if c != 0 {
		return c < 0
	}
	return a.page < b.page
}

// Index wraps a B-tree keyed on the composite key (and, secondarily,
// page id) with the read/write lock discipline spec §5 requires: all
// operations take the read side except Drop, which takes the write
// side, guaranteeing no in-flight reader observes a dropped index.
type Index struct {
	Name string

	lock task.RWLock
	tree *btree.BTreeG[entry]
}

// New creates an empty index named name.
func New(name string) *Index {
	return &Index{Name: name, tree: btree.NewG(degree, less)}
}

// Use marks the start of a read-side operation (shared-mode user count).
func (ix *Index) Use() { ix.lock.RLock() }

// EndUse marks the end of a read-side operation.
func (ix *Index) EndUse() { ix.lock.RUnlock() }

// Insert upserts key at (page, slot): if an entry for (key, page)
// exists its bitmap is OR'd with the new slot bit; otherwise a fresh
// entry is created. Insert takes Use/EndUse internally.
func (ix *Index) Insert(key []byte, page uint64, slot int) {
	ix.Use()
	defer ix.EndUse()

	e := entry{key: append([]byte(nil), key...), page: page}
	if old, ok := ix.tree.Get(e); ok {
		e.bitmap = old.bitmap
	}
	e.bitmap.Set(slot)
	ix.tree.ReplaceOrInsert(e)
}

// Lookup returns the bitmap recorded for (key, page), and whether any
// entry exists at all.
func (ix *Index) Lookup(key []byte, page uint64) (Bitmap, bool) {
	ix.Use()
	defer ix.EndUse()
	e, ok := ix.tree.Get(entry{key: key, page: page})
	return e.bitmap, ok
}

// Hit is one (file/page, bitmap) match yielded by Range.
type Hit struct {
	Page   uint64
	Bitmap Bitmap
}

// Range drives the index over [lo, hi] in key order (dir<0 for
// descending), invoking iter with every matching (page, bitmap) pair;
// iter returning false stops the scan early. lo or hi may be nil for an
// open-ended bound. Both bounds are inclusive, and hi bounds by prefix:
// a key whose first len(hi) bytes equal hi is in range, so passing a
// leading-column prefix as both lo and hi selects every key that starts
// with it. google/btree's AscendRange/DescendRange treat their
// upper/lower argument as exclusive, so rather than hand hi/lo straight
// to them (silently dropping a key equal to the bound) the stop
// condition is checked explicitly inside visit.
func (ix *Index) Range(lo, hi []byte, dir int, iter func(key []byte, hit Hit) bool) {
	ix.Use()
	defer ix.EndUse()

	visit := func(e entry) bool {
		return iter(e.key, Hit{Page: e.page, Bitmap: e.bitmap})
	}

	// aboveHi reports whether k sorts after every key prefixed by hi.
	aboveHi := func(k []byte) bool {
		if len(k) > len(hi) {
			k = k[:len(hi)]
		}
		return bytes.Compare(k, hi) > 0
	}

	if dir >= 0 {
		boundedVisit := visit
		if hi != nil {
			boundedVisit = func(e entry) bool {
				if aboveHi(e.key) {
					return false
				}
				return visit(e)
			}
		}
		if lo != nil {
			ix.tree.AscendGreaterOrEqual(entry{key: lo}, boundedVisit)
		} else {
			ix.tree.Ascend(boundedVisit)
		}
		return
	}

	boundedVisit := visit
	if lo != nil {
		boundedVisit = func(e entry) bool {
			if bytes.Compare(e.key, lo) < 0 {
				return false
			}
			return visit(e)
		}
	}
	if hi != nil {
		ix.tree.Descend(func(e entry) bool {
			if aboveHi(e.key) {
				return true // still above hi; keep descending
			}
			return boundedVisit(e)
		})
	} else {
		ix.tree.Descend(boundedVisit)
	}
}

// Drop takes the write lock and discards the index's contents, per
// spec §3's "drop takes the write-lock, guaranteeing no in-flight
// reader sees a dropped index".
func (ix *Index) Drop() *xerror.Error {
	ix.lock.Lock()
	defer ix.lock.Unlock()
	ix.tree = btree.NewG(degree, less)
	return nil
}

// Len reports the number of distinct (key, page) entries.
func (ix *Index) Len() int {
	ix.Use()
	defer ix.EndUse()
	return ix.tree.Len()
}
