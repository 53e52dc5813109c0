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

package index

import (
	"bytes"

	"github.com/google/btree"
)

// Indexer batches a sort run's worth of inserts into an in-memory
// ordered tree keyed the same way as the destination index, then
// flushes the batch in key order — amortising the destination index's
// upsert cost across one run instead of paying it per record (spec
// §4.7).
type Indexer struct {
	offsets []int
	batch   *btree.BTreeG[entry]
}

// NewIndexer creates a batching indexer extracting composite keys at
// offsets from each record it is fed.
func NewIndexer(offsets []int) *Indexer {
	return &Indexer{offsets: offsets, batch: btree.NewG(degree, less)}
}

// keyOf extracts the composite key from rec at the indexer's offsets.
func (ix *Indexer) keyOf(rec []byte) []byte {
	key := make([]byte, 8*len(ix.offsets))
	for i, off := range ix.offsets {
		copy(key[i*8:i*8+8], rec[off:off+8])
	}
	return key
}

// Feed extracts rec's composite key and upserts it into the batch,
// OR-ing slot's bit into the (key, page) entry's bitmap.
func (ix *Indexer) Feed(rec []byte, page uint64, slot int) {
	key := ix.keyOf(rec)
	e := entry{key: key, page: page}
	if old, ok := ix.batch.Get(e); ok {
		e.bitmap = old.bitmap
	}
	e.bitmap.Set(slot)
	ix.batch.ReplaceOrInsert(e)
}

// Flush drains the batch into dst in ascending key order and resets the
// batch to empty.
func (ix *Indexer) Flush(dst *Index) {
	ix.batch.Ascend(func(e entry) bool {
		dst.Use()
		old, ok := dst.tree.Get(entry{key: e.key, page: e.page})
		merged := e.bitmap
		if ok {
			merged[0] |= old.bitmap[0]
			merged[1] |= old.bitmap[1]
		}
		dst.tree.ReplaceOrInsert(entry{key: e.key, page: e.page, bitmap: merged})
		dst.EndUse()
		return true
	})
	ix.batch = btree.NewG(degree, less)
}

// Len reports the number of distinct (key, page) entries currently batched.
func (ix *Indexer) Len() int { return ix.batch.Len() }

// keysEqual reports whether two composite keys are byte-identical;
// exposed for tests that assert batching groups identical keys.
func keysEqual(a, b []byte) bool { return bytes.Equal(a, b) }
