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

package text

import "github.com/google/btree"

const treeDegree = 32

type strEntry struct {
	str string
	id  uint64
}

func strLess(a, b strEntry) bool { return a.str < b.str }

type idEntry struct {
	id  uint64
	str string
}

func idLess(a, b idEntry) bool { return a.id < b.id }

// bucket is one length-segmented str<->id map: a string tree keyed on
// the literal text, an id tree keyed on the assigned id, each fronted
// by its own bounded LRU (spec §9, grounded on the original's
// t2tmap + pklru pairing).
type bucket struct {
	maxLen int

	strTree *btree.BTreeG[strEntry]
	idTree  *btree.BTreeG[idEntry]

	strCache *Cache[string, uint64]
	idCache  *Cache[uint64, string]
}

func newBucket(maxLen, lruCap int) *bucket {
	return &bucket{
		maxLen:   maxLen,
		strTree:  btree.NewG(treeDegree, strLess),
		idTree:   btree.NewG(treeDegree, idLess),
		strCache: NewCache[string, uint64](lruCap),
		idCache:  NewCache[uint64, string](lruCap),
	}
}

func (b *bucket) lookupID(s string) (uint64, bool) {
	if id, ok := b.strCache.Get(s); ok {
		return id, true
	}
	if e, ok := b.strTree.Get(strEntry{str: s}); ok {
		b.strCache.Put(s, e.id)
		return e.id, true
	}
	return 0, false
}

func (b *bucket) lookupStr(id uint64) (string, bool) {
	if s, ok := b.idCache.Get(id); ok {
		return s, true
	}
	if e, ok := b.idTree.Get(idEntry{id: id}); ok {
		b.idCache.Put(id, e.str)
		return e.str, true
	}
	return "", false
}

func (b *bucket) insert(s string, id uint64) {
	b.strTree.ReplaceOrInsert(strEntry{str: s, id: id})
	b.idTree.ReplaceOrInsert(idEntry{id: id, str: s})
	b.strCache.Put(s, id)
	b.idCache.Put(id, s)
}

func (b *bucket) len() int { return b.strTree.Len() }
