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

import (
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
)

// Bucket length ceilings, inclusive (a string of at most TinyLen bytes
// goes to the tiny bucket), grounded on original_source/src/nowdb/text/text.h's
// tinystr/smallstr/mediumstr/bigstr quartet.
const (
	TinyLen   = 8
	SmallLen  = 32
	MediumLen = 128
	BigLen    = 256
)

// Dictionary is NoWDB's bidirectional string<->uint64 map: every string
// a query or insert introduces (labels, property names, TEXT values) is
// interned to a stable id, and ids are resolved back to strings at
// projection time (spec §3, §6 TEXT type tag).
type Dictionary struct {
	lock    task.RWLock
	buckets [4]*bucket
	nextID  uint64
}

// New creates an empty dictionary with lruCap entries cached per
// bucket per direction (8 caches total).
func New(lruCap int) *Dictionary {
	return &Dictionary{
		buckets: [4]*bucket{
			newBucket(TinyLen, lruCap),
			newBucket(SmallLen, lruCap),
			newBucket(MediumLen, lruCap),
			newBucket(BigLen, lruCap),
		},
	}
}

func (d *Dictionary) bucketFor(s string) (*bucket, *xerror.Error) {
	n := len(s)
	for _, b := range d.buckets {
		if n <= b.maxLen {
			return b, nil
		}
	}
	return nil, xerror.Get(xerror.TooBig, 0, s, "string exceeds the largest text bucket")
}

// Insert interns s, returning its existing id if already known or a
// freshly assigned one otherwise.
func (d *Dictionary) Insert(s string) (uint64, *xerror.Error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	b, err := d.bucketFor(s)
	if err != nil {
		return 0, err
	}
	if id, ok := b.lookupID(s); ok {
		return id, nil
	}
	d.nextID++
	id := d.nextID
	b.insert(s, id)
	return id, nil
}

// LookupID returns s's id without creating one, and whether s is known.
func (d *Dictionary) LookupID(s string) (uint64, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	b, err := d.bucketFor(s)
	if err != nil {
		return 0, false
	}
	return b.lookupID(s)
}

// LookupString resolves id back to its string, scanning each bucket's
// id-tree in turn since a bucket is chosen by the string's length, not
// by any property of the id itself.
func (d *Dictionary) LookupString(id uint64) (string, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, b := range d.buckets {
		if s, ok := b.lookupStr(id); ok {
			return s, true
		}
	}
	return "", false
}

// Len reports the total number of distinct strings interned.
func (d *Dictionary) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	n := 0
	for _, b := range d.buckets {
		n += b.len()
	}
	return n
}
