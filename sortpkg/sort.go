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

// Package sortpkg implements NoWDB's external block-merge sort (spec
// §4.6): in-place qsort-with-remainder over one block, followed by an
// arena-backed iterative pairwise merge of sorted runs into one run.
package sortpkg

import (
	"sort"

	"github.com/nowdb/nowdb/blist"
	"github.com/nowdb/nowdb/model"
)

func recordsIn(blockLen int, recsize model.RecSize) int {
	return blockLen / int(recsize)
}

func recordAt(buf []byte, i int, recsize model.RecSize) []byte {
	rs := int(recsize)
	return buf[i*rs : i*rs+rs]
}

func clearTail(buf []byte, n int, recsize model.RecSize) {
	rs := int(recsize)
	for i := n * rs; i < len(buf); i++ {
		buf[i] = 0
	}
}

// SortBlock sorts the whole records within one block in place, leaving
// the block's zero-padded remainder untouched, per spec §4.6 step 1.
// The sort is stable: equal keys preserve their input order (spec §8).
func SortBlock(block []byte, recsize model.RecSize, cmp model.Comparator) {
	n := recordsIn(len(block), recsize)
	rs := int(recsize)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return cmp.Compare(recordAt(block, idx[i], recsize), recordAt(block, idx[j], recsize)) < 0
	})
	tmp := make([]byte, n*rs)
	for dst, src := range idx {
		copy(tmp[dst*rs:dst*rs+rs], block[src*rs:src*rs+rs])
	}
	copy(block[:n*rs], tmp)
}

// Run is an ordered chain of blocks whose concatenated whole-record
// regions, in block order, form one sorted sequence. Runs are arena
// owned: every *blist.Block they reference must eventually pass through
// Arena.Free (mergeRuns does this for its inputs; Free(s) must be
// called explicitly for whatever Run MergeRuns finally returns).
type Run struct {
	blocks  []*blist.Block
	recsize model.RecSize
}

// NumRecords returns the total whole-record count across r's blocks.
func (r *Run) NumRecords() int {
	n := 0
	for _, b := range r.blocks {
		n += recordsIn(len(b.Buf), r.recsize)
	}
	return n
}

// Blocks exposes the run's underlying blocks in order, for callers that
// need to stream them out to a reader file.
func (r *Run) Blocks() []*blist.Block { return r.blocks }

// Free returns every block in r to arena.
func (r *Run) Free(arena *blist.Arena) {
	for _, b := range r.blocks {
		arena.Free(b)
	}
	r.blocks = nil
}

// NewSingletonRuns copies each of blocks into a freshly arena-drawn
// block, sorts it in place, and returns one singleton Run per input
// block — the starting point for MergeRuns.
func NewSingletonRuns(arena *blist.Arena, blocks [][]byte, recsize model.RecSize, cmp model.Comparator) []*Run {
	runs := make([]*Run, len(blocks))
	for i, raw := range blocks {
		b := arena.Get()
		copy(b.Buf, raw)
		SortBlock(b.Buf, recsize, cmp)
		runs[i] = &Run{blocks: []*blist.Block{b}, recsize: recsize}
	}
	return runs
}

// mergeRuns performs one merge step (spec §4.6 step 2): it streams
// records from l and r in comparator order into output blocks drawn
// from arena as needed, freeing each input block back to arena as soon
// as it is fully consumed. Equal keys prefer l's record first
// (stability).
func mergeRuns(arena *blist.Arena, l, r *Run, recsize model.RecSize, cmp model.Comparator) *Run {
	result := &Run{recsize: recsize}
	rs := int(recsize)

	li, lp := 0, 0
	ri, rp := 0, 0

	cur := arena.Get()
	curN := 0
	capRecs := recordsIn(len(cur.Buf), recsize)

	emit := func(rec []byte) {
		copy(cur.Buf[curN*rs:curN*rs+rs], rec)
		curN++
		if curN == capRecs {
			result.blocks = append(result.blocks, cur)
			cur = arena.Get()
			curN = 0
		}
	}
	advanceL := func() {
		lp++
		if lp >= recordsIn(len(l.blocks[li].Buf), recsize) {
			arena.Free(l.blocks[li])
			li++
			lp = 0
		}
	}
	advanceR := func() {
		rp++
		if rp >= recordsIn(len(r.blocks[ri].Buf), recsize) {
			arena.Free(r.blocks[ri])
			ri++
			rp = 0
		}
	}

	for li < len(l.blocks) && ri < len(r.blocks) {
		a := recordAt(l.blocks[li].Buf, lp, recsize)
		b := recordAt(r.blocks[ri].Buf, rp, recsize)
		if cmp.Compare(a, b) <= 0 {
			emit(a)
			advanceL()
		} else {
			emit(b)
			advanceR()
		}
	}
	for li < len(l.blocks) {
		emit(recordAt(l.blocks[li].Buf, lp, recsize))
		advanceL()
	}
	for ri < len(r.blocks) {
		emit(recordAt(r.blocks[ri].Buf, rp, recsize))
		advanceR()
	}

	if curN > 0 {
		clearTail(cur.Buf, curN, recsize)
		result.blocks = append(result.blocks, cur)
	} else {
		arena.Free(cur)
	}
	return result
}

// MergeRuns repeatedly merges adjacent run pairs until a single sorted
// run remains (spec §4.6 step 3).
func MergeRuns(arena *blist.Arena, runs []*Run, recsize model.RecSize, cmp model.Comparator) *Run {
	if len(runs) == 0 {
		return &Run{recsize: recsize}
	}
	cur := runs
	for len(cur) > 1 {
		next := make([]*Run, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				next = append(next, cur[i])
				break
			}
			next = append(next, mergeRuns(arena, cur[i], cur[i+1], recsize, cmp))
		}
		cur = next
	}
	return cur[0]
}

// MemMerge is the single-buffer entry point (spec §4.6): buf's length
// must be a multiple of blockSize. It sorts and merges buf's blocks in
// place using a fresh arena, returning the number of whole records in
// the resulting sorted sequence. Returns sizeError if the length
// precondition fails.
func MemMerge(buf []byte, blockSize int, recsize model.RecSize, cmp model.Comparator) (int, error) {
	return MemMergeArena(blist.NewArena(blockSize), buf, blockSize, recsize, cmp)
}

// MemMergeArena is MemMerge against a caller-supplied arena instead of a
// fresh one per call (spec §4.5 step 5: the sort worker takes the shared
// sort arena rather than allocating scratch space per job). arena must
// produce blocks of blockSize bytes.
func MemMergeArena(arena *blist.Arena, buf []byte, blockSize int, recsize model.RecSize, cmp model.Comparator) (int, error) {
	if blockSize <= 0 || len(buf)%blockSize != 0 {
		return 0, errBadSize
	}
	nblocks := len(buf) / blockSize
	raw := make([][]byte, nblocks)
	for i := range raw {
		raw[i] = buf[i*blockSize : (i+1)*blockSize]
	}

	runs := NewSingletonRuns(arena, raw, recsize, cmp)
	merged := MergeRuns(arena, runs, recsize, cmp)

	total := merged.NumRecords()
	off := 0
	for _, b := range merged.Blocks() {
		copy(buf[off:off+len(b.Buf)], b.Buf)
		off += len(b.Buf)
	}
	merged.Free(arena)
	return total, nil
}

type sizeError string

func (e sizeError) Error() string { return string(e) }

const errBadSize = sizeError("nowdb_mem_merge: size must be a multiple of block_size")
