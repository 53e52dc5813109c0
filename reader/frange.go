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

package reader

import (
	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
)

// FRange drives an index in key order over [lo, hi] (dir<0 descending),
// yielding one masked page per hit (spec §4.8 Frange). It differs from
// Search only in intent — Frange is chosen by the planner when the
// query's equality conjuncts match a leading prefix of an index's key
// without making up a whole-key point lookup, so the hits are consumed
// in the index's own order.
type FRange struct {
	files   map[uint64]*store.File
	recsize model.RecSize

	hits  []hit
	pos   int
	cur   []byte
	atEOF bool
}

// NewFRange builds a file-range reader over idx's [lo, hi] key range in
// direction dir.
func NewFRange(idx *index.Index, lo, hi []byte, dir int, files []*store.File, recsize model.RecSize) *FRange {
	byID := make(map[uint64]*store.File, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	var hits []hit
	idx.Range(lo, hi, dir, func(_ []byte, h index.Hit) bool {
		fileID, page := store.UnpackPageID(h.Page)
		hits = append(hits, hit{fileID: fileID, page: page, bitmap: h.Bitmap})
		return true
	})
	return &FRange{files: byID, recsize: recsize, hits: hits}
}

// RecSize reports the constant record width this reader yields.
func (r *FRange) RecSize() model.RecSize { return r.recsize }

// Page returns the page most recently moved to.
func (r *FRange) Page() []byte { return r.cur }

// Move advances to the next index hit's (masked) page, in index order.
func (r *FRange) Move() *xerror.Error {
	if r.atEOF {
		return xerror.New(xerror.EOF)
	}
	for r.pos < len(r.hits) {
		h := r.hits[r.pos]
		r.pos++
		f, ok := r.files[h.fileID]
		if !ok {
			continue
		}
		page, err := f.ReadPage(h.page)
		if err != nil {
			return err
		}
		bitmap := h.bitmap
		maskPage(page, r.recsize, bitmap.Has)
		r.cur = page
		return nil
	}
	r.atEOF = true
	r.cur = nil
	return xerror.New(xerror.EOF)
}
