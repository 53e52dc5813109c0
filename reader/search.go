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
	"bytes"

	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
)

// hit pairs an index.Hit with the unpacked file id its page belongs to.
type hit struct {
	fileID uint64
	page   int
	bitmap index.Bitmap
}

// Search drives an index over a key prefix, yielding the (masked) page
// of every matching hit (spec §4.8 Search): records whose presence bit
// is unset are overwritten to the null record before the page is
// handed to the caller.
type Search struct {
	files   map[uint64]*store.File
	recsize model.RecSize

	hits  []hit
	pos   int
	cur   []byte
	atEOF bool
}

// NewSearch builds a search reader over every index entry whose key
// has prefix, resolving packed page ids against files (keyed by
// File.ID). An empty prefix matches the whole index.
func NewSearch(idx *index.Index, prefix []byte, files []*store.File, recsize model.RecSize) *Search {
	byID := make(map[uint64]*store.File, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	var hits []hit
	idx.Range(prefix, nil, 1, func(key []byte, h index.Hit) bool {
		if len(prefix) > 0 && !bytes.HasPrefix(key, prefix) {
			return false
		}
		fileID, page := store.UnpackPageID(h.Page)
		hits = append(hits, hit{fileID: fileID, page: page, bitmap: h.Bitmap})
		return true
	})
	return &Search{files: byID, recsize: recsize, hits: hits}
}

// RecSize reports the constant record width this reader yields.
func (r *Search) RecSize() model.RecSize { return r.recsize }

// Page returns the page most recently moved to.
func (r *Search) Page() []byte { return r.cur }

// Move advances to the next index hit's (masked) page.
func (r *Search) Move() *xerror.Error {
	if r.atEOF {
		return xerror.New(xerror.EOF)
	}
	for r.pos < len(r.hits) {
		h := r.hits[r.pos]
		r.pos++
		f, ok := r.files[h.fileID]
		if !ok {
			continue // file since dropped/rotated away; skip its stale hit
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
