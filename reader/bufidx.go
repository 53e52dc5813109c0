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
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/sortpkg"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
)

// BufIdx reads every page of its input files into one contiguous
// in-memory buffer of just the real (non-null) records, sorts that
// buffer by cmp, and repacks the result into full 8KiB pages — making
// pending, not-yet-sorted files participate in an ordered merge
// alongside already-sorted reader files (spec §4.8 Bufidx).
type BufIdx struct {
	recsize model.RecSize
	pages   [][]byte
	pos     int
	cur     []byte
	atEOF   bool
}

// NewBufIdx eagerly builds the sorted page set for files.
func NewBufIdx(files []*store.File, recsize model.RecSize, cmp model.Comparator) (*BufIdx, *xerror.Error) {
	rs := int(recsize)
	var flat []byte

	for _, f := range files {
		n := f.PageCount()
		for i := 0; i < n; i++ {
			page, err := f.ReadPage(i)
			if err != nil {
				return nil, err
			}
			perPage := model.RecordsPerPage(recsize)
			for slot := 0; slot < perPage; slot++ {
				rec := page[slot*rs : slot*rs+rs]
				if model.IsNull(rec) {
					continue
				}
				flat = append(flat, rec...)
			}
		}
	}

	sortpkg.SortBlock(flat, recsize, cmp)

	perPage := model.RecordsPerPage(recsize)
	total := len(flat) / rs

	var pages [][]byte
	for off := 0; off < total; off += perPage {
		end := off + perPage
		if end > total {
			end = total
		}
		page := make([]byte, model.PageSize)
		copy(page, flat[off*rs:end*rs])
		pages = append(pages, page)
	}

	return &BufIdx{recsize: recsize, pages: pages}, nil
}

// RecSize reports the constant record width this reader yields.
func (r *BufIdx) RecSize() model.RecSize { return r.recsize }

// Page returns the page most recently moved to.
func (r *BufIdx) Page() []byte { return r.cur }

// Move advances to the next repacked page.
func (r *BufIdx) Move() *xerror.Error {
	if r.atEOF {
		return xerror.New(xerror.EOF)
	}
	if r.pos >= len(r.pages) {
		r.atEOF = true
		r.cur = nil
		return xerror.New(xerror.EOF)
	}
	r.cur = r.pages[r.pos]
	r.pos++
	return nil
}
