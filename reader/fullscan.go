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
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
)

// FullScan iterates a caller-supplied list of files in order, yielding
// every page of each as-is (spec §4.8 Fullscan).
type FullScan struct {
	files   []*store.File
	recsize model.RecSize

	fileIdx int
	pageIdx int
	cur     []byte
	atEOF   bool
}

// NewFullScan creates a fullscan reader over files, all sharing recsize.
func NewFullScan(files []*store.File, recsize model.RecSize) *FullScan {
	return &FullScan{files: files, recsize: recsize}
}

// RecSize reports the constant record width this reader yields.
func (r *FullScan) RecSize() model.RecSize { return r.recsize }

// Page returns the page most recently moved to.
func (r *FullScan) Page() []byte { return r.cur }

// Move advances to the next logical page across the file list,
// crossing file boundaries transparently.
func (r *FullScan) Move() *xerror.Error {
	if r.atEOF {
		return xerror.New(xerror.EOF)
	}
	for r.fileIdx < len(r.files) {
		f := r.files[r.fileIdx]
		if r.pageIdx >= f.PageCount() {
			r.fileIdx++
			r.pageIdx = 0
			continue
		}
		page, err := f.ReadPage(r.pageIdx)
		if err != nil {
			return err
		}
		r.pageIdx++
		r.cur = page
		return nil
	}
	r.atEOF = true
	r.cur = nil
	return xerror.New(xerror.EOF)
}
