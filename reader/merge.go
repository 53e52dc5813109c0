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
	"github.com/nowdb/nowdb/xerror"
)

// childCursor tracks one Merge child's position: the page it last
// moved to, the next unread slot within it, and the next non-null
// record pulled ahead of time so Merge can compare children's heads
// without consuming them.
type childCursor struct {
	r         Reader
	page      []byte
	slot      int
	recsize   model.RecSize
	curRec    []byte
	exhausted bool
}

func (c *childCursor) ensure() *xerror.Error {
	if c.curRec != nil || c.exhausted {
		return nil
	}
	rs := int(c.recsize)
	perPage := model.RecordsPerPage(c.recsize)
	for {
		if c.page == nil {
			if err := c.r.Move(); err != nil {
				if err.Code == xerror.EOF {
					c.exhausted = true
					return nil
				}
				return err
			}
			c.page = c.r.Page()
			c.slot = 0
		}
		for c.slot < perPage {
			rec := c.page[c.slot*rs : c.slot*rs+rs]
			c.slot++
			if model.IsNull(rec) {
				continue
			}
			c.curRec = rec
			return nil
		}
		c.page = nil
	}
}

func (c *childCursor) take() []byte {
	rec := c.curRec
	c.curRec = nil
	return rec
}

// Merge performs a k-way streaming merge over its children in cmp
// order, yielding fully packed pages with every null-record dropped
// (spec §4.8 Merge) — the terminal stage of a read path that combines
// already-sorted reader files with a Bufidx/FRange view of pending
// ones.
type Merge struct {
	children []*childCursor
	cmp      model.Comparator
	recsize  model.RecSize
	cur      []byte
	atEOF    bool
}

// NewMerge builds a k-way merge reader over children, all yielding
// recsize-wide records ordered by cmp.
func NewMerge(children []Reader, recsize model.RecSize, cmp model.Comparator) *Merge {
	cs := make([]*childCursor, len(children))
	for i, r := range children {
		cs[i] = &childCursor{r: r, recsize: recsize}
	}
	return &Merge{children: cs, cmp: cmp, recsize: recsize}
}

// RecSize reports the constant record width this reader yields.
func (m *Merge) RecSize() model.RecSize { return m.recsize }

// Page returns the page most recently moved to.
func (m *Merge) Page() []byte { return m.cur }

// Move fills and yields the next fully-packed output page, pulling the
// smallest available head record across all children each step.
func (m *Merge) Move() *xerror.Error {
	if m.atEOF {
		return xerror.New(xerror.EOF)
	}

	rs := int(m.recsize)
	perPage := model.RecordsPerPage(m.recsize)
	out := make([]byte, model.PageSize)
	n := 0

	for n < perPage {
		best := -1
		for i, c := range m.children {
			if err := c.ensure(); err != nil {
				return err
			}
			if c.curRec == nil {
				continue
			}
			if best < 0 || m.cmp.Compare(c.curRec, m.children[best].curRec) < 0 {
				best = i
			}
		}
		if best < 0 {
			break
		}
		copy(out[n*rs:n*rs+rs], m.children[best].take())
		n++
	}

	if n == 0 {
		m.atEOF = true
		m.cur = nil
		return xerror.New(xerror.EOF)
	}
	m.cur = out
	return nil
}
