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

package query

import (
	"encoding/binary"
	"sort"

	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/plan"
	"github.com/nowdb/nowdb/reader"
	"github.com/nowdb/nowdb/xerror"
)

// Cursor drives a plan's ordered node list — reader, optional filter,
// optional group, optional order, project, summary — to completion,
// emitting the row-buffer wire format one Fetch call at a time (spec
// §4.11, grounded on the original cursor's fetch contract).
//
// Fetch fills its caller's buffer with as many whole rows as fit,
// never splitting one across two calls — the same buffer-filling
// discipline nowdb_row_project's full/count/complete triple expresses
// in the original. A buffer too small for even the next row is an
// error rather than a silent partial write.
type Cursor struct {
	root    reader.Reader
	recsize model.RecSize
	cols    map[string]int

	filter *Filter

	group *Group

	// sortColumn/sortDesc/needsSort: set when the plan carries an
	// NOrder node whose reader didn't already satisfy it (anything but
	// RFRange) — the cursor then has to buffer every passing row and
	// sort it before Fetch can hand any of it back.
	sortColumn string
	sortDesc   bool
	needsSort  bool

	project plan.ProjectPlan

	perPage   int
	page      []byte
	slot      int
	lookahead []byte // one record peeked ahead of the caller's Fetch cursor

	prepared bool // group/sort path: has the whole input been consumed yet?
	pending  [][]byte
	pendPos  int
}

// NewCursor builds a cursor executing nodes over root (the reader the
// plan's NReader step already constructed), resolving column names
// against cols.
func NewCursor(nodes []*plan.Node, root reader.Reader, cols map[string]int) *Cursor {
	c := &Cursor{root: root, recsize: root.RecSize(), cols: cols, perPage: model.RecordsPerPage(root.RecSize())}

	var readerKind plan.ReaderKind
	for _, n := range nodes {
		if n.NType == plan.NReader {
			readerKind = n.SType
		}
	}

	for _, n := range nodes {
		switch n.NType {
		case plan.NFilter:
			c.filter = NewFilter(n.Load.(plan.FilterPlan).Root, cols)
		case plan.NGroup:
			c.group = NewGroup(n.Load.(plan.GroupPlan))
		case plan.NOrder:
			op := n.Load.(plan.OrderPlan)
			c.sortColumn, c.sortDesc = op.Column, op.Desc
			c.needsSort = readerKind != plan.RFRange
		case plan.NProject:
			c.project = n.Load.(plan.ProjectPlan)
		}
	}
	return c
}

// nextRecord returns the next non-null record, pulling fresh pages
// from root as needed, or xerror.EOF once the reader is exhausted.
func (c *Cursor) nextRecord() ([]byte, *xerror.Error) {
	rs := int(c.recsize)
	for {
		if c.page == nil || c.slot >= c.perPage {
			if err := c.root.Move(); err != nil {
				return nil, err
			}
			c.page = c.root.Page()
			c.slot = 0
		}
		for c.slot < c.perPage {
			rec := c.page[c.slot*rs : c.slot*rs+rs]
			c.slot++
			if model.IsNull(rec) {
				continue
			}
			return rec, nil
		}
		c.page = nil
	}
}

// passes reports whether rec satisfies the cursor's filter (if any).
func (c *Cursor) passes(rec []byte) (bool, *xerror.Error) {
	if c.filter == nil {
		return true, nil
	}
	return c.filter.Eval(rec)
}

// projectValues extracts rec's projected columns as signed 64-bit
// integers, for feeding either a Group or a plain row.
func (c *Cursor) projectValues(rec []byte) []int64 {
	names := c.project.Columns
	vals := make([]int64, 0, len(names))
	for _, name := range names {
		if name == "*" {
			continue
		}
		off, ok := c.cols[name]
		if !ok || off+8 > len(rec) {
			vals = append(vals, 0)
			continue
		}
		vals = append(vals, int64(binary.LittleEndian.Uint64(rec[off:off+8])))
	}
	return vals
}

// buildRow encodes one plain-projection row from rec's values.
func buildRow(vals []int64) []byte {
	var b RowBuilder
	for _, v := range vals {
		b.AddUint(uint64(v))
	}
	return b.Close()
}

// prepare runs the input fully through filter/group/sort exactly once,
// materializing every row Fetch will ever hand back. It is only
// invoked when the plan needs the whole input before emitting anything
// (an aggregate query, or an ORDER BY the reader's own order doesn't
// already satisfy).
func (c *Cursor) prepare() *xerror.Error {
	if c.prepared {
		return nil
	}
	c.prepared = true

	type sortable struct {
		key int64
		row []byte
	}
	var rows []sortable

	for {
		rec, err := c.nextRecord()
		if err != nil {
			if err.Code == xerror.EOF {
				break
			}
			return err
		}
		ok, err := c.passes(rec)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if c.group != nil {
			vals := make([]float64, len(c.project.Columns))
			for i, name := range c.project.Columns {
				if name == "*" {
					continue
				}
				off, ok := c.cols[name]
				if ok && off+8 <= len(rec) {
					vals[i] = float64(int64(binary.LittleEndian.Uint64(rec[off : off+8])))
				}
			}
			c.group.Add(vals)
			continue
		}
		vals := c.projectValues(rec)
		s := sortable{row: buildRow(vals)}
		if c.needsSort {
			if off, ok := c.cols[c.sortColumn]; ok && off+8 <= len(rec) {
				s.key = int64(binary.LittleEndian.Uint64(rec[off : off+8]))
			}
		}
		rows = append(rows, s)
	}

	if c.group != nil {
		c.pending = [][]byte{buildRow(float64sToInt64s(c.group.Results()))}
		return nil
	}

	if c.needsSort {
		sort.SliceStable(rows, func(i, j int) bool {
			if c.sortDesc {
				return rows[i].key > rows[j].key
			}
			return rows[i].key < rows[j].key
		})
	}
	c.pending = make([][]byte, len(rows))
	for i, s := range rows {
		c.pending[i] = s.row
	}
	return nil
}

func float64sToInt64s(vs []float64) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

// peekNext returns the next record passing the filter without
// consuming it, caching it so repeated calls (and an eventual advance)
// don't re-scan already-seen null or filtered-out records.
func (c *Cursor) peekNext() ([]byte, *xerror.Error) {
	if c.lookahead != nil {
		return c.lookahead, nil
	}
	for {
		rec, err := c.nextRecord()
		if err != nil {
			return nil, err
		}
		ok, err := c.passes(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			c.lookahead = rec
			return rec, nil
		}
	}
}

// advance drops the cached lookahead record so the next peekNext pulls
// a fresh one.
func (c *Cursor) advance() { c.lookahead = nil }

// Fetch appends as many complete rows as fit in buf (never splitting
// one across calls) and returns the number of bytes written and how
// many rows that was. It returns an xerror.EOF-coded error (with n=0,
// count=0) once nothing more remains, and xerror.TooBig if buf can't
// hold even the single next row.
func (c *Cursor) Fetch(buf []byte) (n int, count int, xerr *xerror.Error) {
	if c.group != nil || c.needsSort {
		if err := c.prepare(); err != nil {
			return 0, 0, err
		}
		return c.fetchFromPending(buf)
	}

	used := 0
	for {
		rec, err := c.peekNext()
		if err != nil {
			if err.Code != xerror.EOF {
				return 0, 0, err
			}
			break
		}
		row := buildRow(c.projectValues(rec))
		if len(row) > len(buf)-used {
			if count == 0 {
				return 0, 0, xerror.Get(xerror.TooBig, 0, "query.Cursor", "buffer too small for one row")
			}
			break
		}
		copy(buf[used:], row)
		used += len(row)
		count++
		c.advance()
	}
	if count == 0 {
		return 0, 0, xerror.New(xerror.EOF)
	}
	return used, count, nil
}

// fetchFromPending drains c.pending (the group/sort materialized-rows
// path) the same buffer-filling way as the streaming path.
func (c *Cursor) fetchFromPending(buf []byte) (int, int, *xerror.Error) {
	if c.pendPos >= len(c.pending) {
		return 0, 0, xerror.New(xerror.EOF)
	}
	used, count := 0, 0
	for c.pendPos < len(c.pending) {
		row := c.pending[c.pendPos]
		if len(row) > len(buf) {
			if count == 0 {
				return 0, 0, xerror.Get(xerror.TooBig, 0, "query.Cursor", "buffer too small for one row")
			}
			break
		}
		if used+len(row) > len(buf) {
			break
		}
		copy(buf[used:], row)
		used += len(row)
		count++
		c.pendPos++
	}
	return used, count, nil
}

