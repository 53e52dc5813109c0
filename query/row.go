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

// Package query implements NoWDB's result-row wire format and the
// cursor that drives a plan's reader/filter/group/project pipeline to
// produce it (spec §4.11, §6).
package query

import (
	"encoding/binary"
	"math"
)

// EOR terminates one row in the wire-format buffer (spec §6). Every
// value cell is a 1-byte type tag followed by its payload; a text cell
// carries a NUL-terminated string instead of a fixed 8-byte payload.
const EOR byte = 0x0a

// cellWidth is the width of every fixed-size value cell (all but TEXT
// and BOOL): its leading type tag plus an 8-byte payload.
const cellWidth = 9

// RowBuilder appends type-tagged value cells to a growing row, closing
// it with EOR (spec §6 row-buffer format).
type RowBuilder struct {
	buf []byte
}

// AddUint appends a UINT cell.
func (b *RowBuilder) AddUint(v uint64) {
	cell := [cellWidth]byte{0: byte(TagUint)}
	binary.LittleEndian.PutUint64(cell[1:], v)
	b.buf = append(b.buf, cell[:]...)
}

// AddInt appends an INT cell.
func (b *RowBuilder) AddInt(v int64) {
	cell := [cellWidth]byte{0: byte(TagInt)}
	binary.LittleEndian.PutUint64(cell[1:], uint64(v))
	b.buf = append(b.buf, cell[:]...)
}

// AddFloat appends a FLOAT cell.
func (b *RowBuilder) AddFloat(v float64) {
	cell := [cellWidth]byte{0: byte(TagFloat)}
	binary.LittleEndian.PutUint64(cell[1:], math.Float64bits(v))
	b.buf = append(b.buf, cell[:]...)
}

// AddTime appends a DATE or TIME cell (both are opaque 8-byte epoch
// values at this layer; which tag applies is a model/schema concern).
func (b *RowBuilder) AddTime(tag Tag, v int64) {
	cell := [cellWidth]byte{0: byte(tag)}
	binary.LittleEndian.PutUint64(cell[1:], uint64(v))
	b.buf = append(b.buf, cell[:]...)
}

// AddBool appends a BOOL cell (1-byte payload, not the usual 8).
func (b *RowBuilder) AddBool(v bool) {
	var payload byte
	if v {
		payload = 1
	}
	b.buf = append(b.buf, byte(TagBool), payload)
}

// AddText appends a TEXT cell: tag, NUL-terminated bytes.
func (b *RowBuilder) AddText(s string) {
	b.buf = append(b.buf, byte(TagText))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

// Close terminates the row with EOR and returns its bytes. The builder
// is left ready to start a new row.
func (b *RowBuilder) Close() []byte {
	b.buf = append(b.buf, EOR)
	out := b.buf
	b.buf = nil
	return out
}

// Tag is the row-buffer's per-cell type tag (spec §6), distinct from
// model.TypeTag only in width (one byte here, not four).
type Tag byte

const (
	TagText  Tag = 0x01
	TagDate  Tag = 0x02
	TagTime  Tag = 0x03
	TagFloat Tag = 0x04
	TagInt   Tag = 0x05
	TagUint  Tag = 0x06
	TagBool  Tag = 0x09
)

// findEndOfStr returns the index just past a NUL-terminated string cell
// starting at idx (which already points past the TEXT tag byte), or -1
// if no NUL terminator appears before sz.
func findEndOfStr(buf []byte, sz, idx int) int {
	for i := idx; i < sz; i++ {
		if buf[i] == 0 {
			return i + 1
		}
	}
	return -1
}

// findEOR returns the index just past the first EOR at or after idx, or
// -1 if the row starting at idx isn't terminated within buf.
func findEOR(buf []byte, sz, idx int) int {
	i := idx
	for i < sz {
		switch Tag(buf[i]) {
		case TagText:
			i++
			i = findEndOfStr(buf, sz, i)
			if i < 0 {
				return -1
			}
		case TagBool:
			i += 2
		default:
			if buf[i] == EOR {
				return i + 1
			}
			i += cellWidth
		}
	}
	return -1
}

// findLastRow returns the length of the longest prefix of buf[:sz] that
// holds only whole rows — the boundary a buffer-filling Fetch must cut
// at so no row is split across two fetch calls.
func findLastRow(buf []byte, sz int) int {
	if sz == 0 {
		return 0
	}
	last := 0
	i := 0
	for i < sz {
		end := findEOR(buf, sz, i)
		if end < 0 {
			break
		}
		last = end
		i = end
	}
	return last
}
