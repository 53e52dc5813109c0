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

import "github.com/nowdb/nowdb/model"

// VRow buffers the scattered VertexProp records belonging to one
// vertex type until every property the query needs has arrived, then
// hands the assembled set back as one logical row (spec §4.8's reader
// hierarchy yields vertex properties one at a time; VRow is what turns
// that stream back into rows a filter or projector can evaluate as a
// whole, grounded on the original vrow's add/complete/force contract).
type VRow struct {
	want    map[uint64]bool // property ids this vrow is assembling
	partial map[uint64]map[uint64]model.VertexProp
	order   []uint64 // vertex ids in first-seen order, so Force drains deterministically
	ready   []uint64
}

// NewVRow creates a vrow assembling exactly the named property ids.
func NewVRow(propertyIDs []uint64) *VRow {
	want := make(map[uint64]bool, len(propertyIDs))
	for _, id := range propertyIDs {
		want[id] = true
	}
	return &VRow{
		want:    want,
		partial: make(map[uint64]map[uint64]model.VertexProp),
	}
}

// Add offers one vertex-property record to the vrow. It reports added
// = false when the property isn't one this vrow cares about (the
// record is simply irrelevant, not an error). Once every wanted
// property for a vertex has arrived, that vertex moves to the ready
// queue for Complete to drain.
func (v *VRow) Add(p model.VertexProp) (added bool) {
	if !v.want[p.Property] {
		return false
	}
	row, ok := v.partial[p.Vertex]
	if !ok {
		row = make(map[uint64]model.VertexProp, len(v.want))
		v.partial[p.Vertex] = row
		v.order = append(v.order, p.Vertex)
	}
	row[p.Property] = p
	if len(row) == len(v.want) {
		v.ready = append(v.ready, p.Vertex)
	}
	return true
}

// Complete pops one assembled vertex row off the ready queue, or
// reports ok = false if none is ready yet.
func (v *VRow) Complete() (vertex uint64, row map[uint64]model.VertexProp, ok bool) {
	for len(v.ready) > 0 {
		id := v.ready[0]
		v.ready = v.ready[1:]
		row, exists := v.partial[id]
		if !exists {
			continue // already drained by an earlier Complete/Force
		}
		delete(v.partial, id)
		return id, row, true
	}
	return 0, nil, false
}

// Force flushes every still-partial (possibly incomplete) vertex onto
// the ready queue — the reader has reached end of input and whatever
// didn't complete naturally must still be accounted for. It is a no-op
// when nothing is pending, so callers can call it unconditionally at
// end of stream without special-casing the empty case.
func (v *VRow) Force() {
	if len(v.partial) == 0 {
		return
	}
	for _, id := range v.order {
		if _, ok := v.partial[id]; ok {
			v.ready = append(v.ready, id)
		}
	}
	v.order = nil
}
