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

package model

import "encoding/binary"

// Byte offsets of the 8-byte fields within an Edge record, usable both
// to build composite index keys and to drive the default comparators.
const (
	OffEdgeEdge      = 0
	OffEdgeOrigin    = 8
	OffEdgeDestin    = 16
	OffEdgeLabel     = 24
	OffEdgeTimestamp = 32
	OffEdgeWeight    = 40
	OffEdgeWeight2   = 48
)

// Byte offsets of the 8-byte fields within a VertexProp record.
const (
	OffVertexVertex   = 0
	OffVertexProperty = 8
	OffVertexValue    = 16
)

// Comparator orders two raw, fixed-width records of the same recsize.
// It is the capability object spec §9 calls for in place of a
// function-pointer-plus-resource comparator: any state the comparator
// needs (e.g. a key-offset list) is a field of the implementing type.
type Comparator interface {
	Compare(a, b []byte) int
	RecSize() RecSize
}

// u64At reads the little-endian uint64 stored at offset off.
// Records are stored little-endian on disk; comparison reads raw bytes
// via binary.LittleEndian to recover the logical integer and compares
// numerically, not byte-lexically.
func u64At(rec []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(rec[off : off+8])
}

func i64At(rec []byte, off int) int64 {
	return int64(u64At(rec, off))
}

func cmpU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpI64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// edgeCompare orders edges by (origin, destin, timestamp, edge, label);
// the null record (IsNull) always compares greater than any real
// record, so padded page remainders sort to the tail (spec §4.4, §4.6).
type edgeCompare struct {
	desc bool
}

// EdgeAsc is the ascending edge comparator: (origin, destin, timestamp, edge, label).
var EdgeAsc Comparator = edgeCompare{}

// EdgeDesc is the mirror descending edge comparator.
var EdgeDesc Comparator = edgeCompare{desc: true}

func (c edgeCompare) RecSize() RecSize { return EdgeSize }

func (c edgeCompare) Compare(a, b []byte) int {
	an, bn := IsNull(a), IsNull(b)
	if an || bn {
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		default:
			return -1
		}
	}
	r := cmpU64(u64At(a, OffEdgeOrigin), u64At(b, OffEdgeOrigin))
	if r == 0 {
		r = cmpU64(u64At(a, OffEdgeDestin), u64At(b, OffEdgeDestin))
	}
	if r == 0 {
		r = cmpI64(i64At(a, OffEdgeTimestamp), i64At(b, OffEdgeTimestamp))
	}
	if r == 0 {
		r = cmpU64(u64At(a, OffEdgeEdge), u64At(b, OffEdgeEdge))
	}
	if r == 0 {
		r = cmpU64(u64At(a, OffEdgeLabel), u64At(b, OffEdgeLabel))
	}
	if c.desc {
		return -r
	}
	return r
}

// vertexCompare orders vertex-property rows by (vertex, property, timestamp).
// VertexProp has no timestamp field in the fixed layout (see spec §3);
// the third tie-break instead falls back to Value, which is the closest
// stable field available and keeps Compare deterministic and stable.
type vertexCompare struct {
	desc bool
}

// VertexAsc is the ascending vertex comparator: (vertex, property, value).
var VertexAsc Comparator = vertexCompare{}

// VertexDesc is the mirror descending vertex comparator.
var VertexDesc Comparator = vertexCompare{desc: true}

func (c vertexCompare) RecSize() RecSize { return VertexSize }

func (c vertexCompare) Compare(a, b []byte) int {
	an, bn := IsNull(a), IsNull(b)
	if an || bn {
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		default:
			return -1
		}
	}
	r := cmpU64(u64At(a, OffVertexVertex), u64At(b, OffVertexVertex))
	if r == 0 {
		r = cmpU64(u64At(a, OffVertexProperty), u64At(b, OffVertexProperty))
	}
	if r == 0 {
		r = cmpU64(u64At(a, OffVertexValue), u64At(b, OffVertexValue))
	}
	if c.desc {
		return -r
	}
	return r
}

// Key extracts the composite key for rec (a raw record) as the
// concatenation of its 8-byte fields at offsets, per spec §3's
// "composite key" definition.
func Key(rec []byte, offsets []int) []byte {
	key := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		copy(key[i*8:i*8+8], rec[off:off+8])
	}
	return key
}
