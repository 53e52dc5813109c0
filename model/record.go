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

// Package model implements NoWDB's record layouts (edge, vertex
// property), composite-key comparators, and the owning scope/catalog
// types (spec §3, plus the context/catalog supplements noted in
// SPEC_FULL.md).
package model

import "encoding/binary"

// Page size in bytes; every logical reader/writer page is exactly this
// size, zero-padded beyond the last whole record (spec §3 Page).
const PageSize = 8192

// RecSize identifies one of the two fixed record widths NoWDB supports.
type RecSize int

const (
	// EdgeSize is the byte width of an Edge record.
	EdgeSize RecSize = 64
	// VertexSize is the byte width of a VertexProp record.
	VertexSize RecSize = 32
)

// RecordsPerPage returns floor(PageSize/recsize), the number of whole
// records a page holds before its zero-padded remainder.
func RecordsPerPage(recsize RecSize) int {
	return PageSize / int(recsize)
}

// RemainderBytes returns the zero-padded tail of a page after its whole
// records.
func RemainderBytes(recsize RecSize) int {
	return PageSize - RecordsPerPage(recsize)*int(recsize)
}

// Type tags for the polymorphic 8-byte value slots (edge weight,
// vertex property value) and for the row-buffer wire format (§6).
type TypeTag uint32

const (
	TypeNone  TypeTag = 0
	TypeText  TypeTag = 0x01
	TypeDate  TypeTag = 0x02
	TypeTime  TypeTag = 0x03
	TypeFloat TypeTag = 0x04
	TypeInt   TypeTag = 0x05
	TypeUint  TypeTag = 0x06
	TypeBool  TypeTag = 0x09
)

// Edge is the 64-byte fact record: a directed, timestamped edge from
// origin to destin under label, carrying up to two polymorphic weights.
type Edge struct {
	Edge      uint64
	Origin    uint64
	Destin    uint64
	Label     uint64
	Timestamp int64
	Weight    uint64
	Weight2   uint64
	WType     TypeTag
	WType2    TypeTag
}

// Encode writes e into a fresh 64-byte record.
func (e Edge) Encode() []byte {
	b := make([]byte, EdgeSize)
	binary.LittleEndian.PutUint64(b[0:8], e.Edge)
	binary.LittleEndian.PutUint64(b[8:16], e.Origin)
	binary.LittleEndian.PutUint64(b[16:24], e.Destin)
	binary.LittleEndian.PutUint64(b[24:32], e.Label)
	binary.LittleEndian.PutUint64(b[32:40], uint64(e.Timestamp))
	binary.LittleEndian.PutUint64(b[40:48], e.Weight)
	binary.LittleEndian.PutUint64(b[48:56], e.Weight2)
	binary.LittleEndian.PutUint32(b[56:60], uint32(e.WType))
	binary.LittleEndian.PutUint32(b[60:64], uint32(e.WType2))
	return b
}

// DecodeEdge reads a 64-byte record into an Edge.
func DecodeEdge(b []byte) Edge {
	_ = b[63]
	return Edge{
		Edge:      binary.LittleEndian.Uint64(b[0:8]),
		Origin:    binary.LittleEndian.Uint64(b[8:16]),
		Destin:    binary.LittleEndian.Uint64(b[16:24]),
		Label:     binary.LittleEndian.Uint64(b[24:32]),
		Timestamp: int64(binary.LittleEndian.Uint64(b[32:40])),
		Weight:    binary.LittleEndian.Uint64(b[40:48]),
		Weight2:   binary.LittleEndian.Uint64(b[48:56]),
		WType:     TypeTag(binary.LittleEndian.Uint32(b[56:60])),
		WType2:    TypeTag(binary.LittleEndian.Uint32(b[60:64])),
	}
}

// VertexProp is the 32-byte vertex-property record materialized at
// read time into logical vertex rows by query.VRow.
type VertexProp struct {
	Vertex   uint64
	Property uint64
	Value    uint64
	VType    TypeTag
	Role     uint32
}

// Encode writes v into a fresh 32-byte record.
func (v VertexProp) Encode() []byte {
	b := make([]byte, VertexSize)
	binary.LittleEndian.PutUint64(b[0:8], v.Vertex)
	binary.LittleEndian.PutUint64(b[8:16], v.Property)
	binary.LittleEndian.PutUint64(b[16:24], v.Value)
	binary.LittleEndian.PutUint32(b[24:28], uint32(v.VType))
	binary.LittleEndian.PutUint32(b[28:32], v.Role)
	return b
}

// DecodeVertexProp reads a 32-byte record into a VertexProp.
func DecodeVertexProp(b []byte) VertexProp {
	_ = b[31]
	return VertexProp{
		Vertex:   binary.LittleEndian.Uint64(b[0:8]),
		Property: binary.LittleEndian.Uint64(b[8:16]),
		Value:    binary.LittleEndian.Uint64(b[16:24]),
		VType:    TypeTag(binary.LittleEndian.Uint32(b[24:28])),
		Role:     binary.LittleEndian.Uint32(b[28:32]),
	}
}

// IsNull reports whether rec (a raw, recsize-wide record slice) is the
// all-zero null record marking an unused page slot (spec §3).
func IsNull(rec []byte) bool {
	for _, c := range rec {
		if c != 0 {
			return false
		}
	}
	return true
}
