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

import "github.com/google/uuid"

// Role identifies the kind of vertex a VertexProp row's Role field
// names, and doubles as the type identifier for model properties.
type Role uint32

const (
	RoleVertex Role = iota
	RoleEdgeType
)

// Property describes one column of a vertex or edge type: its id, its
// human name, and the TypeTag its value slot carries.
type Property struct {
	ID   uint64
	Name string
	Type TypeTag
}

// EdgeType names one edge label: its id, its human name and the label
// value edges of this type carry.
type EdgeType struct {
	ID    uint64
	Name  string
	Label uint64
}

// VertexType names one role's schema: the ordered property set a
// complete vertex row of this role must carry before query.VRow emits
// it.
type VertexType struct {
	ID         uint64
	Name       string
	Role       Role
	Properties []Property
}

// IndexDescriptor names one registered composite-key index: its owning
// context, the ordered record offsets forming its key shape, and a
// handle opaque to this package (the index manager owns the live
// *index.Index; model only remembers the shape and name so catalogs can
// be durable without an import cycle).
type IndexDescriptor struct {
	Name    string
	Offsets []int
	Desc    bool
}

// Context is the owning scope for one store: its model (vertex/edge
// types), its registered indices, and the catalog entry identifying it
// within the containing database (spec's "scope/context" supplement,
// see SPEC_FULL.md).
type Context struct {
	ID          uuid.UUID
	Name        string
	RecSize     RecSize
	VertexTypes map[string]*VertexType
	EdgeTypes   map[string]*EdgeType
	Indices     map[string]*IndexDescriptor
}

// NewContext creates an empty context named name for records of recsize.
func NewContext(name string, recsize RecSize) *Context {
	return &Context{
		ID:          uuid.New(),
		Name:        name,
		RecSize:     recsize,
		VertexTypes: make(map[string]*VertexType),
		EdgeTypes:   make(map[string]*EdgeType),
		Indices:     make(map[string]*IndexDescriptor),
	}
}

// AddIndex registers idx under its name, for later lookup by the
// planner when it selects a reader type against WHERE conjuncts.
func (c *Context) AddIndex(idx *IndexDescriptor) {
	c.Indices[idx.Name] = idx
}

// BestIndex returns the registered index whose key-offset shape shares
// the longest constant-equality prefix with offsets, or nil if none
// matches at all. This is the index-selection helper the planner (spec
// §4.9) drives.
func (c *Context) BestIndex(offsets []int) *BestIndexResult {
	var best *IndexDescriptor
	bestLen := 0
	for _, idx := range c.Indices {
		n := commonPrefixLen(idx.Offsets, offsets)
		if n > bestLen {
			best = idx
			bestLen = n
		}
	}
	if best == nil {
		return nil
	}
	return &BestIndexResult{Index: best, PrefixLen: bestLen}
}

// BestIndexResult avoids exporting an awkward two-value return
// while keeping BestIndex's result self-describing.
type BestIndexResult struct {
	Index     *IndexDescriptor
	PrefixLen int
}

func commonPrefixLen(a, b []int) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
