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

// Package plan turns a sql.Node AST into the linear, ordered list of
// plan nodes query.Cursor executes (spec §4.9): readers first, then
// filter, then grouping/aggregates, then ordering, then projection,
// then a terminal summary node.
package plan

import "github.com/nowdb/nowdb/sql"

// NType is a plan node kind.
type NType int

const (
	NReader NType = iota
	NFilter
	NGroup
	NOrder
	NProject
	NSummary
)

// ReaderKind selects which reader package type a NReader node builds.
type ReaderKind int

const (
	RFullscan ReaderKind = iota
	RSearch
	RFRange
)

func (k ReaderKind) String() string {
	switch k {
	case RFullscan:
		return "fullscan"
	case RSearch:
		return "search"
	case RFRange:
		return "frange"
	default:
		return "?"
	}
}

// Node is one plan step: NType/SType/Helper/Name tag it, Load carries
// the kind-specific descriptor (spec's `{ntype, stype, helper, name,
// load}`).
type Node struct {
	NType  NType
	SType  ReaderKind // only meaningful when NType == NReader
	Helper string     // index name the reader drives, if any
	Name   string     // table/store name
	Load   interface{}
}

// ReaderPlan describes how to construct the root reader.
type ReaderPlan struct {
	Kind      ReaderKind
	IndexName string
	Prefix    []byte // RSearch: the full lookup key
	Lo, Hi    []byte // RFRange: range bounds (either may be nil)
	Dir       int    // RFRange: 1 ascending, -1 descending
}

// FilterPlan wraps the residual predicate tree not already satisfied
// by the chosen reader's key (spec §4.10: "a tree of boolean/compare
// nodes"). Reusing sql.Node directly is deliberate: the filter tree
// has exactly the same shape (NAnd/NOr/NCompare over NColumn/NConst)
// as the WHERE clause it's drawn from.
type FilterPlan struct {
	Root *sql.Node
}

// AggregateSpec names one aggregate function applied to a column (or
// "*" for count).
type AggregateSpec struct {
	Func   sql.SType
	Column string
}

// GroupPlan carries the ordered aggregate list a query.Group evaluates.
type GroupPlan struct {
	Aggregates []AggregateSpec
}

// OrderPlan names the ORDER BY column and direction.
type OrderPlan struct {
	Column string
	Desc   bool
}

// ProjectPlan lists the output columns in emission order. When
// Aggregates is true, Columns instead names the aggregate result
// slots (in GroupPlan.Aggregates order).
type ProjectPlan struct {
	Columns    []string
	Aggregates bool
}
