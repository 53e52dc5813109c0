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

package plan

import (
	"encoding/binary"
	"strconv"

	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/sql"
	"github.com/nowdb/nowdb/xerror"
)

// eqConjunct is one WHERE equality conjunct resolved to a column
// offset and its literal's encoded 8-byte key segment.
type eqConjunct struct {
	offset int
	key    [8]byte
	node   *sql.Node // the originating NCompare, for residual-filter bookkeeping
}

// Build walks ast (a sql.NQuery root) and emits the ordered plan node
// list for table (the store backing the query), using ctx to resolve
// indices and cmp to pick the column-name table (edge vs vertex).
func Build(ast *sql.Node, ctx *model.Context, cmp model.Comparator) ([]*Node, *xerror.Error) {
	if ast.NType != sql.NQuery || len(ast.Kids) < 2 {
		return nil, xerror.Get(xerror.Invalid, 0, "plan.Build", "expected a query AST root")
	}
	projNode := ast.Kids[0]
	fromNode := ast.Kids[1]

	var whereRoot *sql.Node
	var orderNode *sql.Node
	for _, k := range ast.Kids[2:] {
		switch k.NType {
		case sql.NWhere:
			whereRoot = k.Kids[0]
		case sql.NIdent:
			orderNode = k
		}
	}

	cols := columnOffsets(cmp.RecSize())

	conjuncts, residualRoot, err := splitConjuncts(whereRoot, cols)
	if err != nil {
		return nil, err
	}

	readerNode, consumed := chooseReader(conjuncts, ctx, orderNode, cols)

	var nodes []*Node
	readerNode.Name = fromNode.Value
	nodes = append(nodes, readerNode)

	if filterRoot := residualFilter(residualRoot, conjuncts, consumed); filterRoot != nil {
		nodes = append(nodes, &Node{NType: NFilter, Load: FilterPlan{Root: filterRoot}})
	}

	aggregates, plainCols := splitProjection(projNode)
	if len(aggregates) > 0 {
		nodes = append(nodes, &Node{NType: NGroup, Load: GroupPlan{Aggregates: aggregates}})
	}

	if orderNode != nil {
		nodes = append(nodes, &Node{
			NType: NOrder,
			Load:  OrderPlan{Column: orderNode.Value, Desc: orderNode.SType == sql.SGt},
		})
	}

	if len(aggregates) > 0 {
		names := make([]string, len(aggregates))
		for i, a := range aggregates {
			names[i] = a.Column
		}
		nodes = append(nodes, &Node{NType: NProject, Load: ProjectPlan{Columns: names, Aggregates: true}})
	} else {
		nodes = append(nodes, &Node{NType: NProject, Load: ProjectPlan{Columns: plainCols}})
	}

	nodes = append(nodes, &Node{NType: NSummary})
	return nodes, nil
}

// splitConjuncts flattens an AND-chain of NCompare nodes into
// eqConjuncts resolvable against cols, plus whatever root remains when
// the WHERE clause isn't a pure AND-of-equalities (e.g. it contains an
// OR, or a non-equality comparator): that root becomes the residual
// filter's starting point instead of per-conjunct reconstruction.
func splitConjuncts(root *sql.Node, cols map[string]int) ([]eqConjunct, *sql.Node, *xerror.Error) {
	if root == nil {
		return nil, nil, nil
	}
	if root.NType == sql.NOr {
		return nil, root, nil
	}

	var flat []*sql.Node
	flattenAnd(root, &flat)

	var eqs []eqConjunct
	for _, n := range flat {
		if n.NType != sql.NCompare || n.SType != sql.SEq {
			continue
		}
		col := n.Kids[0]
		lit := n.Kids[1]
		off, ok := cols[col.Value]
		if !ok || lit.VType != sql.VInt {
			continue
		}
		v, perr := strconv.ParseInt(lit.Value, 10, 64)
		if perr != nil {
			return nil, nil, xerror.Get(xerror.Invalid, 0, "plan.Build", "non-integer literal: "+lit.Value)
		}
		var key [8]byte
		binary.LittleEndian.PutUint64(key[:], uint64(v))
		eqs = append(eqs, eqConjunct{offset: off, key: key, node: n})
	}
	return eqs, root, nil
}

func flattenAnd(n *sql.Node, out *[]*sql.Node) {
	if n.NType == sql.NAnd {
		flattenAnd(n.Kids[0], out)
		flattenAnd(n.Kids[1], out)
		return
	}
	*out = append(*out, n)
}

// chooseReader selects a reader plan from the available equality
// conjuncts and ctx's registered indices (spec §4.9's planner rule):
// the longest constant-equality prefix against an index's key shape
// wins; equality on the whole key (and on nothing else) becomes search,
// any other prefix match becomes frange over that prefix (descending
// when ORDER BY ... DESC names the index's next key column), and no
// match falls back to fullscan. It returns the chosen node and the
// subset of conjuncts the reader's key already accounts for (so the
// caller can drop them from the residual filter).
func chooseReader(eqs []eqConjunct, ctx *model.Context, orderNode *sql.Node, cols map[string]int) (*Node, map[*sql.Node]bool) {
	consumed := make(map[*sql.Node]bool)
	if len(eqs) == 0 || ctx == nil {
		return &Node{NType: NReader, SType: RFullscan, Load: ReaderPlan{Kind: RFullscan}}, consumed
	}

	offsets := make([]int, len(eqs))
	for i, e := range eqs {
		offsets[i] = e.offset
	}

	best := ctx.BestIndex(offsets)
	if best == nil || best.PrefixLen == 0 {
		return &Node{NType: NReader, SType: RFullscan, Load: ReaderPlan{Kind: RFullscan}}, consumed
	}

	prefixKey := make([]byte, 8*best.PrefixLen)
	for i := 0; i < best.PrefixLen; i++ {
		copy(prefixKey[i*8:i*8+8], eqs[i].key[:])
		consumed[eqs[i].node] = true
	}

	if best.PrefixLen == len(best.Index.Offsets) && best.PrefixLen == len(eqs) {
		return &Node{
			NType: NReader, SType: RSearch, Helper: best.Index.Name,
			Load: ReaderPlan{Kind: RSearch, IndexName: best.Index.Name, Prefix: prefixKey},
		}, consumed
	}

	dir := 1
	orderMatches := orderNode != nil && best.PrefixLen < len(best.Index.Offsets) &&
		cols[orderNode.Value] == best.Index.Offsets[best.PrefixLen]
	if orderMatches && orderNode.SType == sql.SGt {
		dir = -1
	}
	if best.PrefixLen >= 1 {
		return &Node{
			NType: NReader, SType: RFRange, Helper: best.Index.Name,
			Load: ReaderPlan{Kind: RFRange, IndexName: best.Index.Name, Lo: prefixKey, Hi: prefixKey, Dir: dir},
		}, consumed
	}

	return &Node{NType: NReader, SType: RFullscan, Load: ReaderPlan{Kind: RFullscan}}, consumed
}

// residualFilter rebuilds an AND-tree over every conjunct the chosen
// reader didn't already account for, or returns root unchanged if the
// WHERE clause wasn't a pure AND-of-equalities to begin with (the OR
// case from splitConjuncts). Returns nil when nothing is left to check.
func residualFilter(root *sql.Node, eqs []eqConjunct, consumed map[*sql.Node]bool) *sql.Node {
	if root == nil {
		return nil
	}
	if root.NType == sql.NOr {
		return root
	}

	var remaining []*sql.Node
	var flat []*sql.Node
	flattenAnd(root, &flat)
	for _, n := range flat {
		if n.NType == sql.NCompare && n.SType == sql.SEq && consumed[n] {
			continue
		}
		remaining = append(remaining, n)
	}
	if len(remaining) == 0 {
		return nil
	}
	tree := remaining[0]
	for _, n := range remaining[1:] {
		tree = &sql.Node{NType: sql.NAnd, Kids: []*sql.Node{tree, n}}
	}
	return tree
}

// splitProjection separates SELECT items into aggregate specs and
// plain column names.
func splitProjection(proj *sql.Node) ([]AggregateSpec, []string) {
	var aggs []AggregateSpec
	var plain []string
	for _, item := range proj.Kids {
		switch item.NType {
		case sql.NAggregate:
			arg := item.Kids[0]
			col := "*"
			if arg.NType == sql.NColumn {
				col = arg.Value
			}
			aggs = append(aggs, AggregateSpec{Func: item.SType, Column: col})
		case sql.NColumn:
			plain = append(plain, item.Value)
		}
	}
	return aggs, plain
}
