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
	"strconv"

	"github.com/nowdb/nowdb/sql"
	"github.com/nowdb/nowdb/xerror"
)

// Filter evaluates a residual predicate tree (sql.NAnd/NOr/NCompare over
// NColumn/NConst, per plan.FilterPlan) against one raw fixed-width
// record, short-circuiting AND/OR the way a boolean expression tree
// does (spec §4.10).
type Filter struct {
	root *sql.Node
	cols map[string]int
}

// NewFilter builds a filter over root, resolving column names against
// cols (plan's columnOffsets table for the query's record kind).
func NewFilter(root *sql.Node, cols map[string]int) *Filter {
	return &Filter{root: root, cols: cols}
}

// Eval reports whether rec satisfies f's predicate tree.
func (f *Filter) Eval(rec []byte) (bool, *xerror.Error) {
	if f == nil || f.root == nil {
		return true, nil
	}
	return evalNode(f.root, rec, f.cols)
}

func evalNode(n *sql.Node, rec []byte, cols map[string]int) (bool, *xerror.Error) {
	switch n.NType {
	case sql.NAnd:
		l, err := evalNode(n.Kids[0], rec, cols)
		if err != nil || !l {
			return false, err
		}
		return evalNode(n.Kids[1], rec, cols)
	case sql.NOr:
		l, err := evalNode(n.Kids[0], rec, cols)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalNode(n.Kids[1], rec, cols)
	case sql.NCompare:
		return evalCompare(n, rec, cols)
	default:
		return false, xerror.Get(xerror.Invalid, 0, "query.Filter", "unexpected node in predicate tree")
	}
}

func evalCompare(n *sql.Node, rec []byte, cols map[string]int) (bool, *xerror.Error) {
	colNode, litNode := n.Kids[0], n.Kids[1]
	off, ok := cols[colNode.Value]
	if !ok {
		return false, xerror.Get(xerror.Invalid, 0, "query.Filter", "unknown column: "+colNode.Value)
	}
	if off+8 > len(rec) {
		return false, xerror.Get(xerror.Invalid, 0, "query.Filter", "column offset out of record bounds")
	}
	left := int64(binary.LittleEndian.Uint64(rec[off : off+8]))

	var right int64
	if litNode.VType == sql.VInt {
		v, perr := strconv.ParseInt(litNode.Value, 10, 64)
		if perr != nil {
			return false, xerror.Get(xerror.Invalid, 0, "query.Filter", "non-integer literal: "+litNode.Value)
		}
		right = v
	}

	switch n.SType {
	case sql.SEq:
		return left == right, nil
	case sql.SNe:
		return left != right, nil
	case sql.SLt:
		return left < right, nil
	case sql.SLe:
		return left <= right, nil
	case sql.SGt:
		return left > right, nil
	case sql.SGe:
		return left >= right, nil
	default:
		return false, xerror.Get(xerror.Invalid, 0, "query.Filter", "unknown comparator")
	}
}
