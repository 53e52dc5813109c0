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
	"testing"

	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/sql"
	"github.com/stretchr/testify/require"
)

func key(vs ...int64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[i*8:i*8+8], uint64(v))
	}
	return b
}

func TestBuildEqualityOnAllUsesSearch(t *testing.T) {
	ctx := model.NewContext("sales", model.EdgeSize)
	ctx.AddIndex(&model.IndexDescriptor{Name: "by_origin_destin", Offsets: []int{model.OffEdgeOrigin, model.OffEdgeDestin}})

	ast, perr := sql.Parse([]byte("select count(*) from sales where origin = 1 and destin = 2"))
	require.Nil(t, perr)

	nodes, err := Build(ast, ctx, model.EdgeAsc)
	require.Nil(t, err)
	require.Len(t, nodes, 4)

	reader := nodes[0]
	require.Equal(t, NReader, reader.NType)
	require.Equal(t, RSearch, reader.SType)
	require.Equal(t, "sales", reader.Name)
	rp := reader.Load.(ReaderPlan)
	require.Equal(t, key(1, 2), rp.Prefix)

	group := nodes[1]
	require.Equal(t, NGroup, group.NType)
	gp := group.Load.(GroupPlan)
	require.Equal(t, []AggregateSpec{{Func: sql.SCount, Column: "*"}}, gp.Aggregates)

	proj := nodes[2]
	require.Equal(t, NProject, proj.NType)
	pp := proj.Load.(ProjectPlan)
	require.True(t, pp.Aggregates)
	require.Equal(t, []string{"*"}, pp.Columns)

	require.Equal(t, NSummary, nodes[3].NType)
}

func TestBuildFallsBackToFullscanWithoutIndex(t *testing.T) {
	ctx := model.NewContext("sales", model.EdgeSize)

	ast, perr := sql.Parse([]byte("select origin from sales where origin = 1 and destin = 2"))
	require.Nil(t, perr)

	nodes, err := Build(ast, ctx, model.EdgeAsc)
	require.Nil(t, err)

	reader := nodes[0]
	require.Equal(t, RFullscan, reader.SType)

	require.Equal(t, NFilter, nodes[1].NType)
	fp := nodes[1].Load.(FilterPlan)
	require.Equal(t, sql.NAnd, fp.Root.NType)
}

func TestBuildLeadingEqualityWithOrderingUsesFRange(t *testing.T) {
	ctx := model.NewContext("sales", model.EdgeSize)
	ctx.AddIndex(&model.IndexDescriptor{Name: "by_origin_destin", Offsets: []int{model.OffEdgeOrigin, model.OffEdgeDestin}})

	ast, perr := sql.Parse([]byte("select origin, destin from sales where origin = 7 order by destin desc"))
	require.Nil(t, perr)

	nodes, err := Build(ast, ctx, model.EdgeAsc)
	require.Nil(t, err)

	reader := nodes[0]
	require.Equal(t, RFRange, reader.SType)
	rp := reader.Load.(ReaderPlan)
	require.Equal(t, key(7), rp.Lo)
	require.Equal(t, key(7), rp.Hi)
	require.Equal(t, -1, rp.Dir)

	var sawOrder, sawFilter bool
	for _, n := range nodes {
		if n.NType == NOrder {
			sawOrder = true
			op := n.Load.(OrderPlan)
			require.Equal(t, "destin", op.Column)
			require.True(t, op.Desc)
		}
		if n.NType == NFilter {
			sawFilter = true
		}
	}
	require.True(t, sawOrder)
	require.False(t, sawFilter)
}
