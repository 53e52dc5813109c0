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
	"testing"

	"github.com/nowdb/nowdb/model"
	"github.com/stretchr/testify/require"
)

func TestVRowCompletesOnceEveryPropertyArrives(t *testing.T) {
	v := NewVRow([]uint64{10, 11})

	added := v.Add(model.VertexProp{Vertex: 1, Property: 10, Value: 100})
	require.True(t, added)
	_, _, ok := v.Complete()
	require.False(t, ok)

	added = v.Add(model.VertexProp{Vertex: 1, Property: 11, Value: 200})
	require.True(t, added)

	vid, row, ok := v.Complete()
	require.True(t, ok)
	require.Equal(t, uint64(1), vid)
	require.Equal(t, uint64(100), row[10].Value)
	require.Equal(t, uint64(200), row[11].Value)
}

func TestVRowAddRejectsIrrelevantProperty(t *testing.T) {
	v := NewVRow([]uint64{10})
	added := v.Add(model.VertexProp{Vertex: 1, Property: 99, Value: 1})
	require.False(t, added)
	_, _, ok := v.Complete()
	require.False(t, ok)
}

func TestVRowForceFlushesPartialVertices(t *testing.T) {
	v := NewVRow([]uint64{10, 11})
	v.Add(model.VertexProp{Vertex: 1, Property: 10, Value: 5})

	v.Force()
	vid, row, ok := v.Complete()
	require.True(t, ok)
	require.Equal(t, uint64(1), vid)
	require.Len(t, row, 1)
}

func TestVRowForceIsNoOpWhenNothingPending(t *testing.T) {
	v := NewVRow([]uint64{10})
	v.Force() // must not panic or fabricate a row
	_, _, ok := v.Complete()
	require.False(t, ok)
}

func TestVRowHandlesMultipleVerticesIndependently(t *testing.T) {
	v := NewVRow([]uint64{10})
	v.Add(model.VertexProp{Vertex: 1, Property: 10, Value: 1})
	v.Add(model.VertexProp{Vertex: 2, Property: 10, Value: 2})

	seen := map[uint64]uint64{}
	for {
		vid, row, ok := v.Complete()
		if !ok {
			break
		}
		seen[vid] = row[10].Value
	}
	require.Equal(t, map[uint64]uint64{1: 1, 2: 2}, seen)
}
