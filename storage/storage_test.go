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

package storage

import (
	"testing"
	"time"

	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xtime"
	"github.com/stretchr/testify/require"
)

func TestSortWorkerPromotesWaitingToReader(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig(WithSortPeriod(5*time.Millisecond), WithSyncPeriod(time.Hour), WithCompression(false))
	s := New(dir, cfg)
	defer s.Stop(time.Second)

	perPage := model.RecordsPerPage(model.EdgeSize)
	st, err := store.Open(dir, model.EdgeSize, int64(model.PageSize))
	require.Nil(t, err)

	idx := index.New("by_origin")
	s.Register("edges", st, model.EdgeAsc, idx, []int{model.OffEdgeOrigin})

	for i := 0; i < perPage+1; i++ {
		e := model.Edge{Origin: uint64(perPage - i), Destin: 1}
		require.Nil(t, st.Insert(e.Encode(), xtime.Now()))
	}

	waiting := st.GetAllWaiting()
	require.Len(t, waiting, 1)
	require.Nil(t, s.EnqueueSort("edges", waiting[0].ID))

	require.Eventually(t, func() bool {
		return len(st.GetReaders()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Empty(t, st.GetAllWaiting())
	require.Equal(t, perPage, idx.Len())
}

func TestSpillRoundTripPreservesBytes(t *testing.T) {
	buf := make([]byte, model.PageSize*4)
	for i := range buf {
		buf[i] = byte(i)
	}
	got, err := spillRoundTrip(buf)
	require.Nil(t, err)
	require.Equal(t, buf, got)
}
