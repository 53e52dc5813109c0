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

package reader

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
	"github.com/stretchr/testify/require"
)

// buildReaderFile creates a reader-role file filled with n full pages
// of sequential-origin edges, returning it alongside an index populated
// with (origin) -> (page, bitmap) entries.
func buildReaderFile(t *testing.T, dir string, id uint64, pages int, startOrigin uint64) (*store.File, *index.Index) {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("f%d.nwr", id))
	f, err := store.CreateWriter(path, id, model.EdgeSize, int64(pages*model.PageSize))
	require.Nil(t, err)
	f.SetRole(store.RoleReader)

	idx := index.New("by_origin")
	perPage := model.RecordsPerPage(model.EdgeSize)
	origin := startOrigin
	for p := 0; p < pages; p++ {
		page := make([]byte, model.PageSize)
		for slot := 0; slot < perPage; slot++ {
			e := model.Edge{Origin: origin, Destin: 1}
			copy(page[slot*int(model.EdgeSize):(slot+1)*int(model.EdgeSize)], e.Encode())
			key := make([]byte, 8)
			for i := 0; i < 8; i++ {
				key[i] = byte(origin >> (8 * i))
			}
			idx.Insert(key, store.PackPageID(id, p), slot)
			origin++
		}
		require.Nil(t, f.AppendPage(page))
	}
	return f, idx
}

func TestFullScanYieldsAllPagesInOrder(t *testing.T) {
	dir := t.TempDir()
	f1, _ := buildReaderFile(t, dir, 1, 2, 0)
	f2, _ := buildReaderFile(t, dir, 2, 3, 1000)

	r := NewFullScan([]*store.File{f1, f2}, model.EdgeSize)
	count := 0
	for {
		err := r.Move()
		if err != nil {
			require.True(t, err.Code == xerror.EOF)
			break
		}
		count++
	}
	require.Equal(t, 5, count)

	// idempotent EOF
	require.NotNil(t, r.Move())
	require.NotNil(t, r.Move())
}

func TestSearchReturnsMaskedPage(t *testing.T) {
	dir := t.TempDir()
	f, idx := buildReaderFile(t, dir, 1, 1, 0)

	key := func(origin uint64) []byte {
		k := make([]byte, 8)
		for i := 0; i < 8; i++ {
			k[i] = byte(origin >> (8 * i))
		}
		return k
	}

	r := NewSearch(idx, key(5), []*store.File{f}, model.EdgeSize)
	require.Nil(t, r.Move())
	page := r.Page()

	perPage := model.RecordsPerPage(model.EdgeSize)
	nonNull := 0
	for slot := 0; slot < perPage; slot++ {
		rec := page[slot*int(model.EdgeSize) : (slot+1)*int(model.EdgeSize)]
		if !model.IsNull(rec) {
			nonNull++
			require.Equal(t, uint64(5), model.DecodeEdge(rec).Origin)
		}
	}
	require.Equal(t, 1, nonNull)
	require.NotNil(t, r.Move()) // only one hit
}

func TestBufIdxSortsPendingRecords(t *testing.T) {
	dir := t.TempDir()
	f, err := store.CreateWriter(filepath.Join(dir, "w.nwf"), 1, model.EdgeSize, int64(model.PageSize))
	require.Nil(t, err)
	f.SetRole(store.RoleReader)

	page := make([]byte, model.PageSize)
	perPage := model.RecordsPerPage(model.EdgeSize)
	origins := []uint64{9, 3, 7, 1}
	for i, o := range origins {
		if i >= perPage {
			break
		}
		e := model.Edge{Origin: o}
		copy(page[i*int(model.EdgeSize):(i+1)*int(model.EdgeSize)], e.Encode())
	}
	require.Nil(t, f.AppendPage(page))

	bi, berr := NewBufIdx([]*store.File{f}, model.EdgeSize, model.EdgeAsc)
	require.Nil(t, berr)
	require.Nil(t, bi.Move())

	out := bi.Page()
	var got []uint64
	for i := 0; i < len(origins); i++ {
		rec := out[i*int(model.EdgeSize) : (i+1)*int(model.EdgeSize)]
		got = append(got, model.DecodeEdge(rec).Origin)
	}
	require.Equal(t, []uint64{1, 3, 7, 9}, got)
}

func TestMergeDropsNullsAndOrders(t *testing.T) {
	dir := t.TempDir()
	f1, _ := buildReaderFile(t, dir, 1, 1, 0)
	f2, _ := buildReaderFile(t, dir, 2, 1, 2)

	perPage := model.RecordsPerPage(model.EdgeSize)
	left := NewFullScan([]*store.File{f1}, model.EdgeSize)
	right := NewFullScan([]*store.File{f2}, model.EdgeSize)

	m := NewMerge([]Reader{left, right}, model.EdgeSize, model.EdgeAsc)

	var origins []uint64
	for {
		err := m.Move()
		if err != nil {
			require.True(t, err.Code == xerror.EOF)
			break
		}
		page := m.Page()
		for slot := 0; slot < perPage; slot++ {
			rec := page[slot*int(model.EdgeSize) : (slot+1)*int(model.EdgeSize)]
			if model.IsNull(rec) {
				break
			}
			origins = append(origins, model.DecodeEdge(rec).Origin)
		}
	}
	for i := 1; i < len(origins); i++ {
		require.LessOrEqual(t, origins[i-1], origins[i])
	}
	require.Equal(t, 2*perPage, len(origins))
}
