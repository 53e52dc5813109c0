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
	"path/filepath"
	"testing"

	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/plan"
	"github.com/nowdb/nowdb/reader"
	"github.com/nowdb/nowdb/sql"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
	"github.com/nowdb/nowdb/xtime"
	"github.com/stretchr/testify/require"
)

var edgeCols = map[string]int{
	"edge":      model.OffEdgeEdge,
	"origin":    model.OffEdgeOrigin,
	"destin":    model.OffEdgeDestin,
	"label":     model.OffEdgeLabel,
	"timestamp": model.OffEdgeTimestamp,
	"weight":    model.OffEdgeWeight,
	"weight2":   model.OffEdgeWeight2,
}

func newFullFile(t *testing.T, dir string, id uint64, records int) *store.File {
	t.Helper()
	perPage := model.RecordsPerPage(model.EdgeSize)
	pages := records / perPage
	require.Zero(t, records%perPage, "records must be a whole number of pages for this fixture")
	capacity := int64(pages) * model.PageSize

	f, err := store.CreateWriter(filepath.Join(dir, "f"+string(rune('0'+id))), id, model.EdgeSize, capacity)
	require.Nil(t, err)
	for i := 0; i < records; i++ {
		rec := model.Edge{Origin: uint64(i), Destin: uint64(i + 1)}.Encode()
		rotate, werr := f.WriteRecord(rec, xtime.Now())
		require.Nil(t, werr)
		require.False(t, rotate)
	}
	require.Nil(t, f.Rotate())
	return f
}

// TestCursorFullscanCountsEveryRecord reproduces the fullscan read-path
// scenario: 5 full files of 16384 records plus a sixth file of 8192
// records, fullscanned end to end, must yield exactly 5*16384+8192 =
// 90112 records.
func TestCursorFullscanCountsEveryRecord(t *testing.T) {
	dir := t.TempDir()
	var files []*store.File
	for i := 0; i < 5; i++ {
		files = append(files, newFullFile(t, dir, uint64(i), 16384))
	}
	files = append(files, newFullFile(t, dir, 5, 8192))

	root := reader.NewFullScan(files, model.EdgeSize)
	nodes := []*plan.Node{
		{NType: plan.NReader, SType: plan.RFullscan},
		{NType: plan.NProject, Load: plan.ProjectPlan{Columns: []string{"origin"}}},
	}
	cur := NewCursor(nodes, root, edgeCols)

	buf := make([]byte, 4096)
	total := 0
	for {
		_, count, err := cur.Fetch(buf)
		if err != nil {
			require.Equal(t, xerror.EOF, err.Code)
			break
		}
		total += count
	}
	require.Equal(t, 90112, total)
}

// TestCursorFetchBoundaryPacksRowsToCapacity exercises the 257-byte
// buffer / 19-byte-row boundary scenario: a projection of two UINT
// fields over 1000 rows. Cursor.Fetch packs as many whole rows as fit
// per call rather than emitting one at a time (see DESIGN.md's
// resolved Open Question), so most calls return floor(257/19)=13 rows
// and the last returns the 12-row remainder; every call's byte count
// is a whole multiple of 19 and the total across all calls is 1000.
func TestCursorFetchBoundaryPacksRowsToCapacity(t *testing.T) {
	dir := t.TempDir()
	// 1000 records don't divide evenly into pages at EdgeSize width
	// (128 records/page), so this fixture is built directly rather
	// than through newFullFile's whole-page requirement.
	perPage := model.RecordsPerPage(model.EdgeSize)
	pages := (1000 + perPage - 1) / perPage
	wf, err := store.CreateWriter(filepath.Join(dir, "boundary"), 1, model.EdgeSize, int64(pages)*model.PageSize)
	require.Nil(t, err)
	for i := 0; i < 1000; i++ {
		rec := model.Edge{Origin: uint64(i), Destin: uint64(i + 1)}.Encode()
		_, werr := wf.WriteRecord(rec, xtime.Now())
		require.Nil(t, werr)
	}
	require.Nil(t, wf.Rotate())

	root := reader.NewFullScan([]*store.File{wf}, model.EdgeSize)
	nodes := []*plan.Node{
		{NType: plan.NReader, SType: plan.RFullscan},
		{NType: plan.NProject, Load: plan.ProjectPlan{Columns: []string{"origin", "destin"}}},
	}
	cur := NewCursor(nodes, root, edgeCols)

	const rowSize = 19 // 2 UINT cells (9 bytes each) + EOR
	buf := make([]byte, 257)
	total := 0
	calls := 0
	for {
		n, count, err := cur.Fetch(buf)
		if err != nil {
			require.Equal(t, xerror.EOF, err.Code)
			break
		}
		calls++
		require.Zero(t, n%rowSize)
		require.Equal(t, n/rowSize, count)
		total += count
	}
	require.Equal(t, 1000, total)
	require.Greater(t, calls, 1)
}

// TestCursorAggregateCountStar drives the count(*)-style aggregate path
// end to end: a single summary row is returned, then EOF.
func TestCursorAggregateCountStar(t *testing.T) {
	dir := t.TempDir()
	f := newFullFile(t, dir, 0, 256)

	root := reader.NewFullScan([]*store.File{f}, model.EdgeSize)
	nodes := []*plan.Node{
		{NType: plan.NReader, SType: plan.RFullscan},
		{NType: plan.NGroup, Load: plan.GroupPlan{Aggregates: []plan.AggregateSpec{{Func: sql.SCount, Column: "*"}}}},
		{NType: plan.NProject, Load: plan.ProjectPlan{Columns: []string{"*"}, Aggregates: true}},
	}
	cur := NewCursor(nodes, root, edgeCols)

	buf := make([]byte, 64)
	n, count, err := cur.Fetch(buf)
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.NotZero(t, n)

	_, _, err = cur.Fetch(buf)
	require.NotNil(t, err)
	require.Equal(t, xerror.EOF, err.Code)
}
