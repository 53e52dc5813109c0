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

// Command nowdb is a small smoke-test driver: it opens (or creates) an
// edge store, inserts a batch of sample edges, runs one SQL statement
// through the planner and cursor, and prints the resulting row buffer.
// It stands in for the out-of-scope server/REPL just enough to exercise
// the library end to end, the way sneller's cmd/dump drives ion.ToJSON
// over a file argument.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/plan"
	"github.com/nowdb/nowdb/query"
	"github.com/nowdb/nowdb/reader"
	"github.com/nowdb/nowdb/sql"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/xerror"
	"github.com/nowdb/nowdb/xtime"
)

func main() {
	dir := flag.String("dir", "", "database directory (a fresh temp dir if empty)")
	n := flag.Int("n", 1000, "number of sample edges to insert")
	q := flag.String("query", "select origin, destin from edges where label = 1 order by origin", "statement to run")
	flag.Parse()

	if *dir == "" {
		tmp, err := os.MkdirTemp("", "nowdb-smoke-")
		if err != nil {
			fmt.Fprintln(os.Stderr, "mktemp:", err)
			os.Exit(1)
		}
		*dir = tmp
	}

	if err := run(*dir, *n, *q, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "nowdb:", err)
		os.Exit(1)
	}
}

func run(dir string, n int, stmt string, out *os.File) *xerror.Error {
	st, err := store.Open(dir, model.EdgeSize, 4*model.PageSize)
	if err != nil {
		return err
	}
	if err := seed(st, n); err != nil {
		return err
	}

	ast, perr := sql.Parse([]byte(stmt))
	if perr != nil {
		return perr
	}

	ctx := model.NewContext("edges", model.EdgeSize)
	nodes, berr := plan.Build(ast, ctx, model.EdgeAsc)
	if berr != nil {
		return berr
	}

	root, rerr := buildReader(nodes[0], st)
	if rerr != nil {
		return rerr
	}

	cur := query.NewCursor(nodes, root, edgeColumns())

	buf := make([]byte, 4096)
	rows := 0
	for {
		used, count, ferr := cur.Fetch(buf)
		if ferr != nil {
			if ferr.Code == xerror.EOF {
				break
			}
			return ferr
		}
		fmt.Fprintf(out, "%x\n", buf[:used])
		rows += count
	}
	fmt.Fprintf(out, "# %d row(s)\n", rows)
	return nil
}

// seed inserts n sample edges, cycling through a handful of labels so a
// WHERE label = ... clause has something to match.
func seed(st *store.Store, n int) *xerror.Error {
	for i := 0; i < n; i++ {
		e := model.Edge{
			Origin:    uint64(i),
			Destin:    uint64(i + 1),
			Label:     uint64(i % 4),
			Timestamp: int64(xtime.Now()),
			Weight:    uint64(i),
		}
		if err := st.Insert(e.Encode(), xtime.Now()); err != nil {
			return err
		}
	}
	return st.Rotate()
}

// buildReader turns the plan's chosen reader node into a live
// reader.Reader. This smoke driver never registers an index, so
// plan.Build always selects RFullscan; the RSearch/RFRange arms are
// wired for completeness should a caller register one later.
func buildReader(n *plan.Node, st *store.Store) (reader.Reader, *xerror.Error) {
	writer, waiting, readers := st.GetFiles()
	files := append(append([]*store.File(nil), readers...), waiting...)
	if writer != nil {
		files = append(files, writer)
	}

	rp, _ := n.Load.(plan.ReaderPlan)
	switch rp.Kind {
	case plan.RSearch:
		return reader.NewSearch(index.New(rp.IndexName), rp.Prefix, files, model.EdgeSize), nil
	case plan.RFRange:
		return reader.NewFRange(index.New(rp.IndexName), rp.Lo, rp.Hi, rp.Dir, files, model.EdgeSize), nil
	default:
		return reader.NewFullScan(files, model.EdgeSize), nil
	}
}

func edgeColumns() map[string]int {
	return map[string]int{
		"edge":      model.OffEdgeEdge,
		"origin":    model.OffEdgeOrigin,
		"destin":    model.OffEdgeDestin,
		"label":     model.OffEdgeLabel,
		"timestamp": model.OffEdgeTimestamp,
		"weight":    model.OffEdgeWeight,
		"weight2":   model.OffEdgeWeight2,
	}
}
