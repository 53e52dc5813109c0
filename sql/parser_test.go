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

package sql

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseCountWhereAnd reproduces spec §8 scenario 3: parsing
// `select count(*) from sales where origin = 1 and destin = 2` must
// produce an AST whose projection kid is an aggregate count(*), whose
// from kid is sales, and whose where kid is an AND of two equality
// compares on origin=1 and destin=2.
func TestParseCountWhereAnd(t *testing.T) {
	root, err := Parse([]byte("select count(*) from sales where origin = 1 and destin = 2"))
	require.Nil(t, err)
	require.Equal(t, NQuery, root.NType)
	require.Len(t, root.Kids, 3)

	proj, from, where := root.Kids[0], root.Kids[1], root.Kids[2]

	require.Equal(t, NProjection, proj.NType)
	require.Len(t, proj.Kids, 1)
	agg := proj.Kids[0]
	require.Equal(t, NAggregate, agg.NType)
	require.Equal(t, SCount, agg.SType)
	require.Len(t, agg.Kids, 1)
	require.Equal(t, NStar, agg.Kids[0].NType)

	require.Equal(t, NFrom, from.NType)
	require.Equal(t, "sales", from.Value)

	require.Equal(t, NWhere, where.NType)
	require.Len(t, where.Kids, 1)
	and := where.Kids[0]
	require.Equal(t, NAnd, and.NType)
	require.Len(t, and.Kids, 2)

	left, right := and.Kids[0], and.Kids[1]
	require.Equal(t, NCompare, left.NType)
	require.Equal(t, SEq, left.SType)
	require.Equal(t, "origin", left.Kids[0].Value)
	require.Equal(t, "1", left.Kids[1].Value)

	require.Equal(t, NCompare, right.NType)
	require.Equal(t, SEq, right.SType)
	require.Equal(t, "destin", right.Kids[0].Value)
	require.Equal(t, "2", right.Kids[1].Value)
}

func TestParseColumnProjectionAndOrderBy(t *testing.T) {
	root, err := Parse([]byte("select origin, destin from sales where origin = 5 order by destin desc"))
	require.Nil(t, err)
	require.Len(t, root.Kids, 4)

	proj := root.Kids[0]
	require.Len(t, proj.Kids, 2)
	require.Equal(t, NColumn, proj.Kids[0].NType)
	require.Equal(t, "origin", proj.Kids[0].Value)
	require.Equal(t, "destin", proj.Kids[1].Value)

	order := root.Kids[3]
	require.Equal(t, NIdent, order.NType)
	require.Equal(t, "destin", order.Value)
	require.Equal(t, SGt, order.SType)
}

func TestParseErrorOnMissingFrom(t *testing.T) {
	_, err := Parse([]byte("select count(*) where origin = 1"))
	require.NotNil(t, err)
}

func TestParserResetReusesParser(t *testing.T) {
	p := NewParser([]byte("select origin from sales"))
	first, err := p.ParseStatement()
	require.Nil(t, err)
	require.Equal(t, "sales", first.Kids[1].Value)

	p.Reset([]byte("select destin from edges"))
	second, err := p.ParseStatement()
	require.Nil(t, err)
	require.Equal(t, "edges", second.Kids[1].Value)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	stmt := []byte("select count(*) from sales")
	require.Nil(t, WriteFrame(&buf, stmt))

	got, err := ReadFrame(&buf)
	require.Nil(t, err)
	require.Equal(t, stmt, got)
}

func TestReadFrameEOFOnEmptyStream(t *testing.T) {
	_, err := ReadFrame(&bytes.Buffer{})
	require.NotNil(t, err)
}
