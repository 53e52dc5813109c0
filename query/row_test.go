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

	"github.com/stretchr/testify/require"
)

func TestRowBuilderUintCellIsNineBytes(t *testing.T) {
	var b RowBuilder
	b.AddUint(42)
	row := b.Close()
	require.Len(t, row, 10) // 1 tag + 8 payload + EOR
	require.Equal(t, byte(TagUint), row[0])
	require.Equal(t, EOR, row[len(row)-1])
}

func TestRowBuilderTwoUintFieldsIs19Bytes(t *testing.T) {
	var b RowBuilder
	b.AddUint(1)
	b.AddUint(2)
	row := b.Close()
	require.Len(t, row, 19)
}

func TestRowBuilderTextCellIsTagPlusNulTerminated(t *testing.T) {
	var b RowBuilder
	b.AddText("hi")
	row := b.Close()
	require.Equal(t, byte(TagText), row[0])
	require.Equal(t, []byte("hi"), row[1:3])
	require.Equal(t, byte(0), row[3])
	require.Equal(t, EOR, row[4])
}

func TestRowBuilderBoolCellIsTwoBytes(t *testing.T) {
	var b RowBuilder
	b.AddBool(true)
	row := b.Close()
	require.Len(t, row, 3) // tag + 1-byte payload + EOR
	require.Equal(t, byte(1), row[1])
}

func TestFindEORLocatesRowBoundary(t *testing.T) {
	var b RowBuilder
	b.AddUint(1)
	b.AddUint(2)
	row := b.Close()

	end := findEOR(row, len(row), 0)
	require.Equal(t, len(row), end)
}

func TestFindEORSkipsTextCells(t *testing.T) {
	var b RowBuilder
	b.AddText("origin")
	b.AddUint(7)
	row := b.Close()

	end := findEOR(row, len(row), 0)
	require.Equal(t, len(row), end)
}

func TestFindLastRowCutsAtWholeRowBoundary(t *testing.T) {
	var b RowBuilder
	b.AddUint(1)
	b.AddUint(2)
	one := b.Close() // 19 bytes

	buf := append(append([]byte{}, one...), one...)
	buf = append(buf, byte(TagUint)) // a third, incomplete row begins here

	got := findLastRow(buf, len(buf))
	require.Equal(t, 38, got) // exactly two whole rows, the trailing partial tag excluded
}

func TestFindLastRowEmptyBuffer(t *testing.T) {
	require.Equal(t, 0, findLastRow(nil, 0))
}
