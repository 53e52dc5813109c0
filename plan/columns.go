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

import "github.com/nowdb/nowdb/model"

// edgeColumns and vertexColumns name the fixed-width record fields a
// WHERE/SELECT clause may reference, resolving a column identifier to
// its byte offset for composite-key and filter construction.
var edgeColumns = map[string]int{
	"edge":      model.OffEdgeEdge,
	"origin":    model.OffEdgeOrigin,
	"destin":    model.OffEdgeDestin,
	"label":     model.OffEdgeLabel,
	"timestamp": model.OffEdgeTimestamp,
	"weight":    model.OffEdgeWeight,
	"weight2":   model.OffEdgeWeight2,
}

var vertexColumns = map[string]int{
	"vertex":   model.OffVertexVertex,
	"property": model.OffVertexProperty,
	"value":    model.OffVertexValue,
}

// columnOffsets picks the column table matching recsize.
func columnOffsets(recsize model.RecSize) map[string]int {
	if recsize == model.VertexSize {
		return vertexColumns
	}
	return edgeColumns
}
