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

// Package reader implements NoWDB's reader hierarchy (spec §4.8):
// fullscan, search, frange, bufidx and merge, sharing one contract —
// move to the next logical 8KiB page, or fail with EOF idempotently.
package reader

import (
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/xerror"
)

// Reader is the common contract every reader implementation satisfies.
// Move advances to the next logical page; Page returns the page most
// recently moved to. Calling Move again after it has returned an EOF
// error keeps returning EOF without further side effects.
type Reader interface {
	Move() *xerror.Error
	Page() []byte
	RecSize() model.RecSize
}

// maskPage overwrites every record slot whose bit is unset in bitmap
// with the all-zero null record, in place, per spec §4.8 search/frange
// "record-masked" semantics.
func maskPage(page []byte, recsize model.RecSize, has func(slot int) bool) {
	rs := int(recsize)
	n := model.RecordsPerPage(recsize)
	for slot := 0; slot < n; slot++ {
		if has(slot) {
			continue
		}
		rec := page[slot*rs : slot*rs+rs]
		for i := range rec {
			rec[i] = 0
		}
	}
}
