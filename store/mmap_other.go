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

//go:build !linux

package store

import (
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/xerror"
)

// mmapPage falls back to a plain ReadAt on non-linux platforms, where
// NoWDB has no mmap binding (spec §3 File only requires page-random
// access, not a specific mechanism).
func mmapPage(f *File, idx int) ([]byte, *xerror.Error) {
	buf := make([]byte, model.PageSize)
	off := int64(idx) * int64(model.PageSize)
	if _, err := f.f.ReadAt(buf, off); err != nil {
		return nil, xerror.Get(xerror.Read, 0, f.Path, err.Error())
	}
	return buf, nil
}
