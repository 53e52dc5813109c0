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

//go:build linux

package store

import (
	"syscall"

	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/xerror"
)

// mmapPage maps logical page idx of an uncompressed reader file and
// copies it into a fresh buffer before unmapping — grounded on sneller
// ion/blockfmt/mmap_linux.go, which uses syscall.Mmap/syscall.Munmap
// rather than x/sys/unix.
func mmapPage(f *File, idx int) ([]byte, *xerror.Error) {
	off := int64(idx) * int64(model.PageSize)
	pageAligned := off &^ (int64(syscallPageSize) - 1)
	within := int(off - pageAligned)

	b, err := syscall.Mmap(int(f.f.Fd()), pageAligned, within+model.PageSize, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, xerror.Get(xerror.Map, 0, f.Path, err.Error())
	}
	out := make([]byte, model.PageSize)
	copy(out, b[within:within+model.PageSize])
	if uerr := syscall.Munmap(b); uerr != nil {
		return nil, xerror.Get(xerror.Unmap, 0, f.Path, uerr.Error())
	}
	return out, nil
}

const syscallPageSize = 4096
