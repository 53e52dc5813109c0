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

// Package store implements NoWDB's File and Store types (spec §3,
// §4.4): page-aligned, fixed-record-size files that are writer, spare,
// waiting, or reader in role, plus the catalog durability that survives
// process restarts.
package store

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/xerror"
	"github.com/nowdb/nowdb/xtime"
)

// Role names a File's current position in its owning Store's lifecycle
// (spec §3 File States / Glossary).
type Role int

const (
	RoleSpare Role = iota
	RoleWriter
	RoleWaiting
	RoleReader
	RoleClosed
)

func (r Role) String() string {
	switch r {
	case RoleSpare:
		return "spare"
	case RoleWriter:
		return "writer"
	case RoleWaiting:
		return "waiting"
	case RoleReader:
		return "reader"
	default:
		return "closed"
	}
}

// File is one logical file: an ordered sequence of 8KiB pages,
// identified by an id unique within its store.
type File struct {
	ID       uint64
	Path     string
	RecSize  model.RecSize
	Capacity int64
	Comp     bool // zstd page compression; reader files only

	mu       sync.Mutex
	f        *os.File
	role     Role
	size     int64 // bytes flushed to disk (compressed pages at their on-disk length)
	minTime  xtime.Time
	maxTime  xtime.Time
	haveTime bool

	pageBuf  []byte // current partially-filled writer page
	pageUsed int    // bytes used within pageBuf

	encoder *zstd.Encoder
}

// CreateWriter creates a new, empty writer file at path with room for
// capacity bytes. Only whole pages are written, so a capacity that is
// not a multiple of the page size leaves its tail unused.
func CreateWriter(path string, id uint64, recsize model.RecSize, capacity int64) (*File, *xerror.Error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerror.Get(xerror.Open, 0, path, err.Error())
	}
	return &File{
		ID:       id,
		Path:     path,
		RecSize:  recsize,
		Capacity: capacity,
		role:     RoleWriter,
		f:        f,
		pageBuf:  make([]byte, model.PageSize),
	}, nil
}

// OpenWriter reopens an existing writer file at its last-known size.
func OpenWriter(path string, id uint64, recsize model.RecSize, capacity, size int64) (*File, *xerror.Error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, xerror.Get(xerror.Open, 0, path, err.Error())
	}
	return &File{
		ID: id, Path: path, RecSize: recsize, Capacity: capacity,
		role: RoleWriter, f: f, size: size, pageBuf: make([]byte, model.PageSize),
	}, nil
}

// Role reports the file's current lifecycle role.
func (f *File) Role() Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.role
}

// SetRole transitions the file to a new role (used by Store on rotate/promote).
func (f *File) SetRole(r Role) {
	f.mu.Lock()
	f.role = r
	f.mu.Unlock()
}

// Size reports the bytes flushed to disk: whole pages for an
// uncompressed file, or the total on-disk length of the length-prefixed
// pages of a compressed reader file.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// TimeRange reports the [min,max] timestamp span of records this file
// holds, and whether any record has been observed yet.
func (f *File) TimeRange() (xtime.Time, xtime.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minTime, f.maxTime, f.haveTime
}

func (f *File) observe(ts xtime.Time) {
	if !f.haveTime {
		f.minTime, f.maxTime, f.haveTime = ts, ts, true
		return
	}
	if ts < f.minTime {
		f.minTime = ts
	}
	if ts > f.maxTime {
		f.maxTime = ts
	}
}

// Full reports whether appending one more page to this file would
// exceed its capacity.
func (f *File) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size+int64(model.PageSize) > f.Capacity
}

// WriteRecord copies rec (exactly RecSize bytes) into the writer's
// current page, flushing the zero-padded page to disk as soon as no
// further whole record fits in it (spec §4.4 insert). It
// reports rotate=true, without mutating on-disk state, when writing the
// next page would exceed Capacity — the caller (Store.Insert) must then
// rotate to a new writer file.
func (f *File) WriteRecord(rec []byte, ts xtime.Time) (rotate bool, xerr *xerror.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rs := int(f.RecSize)
	usable := model.RecordsPerPage(f.RecSize) * rs

	if f.pageUsed == 0 && f.size+int64(model.PageSize) > f.Capacity {
		return true, nil
	}
	if f.pageUsed+rs > usable {
		if err := f.flushPageLocked(); err != nil {
			return false, err
		}
		if f.size+int64(model.PageSize) > f.Capacity {
			return true, nil
		}
	}
	copy(f.pageBuf[f.pageUsed:f.pageUsed+rs], rec)
	f.pageUsed += rs
	f.observe(ts)
	if f.pageUsed+rs > usable {
		if err := f.flushPageLocked(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (f *File) flushPageLocked() *xerror.Error {
	if _, err := f.f.WriteAt(f.pageBuf, f.size); err != nil {
		return xerror.Get(xerror.Write, 0, f.Path, err.Error())
	}
	f.size += int64(model.PageSize)
	for i := range f.pageBuf {
		f.pageBuf[i] = 0
	}
	f.pageUsed = 0
	return nil
}

// Rotate flushes any partially-filled current page (padded with the
// zero remainder already in pageBuf) so the file's on-disk size always
// lands on a page boundary before it moves to the waiting list.
func (f *File) Rotate() *xerror.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageUsed == 0 {
		return nil
	}
	return f.flushPageLocked()
}

// Sync fsyncs the underlying OS file (spec §4.5 sync worker).
func (f *File) Sync() *xerror.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.f.Sync(); err != nil {
		return xerror.Get(xerror.Flush, 0, f.Path, err.Error())
	}
	return nil
}

// Close closes the underlying OS file handle.
func (f *File) Close() *xerror.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.f.Close(); err != nil {
		return xerror.Get(xerror.Close, 0, f.Path, err.Error())
	}
	return nil
}

// PageCount returns the number of whole 8KiB logical pages currently in
// the file (writer role: flushed pages only).
func (f *File) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Comp {
		return int(f.size / int64(model.PageSize))
	}
	// compressed pages vary in length: count them by walking their headers
	n := 0
	hdr := make([]byte, compressedPageHeader)
	for off := int64(0); off < f.size; n++ {
		if _, err := f.f.ReadAt(hdr, off); err != nil {
			break
		}
		off += compressedPageHeader + int64(binary.LittleEndian.Uint32(hdr))
	}
	return n
}

// ReadPage reads logical page idx (0-based) into a fresh 8KiB buffer,
// decompressing it first if Comp is set. Uncompressed pages are read
// via mmapPage (mmap on linux, a plain ReadAt elsewhere).
func (f *File) ReadPage(idx int) ([]byte, *xerror.Error) {
	if f.Comp {
		return f.readPageCompressed(idx)
	}
	return f.readPagePlain(idx)
}

func (f *File) readPagePlain(idx int) ([]byte, *xerror.Error) {
	return mmapPage(f, idx)
}

// compressedPageHeader is the 4-byte little-endian length prefix before
// each compressed page's payload (spec §6 File on-disk layout).
const compressedPageHeader = 4

// AppendPage writes one logical 8KiB page to a reader file being built
// by the sort worker, compressing it first if Comp is set.
func (f *File) AppendPage(page []byte) *xerror.Error {
	if len(page) != model.PageSize {
		return xerror.Get(xerror.BadBlock, 0, f.Path, "page is not 8KiB")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Comp {
		if _, err := f.f.WriteAt(page, f.size); err != nil {
			return xerror.Get(xerror.Write, 0, f.Path, err.Error())
		}
		f.size += int64(model.PageSize)
		return nil
	}

	if f.encoder == nil {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return xerror.Get(xerror.Comp, 0, f.Path, err.Error())
		}
		f.encoder = enc
	}
	compressed := f.encoder.EncodeAll(page, nil)
	hdr := make([]byte, compressedPageHeader)
	binary.LittleEndian.PutUint32(hdr, uint32(len(compressed)))
	if _, err := f.f.WriteAt(hdr, f.size); err != nil {
		return xerror.Get(xerror.Write, 0, f.Path, err.Error())
	}
	if _, err := f.f.WriteAt(compressed, f.size+compressedPageHeader); err != nil {
		return xerror.Get(xerror.Write, 0, f.Path, err.Error())
	}
	f.size += int64(compressedPageHeader + len(compressed))
	return nil
}

// PackPageID combines a file id and a local page index into the single
// uint64 page identifier the index package stores bitmaps under, so
// one Index can span every reader file in a store without page-number
// collisions between files.
func PackPageID(fileID uint64, page int) uint64 {
	return fileID<<32 | uint64(uint32(page))
}

// UnpackPageID splits a packed page identifier back into its file id
// and local page index.
func UnpackPageID(packed uint64) (fileID uint64, page int) {
	return packed >> 32, int(uint32(packed))
}

func (f *File) readPageCompressed(idx int) ([]byte, *xerror.Error) {
	// Compressed pages are self-delimiting but variable length, so
	// every call walks the page headers from the start of the file to
	// find page idx's offset; no offset is cached between calls.
	f.mu.Lock()
	defer f.mu.Unlock()

	var off int64
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, xerror.Get(xerror.Decomp, 0, f.Path, err.Error())
	}
	defer dec.Close()

	for i := 0; i <= idx; i++ {
		hdr := make([]byte, compressedPageHeader)
		if _, err := f.f.ReadAt(hdr, off); err != nil {
			return nil, xerror.Get(xerror.Read, 0, f.Path, err.Error())
		}
		n := binary.LittleEndian.Uint32(hdr)
		body := make([]byte, n)
		if _, err := f.f.ReadAt(body, off+compressedPageHeader); err != nil {
			return nil, xerror.Get(xerror.Read, 0, f.Path, err.Error())
		}
		if i == idx {
			out, err := dec.DecodeAll(body, make([]byte, 0, model.PageSize))
			if err != nil {
				return nil, xerror.Get(xerror.Decomp, 0, f.Path, err.Error())
			}
			if len(out) != model.PageSize {
				return nil, xerror.Get(xerror.Decomp, 0, f.Path, "decompressed page is not 8KiB")
			}
			return out, nil
		}
		off += int64(compressedPageHeader) + int64(n)
	}
	return nil, xerror.Get(xerror.EOF, 0, f.Path, "page out of range")
}
