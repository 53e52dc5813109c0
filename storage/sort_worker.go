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

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/s2"
	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/sortpkg"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
)

// maxSortScanPerTick bounds how many waiting files one periodic tick
// will enqueue, so a store with a long waiting backlog can't monopolize
// the sort worker against stores registered after it (spec §4.5).
const maxSortScanPerTick = 8

// scanWaiting is the sort worker's periodic-tick job (spec §4.5): it
// snapshots every registered store's waiting files and submits one
// sortJob per file pending, up to maxSortScanPerTick. EnqueueSort is
// idempotent in effect — a file already sorted or already queued simply
// fails FindWaiting on its second job and is logged, not retried.
func (s *Storage) scanWaiting() *xerror.Error {
	s.mu.RLock()
	type pending struct {
		name string
		st   *store.Store
	}
	stores := make([]pending, 0, len(s.stores))
	for name, e := range s.stores {
		stores = append(stores, pending{name: name, st: e.store})
	}
	s.mu.RUnlock()

	submitted := 0
	for _, p := range stores {
		for _, f := range p.st.GetAllWaiting() {
			if submitted >= maxSortScanPerTick {
				return nil
			}
			if err := s.EnqueueSort(p.name, f.ID); err != nil {
				return err
			}
			submitted++
		}
	}
	return nil
}

// runSortJob is the sort worker's task.Job: map a waiting file's pages
// into memory, sort+merge them, write the result to a fresh reader
// file, index every non-null record, and promote (spec §4.6).
func (s *Storage) runSortJob(_ *task.Worker[sortJob], msg *sortJob) *xerror.Error {
	if msg == nil {
		return s.scanWaiting()
	}
	e, ok := s.get(msg.storeName)
	if !ok {
		return xerror.Get(xerror.NoSuchContext, 0, msg.storeName, "store not registered with storage")
	}
	f, ok := e.store.FindWaiting(msg.waitingID)
	if !ok {
		return xerror.Get(xerror.NotFound, 0, msg.storeName, "waiting file not found")
	}

	npages := f.PageCount()
	buf := make([]byte, npages*model.PageSize)
	for i := 0; i < npages; i++ {
		page, perr := f.ReadPage(i)
		if perr != nil {
			return perr
		}
		copy(buf[i*model.PageSize:(i+1)*model.PageSize], page)
	}

	if int64(len(buf)) > s.Config.LargeSize {
		return xerror.Get(xerror.TooBig, 0, msg.storeName, "waiting file exceeds storage's large-size ceiling")
	}
	if int64(len(buf)) > s.Config.AllocSize {
		spilled, serr := spillRoundTrip(buf)
		if serr != nil {
			return serr
		}
		buf = spilled
	}

	total, err := sortpkg.MemMergeArena(s.arena, buf, model.PageSize, f.RecSize, e.cmp)
	if err != nil {
		return xerror.Get(xerror.BadBlock, 0, msg.storeName, err.Error())
	}

	readerPath := filepath.Join(s.Dir, fmt.Sprintf("%s-%020d.nwr", msg.storeName, msg.waitingID))
	reader, cerr := store.CreateWriter(readerPath, msg.waitingID, f.RecSize, int64(len(buf)))
	if cerr != nil {
		return cerr
	}
	reader.Comp = s.Config.Comp

	ixr := index.NewIndexer(e.offsets)
	rs := int(f.RecSize)
	perPage := model.RecordsPerPage(f.RecSize)

	for i := 0; i < npages; i++ {
		page := buf[i*model.PageSize : (i+1)*model.PageSize]
		for slot := 0; slot < perPage; slot++ {
			rec := page[slot*rs : slot*rs+rs]
			if model.IsNull(rec) {
				continue
			}
			ixr.Feed(rec, store.PackPageID(msg.waitingID, i), slot)
		}
		if aerr := reader.AppendPage(page); aerr != nil {
			return aerr
		}
	}
	ixr.Flush(e.idx)

	if perr := e.store.PromoteWaitingToReader(msg.waitingID, reader); perr != nil {
		return perr
	}
	if serr := store.SaveCatalog(s.Dir, e.store.Catalog()); serr != nil {
		return serr
	}
	if cerr := f.Close(); cerr != nil {
		return cerr
	}
	_ = os.Remove(f.Path)
	_ = total // recorded via the reader's page count; kept for future metrics wiring
	return nil
}

// spillRoundTrip demonstrates the sort worker's staging-buffer spill
// codec (s2, see SPEC_FULL.md DOMAIN STACK): once a waiting file's
// resident staging buffer exceeds Config.AllocSize (but is still under
// the hard Config.LargeSize ceiling), it is round-tripped through s2
// before the sort proceeds. NoWDB decompresses immediately since
// MemMerge operates in place on the raw buffer; a future revision could
// stream blocks through the codec instead of round-tripping the whole
// buffer.
func spillRoundTrip(buf []byte) ([]byte, *xerror.Error) {
	compressed := s2.Encode(nil, buf)
	out := make([]byte, len(buf))
	if _, err := s2.Decode(out, compressed); err != nil {
		return nil, xerror.Get(xerror.Decomp, 0, "staging-buffer", err.Error())
	}
	return out, nil
}
