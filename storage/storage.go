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
	"sync"
	"time"

	"github.com/nowdb/nowdb/blist"
	"github.com/nowdb/nowdb/index"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
)

// entry is one store registered with a Storage: the store itself, its
// record comparator, the index it feeds, and the composite-key offsets
// that index is built on.
type entry struct {
	store   *store.Store
	cmp     model.Comparator
	idx     *index.Index
	offsets []int
}

// sortJob names one waiting file in one registered store that the sort
// worker must map, sort, compress, index, and promote to reader.
type sortJob struct {
	storeName string
	waitingID uint64
}

// Storage groups stores that share one sort-worker and one sync-worker
// pool and a common sizing/encoding Config (spec §4.5).
type Storage struct {
	Dir    string
	Config Config

	mu     sync.RWMutex
	stores map[string]*entry
	arena  *blist.Arena

	sortWorker *task.Worker[sortJob]
	syncWorker *task.Worker[struct{}]
}

// New creates a Storage rooted at dir with the given configuration, and
// starts its sort and sync workers.
func New(dir string, cfg Config) *Storage {
	s := &Storage{
		Dir:    dir,
		Config: cfg,
		stores: make(map[string]*entry),
		arena:  blist.NewArena(model.PageSize),
	}
	s.sortWorker = task.NewWorker("sort", cfg.SortPeriod, s.runSortJob)
	s.syncWorker = task.NewWorker("sync", cfg.SyncPeriod, s.runSyncTick)
	s.sortWorker.Start()
	s.syncWorker.Start()
	return s
}

// Register adds a store to this Storage's management: the sort worker
// will process its waiting files and the sync worker will fsync and
// checkpoint its catalog on every tick.
func (s *Storage) Register(name string, st *store.Store, cmp model.Comparator, idx *index.Index, offsets []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[name] = &entry{store: st, cmp: cmp, idx: idx, offsets: offsets}
}

func (s *Storage) get(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.stores[name]
	return e, ok
}

// Names returns the currently-registered store names.
func (s *Storage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.stores))
	for name := range s.stores {
		out = append(out, name)
	}
	return out
}

// EnqueueSort asks the sort worker to process one waiting file of one
// registered store (normally called right after Store.Insert reports a
// rotation, spec §4.4 -> §4.6 handoff).
func (s *Storage) EnqueueSort(storeName string, waitingID uint64) *xerror.Error {
	return s.sortWorker.Submit(sortJob{storeName: storeName, waitingID: waitingID})
}

// Stop stops both workers, waiting up to timeout for each.
func (s *Storage) Stop(timeout time.Duration) *xerror.Error {
	if err := s.sortWorker.Stop(timeout); err != nil {
		return err
	}
	return s.syncWorker.Stop(timeout)
}
