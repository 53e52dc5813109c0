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
	"github.com/nowdb/nowdb/store"
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
)

// runSyncTick is the sync worker's periodic task.Job (spec §4.5): fsync
// every registered store's current writer and checkpoint its catalog.
// msg is always nil here since the sync worker is driven purely by its
// Period tick, never by Submit.
func (s *Storage) runSyncTick(_ *task.Worker[struct{}], _ *struct{}) *xerror.Error {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.stores))
	for _, e := range s.stores {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		w, _, _ := e.store.GetFiles()
		if w != nil {
			if err := w.Sync(); err != nil {
				return err
			}
		}
		if err := store.SaveCatalog(s.Dir, e.store.Catalog()); err != nil {
			return err
		}
	}
	return nil
}
