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

package store

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nowdb/nowdb/model"
	"github.com/nowdb/nowdb/task"
	"github.com/nowdb/nowdb/xerror"
	"github.com/nowdb/nowdb/xtime"

	"golang.org/x/exp/slices"
)

// Store owns one append-only record stream's full file lifecycle:
// one active writer, a pool of pre-allocated spares, files rotated off
// the writer awaiting background sort+compress ("waiting"), and the
// sorted, compressed files available for reads ("readers") — spec §3
// File States, §4.4 insert/rotate.
type Store struct {
	Dir      string
	RecSize  model.RecSize
	Capacity int64

	lock task.RWLock

	writer  *File
	spares  []*File
	waiting []*File
	readers []*File

	nextID uint64
}

// Open creates or reopens a Store rooted at dir. A fresh store starts
// with no writer; the first Insert lazily draws one from spares (or
// creates one if the spare pool is empty).
func Open(dir string, recsize model.RecSize, capacity int64) (*Store, *xerror.Error) {
	return &Store{Dir: dir, RecSize: recsize, Capacity: capacity}, nil
}

func (s *Store) newPath(id uint64) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%020d.nwf", id))
}

// AddSpare pre-allocates one empty writer-shaped file and parks it in
// the spare pool, ready to be promoted to writer on the next rotate
// (spec §3: spares absorb rotation without blocking the inserting
// caller on file creation).
func (s *Store) AddSpare() *xerror.Error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.addSpareLocked()
}

func (s *Store) addSpareLocked() *xerror.Error {
	id := s.nextID
	s.nextID++
	f, err := CreateWriter(s.newPath(id), id, s.RecSize, s.Capacity)
	if err != nil {
		return err
	}
	f.SetRole(RoleSpare)
	s.spares = append(s.spares, f)
	return nil
}

// Insert writes rec (exactly RecSize bytes) to the current writer,
// rotating to a spare file when the writer is full (spec §4.4). The
// caller holds no lock; Insert takes the store's write lock for the
// whole operation, matching the teacher's per-store exclusive-insert
// granularity (spec §5).
func (s *Store) Insert(rec []byte, ts xtime.Time) *xerror.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.writer == nil {
		if err := s.drawWriterLocked(); err != nil {
			return err
		}
	}

	rotate, err := s.writer.WriteRecord(rec, ts)
	if err != nil {
		return err
	}
	if !rotate {
		return nil
	}

	if err := s.rotateLocked(); err != nil {
		return err
	}
	rotate, err = s.writer.WriteRecord(rec, ts)
	if err != nil {
		return err
	}
	if rotate {
		return xerror.Get(xerror.TooBig, 0, s.Dir, "record does not fit a freshly rotated writer")
	}
	return nil
}

// drawWriterLocked promotes a spare to writer, creating one on demand
// if the spare pool is empty (spec §3: spares should normally be ready
// ahead of time via the sync worker, but insert must never block
// indefinitely on that background work).
func (s *Store) drawWriterLocked() *xerror.Error {
	if len(s.spares) == 0 {
		if err := s.addSpareLocked(); err != nil {
			return err
		}
	}
	n := len(s.spares)
	f := s.spares[n-1]
	s.spares = s.spares[:n-1]
	f.SetRole(RoleWriter)
	s.writer = f
	return nil
}

// rotateLocked flushes the current writer's partial page, demotes it
// to waiting (for the sort worker to pick up), and promotes the next
// spare to writer.
func (s *Store) rotateLocked() *xerror.Error {
	if s.writer != nil {
		if err := s.writer.Rotate(); err != nil {
			return err
		}
		s.writer.SetRole(RoleWaiting)
		s.waiting = append(s.waiting, s.writer)
		s.writer = nil
	}
	return s.drawWriterLocked()
}

// Rotate forces the current writer off, regardless of fullness — used
// by the sync worker's periodic tick (spec §4.5) to bound how long
// records sit unindexed in an under-filled writer.
func (s *Store) Rotate() *xerror.Error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.writer == nil {
		return nil
	}
	return s.rotateLocked()
}

// GetFiles returns the writer (if any) and all waiting/reader files,
// read-locked, for listing operations (spec §5: GetFiles takes RLock).
func (s *Store) GetFiles() (writer *File, waiting, readers []*File) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.writer, append([]*File(nil), s.waiting...), append([]*File(nil), s.readers...)
}

// GetReaders returns a snapshot of the current reader-file list.
func (s *Store) GetReaders() []*File {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]*File(nil), s.readers...)
}

// GetAllWaiting returns a snapshot of the current waiting-file list,
// the sort worker's input queue.
func (s *Store) GetAllWaiting() []*File {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]*File(nil), s.waiting...)
}

// FindWaiting returns the waiting file with the given id, if present.
func (s *Store) FindWaiting(id uint64) (*File, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, f := range s.waiting {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// PromoteWaitingToReader removes a file from the waiting list and adds
// it to the reader list, under the write lock (spec §4.6: the sort
// worker calls this once it has produced a sorted, compressed
// replacement file and flushed the index).
func (s *Store) PromoteWaitingToReader(waitingID uint64, reader *File) *xerror.Error {
	s.lock.Lock()
	defer s.lock.Unlock()

	idx := -1
	for i, f := range s.waiting {
		if f.ID == waitingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return xerror.Get(xerror.NotFound, 0, s.Dir, "waiting file not found")
	}
	s.waiting = slices.Delete(s.waiting, idx, idx+1)
	reader.SetRole(RoleReader)
	s.readers = append(s.readers, reader)
	return nil
}

// Catalog produces a durable, JSON-serializable snapshot of this
// store's file layout (writer/waiting/reader ids and roles) for
// store/catalog.go's atomic-rename persistence.
func (s *Store) Catalog() Catalog {
	s.lock.RLock()
	defer s.lock.RUnlock()

	c := Catalog{Dir: s.Dir, RecSize: s.RecSize, Capacity: s.Capacity, NextID: s.nextID}
	if s.writer != nil {
		c.Writer = &FileEntry{ID: s.writer.ID, Path: s.writer.Path, Size: s.writer.Size()}
	}
	for _, f := range s.spares {
		c.Spares = append(c.Spares, FileEntry{ID: f.ID, Path: f.Path, Size: f.Size()})
	}
	for _, f := range s.waiting {
		c.Waiting = append(c.Waiting, FileEntry{ID: f.ID, Path: f.Path, Size: f.Size()})
	}
	for _, f := range s.readers {
		min, max, _ := f.TimeRange()
		c.Readers = append(c.Readers, FileEntry{
			ID: f.ID, Path: f.Path, Size: f.Size(), Comp: f.Comp,
			MinTime: min, MaxTime: max,
		})
	}
	return c
}

// NewID draws a fresh, process-unique string identifier (a random
// UUID). The store's own files are numbered by its nextID counter, not
// by NewID.
func NewID() string {
	return uuid.NewString()
}
