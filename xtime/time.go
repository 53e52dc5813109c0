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

// Package xtime implements NoWDB's configurable-epoch, per-second-unit
// timestamp. A Time value is an int64 count of Unit since Epoch, stored
// verbatim in edge records' timestamp field and in DATE/TIME row fields.
package xtime

import (
	"sync"
	"time"
)

// Time is the on-disk/on-wire timestamp representation: signed ticks
// since Epoch, counted in Unit-sized steps.
type Time int64

var (
	mu    sync.RWMutex
	epoch = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	unit  = time.Second
)

// SetEpoch overrides the process-wide epoch. Intended for startup
// configuration only; not safe to call once records referencing the
// previous epoch exist on disk.
func SetEpoch(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	epoch = t
}

// Epoch returns the current epoch.
func Epoch() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return epoch
}

// SetUnit overrides the tick granularity (default one second).
func SetUnit(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	unit = d
}

// Unit returns the current tick granularity.
func Unit() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return unit
}

// Now returns the current monotonic Time relative to Epoch.
func Now() Time {
	return FromUnix(time.Now())
}

// FromUnix converts a wall-clock time.Time to Time ticks since Epoch.
func FromUnix(t time.Time) Time {
	mu.RLock()
	defer mu.RUnlock()
	return Time(t.Sub(epoch) / unit)
}

// ToUnix converts Time ticks since Epoch back to a wall-clock time.Time.
func (t Time) ToUnix() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return epoch.Add(time.Duration(t) * unit)
}

// Mon2Time converts a (year, month) pair to the Time of that month's
// first instant, used by time-partitioned index key shapes.
func Mon2Time(year int, month time.Month) Time {
	mu.RLock()
	e := epoch
	u := unit
	mu.RUnlock()
	return Time(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Sub(e) / u)
}

// Time2Mon converts t back to the (year, month) pair it falls in.
func Time2Mon(t Time) (int, time.Month) {
	u := t.ToUnix()
	return u.Year(), u.Month()
}
