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

// Package storage implements NoWDB's Storage type (spec §4.5): a group
// of stores sharing one sort-worker and one sync-worker, plus the
// sizing and encoding configuration those workers use.
package storage

import "time"

// Config holds the sizing and worker-period knobs a Storage applies
// uniformly across every store it manages.
type Config struct {
	// AllocSize is the staging-buffer size above which the sort worker
	// passes the buffer through an in-memory s2 compress/decompress
	// round trip before sorting it (see sort_worker.go).
	AllocSize int64
	// LargeSize is the largest staging buffer the sort worker accepts;
	// a waiting file whose pages exceed it fails its sort job with
	// xerror.TooBig.
	LargeSize int64
	// Comp enables zstd compression on newly-written reader files.
	Comp bool
	// SortPeriod is the sort worker's idle tick (it also wakes
	// immediately on EnqueueSort).
	SortPeriod time.Duration
	// SyncPeriod is the sync worker's fsync+catalog-flush tick.
	SyncPeriod time.Duration
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithAllocSize overrides the staging-buffer size above which the sort
// worker runs its s2 round trip.
func WithAllocSize(n int64) Option { return func(c *Config) { c.AllocSize = n } }

// WithLargeSize overrides the largest staging buffer the sort worker accepts.
func WithLargeSize(n int64) Option { return func(c *Config) { c.LargeSize = n } }

// WithCompression toggles zstd compression on reader files.
func WithCompression(enabled bool) Option { return func(c *Config) { c.Comp = enabled } }

// WithSortPeriod overrides the sort worker's idle tick.
func WithSortPeriod(d time.Duration) Option { return func(c *Config) { c.SortPeriod = d } }

// WithSyncPeriod overrides the sync worker's tick.
func WithSyncPeriod(d time.Duration) Option { return func(c *Config) { c.SyncPeriod = d } }

// defaultConfig matches the original's documented defaults: a few
// megabytes of in-memory sort budget, sync every few seconds.
func defaultConfig() Config {
	return Config{
		AllocSize:  8 << 20,
		LargeSize:  64 << 20,
		Comp:       true,
		SortPeriod: 2 * time.Second,
		SyncPeriod: 5 * time.Second,
	}
}

// NewConfig builds a Config from defaults plus opts.
func NewConfig(opts ...Option) Config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
