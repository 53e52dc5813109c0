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

package model

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nowdb/nowdb/xerror"
)

// Database is the top-level, persisted catalog at <base>/catalog (spec
// §6 Persisted state layout): the set of contexts (stores) a database
// owns, keyed by name.
type Database struct {
	Path     string             `json:"-"`
	Contexts map[string]*stored `json:"contexts"`
}

// stored is the durable projection of a Context: enough to recreate its
// model and reopen its store without re-running DDL.
type stored struct {
	ID      string            `json:"id"`
	RecSize RecSize           `json:"recsize"`
	Indices []IndexDescriptor `json:"indices"`
}

// OpenDatabase loads <base>/catalog, creating an empty one if absent.
func OpenDatabase(base string) (*Database, *xerror.Error) {
	db := &Database{Path: filepath.Join(base, "catalog"), Contexts: make(map[string]*stored)}
	data, err := os.ReadFile(db.Path)
	if os.IsNotExist(err) {
		return db, nil
	}
	if err != nil {
		return nil, xerror.Get(xerror.Catalog, 0, db.Path, err.Error())
	}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, xerror.Get(xerror.Catalog, 0, db.Path, "corrupt database catalog: "+err.Error())
	}
	return db, nil
}

// Register adds ctx to the database catalog (in memory; call Flush to persist).
func (db *Database) Register(ctx *Context) {
	s := &stored{ID: ctx.ID.String(), RecSize: ctx.RecSize}
	for _, idx := range ctx.Indices {
		s.Indices = append(s.Indices, *idx)
	}
	db.Contexts[ctx.Name] = s
}

// Flush atomically persists the database catalog: write-to-temp, then
// rename over the live file (spec §4.4's catalog durability strategy,
// reused here at the database level).
func (db *Database) Flush() *xerror.Error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return xerror.Get(xerror.Catalog, 0, db.Path, err.Error())
	}
	tmp := db.Path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
		return xerror.Get(xerror.Open, 0, db.Path, err.Error())
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerror.Get(xerror.Write, 0, tmp, err.Error())
	}
	f, err := os.Open(tmp)
	if err == nil {
		f.Sync()
		f.Close()
	}
	if err := os.Rename(tmp, db.Path); err != nil {
		return xerror.Get(xerror.Move, 0, db.Path, err.Error())
	}
	return nil
}
