// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog keeps a sqlite index of the traces written by a capture
// layer.
package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/gfxtrace/vkreplay/core/fault"
	"github.com/gfxtrace/vkreplay/vulkan/capture"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// ErrNotFound is returned for a capture the catalog does not hold.
const ErrNotFound = fault.Const("Capture not found")

const schema = `CREATE TABLE IF NOT EXISTS captures (
	id TEXT PRIMARY KEY,
	frame INTEGER NOT NULL,
	path TEXT NOT NULL,
	chunks INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`

// Catalog is a capture.Registrar backed by a sqlite database.
type Catalog struct {
	db *sql.DB
}

var _ capture.Registrar = (*Catalog)(nil)

// Open opens or creates the catalog at dsn.
func Open(dsn string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "Opening catalog %v", dsn)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "Creating catalog schema")
	}
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Register adds or replaces the entry for a written capture.
func (c *Catalog) Register(ctx context.Context, cp capture.Capture) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO captures (id, frame, path, chunks, created_at) VALUES (?, ?, ?, ?, ?)`,
		cp.ID.String(), cp.Frame, cp.Path, cp.Chunks, cp.Time.UnixNano())
	return errors.Wrapf(err, "Registering capture %v", cp.ID)
}

// List returns every capture, newest first.
func (c *Catalog) List(ctx context.Context) ([]capture.Capture, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, frame, path, chunks, created_at FROM captures ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "Listing captures")
	}
	defer rows.Close()
	out := []capture.Capture{}
	for rows.Next() {
		cp, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, errors.Wrap(rows.Err(), "Listing captures")
}

// Get returns the capture with the given ID.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (capture.Capture, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, frame, path, chunks, created_at FROM captures WHERE id = ?`, id.String())
	cp, err := scan(row)
	if errors.Cause(err) == sql.ErrNoRows {
		return cp, ErrNotFound
	}
	return cp, err
}

// Remove deletes the entry for id. The trace file is left alone.
func (c *Catalog) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id.String())
	if err != nil {
		return errors.Wrapf(err, "Removing capture %v", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (capture.Capture, error) {
	var (
		cp      capture.Capture
		id      string
		created int64
	)
	if err := s.Scan(&id, &cp.Frame, &cp.Path, &cp.Chunks, &created); err != nil {
		return cp, errors.Wrap(err, "Reading capture")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return cp, errors.Wrapf(err, "Capture id %q", id)
	}
	cp.ID, cp.Time = parsed, time.Unix(0, created)
	return cp, nil
}
