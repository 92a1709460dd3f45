// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4/database"
)

// modernDriver adapts a modernc.org/sqlite *sql.DB to golang-migrate's
// database.Driver interface. golang-migrate ships its own sqlite3 driver,
// but that one binds to mattn/go-sqlite3 via cgo; this file plays the same
// role for the pure-Go driver the rest of the package uses.
type modernDriver struct {
	db *sql.DB
}

func newModernDriver(db *sql.DB) (*modernDriver, error) {
	d := &modernDriver{db: db}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *modernDriver) ensureVersionTable() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			dirty   INTEGER NOT NULL
		)
	`)
	return err
}

// Open is part of database.Driver but is never called here; the pool is
// always constructed from an already-open *sql.DB via newModernDriver.
func (d *modernDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("modernDriver: Open by URL not supported, use an existing connection")
}

func (d *modernDriver) Close() error {
	return nil
}

// Lock and Unlock are no-ops: the pool this driver rides on is already
// restricted to a single open connection (see Open in db.go), so there is
// no concurrent migrator to exclude.
func (d *modernDriver) Lock() error   { return nil }
func (d *modernDriver) Unlock() error { return nil }

func (d *modernDriver) Run(migration io.Reader) error {
	bytes, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(string(bytes)); err != nil {
		return fmt.Errorf("applying migration: %w", err)
	}
	return nil
}

func (d *modernDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version >= 0 {
		dirtyInt := 0
		if dirty {
			dirtyInt = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`,
			version, dirtyInt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *modernDriver) Version() (version int, dirty bool, err error) {
	var dirtyInt int
	row := d.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`)
	err = row.Scan(&version, &dirtyInt)
	if err == sql.ErrNoRows {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirtyInt == 1, nil
}

func (d *modernDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		names = append(names, name)
	}
	rows.Close()

	for _, name := range names {
		if _, err := d.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
			return err
		}
	}
	return nil
}
