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
	"embed"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultPageSize is used when the database reports a zero page_size
// pragma. A brand new file already reports SQLite's default page size, so
// this is a fallback only.
const DefaultPageSize = 4096

// Pool wraps the single shared connection the whole process uses. Per the
// concurrency model, at most one operation is in flight at a time, so the
// pool is opened with exactly one open connection: the driver itself then
// serializes every statement, and no additional locking is needed above it.
type Pool struct {
	DB       *sql.DB
	PageSize int
}

// Open opens (and, if create is true, creates) the sqlite file at path,
// applies all migrations, and returns a ready Pool. log receives a line for
// the applied migration version, mirroring the teacher's convention of a
// single structured logger threaded through from the CLI.
//
// Per §6, "--new/-n creates the database file ... if absent" implies the
// converse: without create, a missing path is an error rather than a
// silent fresh database, even though modernc.org/sqlite itself creates
// whatever file its DSN names.
func Open(path string, create bool, log *logrus.Logger) (*Pool, error) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
	}

	dsn := path
	if create {
		dsn = path + "?_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	pageSize, err := readPageSize(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := migrateUp(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Pool{DB: db, PageSize: pageSize}, nil
}

func readPageSize(db *sql.DB) (int, error) {
	var pageSize int
	if err := db.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("reading page_size pragma: %w", err)
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return pageSize, nil
}

func migrateUp(db *sql.DB, log *logrus.Logger) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	dbDriver, err := newModernDriver(db)
	if err != nil {
		return fmt.Errorf("wrapping connection for migrate: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "htfs", dbDriver)
	if err != nil {
		return fmt.Errorf("constructing migrator: %w", err)
	}

	start := time.Now()
	err = m.Up()
	if err == migrate.ErrNoChange {
		log.WithField("elapsed", time.Since(start)).Debug("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, _, verr := m.Version()
	if verr == nil {
		log.WithFields(logrus.Fields{
			"version": version,
			"elapsed": time.Since(start),
		}).Info("applied migrations")
	}
	return nil
}

// Bootstrap idempotently inserts the mountpoint's file_attrs row (ino=1),
// owned by uid/gid, the first time the database is mounted. Carried from
// the original implementation's init, which performs the same insert under
// INSERT OR IGNORE semantics.
func Bootstrap(db *sql.DB, uid, gid uint32, perm uint32) error {
	now := time.Now().Unix()
	_, err := db.Exec(`
		INSERT OR IGNORE INTO file_attrs
			(ino, size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags)
		VALUES
			(?, 0, 0, ?, ?, ?, ?, ?, ?, 2, ?, ?, 0, ?, 0)`,
		RootIno, now, now, now, now, KindDirectory, perm, uid, gid, DefaultPageSize)
	if err != nil {
		return fmt.Errorf("bootstrapping root inode: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO file_names (ino, name) VALUES (?, '/')`, RootIno)
	if err != nil {
		return fmt.Errorf("bootstrapping root name: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Carried from the original's
// destroy, which simply drops the pool.
func (p *Pool) Close() error {
	return p.DB.Close()
}
