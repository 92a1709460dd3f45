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

// Package attrs inserts and updates file_attrs rows and provides the
// access/modification-time touch helpers every mutating operation ends
// with.
package attrs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/arsmoriendy/htfs/internal/store"
)

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Insert inserts a with ino left for auto-assignment and returns the
// generated id, via INSERT ... RETURNING as required by §6.
func Insert(q Queryer, a store.FileAttr) (int64, error) {
	var ino int64
	err := q.QueryRow(`
		INSERT INTO file_attrs
			(size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ino`,
		a.Size, a.Blocks,
		a.Atime.Unix(), a.Mtime.Unix(), a.Ctime.Unix(), a.Crtime.Unix(),
		int(a.Kind), a.Perm, a.Nlink, a.Uid, a.Gid, a.Rdev, a.BlkSize, a.Flags,
	).Scan(&ino)
	if err != nil {
		return 0, fmt.Errorf("inserting attrs: %w", err)
	}
	return ino, nil
}

// Update replaces every non-key column of the row keyed by a.Ino.
func Update(q Queryer, a store.FileAttr) error {
	_, err := q.Exec(`
		UPDATE file_attrs SET
			size = ?, blocks = ?, atime = ?, mtime = ?, ctime = ?, crtime = ?,
			kind = ?, perm = ?, nlink = ?, uid = ?, gid = ?, rdev = ?, blksize = ?, flags = ?
		WHERE ino = ?`,
		a.Size, a.Blocks,
		a.Atime.Unix(), a.Mtime.Unix(), a.Ctime.Unix(), a.Crtime.Unix(),
		int(a.Kind), a.Perm, a.Nlink, a.Uid, a.Gid, a.Rdev, a.BlkSize, a.Flags,
		a.Ino,
	)
	if err != nil {
		return fmt.Errorf("updating attrs for ino %d: %w", a.Ino, err)
	}
	return nil
}

// Get fetches the attrs row for ino. Returns sql.ErrNoRows if absent.
func Get(q Queryer, ino int64) (store.FileAttr, error) {
	row := q.QueryRow(`SELECT `+store.FileAttrColumns+` FROM file_attrs WHERE ino = ?`, ino)
	return store.ScanFileAttr(row)
}

// TouchMtime sets mtime (and ctime, which always tracks an inode-content or
// metadata change) to the current second.
func TouchMtime(q Queryer, ino int64) error {
	now := time.Now().Unix()
	_, err := q.Exec(`UPDATE file_attrs SET mtime = ?, ctime = ? WHERE ino = ?`, now, now, ino)
	return err
}

// TouchAtime sets atime to the current second.
func TouchAtime(q Queryer, ino int64) error {
	now := time.Now().Unix()
	_, err := q.Exec(`UPDATE file_attrs SET atime = ? WHERE ino = ?`, now, ino)
	return err
}
