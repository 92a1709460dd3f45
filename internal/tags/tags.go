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

// Package tags resolves tag membership: the tags associated with an inode,
// and the set of inodes carrying every tag in a given list (the
// intersection that makes a chain of tag directories behave like an AND
// filter over the inode pool).
package tags

import (
	"database/sql"
	"fmt"
	"strings"
)

// Of returns the tag ids associated with ino, in no particular order.
// Grounded on the original's get_associated_tags.
func Of(q Queryer, ino int64) ([]int64, error) {
	rows, err := q.Query(`SELECT tid FROM associated_tags WHERE ino = ?`, ino)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tids []int64
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			return nil, err
		}
		tids = append(tids, tid)
	}
	return tids, rows.Err()
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Resolve returns the tid for name, creating the tags row if it does not
// already exist. Grounded on fs.rs's SELECT-then-INSERT...RETURNING idiom
// for tag creation on first use.
func Resolve(q Queryer, name string) (int64, error) {
	var tid int64
	err := q.QueryRow(`SELECT tid FROM tags WHERE name = ?`, name).Scan(&tid)
	if err == nil {
		return tid, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	err = q.QueryRow(`INSERT INTO tags (name) VALUES (?) RETURNING tid`, name).Scan(&tid)
	if err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", name, err)
	}
	return tid, nil
}

// Lookup returns the tid for name without creating it. The second return
// value is false if no such tag exists.
func Lookup(q Queryer, name string) (int64, bool, error) {
	var tid int64
	err := q.QueryRow(`SELECT tid FROM tags WHERE name = ?`, name).Scan(&tid)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return tid, true, nil
}

// DeleteIfOrphan removes the tags row for tid if no associated_tags rows
// reference it any longer. Carried from the original's rmdir/rename
// cleanup, which drops a tag's catalog row once its last association is
// gone.
func DeleteIfOrphan(q Queryer, tid int64) error {
	var count int
	err := q.QueryRow(`SELECT COUNT(*) FROM associated_tags WHERE tid = ?`, tid).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = q.Exec(`DELETE FROM tags WHERE tid = ?`, tid)
	return err
}

// IntersectionSQL builds the canonical recursively-nested fragment from
// §4.2: "SELECT ino FROM associated_tags WHERE tid = ? AND ino IN (...)"
// for the given tids, returning the fragment and its bind args in order.
// An empty tids list yields a fragment that matches nothing, not every
// inode.
//
// Grounded on original_source/src/db_helpers/mod.rs's chain_tagged_inos,
// which builds the same nested form with a strings.Builder equivalent
// (a Rust QueryBuilder) rather than concatenating values into the string.
func IntersectionSQL(tids []int64) (fragment string, args []interface{}) {
	if len(tids) == 0 {
		return `SELECT ino FROM associated_tags WHERE 0`, nil
	}

	var b strings.Builder
	for i := range tids {
		b.WriteString(`SELECT ino FROM associated_tags WHERE tid = ?`)
		if i != len(tids)-1 {
			b.WriteString(` AND ino IN (`)
		}
	}
	for range tids[1:] {
		b.WriteString(`)`)
	}

	args = make([]interface{}, len(tids))
	for i, tid := range tids {
		args[i] = tid
	}
	return b.String(), args
}

// Membership returns every inode carrying all of tids. Equivalent to
// executing IntersectionSQL directly; provided as a convenience for callers
// that just want the inode list rather than a composable fragment.
func Membership(q Queryer, tids []int64) ([]int64, error) {
	fragment, args := IntersectionSQL(tids)
	rows, err := q.Query(fragment, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inos []int64
	for rows.Next() {
		var ino int64
		if err := rows.Scan(&ino); err != nil {
			return nil, err
		}
		inos = append(inos, ino)
	}
	return inos, rows.Err()
}
