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

// Package names resolves a (parent inode, child name) pair to a child
// inode, honoring tag-intersection visibility for tag-prefixed parents and
// plain containment otherwise. This is §4.3 of the directory model: the one
// place every other engine operation goes through to turn a name into an
// inode.
package names

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/tags"
)

// ErrAmbiguous is returned when more than one row in the candidate set
// shares the requested name — an internal invariant violation that the
// caller should treat as ENOENT and log, per §4.3.
var ErrAmbiguous = errors.New("names: ambiguous child name")

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// IsTagPrefixed reports whether name begins with prefix. A derived
// predicate, never a stored flag (§9 Design Notes): every caller recomputes
// it from the name string.
func IsTagPrefixed(prefix, name string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix)
}

// Resolve finds the child of parentIno named name. ok is false if no row
// matches; err is ErrAmbiguous if more than one did.
func Resolve(q Queryer, prefix string, parentIno int64, name string) (childIno int64, ok bool, err error) {
	candidateSQL, candidateArgs, err := candidateSetSQL(q, prefix, parentIno)
	if err != nil {
		return 0, false, err
	}

	query := fmt.Sprintf(
		`SELECT c.ino FROM (%s) AS c JOIN file_names ON file_names.ino = c.ino WHERE file_names.name = ?`,
		candidateSQL)
	args := append(append([]interface{}{}, candidateArgs...), name)

	rows, err := q.Query(query, args...)
	if err != nil {
		return 0, false, err
	}
	defer rows.Close()

	var found []int64
	for rows.Next() {
		var ino int64
		if err := rows.Scan(&ino); err != nil {
			return 0, false, err
		}
		found = append(found, ino)
	}
	if err := rows.Err(); err != nil {
		return 0, false, err
	}

	switch len(found) {
	case 0:
		return 0, false, nil
	case 1:
		return found[0], true, nil
	default:
		return 0, false, ErrAmbiguous
	}
}

// candidateSetSQL builds the SELECT whose rows are the inodes visible as
// direct children of parentIno, per §4.3:
//
//  1. parentIno == root: dir_contents[dir_ino=1].
//  2. parent is tag-prefixed: tagged_intersection(tags_of(parent)) ∪
//     dir_contents[dir_ino=parent].
//  3. otherwise: dir_contents[dir_ino=parent].
func candidateSetSQL(q Queryer, prefix string, parentIno int64) (string, []interface{}, error) {
	if parentIno == store.RootIno {
		return `SELECT cnt_ino AS ino FROM dir_contents WHERE dir_ino = ?`, []interface{}{parentIno}, nil
	}

	var parentName string
	err := q.QueryRow(`SELECT name FROM file_names WHERE ino = ?`, parentIno).Scan(&parentName)
	if err == sql.ErrNoRows {
		return "", nil, sql.ErrNoRows
	}
	if err != nil {
		return "", nil, err
	}

	if !IsTagPrefixed(prefix, parentName) {
		return `SELECT cnt_ino AS ino FROM dir_contents WHERE dir_ino = ?`, []interface{}{parentIno}, nil
	}

	tids, err := tags.Of(q, parentIno)
	if err != nil {
		return "", nil, err
	}

	intersectionSQL, intersectionArgs := tags.IntersectionSQL(tids)
	sqlStr := fmt.Sprintf(
		`%s UNION SELECT cnt_ino AS ino FROM dir_contents WHERE dir_ino = ?`,
		intersectionSQL)
	args := append(append([]interface{}{}, intersectionArgs...), parentIno)
	return sqlStr, args, nil
}
