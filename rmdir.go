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

package htfs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func (fs *adapter) RmDir(ctx context.Context, req *RmDirRequest) (*RmDirResponse, error) {
	_, finish := fs.startOp(ctx, "RmDir")

	err := fs.rmdirTx(req)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &RmDirResponse{}, nil
}

func (fs *adapter) rmdirTx(req *RmDirRequest) error {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parent, err := attrs.Get(tx, req.Parent)
	if err != nil {
		return err
	}
	if !perm.Check(parent.Uid, parent.Gid, parent.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		return errPermissionDenied
	}

	childIno, ok, err := names.Resolve(tx, fs.prefix, req.Parent, req.Name)
	if err != nil {
		return err
	}
	if !ok {
		return errNoSuchEntry
	}

	var childCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM dir_contents WHERE dir_ino = ?`, childIno).Scan(&childCount); err != nil {
		return err
	}
	if childCount > 0 {
		return ErrNotEmpty
	}

	if names.IsTagPrefixed(fs.prefix, req.Name) {
		tid, found, err := tags.Lookup(tx, req.Name)
		if err != nil {
			return err
		}
		if found {
			members, err := membershipOf(tx, fs.prefix, childIno)
			if err != nil {
				return err
			}
			for _, ino := range members {
				if _, err := tx.Exec(`DELETE FROM associated_tags WHERE ino = ? AND tid = ?`, ino, tid); err != nil {
					return err
				}
			}
			if err := tags.DeleteIfOrphan(tx, tid); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM file_attrs WHERE ino = ?`, childIno); err != nil {
		return err
	}

	if err := touchMtimeTx(tx, req.Parent); err != nil {
		return err
	}

	return tx.Commit()
}

// membershipOf returns the inodes visible through a tag directory, per the
// glossary: tagged_intersection(tags_of(D)) ∪ dir_contents[dir_ino=D].
func membershipOf(tx *sql.Tx, prefix string, ino int64) ([]int64, error) {
	tids, err := tags.Of(tx, ino)
	if err != nil {
		return nil, err
	}
	intersectionSQL, intersectionArgs := tags.IntersectionSQL(tids)

	query := fmt.Sprintf(`%s UNION SELECT cnt_ino AS ino FROM dir_contents WHERE dir_ino = ?`, intersectionSQL)
	args := append(append([]interface{}{}, intersectionArgs...), ino)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var i int64
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}
