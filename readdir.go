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
	"fmt"
	"time"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }

func (fs *adapter) ReadDir(ctx context.Context, req *ReadDirRequest) (*ReadDirResponse, error) {
	_, finish := fs.startOp(ctx, "ReadDir")

	dir, err := attrs.Get(fs.pool.DB, req.Inode)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}
	if !perm.Check(dir.Uid, dir.Gid, dir.Perm, req.Header.Uid, req.Header.Gid, permRead) {
		finish(errPermissionDenied)
		return nil, toErrno(errPermissionDenied)
	}

	dirName, err := fs.nameOf(req.Inode)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	rows, err := fs.readdirRows(req.Inode, dirName)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	if req.Offset < 0 || req.Offset > len(rows) {
		rows = nil
	} else {
		rows = rows[req.Offset:]
	}

	entries := make([]Dirent, len(rows))
	for i, r := range rows {
		entries[i] = Dirent{Ino: r.Attr.Ino, Name: r.Name, Kind: r.Attr.Kind}
	}

	if err := attrs.TouchAtime(fs.pool.DB, req.Inode); err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &ReadDirResponse{Entries: entries}, nil
}

func (fs *adapter) nameOf(ino int64) (string, error) {
	if ino == RootIno {
		return "/", nil
	}
	var name string
	err := fs.pool.DB.QueryRow(`SELECT name FROM file_names WHERE ino = ?`, ino).Scan(&name)
	return name, err
}

// readdirRows implements §4.6 readdir's candidate-set rule, ordered by ino
// ascending as required:
//
//   - Ordinary directory (or root, handled as ordinary): dir_contents[self].
//   - Tag directory: tagged_intersection(tags_of(self)), filtered to drop
//     names that are themselves tag-prefixed (so a nested tag directory
//     doesn't appear twice, once via intersection and once via its
//     dir_contents edge), unioned with dir_contents[self] unfiltered.
func (fs *adapter) readdirRows(dirIno int64, dirName string) ([]store.ReadDirRow, error) {
	if !names.IsTagPrefixed(fs.prefix, dirName) {
		return fs.queryReaddirRows(
			`SELECT `+store.FileAttrColumns+`, name
			 FROM readdir_rows
			 WHERE ino IN (SELECT cnt_ino FROM dir_contents WHERE dir_ino = ?)
			 ORDER BY ino ASC`,
			[]interface{}{dirIno})
	}

	tids, err := tags.Of(fs.pool.DB, dirIno)
	if err != nil {
		return nil, err
	}
	intersectionSQL, intersectionArgs := tags.IntersectionSQL(tids)

	query := fmt.Sprintf(`
		SELECT %s, name
		FROM readdir_rows
		WHERE ino IN (
			SELECT c.ino FROM (%s) AS c
			JOIN file_names ON file_names.ino = c.ino
			WHERE file_names.name NOT LIKE ?
			UNION
			SELECT cnt_ino FROM dir_contents WHERE dir_ino = ?
		)
		ORDER BY ino ASC`,
		store.FileAttrColumns, intersectionSQL)

	args := append(append([]interface{}{}, intersectionArgs...), fs.prefix+"%", dirIno)
	return fs.queryReaddirRows(query, args)
}

func (fs *adapter) queryReaddirRows(query string, args []interface{}) ([]store.ReadDirRow, error) {
	rows, err := fs.pool.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ReadDirRow
	for rows.Next() {
		var (
			ino, size, blocks, atime, mtime, ctime, crtime    int64
			kind, perm, nlink, uid, gid, rdev, blksize, flags int64
			name                                              string
		)
		if err := rows.Scan(
			&ino, &size, &blocks, &atime, &mtime, &ctime, &crtime,
			&kind, &perm, &nlink, &uid, &gid, &rdev, &blksize, &flags,
			&name,
		); err != nil {
			return nil, err
		}

		out = append(out, store.ReadDirRow{
			Attr: store.FileAttr{
				Ino: ino, Size: uint64(size), Blocks: uint64(blocks),
				Atime: unixTime(atime), Mtime: unixTime(mtime), Ctime: unixTime(ctime), Crtime: unixTime(crtime),
				Kind: store.Kind(kind), Perm: uint32(perm), Nlink: uint32(nlink),
				Uid: uint32(uid), Gid: uint32(gid), Rdev: uint32(rdev),
				BlkSize: uint32(blksize), Flags: uint32(flags),
			},
			Name: name,
		})
	}
	return out, rows.Err()
}
