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
	"time"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func (fs *adapter) MkDir(ctx context.Context, req *MkDirRequest) (*MkDirResponse, error) {
	_, finish := fs.startOp(ctx, "MkDir")

	entry, err := fs.mkdirTx(req)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &MkDirResponse{Entry: *entry}, nil
}

func (fs *adapter) mkdirTx(req *MkDirRequest) (*ChildInodeEntry, error) {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	parent, err := attrs.Get(tx, req.Parent)
	if err != nil {
		return nil, err
	}
	if !perm.Check(parent.Uid, parent.Gid, parent.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		return nil, errPermissionDenied
	}

	parentName, err := fs.nameOfTx(tx, req.Parent)
	if err != nil {
		return nil, err
	}
	parentPrefixed := req.Parent != RootIno && names.IsTagPrefixed(fs.prefix, parentName)
	namePrefixed := names.IsTagPrefixed(fs.prefix, req.Name)

	var parentTags []int64
	if parentPrefixed {
		parentTags, err = tags.Of(tx, req.Parent)
		if err != nil {
			return nil, err
		}
	}

	var tid int64
	if namePrefixed {
		tid, err = tags.Resolve(tx, req.Name)
		if err != nil {
			return nil, err
		}
		if parentPrefixed && containsTid(parentTags, tid) {
			return nil, ErrTagRedundant
		}
	}

	now := time.Now()
	newIno, err := attrs.Insert(tx, store.FileAttr{
		Kind: store.KindDirectory, Perm: req.Mode & 0o777, Nlink: 2,
		Uid: req.Header.Uid, Gid: req.Header.Gid,
		Atime: now, Mtime: now, Ctime: now, Crtime: now,
		BlkSize: uint32(fs.pool.PageSize),
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`INSERT INTO file_names (ino, name) VALUES (?, ?)`, newIno, req.Name); err != nil {
		return nil, err
	}

	if parentPrefixed {
		for _, ptag := range parentTags {
			if _, err := tx.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, newIno, ptag); err != nil {
				return nil, err
			}
		}
	}

	// A tag directory created inside a tag parent inherits visibility only
	// via associations; one created inside an ordinary parent (or a tag
	// directory created anywhere) also needs a dir_contents edge so the
	// parent's own enumeration reaches it.
	if !parentPrefixed || namePrefixed {
		if _, err := tx.Exec(`INSERT INTO dir_contents (dir_ino, cnt_ino) VALUES (?, ?)`, req.Parent, newIno); err != nil {
			return nil, err
		}
	}

	if namePrefixed {
		if _, err := tx.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, newIno, tid); err != nil {
			return nil, err
		}
	}

	if err := touchMtimeTx(tx, req.Parent); err != nil {
		return nil, err
	}

	newAttr, err := attrs.Get(tx, newIno)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ChildInodeEntry{
		Child:                newIno,
		Attr:                 newAttr,
		AttributesExpiration: time.Now().Add(entryTimeout),
		EntryExpiration:      time.Now().Add(entryTimeout),
	}, nil
}

func containsTid(tids []int64, tid int64) bool {
	for _, t := range tids {
		if t == tid {
			return true
		}
	}
	return false
}

func (fs *adapter) nameOfTx(tx *sql.Tx, ino int64) (string, error) {
	if ino == RootIno {
		return "/", nil
	}
	var name string
	err := tx.QueryRow(`SELECT name FROM file_names WHERE ino = ?`, ino).Scan(&name)
	return name, err
}

func touchMtimeTx(tx *sql.Tx, ino int64) error {
	now := time.Now().Unix()
	_, err := tx.Exec(`UPDATE file_attrs SET mtime = ?, ctime = ? WHERE ino = ?`, now, now, ino)
	return err
}
