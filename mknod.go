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
	"time"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func (fs *adapter) Mknod(ctx context.Context, req *MknodRequest) (*MknodResponse, error) {
	_, finish := fs.startOp(ctx, "Mknod")

	if req.Kind != store.KindRegularFile {
		finish(ErrUnsupportedKind)
		return nil, toErrno(ErrUnsupportedKind)
	}

	entry, err := fs.mknodTx(req)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &MknodResponse{Entry: *entry}, nil
}

func (fs *adapter) mknodTx(req *MknodRequest) (*ChildInodeEntry, error) {
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

	now := time.Now()
	newIno, err := attrs.Insert(tx, store.FileAttr{
		Kind: store.KindRegularFile, Perm: req.Mode & 0o777, Nlink: 1,
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
		parentTags, err := tags.Of(tx, req.Parent)
		if err != nil {
			return nil, err
		}
		for _, ptag := range parentTags {
			if _, err := tx.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, newIno, ptag); err != nil {
				return nil, err
			}
		}
	} else {
		if _, err := tx.Exec(`INSERT INTO dir_contents (dir_ino, cnt_ino) VALUES (?, ?)`, req.Parent, newIno); err != nil {
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
