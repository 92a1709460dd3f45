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

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
)

func (fs *adapter) Unlink(ctx context.Context, req *UnlinkRequest) (*UnlinkResponse, error) {
	_, finish := fs.startOp(ctx, "Unlink")

	err := fs.unlinkTx(req.Header.Uid, req.Header.Gid, req.Parent, req.Name)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &UnlinkResponse{}, nil
}

// unlinkTx resolves parent/name, checks write permission on the parent and
// on the resolved child, then deletes the child's file_attrs row. Cascades
// (ON DELETE CASCADE in the schema) remove its file_names, file_contents,
// associated_tags, and dir_contents rows.
func (fs *adapter) unlinkTx(uid, gid uint32, parentIno int64, name string) error {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	parent, err := attrs.Get(tx, parentIno)
	if err != nil {
		return err
	}
	if !perm.Check(parent.Uid, parent.Gid, parent.Perm, uid, gid, permWrite) {
		return errPermissionDenied
	}

	childIno, ok, err := names.Resolve(tx, fs.prefix, parentIno, name)
	if err != nil {
		return err
	}
	if !ok {
		return errNoSuchEntry
	}

	child, err := attrs.Get(tx, childIno)
	if err != nil {
		return err
	}
	if !perm.Check(child.Uid, child.Gid, child.Perm, uid, gid, permWrite) {
		return errPermissionDenied
	}

	if _, err := tx.Exec(`DELETE FROM file_attrs WHERE ino = ?`, childIno); err != nil {
		return err
	}

	if err := touchMtimeTx(tx, parentIno); err != nil {
		return err
	}

	return tx.Commit()
}
