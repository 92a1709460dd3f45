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

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func (fs *adapter) Rename(ctx context.Context, req *RenameRequest) (*RenameResponse, error) {
	_, finish := fs.startOp(ctx, "Rename")

	if err := fs.renameTx(req); err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &RenameResponse{}, nil
}

// isParentPrefixedTx reports whether a directory inode (excluding root, which
// is always treated as ordinary) is itself a tag directory.
func (fs *adapter) isParentPrefixedTx(tx *sql.Tx, ino int64) (bool, error) {
	if ino == RootIno {
		return false, nil
	}
	name, err := fs.nameOfTx(tx, ino)
	if err != nil {
		return false, err
	}
	return names.IsTagPrefixed(fs.prefix, name), nil
}

func (fs *adapter) renameTx(req *RenameRequest) error {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	oldParent, err := attrs.Get(tx, req.OldParent)
	if err != nil {
		return err
	}
	if !perm.Check(oldParent.Uid, oldParent.Gid, oldParent.Perm, req.Header.Uid, req.Header.Gid, permRead) {
		return errPermissionDenied
	}

	newParent, err := attrs.Get(tx, req.NewParent)
	if err != nil {
		return err
	}
	if !perm.Check(newParent.Uid, newParent.Gid, newParent.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		return errPermissionDenied
	}

	targetIno, ok, err := names.Resolve(tx, fs.prefix, req.OldParent, req.OldName)
	if err != nil {
		return err
	}
	if !ok {
		return errNoSuchEntry
	}

	target, err := attrs.Get(tx, targetIno)
	if err != nil {
		return err
	}
	if !perm.Check(target.Uid, target.Gid, target.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		return errPermissionDenied
	}

	onPref := names.IsTagPrefixed(fs.prefix, req.OldName)
	nnPref := names.IsTagPrefixed(fs.prefix, req.NewName)

	if target.Kind == store.KindDirectory && onPref != nnPref {
		return ErrReprefix
	}

	opPref, err := fs.isParentPrefixedTx(tx, req.OldParent)
	if err != nil {
		return err
	}
	npPref, err := fs.isParentPrefixedTx(tx, req.NewParent)
	if err != nil {
		return err
	}

	// Step 3.3: a no-op rename (same parent, same name) must leave the
	// store untouched (R3). Every other step below is a no-op on its own
	// data, but this short-circuit avoids spuriously bouncing tag rows.
	if req.OldParent == req.NewParent && req.OldName == req.NewName {
		return tx.Commit()
	}

	isTagDir := target.Kind == store.KindDirectory && nnPref

	var taggedChildren []int64
	if isTagDir {
		taggedChildren, err = membershipOf(tx, fs.prefix, targetIno)
		if err != nil {
			return err
		}
	}

	// Step 2: detach from old location.
	if opPref {
		if _, err := tx.Exec(`DELETE FROM associated_tags WHERE ino = ?`, targetIno); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(`DELETE FROM dir_contents WHERE dir_ino = ? AND cnt_ino = ?`, req.OldParent, targetIno); err != nil {
			return err
		}
	}

	// Step 3: attach to new location.
	if npPref {
		newParentTags, err := tags.Of(tx, req.NewParent)
		if err != nil {
			return err
		}
		for _, ntid := range newParentTags {
			if _, err := tx.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, targetIno, ntid); err != nil {
				return err
			}
		}
		if isTagDir {
			if _, err := tx.Exec(`INSERT INTO dir_contents (dir_ino, cnt_ino) VALUES (?, ?)`, req.NewParent, targetIno); err != nil {
				return err
			}
		}
	} else {
		if _, err := tx.Exec(`INSERT INTO dir_contents (dir_ino, cnt_ino) VALUES (?, ?)`, req.NewParent, targetIno); err != nil {
			return err
		}
	}

	// Step 4: if the target is a tag directory, re-tag every descendant
	// under the new name and retire the old tag if orphaned.
	if isTagDir {
		newTid, err := tags.Resolve(tx, req.NewName)
		if err != nil {
			return err
		}

		for _, child := range taggedChildren {
			if _, err := tx.Exec(`DELETE FROM associated_tags WHERE ino = ? AND tid = (SELECT tid FROM tags WHERE name = ?)`, child, req.OldName); err != nil {
				return err
			}
		}

		if npPref {
			newParentTags, err := tags.Of(tx, req.NewParent)
			if err != nil {
				return err
			}
			for _, child := range taggedChildren {
				for _, ntid := range newParentTags {
					if _, err := tx.Exec(`INSERT OR IGNORE INTO associated_tags (ino, tid) VALUES (?, ?)`, child, ntid); err != nil {
						return err
					}
				}
			}
		}

		for _, child := range taggedChildren {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO associated_tags (ino, tid) VALUES (?, ?)`, child, newTid); err != nil {
				return err
			}
		}

		oldTid, found, err := tags.Lookup(tx, req.OldName)
		if err != nil {
			return err
		}
		if found {
			if err := tags.DeleteIfOrphan(tx, oldTid); err != nil {
				return err
			}
		}
	}

	// Step 5.
	if req.OldName != req.NewName {
		if _, err := tx.Exec(`UPDATE file_names SET name = ? WHERE ino = ?`, req.NewName, targetIno); err != nil {
			return err
		}
	}

	if err := touchMtimeTx(tx, req.OldParent); err != nil {
		return err
	}
	if req.OldParent != req.NewParent {
		if err := touchMtimeTx(tx, req.NewParent); err != nil {
			return err
		}
	}

	return tx.Commit()
}
