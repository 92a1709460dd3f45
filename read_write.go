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
	"github.com/arsmoriendy/htfs/internal/content"
	"github.com/arsmoriendy/htfs/internal/perm"
)

func (fs *adapter) ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error) {
	_, finish := fs.startOp(ctx, "ReadFile")

	a, err := attrs.Get(fs.pool.DB, req.Inode)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}
	if !perm.Check(a.Uid, a.Gid, a.Perm, req.Header.Uid, req.Header.Gid, permRead) {
		finish(errPermissionDenied)
		return nil, toErrno(errPermissionDenied)
	}

	size := req.Size
	if req.Offset >= int64(a.Size) {
		finish(nil)
		return &ReadFileResponse{Data: nil}, nil
	}
	if remaining := int64(a.Size) - req.Offset; int64(size) > remaining {
		size = int(remaining)
	}

	data, err := content.Read(fs.pool.DB, req.Inode, fs.pool.PageSize, req.Offset, size)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &ReadFileResponse{Data: data}, nil
}

func (fs *adapter) WriteFile(ctx context.Context, req *WriteFileRequest) (*WriteFileResponse, error) {
	_, finish := fs.startOp(ctx, "WriteFile")

	err := fs.writeFileTx(req)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &WriteFileResponse{}, nil
}

func (fs *adapter) writeFileTx(req *WriteFileRequest) error {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	a, err := attrs.Get(tx, req.Inode)
	if err != nil {
		return err
	}
	if !perm.Check(a.Uid, a.Gid, a.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		return errPermissionDenied
	}

	if _, err := content.Write(tx, req.Inode, fs.pool.PageSize, req.Offset, req.Data); err != nil {
		return err
	}

	return tx.Commit()
}

// resizeInTx wraps the Paged Content Store's resize in its own transaction,
// used by SetInodeAttributes when a truncate/extend (Size != nil) is
// requested.
func (fs *adapter) resizeInTx(ino int64, newSize uint64) error {
	tx, err := fs.pool.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := content.Resize(tx, ino, fs.pool.PageSize, newSize); err != nil {
		return err
	}

	return tx.Commit()
}
