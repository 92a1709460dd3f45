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

package main

import (
	"context"
	"log"
	"os"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"

	"github.com/arsmoriendy/htfs"
	"github.com/arsmoriendy/htfs/internal/store"
)

// bridge adapts an htfs.FileSystem (stateless, no handles) to the
// fuseutil.FileSystem interface the jacobsa/fuse server dispatches onto.
// It is the FUSE Adapter's outermost layer: everything specific to this
// mount (the prefix, logging) lives in htfs.FileSystem already, so this
// type only has to translate op shapes; every directory/file handle id it
// hands the kernel is left at zero, since HTFS itself is stateless.
type bridge struct {
	fuseutil.NotImplementedFileSystem
	fs     htfs.FileSystem
	prefix string
	log    *logrus.Logger
}

func newServer(fs htfs.FileSystem, prefix string, log *logrus.Logger) fuse.Server {
	return fuseutil.NewFileSystemServer(&bridge{fs: fs, prefix: prefix, log: log})
}

func stdLogger(l *logrus.Logger) *log.Logger {
	return log.New(l.Writer(), "", 0)
}

func header(uid, gid uint32) htfs.RequestHeader {
	return htfs.RequestHeader{Uid: uid, Gid: gid}
}

func toAttr(a store.FileAttr) fuseops.InodeAttributes {
	mode := os.FileMode(a.Perm & 0o777)
	if a.Kind == store.KindDirectory {
		mode |= os.ModeDir
	}
	return fuseops.InodeAttributes{
		Size:   a.Size,
		Nlink:  a.Nlink,
		Mode:   mode,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Crtime,
		Uid:    a.Uid,
		Gid:    a.Gid,
	}
}

func (b *bridge) Destroy() {
	_, _ = b.fs.Destroy(context.Background(), &htfs.DestroyRequest{})
}

func (b *bridge) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	resp, err := b.fs.LookUpInode(ctx, &htfs.LookUpInodeRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
	})
	if err != nil {
		return err
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(resp.Entry.Child),
		Attributes:           toAttr(resp.Entry.Attr),
		AttributesExpiration: resp.Entry.AttributesExpiration,
		EntryExpiration:      resp.Entry.EntryExpiration,
	}
	return nil
}

func (b *bridge) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	resp, err := b.fs.GetInodeAttributes(ctx, &htfs.GetInodeAttributesRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Inode:  int64(op.Inode),
	})
	if err != nil {
		return err
	}
	op.Attributes = toAttr(resp.Attr)
	op.AttributesExpiration = resp.AttributesExpiration
	return nil
}

func (b *bridge) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	req := &htfs.SetInodeAttributesRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Inode:  int64(op.Inode),
		Atime:  op.Atime,
		Mtime:  op.Mtime,
	}
	if op.Size != nil {
		req.Size = op.Size
	}
	if op.Mode != nil {
		m := uint32(*op.Mode & 0o777)
		req.Mode = &m
	}

	resp, err := b.fs.SetInodeAttributes(ctx, req)
	if err != nil {
		return err
	}
	op.Attributes = toAttr(resp.Attr)
	op.AttributesExpiration = resp.AttributesExpiration
	return nil
}

func (b *bridge) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	return nil
}

func (b *bridge) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	resp, err := b.fs.MkDir(ctx, &htfs.MkDirRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
		Mode:   uint32(op.Mode & 0o777),
	})
	if err != nil {
		return err
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(resp.Entry.Child),
		Attributes:           toAttr(resp.Entry.Attr),
		AttributesExpiration: resp.Entry.AttributesExpiration,
		EntryExpiration:      resp.Entry.EntryExpiration,
	}
	return nil
}

func (b *bridge) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	resp, err := b.fs.Mknod(ctx, &htfs.MknodRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
		Mode:   uint32(op.Mode & 0o777),
		Kind:   store.KindRegularFile,
	})
	if err != nil {
		return err
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(resp.Entry.Child),
		Attributes:           toAttr(resp.Entry.Attr),
		AttributesExpiration: resp.Entry.AttributesExpiration,
		EntryExpiration:      resp.Entry.EntryExpiration,
	}
	return nil
}

func (b *bridge) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	resp, err := b.fs.Mknod(ctx, &htfs.MknodRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
		Mode:   uint32(op.Mode & 0o777),
		Kind:   store.KindRegularFile,
	})
	if err != nil {
		return err
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:                fuseops.InodeID(resp.Entry.Child),
		Attributes:           toAttr(resp.Entry.Attr),
		AttributesExpiration: resp.Entry.AttributesExpiration,
		EntryExpiration:      resp.Entry.EntryExpiration,
	}
	return nil
}

func (b *bridge) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	_, err := b.fs.RmDir(ctx, &htfs.RmDirRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
	})
	return err
}

func (b *bridge) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	_, err := b.fs.Unlink(ctx, &htfs.UnlinkRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Parent: int64(op.Parent),
		Name:   op.Name,
	})
	return err
}

func (b *bridge) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	_, err := b.fs.Rename(ctx, &htfs.RenameRequest{
		Header:    header(op.OpContext.Uid, op.OpContext.Gid),
		OldParent: int64(op.OldParent),
		OldName:   op.OldName,
		NewParent: int64(op.NewParent),
		NewName:   op.NewName,
	})
	return err
}

// OpenDir and OpenFile are no-ops: HTFS keeps no handle state, per §9's "No
// handles". The zero handle id is reused for every open.
func (b *bridge) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error   { return nil }
func (b *bridge) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error { return nil }

func (b *bridge) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	resp, err := b.fs.ReadDir(ctx, &htfs.ReadDirRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Inode:  int64(op.Inode),
		Offset: int(op.Offset),
	})
	if err != nil {
		return err
	}

	n := 0
	for i, e := range resp.Entries {
		dirent := fuseutil.Dirent{
			Offset: fuseops.DirOffset(int(op.Offset) + i + 1),
			Inode:  fuseops.InodeID(e.Ino),
			Name:   e.Name,
			Type:   direntType(e.Kind),
		}
		written := fuseutil.WriteDirent(op.Dst[n:], dirent)
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

func direntType(k store.Kind) fuseutil.DirentType {
	if k == store.KindDirectory {
		return fuseutil.DT_Directory
	}
	return fuseutil.DT_File
}

func (b *bridge) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	return nil
}

func (b *bridge) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	resp, err := b.fs.ReadFile(ctx, &htfs.ReadFileRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Inode:  int64(op.Inode),
		Offset: op.Offset,
		Size:   len(op.Dst),
	})
	if err != nil {
		return err
	}
	n := copy(op.Dst, resp.Data)
	op.BytesRead = n
	return nil
}

func (b *bridge) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	_, err := b.fs.WriteFile(ctx, &htfs.WriteFileRequest{
		Header: header(op.OpContext.Uid, op.OpContext.Gid),
		Inode:  int64(op.Inode),
		Offset: op.Offset,
		Data:   op.Data,
	})
	return err
}

func (b *bridge) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error   { return nil }
func (b *bridge) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error { return nil }

func (b *bridge) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	return nil
}

func (b *bridge) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = uint32(4096)
	op.IoSize = uint32(4096)
	return nil
}
